package transcriber

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"voxd/audio"
	"voxd/config"
	"voxd/encoder"
)

// energyClassifier calls a frame speech when its first sample is loud.
type energyClassifier struct{}

func (energyClassifier) Speech(frame []byte) (bool, error) {
	s := int16(binary.LittleEndian.Uint16(frame))
	return s > 1000 || s < -1000, nil
}

type scripted struct {
	labels []bool
	i      int
}

func (s *scripted) Speech([]byte) (bool, error) {
	v := s.labels[s.i]
	s.i++
	return v, nil
}

func pcmOf(ms int, level int16) []byte {
	n := audio.SampleRate * ms / 1000
	out := make([]byte, n*2)
	for i := range n {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(level))
	}
	return out
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

type fakeRecognizer struct {
	mu    sync.Mutex
	calls [][]byte
	reply func(n int, wav []byte) (string, error)
}

func (f *fakeRecognizer) Transcribe(_ context.Context, up encoder.Upload) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, up.Data)
	n := len(f.calls)
	f.mu.Unlock()
	return f.reply(n, up.Data)
}

func newTestWhisper(pcm []byte, rec *fakeRecognizer) *Whisper {
	return &Whisper{
		Recognizer:    func(config.Session) Recognizer { return rec },
		NewContext:    func() (audio.Context, error) { return audio.NewFakeContext(pcm, false), nil },
		NewClassifier: func() (Classifier, error) { return energyClassifier{}, nil },
	}
}

func TestSegmenterEvents(t *testing.T) {
	cfg := Segmentation{PostSpeechSilence: 60 * time.Millisecond, MinLength: 60 * time.Millisecond, PreRoll: 40 * time.Millisecond, Onset: 2}
	// silence x3, speech x4, silence x3
	labels := []bool{false, false, false, true, true, true, true, false, false, false}
	seg := newSegmenter(&scripted{labels: labels}, cfg)

	var events []segEvent
	for i := range labels {
		ev, err := seg.Push([]byte{byte(i)})
		if err != nil {
			t.Fatal(err)
		}
		events = append(events, ev)
	}
	want := []segEvent{segNone, segNone, segNone, segNone, segStart, segNone, segNone, segNone, segNone, segEnd}
	if !slices.Equal(events, want) {
		t.Fatalf("events = %v, want %v", events, want)
	}
	// Pre-roll (2 frames) + onset (2) + 2 speech + 3 silence.
	if got := seg.Take(); !bytes.Equal(got, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}) {
		t.Errorf("utterance = %v", got)
	}
	if seg.Active() {
		t.Error("still active after end")
	}
}

func TestSegmenterDiscardsShortBursts(t *testing.T) {
	cfg := Segmentation{PostSpeechSilence: 40 * time.Millisecond, MinLength: 100 * time.Millisecond, Onset: 1}
	labels := []bool{true, true, false, false}
	seg := newSegmenter(&scripted{labels: labels}, cfg)

	var last segEvent
	for range labels {
		var err error
		if last, err = seg.Push([]byte{0}); err != nil {
			t.Fatal(err)
		}
	}
	if last != segDiscard {
		t.Fatalf("last event %v, want discard", last)
	}
	if len(seg.Current()) != 0 {
		t.Error("discarded audio retained")
	}
}

func TestStreamPhrase(t *testing.T) {
	pcm := concat(pcmOf(100, 0), pcmOf(200, 30), pcmOf(100, 0), pcmOf(700, 8000), pcmOf(800, 0))
	rec := &fakeRecognizer{reply: func(int, []byte) (string, error) { return "  hello world ", nil }}
	w := newTestWhisper(pcm, rec)

	src, err := w.Open(context.Background(), config.Session{Model: "base.en", WordByWord: false})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	partials := 0
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	text, err := src.Next(ctx, func(string) { partials++ })
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if partials != 0 {
		t.Errorf("phrase mode delivered %d partials", partials)
	}
	if len(rec.calls) != 1 {
		t.Fatalf("recognizer called %d times", len(rec.calls))
	}
	// At least the voiced 700 ms must have been sent.
	if n := len(rec.calls[0]); n < 44+audio.SampleRate*2*7/10 {
		t.Errorf("wav only %d bytes", n)
	}
}

func TestStreamPartials(t *testing.T) {
	pcm := concat(pcmOf(40, 0), pcmOf(600, 8000), pcmOf(600, 0))
	words := []string{"one", "one two", "one two three"}
	rec := &fakeRecognizer{reply: func(n int, _ []byte) (string, error) {
		return words[min(n, len(words))-1], nil
	}}
	w := newTestWhisper(pcm, rec)
	w.PartialInterval = time.Nanosecond

	src, err := w.Open(context.Background(), config.Session{Model: "base.en", WordByWord: true})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	var got []string
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	final, err := src.Next(ctx, func(p string) { got = append(got, p) })
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Fatal("no partials delivered")
	}
	if got[0] != "one" {
		t.Errorf("first partial %q", got[0])
	}
	if final == "" {
		t.Error("empty final text")
	}
}

func TestStreamRecognizerError(t *testing.T) {
	pcm := concat(pcmOf(700, 8000), pcmOf(800, 0))
	boom := errors.New("endpoint down")
	rec := &fakeRecognizer{reply: func(int, []byte) (string, error) { return "", boom }}
	src, err := newTestWhisper(pcm, rec).Open(context.Background(), config.Session{Model: "base.en"})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := src.Next(ctx, nil); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
}

func TestStreamCancel(t *testing.T) {
	rec := &fakeRecognizer{reply: func(int, []byte) (string, error) { return "x", nil }}
	src, err := newTestWhisper(nil, rec).Open(context.Background(), config.Session{Model: "base.en"})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := src.Next(ctx, nil); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v", err)
	}
}

func TestProbe(t *testing.T) {
	w := newTestWhisper(nil, nil)
	if err := w.Probe(); err != nil {
		t.Fatal(err)
	}
	w.Device = "no such mic"
	if err := w.Probe(); err == nil {
		t.Fatal("expected error for unknown device")
	}
}

func TestForSession(t *testing.T) {
	if got := ForSession(config.Session{WordByWord: true}); got != WordByWordSegmentation {
		t.Errorf("word-by-word got %+v", got)
	}
	if got := ForSession(config.Session{}); got != PhraseSegmentation {
		t.Errorf("phrase got %+v", got)
	}
}

func TestStreamUploadsFLAC(t *testing.T) {
	pcm := concat(pcmOf(40, 0), pcmOf(700, 8000), pcmOf(800, 0))
	rec := &fakeRecognizer{reply: func(int, []byte) (string, error) { return "flac", nil }}
	w := newTestWhisper(pcm, rec)
	w.Format = encoder.FLAC

	src, err := w.Open(context.Background(), config.Session{Model: "base.en"})
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := src.Next(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if len(rec.calls) == 0 || string(rec.calls[0][:4]) != "fLaC" {
		t.Fatal("upload is not FLAC")
	}
}
