package transcriber

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"voxd/audio"
	"voxd/config"
	"voxd/encoder"
	"voxd/listen"
	"voxd/log"
)

const DefaultPartialInterval = 400 * time.Millisecond

// Whisper opens microphone-backed sources. The zero value is not usable;
// fill in at least Recognizer.
type Whisper struct {
	Recognizer    func(s config.Session) Recognizer
	NewContext    func() (audio.Context, error)
	NewClassifier func() (Classifier, error)

	Device string
	Gain   int
	Format encoder.Format

	// Segmentation overrides ForSession when non-nil.
	Segmentation *Segmentation
	// Partials enables in-progress hypotheses in phrase mode too.
	Partials        bool
	PartialInterval time.Duration
}

// NewWhisper wires the real microphone, VAD and endpoint.
func NewWhisper(cfg config.Config) *Whisper {
	return &Whisper{
		Recognizer:    func(s config.Session) Recognizer { return NewOpenAI(cfg, s) },
		NewContext:    audio.NewContext,
		NewClassifier: func() (Classifier, error) { return NewWebRTCClassifier(VADMode) },
		Format:        cfg.UploadFormat,
	}
}

// Probe checks that a capture device exists.
func (w *Whisper) Probe() error {
	actx, err := w.NewContext()
	if err != nil {
		return err
	}
	defer actx.Close()
	_, err = audio.FindDevice(actx, w.Device)
	return err
}

func (w *Whisper) Open(ctx context.Context, s config.Session) (listen.Source, error) {
	return w.OpenStream(ctx, s)
}

func (w *Whisper) OpenStream(_ context.Context, s config.Session) (*Stream, error) {
	vad, err := w.NewClassifier()
	if err != nil {
		return nil, fmt.Errorf("vad: %w", err)
	}
	actx, err := w.NewContext()
	if err != nil {
		return nil, err
	}
	dev, err := audio.FindDevice(actx, w.Device)
	if err != nil {
		actx.Close()
		return nil, err
	}
	capture, err := actx.NewCapture(dev, audio.CaptureConfig{SampleRate: audio.SampleRate, Channels: 1, Gain: w.Gain})
	if err != nil {
		actx.Close()
		return nil, fmt.Errorf("capture: %w", err)
	}

	seg := ForSession(s)
	if w.Segmentation != nil {
		seg = *w.Segmentation
	}
	interval := w.PartialInterval
	if interval <= 0 {
		interval = DefaultPartialInterval
	}

	st := &Stream{
		actx:     actx,
		capture:  capture,
		frames:   make(chan []byte, 512),
		seg:      newSegmenter(vad, seg),
		rec:      w.Recognizer(s),
		format:   w.Format,
		interval: interval,
		partials: s.WordByWord || w.Partials,
	}
	capture.SetCallback(st.onAudio)
	if err := capture.Start(); err != nil {
		capture.Close()
		actx.Close()
		return nil, fmt.Errorf("start capture: %w", err)
	}
	return st, nil
}

// Stream is one open microphone session. Next must be called from a
// single goroutine.
type Stream struct {
	actx     audio.Context
	capture  audio.CaptureDevice
	frames   chan []byte
	seg      *segmenter
	rec      Recognizer
	format   encoder.Format
	interval time.Duration
	partials bool

	pending   []byte
	dropped   atomic.Int64
	closeOnce sync.Once
}

func (st *Stream) onAudio(data []byte, _ uint32) {
	select {
	case st.frames <- data:
	default:
		if st.dropped.Add(1)%50 == 1 {
			log.Warnf("audio backlog: dropped %d chunks", st.dropped.Load())
		}
	}
}

// Next blocks until an utterance ends and returns its text. While speech
// continues, onPartial receives re-transcriptions of the audio so far.
func (st *Stream) Next(ctx context.Context, onPartial func(string)) (string, error) {
	if !st.partials {
		onPartial = nil
	}
	var lastPartial time.Time
	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case chunk, ok := <-st.frames:
			if !ok {
				return "", io.EOF
			}
			st.pending = append(st.pending, chunk...)
			for len(st.pending) >= audio.FrameBytes {
				frame := make([]byte, audio.FrameBytes)
				copy(frame, st.pending)
				st.pending = st.pending[audio.FrameBytes:]

				ev, err := st.seg.Push(frame)
				if err != nil {
					return "", fmt.Errorf("vad: %w", err)
				}
				switch ev {
				case segStart:
					lastPartial = time.Now()
				case segDiscard:
					log.Debugf("utterance shorter than minimum, dropped")
				case segEnd:
					return recognize(ctx, st.rec, st.format, st.seg.Take(), false)
				}
			}
			if onPartial != nil && st.seg.Active() && time.Since(lastPartial) >= st.interval {
				lastPartial = time.Now()
				text, err := recognize(ctx, st.rec, st.format, st.seg.Current(), true)
				if err != nil {
					return "", err
				}
				onPartial(text)
			}
		}
	}
}

// Close stops capture and releases the audio context.
func (st *Stream) Close() error {
	st.closeOnce.Do(func() {
		st.capture.ClearCallback()
		st.capture.Close()
		st.actx.Close()
	})
	return nil
}
