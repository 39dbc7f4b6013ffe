package transcriber

import (
	"time"

	"voxd/audio"
	"voxd/config"
)

const frameDuration = 20 * time.Millisecond

// Classifier labels one 20 ms frame as speech or not.
type Classifier interface {
	Speech(frame []byte) (bool, error)
}

// Segmentation controls how frames are grouped into utterances.
type Segmentation struct {
	// PostSpeechSilence ends an utterance.
	PostSpeechSilence time.Duration
	// MinLength drops utterances with less voiced audio than this.
	MinLength time.Duration
	// PreRoll is kept from before onset so first syllables survive.
	PreRoll time.Duration
	// Onset is the number of consecutive speech frames that start one.
	Onset int
}

var (
	WordByWordSegmentation = Segmentation{PostSpeechSilence: 300 * time.Millisecond, MinLength: 300 * time.Millisecond, PreRoll: 200 * time.Millisecond, Onset: 3}
	PhraseSegmentation     = Segmentation{PostSpeechSilence: 600 * time.Millisecond, MinLength: 500 * time.Millisecond, PreRoll: 200 * time.Millisecond, Onset: 3}
	DictateSegmentation    = Segmentation{PostSpeechSilence: 400 * time.Millisecond, MinLength: 500 * time.Millisecond, PreRoll: 200 * time.Millisecond, Onset: 3}
)

func ForSession(s config.Session) Segmentation {
	if s.WordByWord {
		return WordByWordSegmentation
	}
	return PhraseSegmentation
}

type segEvent int

const (
	segNone segEvent = iota
	segStart
	segEnd
	segDiscard
)

func frames(d time.Duration) int {
	return int((d + frameDuration - 1) / frameDuration)
}

// segmenter turns a frame stream into utterances.
type segmenter struct {
	vad     Classifier
	preRoll int
	silence int
	minLen  int
	onset   int

	ring       [][]byte
	utter      []byte
	active     bool
	speechRun  int
	silenceRun int
	voiced     int
}

func newSegmenter(vad Classifier, cfg Segmentation) *segmenter {
	return &segmenter{
		vad:     vad,
		preRoll: frames(cfg.PreRoll),
		silence: max(frames(cfg.PostSpeechSilence), 1),
		minLen:  frames(cfg.MinLength),
		onset:   max(cfg.Onset, 1),
	}
}

func (s *segmenter) Push(frame []byte) (segEvent, error) {
	speech, err := s.vad.Speech(frame)
	if err != nil {
		return segNone, err
	}

	if !s.active {
		s.ring = append(s.ring, frame)
		if len(s.ring) > s.preRoll+s.onset {
			s.ring = s.ring[1:]
		}
		if !speech {
			s.speechRun = 0
			return segNone, nil
		}
		s.speechRun++
		if s.speechRun < s.onset {
			return segNone, nil
		}
		s.active = true
		s.voiced = s.speechRun
		s.silenceRun = 0
		s.utter = s.utter[:0]
		for _, f := range s.ring {
			s.utter = append(s.utter, f...)
		}
		s.ring = s.ring[:0]
		return segStart, nil
	}

	s.utter = append(s.utter, frame...)
	if speech {
		s.silenceRun = 0
		s.voiced++
		return segNone, nil
	}
	s.silenceRun++
	if s.silenceRun < s.silence {
		return segNone, nil
	}

	s.active = false
	s.speechRun = 0
	if s.voiced < s.minLen {
		s.utter = s.utter[:0]
		return segDiscard, nil
	}
	return segEnd, nil
}

func (s *segmenter) Active() bool { return s.active }

// Current is the audio of the utterance in progress.
func (s *segmenter) Current() []byte { return s.utter }

// Take returns the finished utterance and clears it.
func (s *segmenter) Take() []byte {
	out := make([]byte, len(s.utter))
	copy(out, s.utter)
	s.utter = s.utter[:0]
	return out
}

// Seconds converts 16 kHz mono PCM length to seconds.
func Seconds(pcm []byte) float64 {
	return float64(len(pcm)) / float64(audio.SampleRate*audio.BytesPerSample)
}
