// Package beep plays the listening start/stop cues.
package beep

import (
	"fmt"
	"math"
	"os"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"voxd/log"
)

const sampleRate = 44100

// Sound is interleaved signed 16-bit PCM.
type Sound struct {
	Rate     int
	Channels int
	Samples  []int16
}

// Sweep renders a mono tone gliding from one frequency to another with a
// linear fade at both ends.
func Sweep(from, to float64, durationMs int, volume, fade float64) Sound {
	n := sampleRate * durationMs / 1000
	fadeN := int(float64(n) * fade)
	samples := make([]int16, n)
	phase := 0.0
	for i := range n {
		progress := float64(i) / float64(n)
		freq := from + (to-from)*progress
		phase += 2 * math.Pi * freq / sampleRate
		v := math.Sin(phase)
		switch {
		case fadeN > 0 && i < fadeN:
			v *= float64(i) / float64(fadeN)
		case fadeN > 0 && i > n-fadeN:
			v *= float64(n-i) / float64(fadeN)
		}
		samples[i] = int16(v * volume * 32767)
	}
	return Sound{Rate: sampleRate, Channels: 1, Samples: samples}
}

var (
	StartTone = Sweep(440, 880, 200, 0.4, 0.15)
	StopTone  = Sweep(880, 440, 200, 0.4, 0.15)
	ErrorTone = doubleBeep(350, 80, 50)
)

func doubleBeep(freq float64, beepMs, gapMs int) Sound {
	b := Sweep(freq, freq, beepMs, 0.6, 0.1)
	gap := make([]int16, sampleRate*gapMs/1000)
	samples := append(append(append([]int16{}, b.Samples...), gap...), b.Samples...)
	return Sound{Rate: sampleRate, Channels: 1, Samples: samples}
}

// Load decodes a 16-bit WAV file.
func Load(path string) (Sound, error) {
	f, err := os.Open(path)
	if err != nil {
		return Sound{}, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return Sound{}, fmt.Errorf("%s: not a WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Sound{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if dec.BitDepth != 16 {
		return Sound{}, fmt.Errorf("%s: %d-bit audio, need 16-bit", path, dec.BitDepth)
	}
	samples := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = int16(v)
	}
	return Sound{Rate: int(dec.SampleRate), Channels: int(dec.NumChans), Samples: samples}, nil
}

// Save writes s as a 16-bit PCM WAV file.
func Save(path string, s Sound) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := wav.NewEncoder(f, s.Rate, 16, s.Channels, 1)
	data := make([]int, len(s.Samples))
	for i, v := range s.Samples {
		data[i] = int(v)
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: s.Channels, SampleRate: s.Rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Player plays the cues asynchronously.
type Player struct {
	start, stop, fail Sound
	play              func(Sound)
	disabled          bool
}

// NewPlayer loads the cue files, falling back to the built-in tones for
// any path that is empty or unreadable.
func NewPlayer(startPath, stopPath string) *Player {
	return &Player{
		start: loadOr(startPath, StartTone),
		stop:  loadOr(stopPath, StopTone),
		fail:  ErrorTone,
		play:  playSound,
	}
}

func loadOr(path string, fallback Sound) Sound {
	if path == "" {
		return fallback
	}
	s, err := Load(path)
	if err != nil {
		log.Warnf("sound %s unavailable, using built-in tone: %v", path, err)
		return fallback
	}
	return s
}

func (p *Player) Disable() { p.disabled = true }

func (p *Player) PlayStart() { p.fire(p.start) }
func (p *Player) PlayStop()  { p.fire(p.stop) }
func (p *Player) PlayError() { p.fire(p.fail) }

func (p *Player) fire(s Sound) {
	if p == nil || p.disabled || len(s.Samples) == 0 {
		return
	}
	go p.play(s)
}
