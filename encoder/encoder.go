// Package encoder packs 16 kHz mono PCM into the container uploaded to
// the transcription endpoint.
package encoder

import (
	"errors"
	"fmt"
	"strings"
)

const (
	SampleRate    = 16000
	Channels      = 1
	BitsPerSample = 16
	BlockSize     = 4096
)

type Format string

const (
	WAV  Format = "wav"
	FLAC Format = "flac"
)

var ErrUnknownFormat = errors.New("unknown upload format")

// ParseFormat accepts "wav" or "flac" in any case; empty means WAV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return WAV, nil
	case WAV, FLAC:
		return f, nil
	}
	return "", fmt.Errorf("%w %q (use wav or flac)", ErrUnknownFormat, s)
}

// Upload is one encoded utterance ready for a multipart request.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

func Encode(f Format, pcm []byte) (Upload, error) {
	switch f {
	case FLAC:
		data, err := EncodeFLAC(pcm)
		if err != nil {
			return Upload{}, fmt.Errorf("encode flac: %w", err)
		}
		return Upload{Data: data, Filename: "utterance.flac", ContentType: "audio/flac"}, nil
	case WAV, "":
		data, err := EncodeWAV(pcm)
		if err != nil {
			return Upload{}, fmt.Errorf("encode wav: %w", err)
		}
		return Upload{Data: data, Filename: "utterance.wav", ContentType: "audio/wav"}, nil
	}
	return Upload{}, fmt.Errorf("%w %q", ErrUnknownFormat, f)
}

func samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/2)
	for i := range out {
		out[i] = int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8)
	}
	return out
}
