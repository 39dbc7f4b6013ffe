package encoder

import (
	"fmt"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
)

// EncodeFLAC compresses PCM losslessly. Speech usually shrinks to about
// half, which matters for remote endpoints.
func EncodeFLAC(pcm []byte) ([]byte, error) {
	var out memFile
	info := &meta.StreamInfo{
		BlockSizeMin:  BlockSize,
		BlockSizeMax:  BlockSize,
		SampleRate:    SampleRate,
		NChannels:     Channels,
		BitsPerSample: BitsPerSample,
	}
	enc, err := flac.NewEncoder(&out, info)
	if err != nil {
		return nil, fmt.Errorf("creating flac encoder: %w", err)
	}
	enc.EnablePredictionAnalysis(true)

	s := samples(pcm)
	for i := 0; i < len(s); i += BlockSize {
		block := s[i:min(i+BlockSize, len(s))]
		if err := enc.WriteFrame(flacFrame(block)); err != nil {
			return nil, fmt.Errorf("writing flac frame: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return out.buf, nil
}

func flacFrame(block []int16) *frame.Frame {
	samples32 := make([]int32, len(block))
	for i, s := range block {
		samples32[i] = int32(s)
	}
	return &frame.Frame{
		Header: frame.Header{
			BlockSize:     uint16(len(block)),
			SampleRate:    SampleRate,
			Channels:      frame.ChannelsMono,
			BitsPerSample: BitsPerSample,
		},
		Subframes: []*frame.Subframe{{
			SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
			Samples:   samples32,
			NSamples:  len(block),
		}},
	}
}
