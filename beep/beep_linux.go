//go:build linux

package beep

import (
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"

	"voxd/log"
)

func playSound(s Sound) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("voxd"))
	if err != nil {
		log.Warnf("beep: %v", err)
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(s.Samples) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, s.Samples[pos:])
		pos += n
		return n, nil
	})

	layout := pulse.PlaybackMono
	volumes := proto.ChannelVolumes{uint32(proto.VolumeNorm)}
	if s.Channels == 2 {
		layout = pulse.PlaybackStereo
		volumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
	}
	stream, err := c.NewPlayback(reader,
		layout,
		pulse.PlaybackSampleRate(s.Rate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = volumes
		}),
	)
	if err != nil {
		log.Warnf("beep playback: %v", err)
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
