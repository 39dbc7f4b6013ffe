//go:build linux

package audio

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jfreymuth/pulse"
)

// pulseLatency is the record buffer target in seconds.
const pulseLatency = 0.05

type pulseContext struct {
	client *pulse.Client
}

func NewContext() (Context, error) {
	c, err := pulse.NewClient(pulse.ClientApplicationName("voxd"))
	if err != nil {
		return nil, fmt.Errorf("pulse: %w", err)
	}
	return &pulseContext{client: c}, nil
}

// Devices lists microphones. Monitor sources of output sinks are skipped.
func (p *pulseContext) Devices() ([]DeviceInfo, error) {
	sources, err := p.client.ListSources()
	if err != nil {
		return nil, fmt.Errorf("pulse list sources: %w", err)
	}
	var devices []DeviceInfo
	for _, s := range sources {
		if strings.HasSuffix(s.ID(), ".monitor") {
			continue
		}
		devices = append(devices, DeviceInfo{ID: s.ID(), Name: s.Name()})
	}
	return devices, nil
}

func (p *pulseContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	c := &pulseCapture{client: p.client, rate: int(config.SampleRate)}
	c.gain = config.Gain
	if device != nil {
		source, err := p.client.SourceByID(device.ID)
		if err != nil {
			return nil, fmt.Errorf("pulse source %q: %w", device.Name, err)
		}
		c.source = source
	}
	return c, nil
}

func (p *pulseContext) Close() {
	p.client.Close()
}

// pulseCapture owns one record stream per Start. The stream runs on its
// own goroutine until Stop closes it.
type pulseCapture struct {
	relay
	client *pulse.Client
	source *pulse.Source
	rate   int

	mu     sync.Mutex
	stream *pulse.RecordStream
}

func (c *pulseCapture) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	opts := []pulse.RecordOption{
		pulse.RecordMono,
		pulse.RecordSampleRate(c.rate),
		pulse.RecordLatency(pulseLatency),
		pulse.RecordMediaName("dictation"),
	}
	if c.source != nil {
		opts = append(opts, pulse.RecordSource(c.source))
	}
	stream, err := c.client.NewRecord(pulse.Int16Writer(func(buf []int16) (int, error) {
		c.samples(buf)
		return len(buf), nil
	}), opts...)
	if err != nil {
		return fmt.Errorf("pulse record: %w", err)
	}
	stream.Start()
	c.stream = stream
	return nil
}

func (c *pulseCapture) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return
	}
	c.stream.Stop()
	c.stream.Close()
	c.stream = nil
}

func (c *pulseCapture) Close() {
	c.Stop()
}
