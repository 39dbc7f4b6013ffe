//go:build !linux

package audio

import (
	"encoding/hex"
	"fmt"

	"github.com/gen2brain/malgo"
)

type malgoContext struct {
	ctx *malgo.AllocatedContext
}

func NewContext() (Context, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("malgo: %w", err)
	}
	return &malgoContext{ctx: ctx}, nil
}

// Devices reports capture devices with their raw id hex-encoded so it
// survives a round trip through DeviceInfo.
func (m *malgoContext) Devices() ([]DeviceInfo, error) {
	infos, err := m.ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("malgo devices: %w", err)
	}
	devices := make([]DeviceInfo, 0, len(infos))
	for _, d := range infos {
		devices = append(devices, DeviceInfo{ID: hex.EncodeToString(d.ID.Pointer()[:]), Name: d.Name()})
	}
	return devices, nil
}

func (m *malgoContext) NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error) {
	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = config.Channels
	cfg.SampleRate = config.SampleRate
	if device != nil {
		raw, err := hex.DecodeString(device.ID)
		if err != nil {
			return nil, fmt.Errorf("device %q: bad id: %w", device.Name, err)
		}
		var id malgo.DeviceID
		copy(id[:], raw)
		cfg.Capture.DeviceID = id.Pointer()
	}

	c := &malgoCapture{}
	c.gain = config.Gain
	dev, err := malgo.InitDevice(m.ctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(_, data []byte, _ uint32) { c.bytes(data) },
	})
	if err != nil {
		return nil, fmt.Errorf("malgo device: %w", err)
	}
	c.device = dev
	return c, nil
}

func (m *malgoContext) Close() {
	_ = m.ctx.Uninit()
	m.ctx.Free()
}

type malgoCapture struct {
	relay
	device *malgo.Device
}

func (c *malgoCapture) Start() error { return c.device.Start() }

func (c *malgoCapture) Stop() { _ = c.device.Stop() }

func (c *malgoCapture) Close() { c.device.Uninit() }
