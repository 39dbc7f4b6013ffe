package audio

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	SampleRate = 16000
	// BytesPerSample for signed 16-bit little-endian mono PCM.
	BytesPerSample = 2
)

var btKeywords = []string{
	"airpods", "beats", "bose", "wh-1000", "wf-1000",
	"sony wh-", "sony wf-",
	"jabra", "galaxy buds", "pixel buds", "powerbeats",
	"jbl ", "sennheiser momentum", "plantronics",
	"tozo", "anker soundcore", "skullcandy",
	"bluetooth", " bt ", " bt)", " bt]",
}

// IsBluetooth guesses from the device name whether it is a Bluetooth
// headset, which usually means an 8 or 16 kHz narrowband mic.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range btKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type DataCallback func(data []byte, frameCount uint32)

type CaptureConfig struct {
	SampleRate uint32
	Channels   uint32
	// Gain multiplies samples before delivery; 0 means 1.
	Gain int
}

type DeviceInfo struct {
	ID   string // opaque platform-specific identifier
	Name string
}

type Context interface {
	Devices() ([]DeviceInfo, error)
	NewCapture(device *DeviceInfo, config CaptureConfig) (CaptureDevice, error)
	Close()
}

type CaptureDevice interface {
	Start() error
	Stop()
	Close()
	SetCallback(cb DataCallback)
	ClearCallback()
}

// FindDevice returns the device whose name contains name
// (case-insensitive). An empty name selects the system default (nil).
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return nil, ErrNoDevice
	}
	if name == "" {
		return nil, nil
	}
	want := strings.ToLower(name)
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), want) {
			return &devices[i], nil
		}
	}
	return nil, fmt.Errorf("no capture device matching %q", name)
}

// relay hands converted capture buffers to the current callback. Both
// backends embed it; callbacks may be swapped while a device runs.
type relay struct {
	cb   atomic.Pointer[DataCallback]
	gain int
}

func (r *relay) SetCallback(cb DataCallback) { r.cb.Store(&cb) }

func (r *relay) ClearCallback() { r.cb.Store(nil) }

// samples delivers native int16 samples as little-endian bytes.
func (r *relay) samples(buf []int16) {
	cb := r.cb.Load()
	if cb == nil || len(buf) == 0 {
		return
	}
	out := make([]byte, len(buf)*BytesPerSample)
	for i, s := range buf {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clampGain(int32(s), r.gain)))
	}
	(*cb)(out, uint32(len(buf)))
}

// bytes delivers S16LE data; the input buffer is reused by the driver.
func (r *relay) bytes(data []byte) {
	cb := r.cb.Load()
	if cb == nil {
		return
	}
	n := len(data) / BytesPerSample
	out := make([]byte, n*BytesPerSample)
	for i := 0; i < n; i++ {
		s := int16(binary.LittleEndian.Uint16(data[i*2:]))
		binary.LittleEndian.PutUint16(out[i*2:], uint16(clampGain(int32(s), r.gain)))
	}
	(*cb)(out, uint32(n))
}

func clampGain(s int32, gain int) int16 {
	if gain > 1 {
		s *= int32(gain)
	}
	return int16(max(-32768, min(32767, s)))
}
