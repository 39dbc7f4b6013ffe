package audio

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-audio/wav"
)

// FrameBytes is one 20 ms chunk of 16 kHz mono PCM.
const FrameBytes = SampleRate / 50 * BytesPerSample

// FakeContext replays fixed PCM through a capture device, followed by
// endless silence. Used by tests and by --fake-audio.
type FakeContext struct {
	pcm      []byte
	realtime bool
}

func NewFakeContext(pcm []byte, realtime bool) *FakeContext {
	return &FakeContext{pcm: pcm, realtime: realtime}
}

// LoadFakeContext reads a 16-bit mono WAV file.
func LoadFakeContext(path string, realtime bool) (*FakeContext, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if dec.BitDepth != 16 || dec.NumChans != 1 {
		return nil, fmt.Errorf("%s: need 16-bit mono, got %d-bit %d channels", path, dec.BitDepth, dec.NumChans)
	}
	pcm := make([]byte, len(buf.Data)*BytesPerSample)
	for i, s := range buf.Data {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(s)))
	}
	return &FakeContext{pcm: pcm, realtime: realtime}, nil
}

func (f *FakeContext) Devices() ([]DeviceInfo, error) {
	return []DeviceInfo{{ID: "fake", Name: "fake microphone"}}, nil
}

func (f *FakeContext) Close() {}

func (f *FakeContext) NewCapture(_ *DeviceInfo, _ CaptureConfig) (CaptureDevice, error) {
	return &FakeCapture{pcm: f.pcm, realtime: f.realtime}, nil
}

type FakeCapture struct {
	pcm      []byte
	realtime bool

	mu     sync.Mutex
	cb     DataCallback
	stopCh chan struct{}
	done   chan struct{}
}

func (f *FakeCapture) SetCallback(cb DataCallback) {
	f.mu.Lock()
	f.cb = cb
	f.mu.Unlock()
}

func (f *FakeCapture) ClearCallback() {
	f.mu.Lock()
	f.cb = nil
	f.mu.Unlock()
}

func (f *FakeCapture) deliver(chunk []byte) {
	f.mu.Lock()
	cb := f.cb
	f.mu.Unlock()
	if cb != nil {
		cb(chunk, uint32(len(chunk)/BytesPerSample))
	}
}

func (f *FakeCapture) Start() error {
	f.stopCh = make(chan struct{})
	f.done = make(chan struct{})

	interval := time.Millisecond
	if f.realtime {
		interval = 20 * time.Millisecond
	}

	go func() {
		defer close(f.done)
		silence := make([]byte, FrameBytes)
		pos := 0
		for {
			select {
			case <-f.stopCh:
				return
			case <-time.After(interval):
			}
			if pos < len(f.pcm) {
				end := min(pos+FrameBytes, len(f.pcm))
				chunk := make([]byte, end-pos)
				copy(chunk, f.pcm[pos:end])
				f.deliver(chunk)
				pos = end
				continue
			}
			f.deliver(silence)
		}
	}()
	return nil
}

func (f *FakeCapture) Stop() {
	if f.stopCh == nil {
		return
	}
	select {
	case <-f.stopCh:
	default:
		close(f.stopCh)
	}
	<-f.done
}

func (f *FakeCapture) Close() {
	f.Stop()
}
