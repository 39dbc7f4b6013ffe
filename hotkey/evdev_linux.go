//go:build linux

package hotkey

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	inputDir = "/dev/input"
	evKey    = 1
	// struct input_event: timeval (16) + type (2) + code (2) + value (4)
	inputEventSize = 24
)

var errNoKeyboard = errors.New("no keyboard devices found (is user in 'input' group?)")

// evdevHotkey watches every keyboard under /dev/input, so it works on X11
// and Wayland alike but needs membership of the input group. Each device
// keeps its own modifier state.
type evdevHotkey struct {
	chord   Chord
	keydown chan struct{}
	keyup   chan struct{}

	mu     sync.Mutex
	files  []*os.File
	closed bool
}

func New(c Chord) Hotkey {
	return &evdevHotkey{
		chord:   c,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
	}
}

func (h *evdevHotkey) Register() error {
	keyboards, err := openKeyboards()
	if err != nil {
		return err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.files = keyboards
	for _, f := range keyboards {
		go h.watch(f, newChordState(h.chord))
	}
	return nil
}

// watch exits when Unregister closes f.
func (h *evdevHotkey) watch(f *os.File, st *chordState) {
	buf := make([]byte, inputEventSize*16)
	for {
		n, err := f.Read(buf)
		if err != nil {
			return
		}
		for ev := buf[:n]; len(ev) >= inputEventSize; ev = ev[inputEventSize:] {
			if binary.LittleEndian.Uint16(ev[16:]) != evKey {
				continue
			}
			down, up := st.feed(binary.LittleEndian.Uint16(ev[18:]), int32(binary.LittleEndian.Uint32(ev[20:])))
			if down {
				notify(h.keydown)
			}
			if up {
				notify(h.keyup)
			}
		}
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (h *evdevHotkey) Unregister() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for _, f := range h.files {
		f.Close()
	}
}

func (h *evdevHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *evdevHotkey) Keyup() <-chan struct{}   { return h.keyup }

// openKeyboards opens every readable keyboard. Devices that refuse are
// skipped unless none can be opened.
func openKeyboards() ([]*os.File, error) {
	paths, err := keyboardPaths()
	if err != nil {
		return nil, err
	}
	var files []*os.File
	var lastErr error
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			lastErr = err
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("found %d keyboard(s) but cannot open any (run: sudo usermod -aG input $USER, then re-login): %w", len(paths), lastErr)
	}
	return files, nil
}

func keyboardPaths() ([]string, error) {
	entries, err := os.ReadDir(inputDir)
	if err != nil {
		return nil, fmt.Errorf("cannot scan input devices: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "event") && hasKeys(e.Name()) {
			paths = append(paths, filepath.Join(inputDir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, errNoKeyboard
	}
	return paths, nil
}

// hasKeys uses the width of the key capability bitmap as a heuristic:
// mice and power buttons report only a few bits.
func hasKeys(event string) bool {
	data, err := os.ReadFile(filepath.Join("/sys/class/input", event, "device", "capabilities", "key"))
	return err == nil && len(strings.TrimSpace(string(data))) > 10
}

// Diagnose reports whether a keyboard can be opened for the chord.
func Diagnose() (string, error) {
	files, err := openKeyboards()
	if err != nil {
		return "", err
	}
	name := files[0].Name()
	for _, f := range files {
		f.Close()
	}
	return fmt.Sprintf("%d keyboard(s) readable, first %s", len(files), name), nil
}
