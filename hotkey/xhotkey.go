//go:build darwin || windows

package hotkey

import (
	"fmt"

	"golang.design/x/hotkey"
)

var xKeys = map[string]hotkey.Key{
	"Space": hotkey.KeySpace,
	"A": hotkey.KeyA, "B": hotkey.KeyB, "C": hotkey.KeyC, "D": hotkey.KeyD, "E": hotkey.KeyE,
	"F": hotkey.KeyF, "G": hotkey.KeyG, "H": hotkey.KeyH, "I": hotkey.KeyI, "J": hotkey.KeyJ,
	"K": hotkey.KeyK, "L": hotkey.KeyL, "M": hotkey.KeyM, "N": hotkey.KeyN, "O": hotkey.KeyO,
	"P": hotkey.KeyP, "Q": hotkey.KeyQ, "R": hotkey.KeyR, "S": hotkey.KeyS, "T": hotkey.KeyT,
	"U": hotkey.KeyU, "V": hotkey.KeyV, "W": hotkey.KeyW, "X": hotkey.KeyX, "Y": hotkey.KeyY,
	"Z": hotkey.KeyZ,
	"0": hotkey.Key0, "1": hotkey.Key1, "2": hotkey.Key2, "3": hotkey.Key3, "4": hotkey.Key4,
	"5": hotkey.Key5, "6": hotkey.Key6, "7": hotkey.Key7, "8": hotkey.Key8, "9": hotkey.Key9,
	"F1": hotkey.KeyF1, "F2": hotkey.KeyF2, "F3": hotkey.KeyF3, "F4": hotkey.KeyF4,
	"F5": hotkey.KeyF5, "F6": hotkey.KeyF6, "F7": hotkey.KeyF7, "F8": hotkey.KeyF8,
	"F9": hotkey.KeyF9, "F10": hotkey.KeyF10, "F11": hotkey.KeyF11, "F12": hotkey.KeyF12,
}

// xHotkey registers the chord with the OS. Its events are relayed onto
// plain channels until Unregister.
type xHotkey struct {
	chord   Chord
	hk      *hotkey.Hotkey
	keydown chan struct{}
	keyup   chan struct{}
	stop    chan struct{}
}

func New(c Chord) Hotkey {
	return &xHotkey{
		chord:   c,
		keydown: make(chan struct{}, 1),
		keyup:   make(chan struct{}, 1),
		stop:    make(chan struct{}),
	}
}

func (h *xHotkey) Register() error {
	key, ok := xKeys[h.chord.Key]
	if !ok {
		return fmt.Errorf("%w: key %q", ErrBadChord, h.chord.Key)
	}
	var mods []hotkey.Modifier
	if h.chord.Ctrl {
		mods = append(mods, hotkey.ModCtrl)
	}
	if h.chord.Shift {
		mods = append(mods, hotkey.ModShift)
	}
	if h.chord.Alt {
		mods = append(mods, altMod)
	}
	h.hk = hotkey.New(mods, key)
	if err := h.hk.Register(); err != nil {
		return fmt.Errorf("register %s: %w", h.chord, err)
	}
	go h.relay(h.hk.Keydown(), h.keydown)
	go h.relay(h.hk.Keyup(), h.keyup)
	return nil
}

func (h *xHotkey) relay(in <-chan hotkey.Event, out chan struct{}) {
	for {
		select {
		case <-h.stop:
			return
		case <-in:
			select {
			case out <- struct{}{}:
			default:
			}
		}
	}
}

func (h *xHotkey) Unregister() {
	select {
	case <-h.stop:
		return
	default:
	}
	close(h.stop)
	if h.hk != nil {
		h.hk.Unregister()
	}
}

func (h *xHotkey) Keydown() <-chan struct{} { return h.keydown }
func (h *xHotkey) Keyup() <-chan struct{}   { return h.keyup }

func Diagnose() (string, error) {
	return "system hotkey API available", nil
}
