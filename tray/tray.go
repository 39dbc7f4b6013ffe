// Package tray shows the listening state in the system tray and relays
// clicks back to the daemon.
package tray

import (
	"fmt"
	"os"
	"sync"
	"time"

	"voxd/log"
)

const appTitle = "Voice Dictation"

var (
	quitCh    = make(chan struct{})
	closeOnce sync.Once

	stateMu   sync.Mutex
	toggleFn  func()
	listening bool
	model     string

	loginOn bool
	loginCb func(bool) error
)

func Tooltip(on bool) string {
	if on {
		return appTitle + " - LISTENING"
	}
	return appTitle + " - Idle"
}

func ToggleTitle(on bool) string {
	if on {
		return "Stop Listening"
	}
	return "Start Listening"
}

func ModelTitle(m string) string {
	return "Model: " + m
}

// OnToggle registers the handler for left clicks and the toggle item.
func OnToggle(fn func()) {
	stateMu.Lock()
	toggleFn = fn
	stateMu.Unlock()
}

func SetModel(m string) {
	stateMu.Lock()
	model = m
	stateMu.Unlock()
}

func SetLogin(on bool)            { loginOn = on }
func OnLogin(fn func(bool) error) { loginCb = fn }

// SetListening swaps the glyph, tooltip and toggle title.
func SetListening(on bool) {
	stateMu.Lock()
	listening = on
	stateMu.Unlock()
	updateListening(on)
}

func Listening() bool {
	stateMu.Lock()
	defer stateMu.Unlock()
	return listening
}

// SetError shows msg in the tooltip for a while, then restores the status.
func SetError(msg string) {
	updateTooltip(appTitle + " - " + msg)
	go func() {
		time.Sleep(10 * time.Second)
		updateTooltip(Tooltip(Listening()))
	}()
}

// SetIcons replaces the built-in glyphs with PNG files. Empty paths keep
// the default.
func SetIcons(idlePath, activePath string) {
	if b, err := readIcon(idlePath); err == nil {
		iconIdle = b
	}
	if b, err := readIcon(activePath); err == nil {
		iconActive = b
	}
}

func readIcon(path string) ([]byte, error) {
	if path == "" {
		return nil, os.ErrNotExist
	}
	b, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("tray icon %s: %v", path, err)
		return nil, err
	}
	if len(b) < 8 || string(b[1:4]) != "PNG" {
		err := fmt.Errorf("%s is not a PNG", path)
		log.Warn(err.Error())
		return nil, err
	}
	return b, nil
}

func toggle() {
	stateMu.Lock()
	fn := toggleFn
	stateMu.Unlock()
	if fn != nil {
		fn()
	}
}

// Quit closes the channel returned by Init.
func Quit() {
	closeOnce.Do(func() { close(quitCh) })
}
