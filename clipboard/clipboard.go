// Package clipboard copies dictated text and optionally pastes it into
// the focused window.
package clipboard

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	cb "github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

var ErrUnsupported = errors.New("clipboard unsupported: install xclip, xsel or wl-clipboard")

// uinputSettle is how long a fresh /dev/uinput device takes before the
// compositor accepts its events.
const uinputSettle = 2 * time.Second

// Replaced in tests.
var (
	writeAll    = cb.WriteAll
	unsupported = func() bool { return cb.Unsupported }
	pasteKeys   = sendPaste
)

func Copy(text string) error {
	if unsupported() {
		return ErrUnsupported
	}
	return writeAll(text)
}

var (
	kb     keybd_event.KeyBonding
	kbOnce sync.Once
	kbErr  error
)

// Init prepares the virtual keyboard used by Paste. Calling it early hides
// the uinput settle delay behind recording.
func Init() error {
	kbOnce.Do(func() {
		kb, kbErr = keybd_event.NewKeyBonding()
		if kbErr == nil && runtime.GOOS == "linux" {
			time.Sleep(uinputSettle)
		}
	})
	return kbErr
}

// Paste sends Cmd+V on macOS and Ctrl+V elsewhere.
func Paste() error { return pasteKeys() }

func sendPaste() error {
	if err := Init(); err != nil {
		return fmt.Errorf("virtual keyboard: %w", err)
	}
	kb.Clear()
	kb.SetKeys(keybd_event.VK_V)
	kb.HasSuper(runtime.GOOS == "darwin")
	kb.HasCTRL(runtime.GOOS != "darwin")
	return kb.Launching()
}

// Output copies text and, when paste is set, pastes it.
func Output(text string, paste bool) error {
	if err := Copy(text); err != nil {
		return err
	}
	if paste {
		return Paste()
	}
	return nil
}
