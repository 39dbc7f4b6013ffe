// Package notify shows desktop notifications.
package notify

import (
	"github.com/gen2brain/beeep"

	"voxd/log"
)

const AppName = "Voice Dictation"

// Notifier shows a title/message pair. Failures are logged, never returned.
type Notifier interface {
	Notify(title, message string)
}

type Desktop struct {
	Icon string
}

func (d Desktop) Notify(title, message string) {
	if err := beeep.Notify(title, message, d.Icon); err != nil {
		log.Warnf("notify %q: %v", title, err)
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(string, string) {}

func init() {
	beeep.AppName = AppName
}

// Async delivers each notification on its own goroutine so callers on a
// control loop never wait for the desktop bus.
type Async struct {
	Notifier
}

func (a Async) Notify(title, message string) {
	go a.Notifier.Notify(title, message)
}
