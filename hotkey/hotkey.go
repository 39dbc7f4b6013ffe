// Package hotkey turns a global key chord, Ctrl+Shift+Space unless
// configured otherwise, into toggle requests.
package hotkey

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const DefaultChord = "Ctrl+Shift+Space"

var ErrBadChord = errors.New("invalid hotkey chord")

// Chord is a set of modifiers plus one trigger key. Key is canonical:
// "Space", an upper-case letter, a digit, or F1 through F12.
type Chord struct {
	Ctrl, Shift, Alt bool
	Key              string
}

// ParseChord reads "Mod+Mod+Key", case-insensitively. At least one
// modifier is required so plain typing never toggles.
func ParseChord(s string) (Chord, error) {
	var c Chord
	parts := strings.Split(s, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if i < len(parts)-1 {
			switch strings.ToLower(p) {
			case "ctrl", "control":
				c.Ctrl = true
			case "shift":
				c.Shift = true
			case "alt":
				c.Alt = true
			default:
				return Chord{}, fmt.Errorf("%w %q: unknown modifier %q", ErrBadChord, s, p)
			}
			continue
		}
		key, ok := canonicalKey(p)
		if !ok {
			return Chord{}, fmt.Errorf("%w %q: unsupported key %q", ErrBadChord, s, p)
		}
		c.Key = key
	}
	if !c.Ctrl && !c.Shift && !c.Alt {
		return Chord{}, fmt.Errorf("%w %q: needs a modifier", ErrBadChord, s)
	}
	return c, nil
}

func canonicalKey(k string) (string, bool) {
	up := strings.ToUpper(k)
	switch {
	case up == "SPACE":
		return "Space", true
	case len(up) == 1 && (up[0] >= 'A' && up[0] <= 'Z' || up[0] >= '0' && up[0] <= '9'):
		return up, true
	case len(up) >= 2 && up[0] == 'F':
		if n, err := strconv.Atoi(up[1:]); err == nil && n >= 1 && n <= 12 && up[1] != '0' {
			return up, true
		}
	}
	return "", false
}

func (c Chord) String() string {
	var parts []string
	if c.Ctrl {
		parts = append(parts, "Ctrl")
	}
	if c.Shift {
		parts = append(parts, "Shift")
	}
	if c.Alt {
		parts = append(parts, "Alt")
	}
	return strings.Join(append(parts, c.Key), "+")
}

// Hotkey provides global shortcut registration with press/release events.
type Hotkey interface {
	Register() error
	Unregister()
	Keydown() <-chan struct{}
	Keyup() <-chan struct{}
}

// Watch calls toggle on every press until ctx is done. With hold > 0 a
// press held longer than hold toggles again on release, so holding the
// chord behaves as push-to-talk while a quick tap latches.
func Watch(ctx context.Context, hk Hotkey, hold time.Duration, toggle func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-hk.Keydown():
		}
		pressed := time.Now()
		toggle()

		select {
		case <-ctx.Done():
			return
		case <-hk.Keyup():
		}
		if hold > 0 && time.Since(pressed) >= hold {
			toggle()
		}
	}
}
