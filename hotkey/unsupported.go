//go:build !linux && !darwin && !windows

package hotkey

import "errors"

var errUnsupported = errors.New("global hotkeys are not supported on this platform")

type unsupported struct{}

func New(Chord) Hotkey { return unsupported{} }

func (unsupported) Register() error          { return errUnsupported }
func (unsupported) Unregister()              {}
func (unsupported) Keydown() <-chan struct{} { return nil }
func (unsupported) Keyup() <-chan struct{}   { return nil }

func Diagnose() (string, error) { return "", errUnsupported }
