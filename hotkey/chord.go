package hotkey

import "fmt"

// Linux input event codes (linux/input-event-codes.h).
const (
	keyPress   = 1
	keyRelease = 0

	keyLCtrl  = 29
	keyRCtrl  = 97
	keyLShift = 42
	keyRShift = 54
	keyLAlt   = 56
	keyRAlt   = 100
	keySpace  = 57
)

var evdevKeys = func() map[string]uint16 {
	m := map[string]uint16{"Space": keySpace, "0": 11, "F11": 87, "F12": 88}
	for i, r := range "123456789" {
		m[string(r)] = uint16(2 + i)
	}
	rows := []struct {
		first uint16
		keys  string
	}{{16, "QWERTYUIOP"}, {30, "ASDFGHJKL"}, {44, "ZXCVBNM"}}
	for _, row := range rows {
		for i, r := range row.keys {
			m[string(r)] = row.first + uint16(i)
		}
	}
	for i := 1; i <= 10; i++ {
		m[fmt.Sprintf("F%d", i)] = uint16(58 + i)
	}
	return m
}()

// chordState tracks modifier state across key events and reports the
// edges of one chord. Autorepeat (value 2) leaves the state alone.
type chordState struct {
	want             Chord
	key              uint16
	ctrl, shift, alt bool
	active           bool
}

func newChordState(c Chord) *chordState {
	return &chordState{want: c, key: evdevKeys[c.Key]}
}

func (c *chordState) feed(code uint16, value int32) (down, up bool) {
	switch code {
	case keyLCtrl, keyRCtrl:
		c.ctrl = modifier(c.ctrl, value)
	case keyLShift, keyRShift:
		c.shift = modifier(c.shift, value)
	case keyLAlt, keyRAlt:
		c.alt = modifier(c.alt, value)
	case c.key:
		switch {
		case value == keyPress && !c.active && c.held():
			c.active = true
			return true, false
		case value == keyRelease && c.active:
			c.active = false
			return false, true
		}
	}
	return false, false
}

// held reports whether every modifier the chord names is down.
func (c *chordState) held() bool {
	return (!c.want.Ctrl || c.ctrl) && (!c.want.Shift || c.shift) && (!c.want.Alt || c.alt)
}

func modifier(held bool, value int32) bool {
	switch value {
	case keyPress:
		return true
	case keyRelease:
		return false
	}
	return held
}
