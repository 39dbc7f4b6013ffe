package hotkey

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestChord(t *testing.T) {
	type ev struct {
		code  uint16
		value int32
	}
	tests := []struct {
		name       string
		events     []ev
		downs, ups int
	}{
		{"full chord", []ev{{keyLCtrl, 1}, {keyLShift, 1}, {keySpace, 1}, {keySpace, 0}}, 1, 1},
		{"right modifiers", []ev{{keyRCtrl, 1}, {keyRShift, 1}, {keySpace, 1}, {keySpace, 0}}, 1, 1},
		{"space alone", []ev{{keySpace, 1}, {keySpace, 0}}, 0, 0},
		{"ctrl released first", []ev{{keyLCtrl, 1}, {keyLShift, 1}, {keyLCtrl, 0}, {keySpace, 1}}, 0, 0},
		{"autorepeat", []ev{{keyLCtrl, 1}, {keyLShift, 1}, {keyLCtrl, 2}, {keySpace, 1}, {keySpace, 2}, {keySpace, 2}, {keySpace, 0}}, 1, 1},
		{"release after modifiers up", []ev{{keyLCtrl, 1}, {keyLShift, 1}, {keySpace, 1}, {keyLCtrl, 0}, {keyLShift, 0}, {keySpace, 0}}, 1, 1},
		{"two presses", []ev{{keyLCtrl, 1}, {keyLShift, 1}, {keySpace, 1}, {keySpace, 0}, {keySpace, 1}, {keySpace, 0}}, 2, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newChordState(Chord{Ctrl: true, Shift: true, Key: "Space"})
			var downs, ups int
			for _, e := range tt.events {
				d, u := c.feed(e.code, e.value)
				if d {
					downs++
				}
				if u {
					ups++
				}
			}
			if downs != tt.downs || ups != tt.ups {
				t.Errorf("downs=%d ups=%d, want %d/%d", downs, ups, tt.downs, tt.ups)
			}
		})
	}
}

func TestChordStateAlt(t *testing.T) {
	c := newChordState(Chord{Ctrl: true, Alt: true, Key: "D"})
	if d, _ := c.feed(32, keyPress); d {
		t.Fatal("D alone fired")
	}
	c.feed(32, keyRelease)
	c.feed(keyLCtrl, keyPress)
	c.feed(keyRAlt, keyPress)
	if d, _ := c.feed(32, keyPress); !d {
		t.Fatal("Ctrl+Alt+D did not fire")
	}
	if _, u := c.feed(32, keyRelease); !u {
		t.Fatal("release not reported")
	}
}

func TestEvdevKeys(t *testing.T) {
	for key, want := range map[string]uint16{"Space": 57, "A": 30, "Q": 16, "M": 50, "1": 2, "9": 10, "0": 11, "F1": 59, "F10": 68, "F12": 88} {
		if got := evdevKeys[key]; got != want {
			t.Errorf("evdevKeys[%q] = %d, want %d", key, got, want)
		}
	}
}

func TestParseChord(t *testing.T) {
	tests := []struct {
		in      string
		want    Chord
		wantErr bool
	}{
		{in: DefaultChord, want: Chord{Ctrl: true, Shift: true, Key: "Space"}},
		{in: "ctrl+alt+d", want: Chord{Ctrl: true, Alt: true, Key: "D"}},
		{in: "Control + F9", want: Chord{Ctrl: true, Key: "F9"}},
		{in: "Shift+7", want: Chord{Shift: true, Key: "7"}},
		{in: "Space", wantErr: true},
		{in: "Ctrl+Meta+K", wantErr: true},
		{in: "Ctrl+F13", wantErr: true},
		{in: "Ctrl+F01", wantErr: true},
		{in: "Ctrl+Enter", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseChord(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrBadChord) {
					t.Fatalf("err = %v, want ErrBadChord", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("ParseChord(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestChordString(t *testing.T) {
	c, err := ParseChord("alt+shift+ctrl+x")
	if err != nil {
		t.Fatal(err)
	}
	if got := c.String(); got != "Ctrl+Shift+Alt+X" {
		t.Errorf("String() = %q", got)
	}
}

func waitCount(t *testing.T, n *atomic.Int32, want int32) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for n.Load() != want {
		if time.Now().After(deadline) {
			t.Fatalf("toggles = %d, want %d", n.Load(), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestWatchTap(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fk := NewFake()
	var n atomic.Int32
	go Watch(ctx, fk, 0, func() { n.Add(1) })

	fk.Press()
	waitCount(t, &n, 1)
	fk.Release()
	fk.Press()
	waitCount(t, &n, 2)
	fk.Release()

	time.Sleep(20 * time.Millisecond)
	if got := n.Load(); got != 2 {
		t.Errorf("toggles = %d, want 2", got)
	}
}

func TestWatchHold(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	fk := NewFake()
	var n atomic.Int32
	hold := 30 * time.Millisecond
	go Watch(ctx, fk, hold, func() { n.Add(1) })

	// Quick tap latches.
	fk.Press()
	waitCount(t, &n, 1)
	fk.Release()
	time.Sleep(10 * time.Millisecond)
	if got := n.Load(); got != 1 {
		t.Fatalf("after tap toggles = %d", got)
	}
	fk.Press()
	waitCount(t, &n, 2)
	fk.Release()

	// Long hold toggles on press and again on release.
	fk.Press()
	waitCount(t, &n, 3)
	time.Sleep(hold + 10*time.Millisecond)
	fk.Release()
	waitCount(t, &n, 4)
}

func TestWatchStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		Watch(ctx, NewFake(), 0, func() {})
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Watch did not return")
	}
}
