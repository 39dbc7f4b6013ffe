package audio

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/term"
)

// ErrPickCancelled is returned when the user presses Ctrl+C in the picker.
var ErrPickCancelled = errors.New("device selection cancelled")

// PickDevice lets the user choose a microphone with the arrow keys. A
// single device is returned without prompting; a non-terminal stdin
// selects the system default (nil).
func PickDevice(ctx Context) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	switch {
	case len(devices) == 0:
		return nil, ErrNoDevice
	case len(devices) == 1:
		return &devices[0], nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return nil, nil
	}
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	defer term.Restore(fd, oldState)

	cursor := 0
	render := func() {
		fmt.Print("\r\x1b[J")
		fmt.Print("Select microphone (↑/↓, Enter to confirm):\r\n\r\n")
		for i, d := range devices {
			tag := ""
			if IsBluetooth(d.Name) {
				tag = " \x1b[33m[bluetooth, lower quality]\x1b[0m"
			}
			if i == cursor {
				fmt.Printf("  \x1b[1;36m> %s%s\x1b[0m\r\n", d.Name, tag)
			} else {
				fmt.Printf("    %s%s\r\n", d.Name, tag)
			}
		}
	}
	render()

	buf := make([]byte, 3)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return nil, fmt.Errorf("reading input: %w", err)
		}

		if n == 1 {
			switch buf[0] {
			case '\r':
				fmt.Print("\r\n")
				return &devices[cursor], nil
			case 3: // Ctrl+C
				fmt.Print("\r\n")
				return nil, ErrPickCancelled
			case 'j':
				cursor = min(cursor+1, len(devices)-1)
			case 'k':
				cursor = max(cursor-1, 0)
			}
		} else if n == 3 && buf[0] == 0x1b && buf[1] == '[' {
			switch buf[2] {
			case 'A':
				cursor = max(cursor-1, 0)
			case 'B':
				cursor = min(cursor+1, len(devices)-1)
			}
		}

		fmt.Printf("\x1b[%dA", len(devices)+2)
		render()
	}
}
