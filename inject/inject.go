// Package inject types text into the focused window through whichever
// external keyboard tool the desktop session supports.
package inject

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"voxd/log"
)

type Tool string

const (
	None    Tool = ""
	Xdotool Tool = "xdotool"
	Ydotool Tool = "ydotool"
	Wtype   Tool = "wtype"
)

func (t Tool) String() string {
	if t == None {
		return "none"
	}
	return string(t)
}

var ErrNoTool = errors.New("no text injection tool available")

// Prober answers availability questions about the host.
type Prober interface {
	OnPath(name string) bool
	Running(process string) bool
}

type execProber struct{}

func (execProber) OnPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}

func (execProber) Running(process string) bool {
	return exec.Command("pgrep", "-x", process).Run() == nil
}

// SystemProber probes PATH and the process table.
var SystemProber Prober = execProber{}

// Select returns the first usable tool for the session type ("x11",
// "wayland" or anything else), or None.
func Select(session string, p Prober) Tool {
	switch strings.ToLower(session) {
	case "x11":
		if p.OnPath("xdotool") {
			return Xdotool
		}
	case "wayland":
		if p.OnPath("ydotool") {
			if p.Running("ydotoold") {
				return Ydotool
			}
			log.Warn("ydotool found but ydotoold is not running, trying wtype")
		}
		if p.OnPath("wtype") {
			return Wtype
		}
	default:
		if p.OnPath("xdotool") {
			return Xdotool
		}
		if p.OnPath("ydotool") {
			return Ydotool
		}
	}
	return None
}

// SessionType reads XDG_SESSION_TYPE.
func SessionType() string {
	return strings.ToLower(os.Getenv("XDG_SESSION_TYPE"))
}

// InstallHint suggests what to install for the session type.
func InstallHint(session string) []string {
	switch session {
	case "wayland":
		return []string{
			"For Wayland, install: sudo apt install wtype",
			"Or for ydotool: sudo apt install ydotool && sudo systemctl enable --now ydotool",
		}
	default:
		return []string{"For X11, install: sudo apt install xdotool"}
	}
}

// Runner executes an external command.
type Runner func(name string, args ...string) error

func execRunner(name string, args ...string) error {
	out, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(out))
		if msg != "" {
			return fmt.Errorf("%s: %w (%s)", name, err, msg)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// Injector types text with a tool chosen once at startup.
type Injector struct {
	tool     Tool
	run      Runner
	warnOnce sync.Once
	onWarn   func(error)
}

func New(tool Tool) *Injector {
	return &Injector{tool: tool, run: execRunner}
}

// NewWithRunner is New with a custom command runner.
func NewWithRunner(tool Tool, run Runner) *Injector {
	return &Injector{tool: tool, run: run}
}

// OnWarn sets a callback for the single "no tool" warning.
func (i *Injector) OnWarn(fn func(error)) {
	i.onWarn = fn
}

func (i *Injector) Tool() Tool {
	return i.tool
}

// Type sends text to the focused window. With no tool it is a no-op and
// reports ErrNoTool through the warning callback exactly once.
func (i *Injector) Type(text string) error {
	if text == "" {
		return nil
	}
	if i.tool == None {
		i.warnOnce.Do(func() {
			log.Warn(ErrNoTool.Error())
			if i.onWarn != nil {
				i.onWarn(ErrNoTool)
			}
		})
		return nil
	}
	return i.run(string(i.tool), Args(i.tool, text)...)
}

// Args builds the command line for typing text with tool.
func Args(tool Tool, text string) []string {
	switch tool {
	case Wtype:
		return []string{text}
	case Xdotool, Ydotool:
		return []string{"type", "--", text}
	}
	return nil
}
