package control

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// ToggleSignal is the signal that requests a listening toggle.
const ToggleSignal = syscall.SIGUSR1

func NotifyShutdown(ch chan os.Signal) {
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM)
}

func NotifyToggle(ch chan os.Signal) {
	signal.Notify(ch, ToggleSignal)
}

// SendToggle signals the daemon recorded in pidPath.
func SendToggle(pidPath string) (int, error) {
	pid, err := ReadPID(pidPath)
	if err != nil {
		return 0, fmt.Errorf("daemon not running: %w", err)
	}
	if !Alive(pid) {
		return pid, fmt.Errorf("daemon not running (stale PID %d)", pid)
	}
	if err := syscall.Kill(pid, ToggleSignal); err != nil {
		return pid, fmt.Errorf("signal %d: %w", pid, err)
	}
	return pid, nil
}
