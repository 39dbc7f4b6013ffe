// Package control is the daemon's cross-process surface: the PID file
// used for single-instance enforcement, the toggle marker file and the
// signals that drive toggling and shutdown.
package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

var ErrAlreadyRunning = errors.New("daemon already running")

// RunningError reports the PID found in a live PID file.
type RunningError struct {
	PID int
}

func (e *RunningError) Error() string {
	return fmt.Sprintf("%s (PID: %d)", ErrAlreadyRunning, e.PID)
}

func (e *RunningError) Unwrap() error { return ErrAlreadyRunning }

type PIDFile struct {
	path string
	pid  int
}

// Acquire claims path for the current process. A file naming a live
// process is left untouched and yields a *RunningError; a dead or
// unreadable entry is replaced.
func Acquire(path string) (*PIDFile, error) {
	if pid, err := ReadPID(path); err == nil {
		if Alive(pid) && pid != os.Getpid() {
			return nil, &RunningError{PID: pid}
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale pid file: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("remove invalid pid file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create runtime dir: %w", err)
	}
	pid := os.Getpid()
	if err := os.WriteFile(path, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return nil, fmt.Errorf("write pid file: %w", err)
	}
	return &PIDFile{path: path, pid: pid}, nil
}

// Release removes the file if it still names this process.
func (p *PIDFile) Release() error {
	if p == nil {
		return nil
	}
	pid, err := ReadPID(p.path)
	if err != nil || pid != p.pid {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (p *PIDFile) Path() string { return p.path }

func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("invalid pid file %s: %q", path, data)
	}
	return pid, nil
}

// Alive reports whether a process with pid exists. EPERM means it exists
// under another user.
func Alive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}
