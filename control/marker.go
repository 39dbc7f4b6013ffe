package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Marker is a file whose existence requests one toggle.
type Marker struct {
	path string
}

func NewMarker(path string) *Marker {
	return &Marker{path: path}
}

func (m *Marker) Path() string { return m.path }

// Consume deletes the marker and reports whether it was there. Removal
// is the existence check, so two pollers cannot both consume one marker.
func (m *Marker) Consume() bool {
	return os.Remove(m.path) == nil
}

// Clear drops a marker left behind by an earlier run.
func (m *Marker) Clear() error {
	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear toggle marker: %w", err)
	}
	return nil
}

func (m *Marker) Touch() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o700); err != nil {
		return err
	}
	f, err := os.OpenFile(m.path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("touch toggle marker: %w", err)
	}
	return f.Close()
}
