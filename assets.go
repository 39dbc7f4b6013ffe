package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"voxd/beep"
	"voxd/tray"
)

const iconSize = 64

func newAssetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "assets [dir]",
		Short: "Write the cue sounds and tray icons to a directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "assets"
			if len(args) == 1 {
				dir = args[0]
			}
			return writeAssets(dir, cmd.OutOrStdout())
		},
	}
}

func writeAssets(dir string, out io.Writer) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	sounds := []struct {
		name  string
		sound beep.Sound
	}{
		{"start.wav", beep.StartTone},
		{"stop.wav", beep.StopTone},
		{"error.wav", beep.ErrorTone},
	}
	for _, s := range sounds {
		path := filepath.Join(dir, s.name)
		if err := beep.Save(path, s.sound); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}

	icons := []struct {
		name string
		data []byte
	}{
		{"icon-idle.png", tray.IdleIcon(iconSize)},
		{"icon-active.png", tray.ActiveIcon(iconSize)},
	}
	for _, ic := range icons {
		path := filepath.Join(dir, ic.name)
		if err := os.WriteFile(path, ic.data, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		fmt.Fprintf(out, "wrote %s\n", path)
	}
	return nil
}
