package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"voxd/config"
	"voxd/control"
)

func newToggleCmd(g *globalFlags) *cobra.Command {
	var marker bool
	var runtimeDir string
	cmd := &cobra.Command{
		Use:   "toggle",
		Short: "Start or stop listening in the running daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.config, config.Overrides{RuntimeDir: runtimeDir})
			if err != nil {
				return err
			}
			return sendToggle(cfg, marker, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&marker, "marker", false, "touch the toggle marker file instead of signalling")
	cmd.Flags().StringVar(&runtimeDir, "runtime-dir", "", "directory for the PID file and toggle marker")
	return cmd
}

func sendToggle(cfg config.Config, marker bool, out io.Writer) error {
	if marker {
		m := control.NewMarker(cfg.MarkerPath())
		if err := m.Touch(); err != nil {
			return err
		}
		fmt.Fprintf(out, "Toggle requested via %s\n", m.Path())
		return nil
	}
	pid, err := control.SendToggle(cfg.PIDPath())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Sent toggle to daemon (PID %d)\n", pid)
	return nil
}
