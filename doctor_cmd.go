package main

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"voxd/config"
	"voxd/doctor"
	"voxd/hotkey"
	"voxd/inject"
	"voxd/listen"
	"voxd/notify"
	"voxd/transcriber"
)

var errChecksFailed = errors.New("some checks failed")

func newDoctorCmd(g *globalFlags) *cobra.Command {
	var withHotkey bool
	var chordFlag string
	var device string
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the desktop, microphone and transcription endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(g.config, config.Overrides{})
			if err != nil {
				return err
			}
			client := transcriber.NewClient(cfg)
			mic := transcriber.NewWhisper(cfg)
			seg := transcriber.DictateSegmentation
			mic.Segmentation = &seg
			mic.Device = device

			d := &doctor.Doctor{
				In:          cmd.InOrStdin(),
				Out:         cmd.OutOrStdout(),
				SessionType: inject.SessionType(),
				Prober:      inject.SystemProber,
				NewTyper:    func(t inject.Tool) listen.Typer { return inject.New(t) },
				Notifier:    notify.Desktop{},
				Models: func(ctx context.Context) ([]string, error) {
					return transcriber.Models(ctx, client)
				},
				Want:        cfg.APIModel(cfg.Model),
				Mic:         mic,
				Session:     cfg.Session,
				Interactive: term.IsTerminal(int(os.Stdin.Fd())),
			}
			if withHotkey {
				chord, err := hotkey.ParseChord(chordFlag)
				if err != nil {
					return err
				}
				d.Chord = chord
				d.Hotkey = func() hotkey.Hotkey { return hotkey.New(chord) }
			}
			if d.Run() != 0 {
				return errChecksFailed
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withHotkey, "hotkey", false, "also check the global hotkey")
	cmd.Flags().StringVar(&chordFlag, "chord", hotkey.DefaultChord, "chord to test with --hotkey")
	cmd.Flags().StringVar(&device, "device", "", "use named microphone device")
	return cmd
}
