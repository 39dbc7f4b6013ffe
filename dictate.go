package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"voxd/audio"
	"voxd/clipboard"
	"voxd/config"
	"voxd/listen"
	"voxd/log"
	"voxd/transcriber"
)

const (
	defaultDictateModel = "base.en"
	testMicTimeout      = 10 * time.Second
)

var errNoSpeech = errors.New("no speech heard")

type dictateOptions struct {
	model      string
	language   string
	continuous bool
	clipboard  bool
	paste      bool
	testMic    bool
	noRealtime bool
	device     string
	pickDevice bool
	fakeAudio  string
}

func newDictateCmd(g *globalFlags) *cobra.Command {
	var o dictateOptions
	cmd := &cobra.Command{
		Use:   "dictate",
		Short: "Transcribe speech to stdout or the clipboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.ValidateModel(o.model, config.DictateModels); err != nil {
				return err
			}
			phrase := false
			cfg, err := config.Load(g.config, config.Overrides{Model: o.model, Language: o.language, WordByWord: &phrase})
			if err != nil {
				return err
			}
			return runDictate(cmd.Context(), cfg, o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.model, "model", defaultDictateModel, "speech model: "+strings.Join(config.DictateModels, ", "))
	f.StringVar(&o.language, "language", config.DefaultLanguage, "language code")
	f.BoolVar(&o.continuous, "continuous", false, "keep transcribing until interrupted")
	f.BoolVar(&o.clipboard, "clipboard", false, "copy the result instead of printing it")
	f.BoolVar(&o.paste, "paste", false, "with --clipboard, also paste into the focused window")
	f.BoolVar(&o.testMic, "test-mic", false, fmt.Sprintf("exit 0 if speech is heard within %s", testMicTimeout))
	f.BoolVar(&o.noRealtime, "no-realtime", false, "do not show in-progress hypotheses")
	f.StringVar(&o.device, "device", "", "use named microphone device")
	f.BoolVar(&o.pickDevice, "pick-device", false, "choose the microphone interactively")
	f.StringVar(&o.fakeAudio, "fake-audio", "", "read speech from a 16 kHz mono WAV file instead of the microphone")
	f.MarkHidden("fake-audio")
	return cmd
}

func newDictateMic(cfg config.Config, o dictateOptions) (*transcriber.Whisper, error) {
	mic := transcriber.NewWhisper(cfg)
	seg := transcriber.DictateSegmentation
	mic.Segmentation = &seg
	mic.Partials = !o.noRealtime
	mic.Device = o.device

	if o.fakeAudio != "" {
		fake, err := audio.LoadFakeContext(o.fakeAudio, true)
		if err != nil {
			return nil, err
		}
		mic.NewContext = func() (audio.Context, error) { return fake, nil }
		return mic, nil
	}

	if o.pickDevice && o.device == "" {
		actx, err := audio.NewContext()
		if err != nil {
			return nil, fmt.Errorf("audio: %w", err)
		}
		dev, err := audio.PickDevice(actx)
		actx.Close()
		if err != nil {
			return nil, err
		}
		if dev != nil {
			mic.Device = dev.Name
		}
	}
	return mic, nil
}

func runDictate(ctx context.Context, cfg config.Config, o dictateOptions, out io.Writer) error {
	mic, err := newDictateMic(cfg, o)
	if err != nil {
		return err
	}
	if o.clipboard && o.paste {
		if err := clipboard.Init(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: paste init failed: %v\n", err)
			fmt.Fprintln(os.Stderr, "Fix with: sudo chmod 660 /dev/uinput && sudo chgrp input /dev/uinput")
		}
	}

	src, err := mic.OpenStream(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("microphone: %w", err)
	}
	defer src.Close()

	if o.testMic {
		return testMic(ctx, src, out)
	}

	emit := func(text string) error {
		log.TranscriptionText("dictate", cfg.Model, text)
		if o.clipboard {
			if err := clipboard.Output(text, o.paste); err != nil {
				return err
			}
			fmt.Fprintln(os.Stderr, "Copied to clipboard.")
			return nil
		}
		_, err := fmt.Fprintln(out, text)
		return err
	}

	if o.continuous && !o.clipboard && isTerminal(out) {
		lines, err := runTUI(ctx, src, cfg, func(text string) {
			log.TranscriptionText("dictate", cfg.Model, text)
		})
		for _, l := range lines {
			fmt.Fprintln(out, l)
		}
		return err
	}

	var onPartial func(string)
	if !o.noRealtime && term.IsTerminal(int(os.Stderr.Fd())) {
		onPartial = func(p string) { fmt.Fprintf(os.Stderr, "\r\x1b[K%s", strings.TrimSpace(p)) }
		defer fmt.Fprint(os.Stderr, "\r\x1b[K")
	}
	if !o.continuous {
		fmt.Fprintln(os.Stderr, "Listening... speak now.")
	}
	return dictate(ctx, src, o.continuous, onPartial, func(text string) error {
		if onPartial != nil {
			fmt.Fprint(os.Stderr, "\r\x1b[K")
		}
		return emit(text)
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// dictate reads utterances from src and hands each non-empty one to emit.
// Without continuous it stops after the first. Cancellation and the end
// of the source are a clean exit.
func dictate(ctx context.Context, src listen.Source, continuous bool, onPartial func(string), emit func(string) error) error {
	for {
		text, err := src.Next(ctx, onPartial)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if err := emit(text); err != nil {
			return err
		}
		if !continuous {
			return nil
		}
	}
}

func testMic(ctx context.Context, src listen.Source, out io.Writer) error {
	fmt.Fprintf(out, "Testing microphone: say something within %s...\n", testMicTimeout)
	ctx, cancel := context.WithTimeout(ctx, testMicTimeout)
	defer cancel()

	text, err := src.Next(ctx, nil)
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, io.EOF):
		return fmt.Errorf("%w within %s", errNoSpeech, testMicTimeout)
	case errors.Is(err, context.Canceled):
		return nil
	case err != nil:
		return err
	}
	fmt.Fprintf(out, "Microphone OK: heard %q\n", strings.TrimSpace(text))
	return nil
}
