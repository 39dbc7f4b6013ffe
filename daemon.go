package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"voxd/beep"
	"voxd/config"
	"voxd/control"
	"voxd/hotkey"
	"voxd/inject"
	"voxd/listen"
	"voxd/log"
	"voxd/login"
	"voxd/notify"
	"voxd/transcriber"
	"voxd/tray"
)

type daemonOptions struct {
	model      string
	language   string
	wordByWord bool
	runtimeDir string
	noTray     bool
	hotkey     bool
	chord      string
	hotkeyHold time.Duration
	device     string
}

func newDaemonCmd(g *globalFlags) *cobra.Command {
	var o daemonOptions
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the tray daemon that types dictated text into the focused window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := hotkey.ParseChord(o.chord); err != nil {
				return err
			}
			ov := config.Overrides{Model: o.model, Language: o.language, RuntimeDir: o.runtimeDir}
			if cmd.Flags().Changed("word-by-word") {
				ov.WordByWord = &o.wordByWord
			}
			cfg, err := config.Load(g.config, ov)
			if err != nil {
				return err
			}
			return runDaemon(cmd.Context(), cfg, o, cmd.OutOrStdout())
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.model, "model", "", fmt.Sprintf("speech model (env VOICE_MODEL, default %s)", config.DefaultModel))
	f.StringVar(&o.language, "language", "", fmt.Sprintf("language code (env VOICE_LANGUAGE, default %s)", config.DefaultLanguage))
	f.BoolVar(&o.wordByWord, "word-by-word", true, "type words as they are recognized (env VOICE_WORD_BY_WORD)")
	f.StringVar(&o.runtimeDir, "runtime-dir", "", "directory for the PID file and toggle marker")
	f.BoolVar(&o.noTray, "no-tray", false, "run without a tray icon")
	f.BoolVar(&o.hotkey, "hotkey", false, "also toggle with a global key chord")
	f.StringVar(&o.chord, "chord", hotkey.DefaultChord, "chord for --hotkey, e.g. Ctrl+Alt+D")
	f.DurationVar(&o.hotkeyHold, "hotkey-hold", 0, "holding the hotkey this long toggles again on release (0 disables)")
	f.StringVar(&o.device, "device", "", "use named microphone device")
	return cmd
}

func runDaemon(ctx context.Context, cfg config.Config, o daemonOptions, out io.Writer) error {
	if err := os.MkdirAll(cfg.RuntimeDir, 0o700); err != nil {
		return fmt.Errorf("runtime dir: %w", err)
	}
	pf, err := control.Acquire(cfg.PIDPath())
	if err != nil {
		return err
	}
	defer pf.Release()

	toggles := make(chan os.Signal, 1)
	control.NotifyToggle(toggles)

	marker := control.NewMarker(cfg.MarkerPath())
	if err := marker.Clear(); err != nil {
		log.Warn(err.Error())
	}

	mic := transcriber.NewWhisper(cfg)
	mic.Device = o.device
	if err := mic.Probe(); err != nil {
		return fmt.Errorf("microphone: %w", err)
	}

	session := inject.SessionType()
	injector := inject.New(inject.Select(session, inject.SystemProber))

	var notifier notify.Notifier = notify.Async{Notifier: notify.Desktop{Icon: cfg.IconActive}}
	injector.OnWarn(func(err error) {
		notifier.Notify(notify.AppName, err.Error())
	})

	printBanner(out, cfg, injector.Tool(), session, os.Getpid(), marker.Path())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ind indicator = nopIndicator{}
	if !o.noTray {
		ind = trayIndicator{}
	}
	m := listen.New(listen.Options{
		Session:  cfg.Session,
		Opener:   mic,
		Typer:    injector,
		Observer: &daemonObserver{ind: ind, cues: beep.NewPlayer(cfg.SoundStart, cfg.SoundStop), notifier: notifier},
		Debounce: listen.DefaultDebounce,
		Poll:     marker.Consume,
	})

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-toggles:
				m.Toggle("signal")
			}
		}
	}()

	if o.hotkey {
		chord, _ := hotkey.ParseChord(o.chord)
		hk := hotkey.New(chord)
		if err := hk.Register(); err != nil {
			log.Warnf("hotkey unavailable: %v", err)
			fmt.Fprintf(out, "Warning: hotkey unavailable: %v\n", err)
		} else {
			defer hk.Unregister()
			fmt.Fprintf(out, "  Hotkey:   %s\n", chord)
			go hotkey.Watch(ctx, hk, o.hotkeyHold, func() { m.Toggle("hotkey") })
		}
	}

	if !o.noTray {
		tray.SetModel(cfg.Model)
		tray.SetIcons(cfg.IconIdle, cfg.IconActive)
		tray.SetLogin(login.Enabled())
		tray.OnLogin(setLogin)
		tray.OnToggle(func() { m.Toggle("tray") })
		quit := tray.Init()
		defer tray.Close()
		go func() {
			select {
			case <-quit:
				log.Info("quit from tray")
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	log.Infof("daemon started: model=%s language=%s mode=%q injector=%s", cfg.Model, cfg.Language, cfg.Mode(), injector.Tool())
	err = m.Run(ctx)
	log.Info("daemon stopped")
	return err
}

func setLogin(on bool) error {
	if on {
		return login.Enable()
	}
	return login.Disable()
}

func printBanner(w io.Writer, cfg config.Config, tool inject.Tool, session string, pid int, marker string) {
	fmt.Fprintln(w, "Voice dictation daemon started")
	fmt.Fprintf(w, "  Model:    %s\n", cfg.Model)
	fmt.Fprintf(w, "  Language: %s\n", cfg.Language)
	fmt.Fprintf(w, "  Mode:     %s\n", cfg.Mode())
	if tool == inject.None {
		fmt.Fprintln(w, "  Injector: none (WARNING: text won't be typed!)")
		for _, hint := range inject.InstallHint(session) {
			fmt.Fprintf(w, "    %s\n", hint)
		}
	} else {
		fmt.Fprintf(w, "  Injector: %s\n", tool)
	}
	fmt.Fprintf(w, "  PID:      %d\n", pid)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Toggle listening with any of:")
	fmt.Fprintf(w, "  kill -USR1 %d\n", pid)
	fmt.Fprintf(w, "  touch %s\n", marker)
	fmt.Fprintln(w, "  voxd toggle")
}
