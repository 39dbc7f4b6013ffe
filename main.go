package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/spf13/cobra"

	"voxd/config"
	"voxd/control"
	"voxd/log"
)

var version = "dev"

type globalFlags struct {
	config  string
	logPath string
	verbose bool
}

func newRootCmd() *cobra.Command {
	var g globalFlags
	root := &cobra.Command{
		Use:           "voxd",
		Short:         "Voice dictation that types what you say into the focused window",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return setupLogging(g)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			log.Close()
		},
	}
	root.PersistentFlags().StringVar(&g.config, "config", config.DefaultPath(), "YAML config file")
	root.PersistentFlags().StringVar(&g.logPath, "logpath", "", "log directory path (default: $XDG_CONFIG_HOME/voxd/logs, use ./ for current dir)")
	root.PersistentFlags().BoolVar(&g.verbose, "verbose", false, "mirror diagnostics to stderr")

	root.AddCommand(
		newDaemonCmd(&g),
		newDictateCmd(&g),
		newToggleCmd(&g),
		newDoctorCmd(&g),
		newModelsCmd(&g),
		newAssetsCmd(),
		newVersionCmd(),
	)
	return root
}

func setupLogging(g globalFlags) error {
	dir, err := log.ResolveDir(g.logPath)
	if err != nil {
		return fmt.Errorf("failed to resolve log directory: %w", err)
	}
	log.SetDir(dir)
	if v := os.Getenv("VOICE_LOG_LEVEL"); v != "" {
		if err := log.SetLevel(v); err != nil {
			return err
		}
	}
	if g.verbose {
		log.SetLevel("debug")
		log.Mirror(os.Stderr)
	}
	if err := log.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not init logging: %v\n", err)
		return nil
	}

	crashPath := filepath.Join(log.Dir(), "crash_log.txt")
	if f, err := os.OpenFile(crashPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644); err == nil {
		fmt.Fprintf(f, "\n=== Session %s [pid=%d] ===\n", time.Now().Format("2006-01-02 15:04:05"), os.Getpid())
		debug.SetCrashOutput(f, debug.CrashOptions{})
	}
	return nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "voxd %s\n", version)
		},
	}
}

// interruptContext is cancelled on SIGINT or SIGTERM. Interrupts are a
// clean exit, never an error.
func interruptContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sig := make(chan os.Signal, 1)
	control.NotifyShutdown(sig)
	go func() {
		select {
		case s := <-sig:
			log.Infof("received %v, shutting down", s)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func main() {
	ctx, cancel := interruptContext()
	err := newRootCmd().ExecuteContext(ctx)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
