package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	diagLog        zerolog.Logger
	diagFile       *os.File
	transcribeFile *os.File
	logMu          sync.Mutex
	logReady       bool
	pid            int
	dir            string
	mirror         io.Writer
	level          = zerolog.InfoLevel
)

// ResolveDir picks the log directory: flag, then VOICE_LOG_PATH, then the
// per-user default.
func ResolveDir(flagPath string) (string, error) {
	if flagPath != "" {
		return absPath(flagPath)
	}
	if envPath := os.Getenv("VOICE_LOG_PATH"); envPath != "" {
		return absPath(envPath)
	}
	return getDefaultDir()
}

func absPath(p string) (string, error) {
	if filepath.IsAbs(p) {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, p), nil
}

func getDefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	if runtime.GOOS == "darwin" {
		return filepath.Join(home, "Library", "Logs", "voxd"), nil
	}
	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}
	return filepath.Join(xdgConfig, "voxd", "logs"), nil
}

func SetDir(d string) {
	dir = d
}

func Dir() string {
	return dir
}

// Mirror sends a copy of every diagnostics line to w. Call before Init.
func Mirror(w io.Writer) {
	mirror = w
}

func Init() error {
	logMu.Lock()
	defer logMu.Unlock()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	pid = os.Getpid()

	var err error
	diagFile, err = os.OpenFile(filepath.Join(dir, "diagnostics_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	transcribeFile, err = os.OpenFile(filepath.Join(dir, "transcribe_log.txt"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		diagFile.Close()
		return err
	}

	var out io.Writer = zerolog.ConsoleWriter{
		Out:        diagFile,
		TimeFormat: "2006-01-02 15:04:05",
		NoColor:    true,
	}
	if mirror != nil {
		out = zerolog.MultiLevelWriter(out, zerolog.ConsoleWriter{Out: mirror, TimeFormat: "15:04:05"})
	}
	diagLog = zerolog.New(out).Level(level).With().Timestamp().Int("pid", pid).Logger()

	logReady = true
	return nil
}

func Close() {
	logMu.Lock()
	defer logMu.Unlock()
	if diagFile != nil {
		diagFile.Close()
		diagFile = nil
	}
	if transcribeFile != nil {
		transcribeFile.Close()
		transcribeFile = nil
	}
	logReady = false
}

// SetLevel sets the minimum level written to the diagnostics log. Call
// before Init; an unknown name leaves the level unchanged.
func SetLevel(name string) error {
	l, err := zerolog.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("log level %q: %w", name, err)
	}
	level = l
	return nil
}

func logf(l zerolog.Level, format string, args ...any) {
	if logReady {
		diagLog.WithLevel(l).Msgf(format, args...)
	}
}

func Info(msg string) { logf(zerolog.InfoLevel, "%s", msg) }
func Infof(format string, args ...any) { logf(zerolog.InfoLevel, format, args...) }
func Debugf(format string, args ...any) { logf(zerolog.DebugLevel, format, args...) }
func Error(msg string) { logf(zerolog.ErrorLevel, "%s", msg) }
func Errorf(format string, args ...any) { logf(zerolog.ErrorLevel, format, args...) }
func Warn(msg string) { logf(zerolog.WarnLevel, "%s", msg) }
func Warnf(format string, args ...any) { logf(zerolog.WarnLevel, format, args...) }

// PeriodStart records the beginning of one Listening period.
func PeriodStart(id, model, language string, wordByWord bool) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("period", id).
		Str("model", model).
		Str("language", language).
		Bool("word_by_word", wordByWord).
		Msg("period_start")
}

func PeriodEnd(id, reason string, deliveries int) {
	if !logReady {
		return
	}
	diagLog.Info().
		Str("period", id).
		Str("reason", reason).
		Int("deliveries", deliveries).
		Msg("period_end")
}

// Utterance logs per-request timing for one transcription call.
func Utterance(audioS float64, elapsed time.Duration, partial bool) {
	if !logReady {
		return
	}
	diagLog.Debug().
		Float64("audio_s", audioS).
		Float64("total_ms", float64(elapsed.Microseconds())/1000).
		Bool("partial", partial).
		Msg("transcription")
}

func TranscriptionText(period, model, text string) {
	if !logReady {
		return
	}
	logMu.Lock()
	defer logMu.Unlock()
	line := fmt.Sprintf("%s\t[%d]\t%s\t%s\t%s\n", time.Now().Format("2006-01-02 15:04:05"), pid, period, model, text)
	transcribeFile.WriteString(line)
}
