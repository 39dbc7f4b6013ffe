// Package config holds the session settings fixed at startup: model,
// language, streaming mode, transcription endpoint and asset paths.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"

	"voxd/encoder"
)

// Models accepted by --model and VOICE_MODEL.
var Models = []string{
	"tiny", "tiny.en",
	"base", "base.en",
	"small", "small.en",
	"medium", "medium.en",
	"large-v3",
}

// DictateModels is the narrower set offered by the one-shot command.
var DictateModels = []string{"tiny.en", "base.en", "small.en", "medium.en"}

var ErrUnknownModel = errors.New("unknown model")

const (
	DefaultModel       = "small.en"
	DefaultLanguage    = "en"
	DefaultAPIURL      = "http://localhost:8000/v1"
	DefaultModelPrefix = "Systran/faster-whisper-"
)

// Session is the immutable per-process recognition setting.
type Session struct {
	Model      string
	Language   string
	WordByWord bool
}

func (s Session) Mode() string {
	if s.WordByWord {
		return "Word-by-word (real-time)"
	}
	return "Phrase-by-phrase"
}

type Config struct {
	Session `yaml:"-"`

	APIURL         string `yaml:"api_url"`
	APIKey         string `yaml:"api_key"`
	APIModelPrefix string `yaml:"api_model_prefix"`

	UploadFormat encoder.Format `yaml:"upload_format"`

	SoundStart string `yaml:"sound_start"`
	SoundStop  string `yaml:"sound_stop"`
	IconIdle   string `yaml:"icon_idle"`
	IconActive string `yaml:"icon_active"`

	RuntimeDir string `yaml:"runtime_dir"`
}

type fileConfig struct {
	Config `yaml:",inline"`

	Model      string `yaml:"model"`
	Language   string `yaml:"language"`
	WordByWord *bool  `yaml:"word_by_word"`
}

// Overrides carries flag values. Empty strings and nil pointers mean the
// flag was not given.
type Overrides struct {
	Model      string
	Language   string
	WordByWord *bool
	RuntimeDir string
}

func DefaultPath() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, "voxd", "config.yaml")
}

// Load reads the YAML file at path (a missing file is fine), applies the
// environment and then the flag overrides, and validates the result.
func Load(path string, o Overrides) (Config, error) {
	var f fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &f); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	c := f.Config
	c.Session = Session{Model: DefaultModel, Language: DefaultLanguage, WordByWord: true}
	if f.Model != "" {
		c.Session.Model = f.Model
	}
	if f.Language != "" {
		c.Session.Language = f.Language
	}
	if f.WordByWord != nil {
		c.Session.WordByWord = *f.WordByWord
	}

	if v := os.Getenv("VOICE_MODEL"); v != "" {
		c.Session.Model = v
	}
	if v := os.Getenv("VOICE_LANGUAGE"); v != "" {
		c.Session.Language = v
	}
	if v, ok := os.LookupEnv("VOICE_WORD_BY_WORD"); ok {
		c.Session.WordByWord = ParseBool(v)
	}
	envString(&c.APIURL, "VOICE_API_URL")
	envString(&c.APIKey, "VOICE_API_KEY")
	if c.APIKey == "" {
		c.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	envString(&c.APIModelPrefix, "VOICE_API_MODEL_PREFIX")
	if v := os.Getenv("VOICE_UPLOAD_FORMAT"); v != "" {
		c.UploadFormat = encoder.Format(v)
	}

	if o.Model != "" {
		c.Session.Model = o.Model
	}
	if o.Language != "" {
		c.Session.Language = o.Language
	}
	if o.WordByWord != nil {
		c.Session.WordByWord = *o.WordByWord
	}
	if o.RuntimeDir != "" {
		c.RuntimeDir = o.RuntimeDir
	}

	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}
	if c.APIModelPrefix == "" {
		c.APIModelPrefix = DefaultModelPrefix
	}
	if c.RuntimeDir == "" {
		c.RuntimeDir = DefaultRuntimeDir()
	}

	if err := ValidateModel(c.Session.Model, Models); err != nil {
		return Config{}, err
	}
	format, err := encoder.ParseFormat(string(c.UploadFormat))
	if err != nil {
		return Config{}, err
	}
	c.UploadFormat = format
	return c, nil
}

func envString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ParseBool follows the daemon's historical rule: only "true" enables.
func ParseBool(v string) bool {
	return strings.EqualFold(strings.TrimSpace(v), "true")
}

func ValidateModel(model string, allowed []string) error {
	if slices.Contains(allowed, model) {
		return nil
	}
	return fmt.Errorf("%w %q (choose from %s)", ErrUnknownModel, model, strings.Join(allowed, ", "))
}

// APIModel maps a short model id to the endpoint's model name.
func (c Config) APIModel(model string) string {
	if strings.Contains(model, "/") {
		return model
	}
	return c.APIModelPrefix + model
}

func DefaultRuntimeDir() string {
	if d := os.Getenv("XDG_RUNTIME_DIR"); d != "" {
		return filepath.Join(d, "voxd")
	}
	return os.TempDir()
}

func (c Config) PIDPath() string {
	return filepath.Join(c.RuntimeDir, "voxd.pid")
}

func (c Config) MarkerPath() string {
	return filepath.Join(c.RuntimeDir, "voxd-toggle")
}
