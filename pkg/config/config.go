// Package config loads tool configuration from a YAML file and the
// environment. Priority: flag overrides (applied by the caller) > ENV >
// YAML > defaults.
package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root configuration.
type Config struct {
	Index      IndexConfig      `yaml:"index"`
	Deck       DeckConfig       `yaml:"deck"`
	Translator TranslatorConfig `yaml:"translator"`
	Log        LogConfig        `yaml:"log"`
}

// IndexConfig locates the vocabulary index and fixes its language pair.
// BatchWrites trades per-word durability for one commit per build.
type IndexConfig struct {
	Path        string `yaml:"path"         env:"VOCAB_INDEX_PATH"   env-default:"./vindex.db"`
	FromLang    string `yaml:"from_lang"    env:"VOCAB_FROM_LANG"    env-default:"en"`
	ToLang      string `yaml:"to_lang"      env:"VOCAB_TO_LANG"      env-default:"es"`
	BatchWrites bool   `yaml:"batch_writes" env:"VOCAB_BATCH_WRITES" env-default:"false"`
}

// DeckConfig holds deck output settings.
type DeckConfig struct {
	TemplateDir string `yaml:"template_dir" env:"VOCAB_TEMPLATE_DIR" env-default:"note_template"`
	Output      string `yaml:"output"       env:"VOCAB_OUTPUT"       env-default:"vocabulary.apkg"`
}

// TranslatorConfig tunes the dictionary client. A zero request interval
// means no spacing between lookups.
type TranslatorConfig struct {
	RequestInterval time.Duration `yaml:"request_interval" env:"VOCAB_REQUEST_INTERVAL" env-default:"0s"`
	UserAgent       string        `yaml:"user_agent"       env:"VOCAB_USER_AGENT"`
	BaseURL         string        `yaml:"base_url"         env:"VOCAB_TRANSLATOR_BASE_URL"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level" env:"VOCAB_LOG_LEVEL" env-default:"info"`
}

// Load reads configuration from path, or from ENV + defaults when path is
// empty. Validate is called on the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("config: read env: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate performs business-rule validation on the loaded configuration.
// Load calls it automatically.
func (c *Config) Validate() error {
	if c.Index.FromLang == "" {
		return fmt.Errorf("index.from_lang must not be empty")
	}
	if c.Index.ToLang == "" {
		return fmt.Errorf("index.to_lang must not be empty")
	}
	if c.Translator.RequestInterval < 0 {
		return fmt.Errorf("translator.request_interval must be >= 0 (got %v)", c.Translator.RequestInterval)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	switch c.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Level)
}
