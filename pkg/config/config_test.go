package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "./vindex.db", cfg.Index.Path)
	assert.Equal(t, "en", cfg.Index.FromLang)
	assert.Equal(t, "es", cfg.Index.ToLang)
	assert.Equal(t, "note_template", cfg.Deck.TemplateDir)
	assert.Equal(t, "vocabulary.apkg", cfg.Deck.Output)
	assert.Equal(t, time.Duration(0), cfg.Translator.RequestInterval)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
index:
  path: /var/lib/vocab/index.db
  to_lang: fr
deck:
  output: french.apkg
translator:
  request_interval: 2s
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/vocab/index.db", cfg.Index.Path)
	assert.Equal(t, "en", cfg.Index.FromLang, "unset keys keep their defaults")
	assert.Equal(t, "fr", cfg.Index.ToLang)
	assert.Equal(t, "french.apkg", cfg.Deck.Output)
	assert.Equal(t, 2*time.Second, cfg.Translator.RequestInterval)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  to_lang: fr\n"), 0o644))
	t.Setenv("VOCAB_TO_LANG", "de")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "de", cfg.Index.ToLang)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	cfg.Index.ToLang = ""
	assert.Error(t, cfg.Validate())

	cfg.Index.ToLang = "es"
	cfg.Translator.RequestInterval = -time.Second
	assert.Error(t, cfg.Validate())

	cfg.Translator.RequestInterval = 0
	cfg.Log.Level = "loud"
	assert.Error(t, cfg.Validate())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		level, err := LogConfig{Level: tt.name}.SlogLevel()
		require.NoError(t, err)
		assert.Equal(t, tt.level, level)
	}

	_, err := LogConfig{Level: "loud"}.SlogLevel()
	assert.Error(t, err)
}
