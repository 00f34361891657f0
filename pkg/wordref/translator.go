package wordref

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/vindex"
)

// Key marks index entries translated by this package.
const Key = "word_reference"

// Translator fills vocabulary index entries with wordreference.com lookups.
// It implements vindex.EntryTranslator.
type Translator struct {
	client *Client
	toLang string
	force  bool
	log    *slog.Logger
}

// TranslatorOption adjusts a translator at construction time.
type TranslatorOption func(*Translator)

// WithForceUpdate makes every stored entry count as stale, refreshing all
// translations on the next build.
func WithForceUpdate() TranslatorOption {
	return func(t *Translator) { t.force = true }
}

// WithTranslatorLogger replaces the default logger.
func WithTranslatorLogger(log *slog.Logger) TranslatorOption {
	return func(t *Translator) { t.log = log }
}

// NewTranslator returns a translator that looks entries up in their own
// language's dictionary towards toLang.
func NewTranslator(client *Client, toLang string, opts ...TranslatorOption) *Translator {
	t := &Translator{client: client, toLang: toLang, log: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Key implements vindex.EntryTranslator.
func (t *Translator) Key() string { return Key }

// Translate looks the entry's word up and returns the payload as JSON. A
// failed lookup is reported as no payload, never as a fatal error, so a
// word the dictionary does not know cannot abort an index build.
func (t *Translator) Translate(entry vindex.Entry) (string, bool) {
	payload, err := t.client.Translate(context.Background(), entry.Lang, t.toLang, entry.Word)
	if err != nil {
		t.log.Warn("translation lookup failed",
			slog.String("word", entry.Word),
			slog.Any("error", err))
		return "", false
	}
	data, err := json.Marshal(payload)
	if err != nil {
		t.log.Warn("encoding translation failed",
			slog.String("word", entry.Word),
			slog.Any("error", err))
		return "", false
	}
	return string(data), true
}

// ShouldUpdate reports an entry stale when it was translated by something
// else, carries no payload, or force updates are on.
func (t *Translator) ShouldUpdate(fresh, stored vindex.Entry) bool {
	if stored.Translator != Key || stored.Translation == "" {
		return true
	}
	return t.force
}
