package vindex

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Usage describes one sighting of a word: the sentence it was seen in and
// the byte offset of the word inside that sentence.
type Usage struct {
	Text      string
	WordIndex int
}

// Vocabulary is a word to usage mapping that remembers insertion order.
// Setting an existing word replaces its usage but keeps its position.
type Vocabulary struct {
	words  []string
	usages map[string]Usage
}

// NewVocabulary returns an empty vocabulary.
func NewVocabulary() *Vocabulary {
	return &Vocabulary{usages: make(map[string]Usage)}
}

// Set records the usage for word, appending the word on first sight.
func (v *Vocabulary) Set(word string, usage Usage) {
	if _, ok := v.usages[word]; !ok {
		v.words = append(v.words, word)
	}
	v.usages[word] = usage
}

// Get returns the usage recorded for word.
func (v *Vocabulary) Get(word string) (Usage, bool) {
	usage, ok := v.usages[word]
	return usage, ok
}

// Contains reports whether word has been recorded.
func (v *Vocabulary) Contains(word string) bool {
	_, ok := v.usages[word]
	return ok
}

// Len returns the number of recorded words.
func (v *Vocabulary) Len() int { return len(v.words) }

// Words returns the recorded words in insertion order.
func (v *Vocabulary) Words() []string {
	words := make([]string, len(v.words))
	copy(words, v.words)
	return words
}

// Config describes one index build. The zero value is not usable: FromLang,
// ToLang and IndexPath are required.
type Config struct {
	// FromLang is the language the vocabulary was read in.
	FromLang string
	// ToLang is the language translations are wanted in.
	ToLang string
	// IndexPath is the SQLite database file backing the index.
	IndexPath string
	// BatchWrites collects all index writes in one transaction flushed when
	// the store is closed, instead of committing after every word. Faster
	// for large vocabularies, but an interrupted build loses its progress.
	BatchWrites bool
	// Transforms expand each base entry before indexing, in order. Each
	// transform receives its own copy of the base entry and their outputs
	// are concatenated.
	Transforms []EntryTransform
	// Translator fills in translation payloads. When nil, entries are
	// indexed untranslated and existing entries are never overwritten.
	Translator EntryTranslator
	// Logger receives per word progress. Defaults to slog.Default.
	Logger *slog.Logger
}

// Build indexes the vocabulary into the store described by cfg and returns
// the store still open, ready for reading. The caller owns the returned
// store and must close it.
//
// Words already present in the store are skipped unless the configured
// translator reports them stale, so an interrupted build can be rerun and
// picks up where it stopped.
func Build(cfg Config, vocab *Vocabulary) (*Store, error) {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	if cfg.FromLang == "" {
		return nil, errors.New("vindex: from language is not set")
	}
	if cfg.ToLang == "" {
		return nil, errors.New("vindex: to language is not set")
	}
	if cfg.IndexPath == "" {
		return nil, errors.New("vindex: index path is not set")
	}

	candidates, err := collectCandidates(cfg, vocab)
	if err != nil {
		return nil, err
	}

	var storeOpts []StoreOption
	if cfg.BatchWrites {
		storeOpts = append(storeOpts, WithoutAutoCommit())
	}
	store := NewStore(cfg.IndexPath, cfg.FromLang, cfg.ToLang, storeOpts...)
	if err := store.Open(); err != nil {
		return nil, err
	}
	if err := indexCandidates(cfg, store, candidates, log); err != nil {
		if cerr := store.Close(); cerr != nil {
			log.Warn("closing index store after failed build", slog.Any("error", cerr))
		}
		return nil, err
	}
	return store, nil
}

// collectCandidates expands every vocabulary word through the configured
// transforms and drops duplicate words, keeping the first occurrence.
func collectCandidates(cfg Config, vocab *Vocabulary) ([]Entry, error) {
	var candidates []Entry
	seen := make(map[string]struct{})
	for _, word := range vocab.Words() {
		usage, _ := vocab.Get(word)
		expanded, err := expandEntry(cfg, word, usage)
		if err != nil {
			return nil, err
		}
		for _, entry := range expanded {
			if entry.Word == "" {
				return nil, fmt.Errorf("vindex: empty word expanded from %q", word)
			}
			if _, dup := seen[entry.Word]; dup {
				continue
			}
			seen[entry.Word] = struct{}{}
			candidates = append(candidates, entry)
		}
	}
	return candidates, nil
}

// expandEntry validates one vocabulary record, builds the base entry and
// runs it through every transform.
func expandEntry(cfg Config, word string, usage Usage) ([]Entry, error) {
	if usage.Text == "" {
		return nil, fmt.Errorf("vindex: missing usage for word %q", word)
	}
	if usage.WordIndex < 0 || usage.WordIndex >= len(usage.Text) {
		return nil, fmt.Errorf("vindex: usage word index %d out of range for word %q in %q",
			usage.WordIndex, word, usage.Text)
	}

	entry := Entry{
		Lang:  cfg.FromLang,
		Word:  strings.TrimSpace(word),
		Usage: usage.Text,
	}
	entry.SetUsageWordIndex(usage.WordIndex)

	if len(cfg.Transforms) == 0 {
		return []Entry{entry}, nil
	}
	var entries []Entry
	for _, transform := range cfg.Transforms {
		expanded, err := transform.Transform(entry.Clone())
		if err != nil {
			return nil, fmt.Errorf("vindex: transform word %q: %w", entry.Word, err)
		}
		entries = append(entries, expanded...)
	}
	return entries, nil
}

// indexCandidates writes the candidates into the store, reusing entries a
// previous run already indexed.
func indexCandidates(cfg Config, store *Store, candidates []Entry, log *slog.Logger) error {
	total := len(candidates)
	for i, entry := range candidates {
		stored, err := store.ReadEntry(entry.Word)
		if err != nil {
			return err
		}

		if cfg.Translator == nil {
			if stored != nil {
				log.Info("reusing indexed word",
					slog.String("word", entry.Word),
					slog.Int("n", i+1),
					slog.Int("total", total))
				continue
			}
			log.Info("indexing word",
				slog.String("word", entry.Word),
				slog.Int("n", i+1),
				slog.Int("total", total))
			if err := store.WriteEntry(entry); err != nil {
				return err
			}
			continue
		}

		if stored != nil && !cfg.Translator.ShouldUpdate(entry, *stored) {
			log.Info("reusing indexed word",
				slog.String("word", entry.Word),
				slog.Int("n", i+1),
				slog.Int("total", total))
			continue
		}
		entry.Translator = cfg.Translator.Key()
		if payload, ok := cfg.Translator.Translate(entry); ok {
			entry.Translation = payload
		} else {
			entry.Translation = ""
			log.Warn("no translation found", slog.String("word", entry.Word))
		}
		log.Info("indexing word",
			slog.String("word", entry.Word),
			slog.Int("n", i+1),
			slog.Int("total", total))
		if err := store.WriteEntry(entry); err != nil {
			return err
		}
	}
	return nil
}
