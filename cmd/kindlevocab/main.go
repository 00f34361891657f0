package main

import (
	"context"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/anki"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/article"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/config"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/phrasal"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/vindex"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/vocabdb"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/wordref"
)

const (
	modelName      = "Kindle Vocabulary Note Type"
	deckNamePrefix = "Kindle Vocabulary - "
)

type buildOptions struct {
	input       string
	bookID      string
	name        string
	clearIndex  bool
	indexOnly   bool
	forceUpdate bool
}

func main() {
	var (
		input       = flag.String("input", "vocab.db", "vocabulary source: a Kindle vocab.db, a .csv file, a saved .html page or a URL")
		bookID      = flag.String("book-id", "", "book to pick words from; run without it to list the books in vocab.db")
		name        = flag.String("name", "", "deck name; defaults to the book or article title")
		indexPath   = flag.String("index", "", "vocabulary index location (default ./vindex.db)")
		fromLang    = flag.String("from-lang", "", "language the words are in (default en)")
		toLang      = flag.String("to-lang", "", "language to translate into (default es)")
		templateDir = flag.String("note-template-dir", "", "directory with front.html, back.html and style.css (default note_template)")
		output      = flag.String("output", "", "deck file to write (default vocabulary.apkg)")
		configPath  = flag.String("config", "", "optional YAML configuration file")
		clearIndex  = flag.Bool("clear-index", false, "delete the index before building")
		indexOnly   = flag.Bool("index-only", false, "build the index but write no deck")
		forceUpdate = flag.Bool("force-update", false, "retranslate words already in the index")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *indexPath != "" {
		cfg.Index.Path = *indexPath
	}
	if *fromLang != "" {
		cfg.Index.FromLang = *fromLang
	}
	if *toLang != "" {
		cfg.Index.ToLang = *toLang
	}
	if *templateDir != "" {
		cfg.Deck.TemplateDir = *templateDir
	}
	if *output != "" {
		cfg.Deck.Output = *output
	}

	level, err := cfg.Log.SlogLevel()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	opts := buildOptions{
		input:       *input,
		bookID:      *bookID,
		name:        *name,
		clearIndex:  *clearIndex,
		indexOnly:   *indexOnly,
		forceUpdate: *forceUpdate,
	}
	if err := run(ctx, log, cfg, opts); err != nil {
		log.Error("aborted", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, log *slog.Logger, cfg *config.Config, opts buildOptions) error {
	if isKindleInput(opts.input) && opts.bookID == "" {
		return listBooks(opts.input)
	}

	vocab, title, err := loadVocabulary(ctx, log, cfg, opts)
	if err != nil {
		return err
	}
	name := opts.name
	if name == "" {
		name = title
	}
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(opts.input), filepath.Ext(opts.input))
	}

	if opts.clearIndex {
		if err := os.Remove(cfg.Index.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("clear index %s: %w", cfg.Index.Path, err)
		}
	}

	store, err := buildIndex(log, cfg, opts, vocab)
	if err != nil {
		return err
	}
	defer store.Close()

	if opts.indexOnly {
		log.Info("index ready", slog.String("path", cfg.Index.Path))
		return nil
	}
	return writeDeck(log, cfg, name, store)
}

// isKindleInput reports whether input names a Kindle vocabulary database
// rather than one of the other source kinds.
func isKindleInput(input string) bool {
	switch {
	case strings.HasSuffix(input, ".csv"),
		strings.HasSuffix(input, ".html"),
		strings.HasSuffix(input, ".htm"),
		strings.HasPrefix(input, "http://"),
		strings.HasPrefix(input, "https://"):
		return false
	}
	return true
}

// listBooks prints every book in the Kindle database, one per line, with
// the encoded id to pass back via -book-id.
func listBooks(path string) error {
	db := vocabdb.New(path)
	return db.With(func() error {
		books, err := db.Books()
		if err != nil {
			return err
		}
		sorted := make([]vocabdb.Book, 0, len(books))
		for _, book := range books {
			sorted = append(sorted, book)
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].Title < sorted[j].Title })
		for _, book := range sorted {
			fmt.Printf("%s\t%s\n", encodeBookID(book.ID), book.Title)
		}
		return nil
	})
}

func loadVocabulary(ctx context.Context, log *slog.Logger, cfg *config.Config, opts buildOptions) (*vindex.Vocabulary, string, error) {
	input := opts.input
	switch {
	case strings.HasSuffix(input, ".csv"):
		vocab, err := vindex.VocabularyFromCSV(input)
		return vocab, "", err

	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		page, err := article.Fetch(ctx, nil, input)
		if err != nil {
			return nil, "", err
		}
		return articleVocabulary(log, cfg, page, input)

	case strings.HasSuffix(input, ".html"), strings.HasSuffix(input, ".htm"):
		page, err := os.ReadFile(input)
		if err != nil {
			return nil, "", fmt.Errorf("read %s: %w", input, err)
		}
		return articleVocabulary(log, cfg, page, "")

	default:
		return kindleVocabulary(cfg, opts)
	}
}

func articleVocabulary(log *slog.Logger, cfg *config.Config, page []byte, pageURL string) (*vindex.Vocabulary, string, error) {
	art, err := article.Extract(page, pageURL)
	if err != nil {
		return nil, "", err
	}
	log.Info("extracted article",
		slog.String("title", art.Title),
		slog.Int("chars", len(art.Text)))

	analyzer, err := article.NewAnalyzer(cfg.Index.FromLang)
	if err != nil {
		return nil, "", err
	}
	vocab, err := article.Vocabulary(analyzer, art.Text)
	if err != nil {
		return nil, "", err
	}
	return vocab, art.Title, nil
}

func kindleVocabulary(cfg *config.Config, opts buildOptions) (*vindex.Vocabulary, string, error) {
	rawID, err := decodeBookID(opts.bookID)
	if err != nil {
		return nil, "", err
	}

	db := vocabdb.New(opts.input)
	var vocab *vindex.Vocabulary
	var title string
	err = db.With(func() error {
		books, err := db.Books()
		if err != nil {
			return err
		}
		book, ok := books[rawID]
		if !ok {
			return fmt.Errorf("book %q is not in %s", opts.bookID, opts.input)
		}
		title = book.Title

		vocab, err = vindex.VocabularyFromKindle(db, rawID, cfg.Index.FromLang)
		return err
	})
	if err != nil {
		return nil, "", err
	}
	return vocab, title, nil
}

func buildIndex(log *slog.Logger, cfg *config.Config, opts buildOptions, vocab *vindex.Vocabulary) (*vindex.Store, error) {
	var transforms []vindex.EntryTransform
	if cfg.Index.FromLang == "en" {
		transform, err := phrasal.New(log)
		if err != nil {
			return nil, err
		}
		transforms = append(transforms, transform)
	}

	clientOpts := []wordref.ClientOption{wordref.WithLogger(log)}
	if cfg.Translator.UserAgent != "" {
		clientOpts = append(clientOpts, wordref.WithUserAgent(cfg.Translator.UserAgent))
	}
	if cfg.Translator.BaseURL != "" {
		clientOpts = append(clientOpts, wordref.WithBaseURL(cfg.Translator.BaseURL))
	}
	if cfg.Translator.RequestInterval > 0 {
		clientOpts = append(clientOpts, wordref.WithRequestInterval(cfg.Translator.RequestInterval))
	}
	client := wordref.NewClient(clientOpts...)

	translatorOpts := []wordref.TranslatorOption{wordref.WithTranslatorLogger(log)}
	if opts.forceUpdate {
		translatorOpts = append(translatorOpts, wordref.WithForceUpdate())
	}
	translator := wordref.NewTranslator(client, cfg.Index.ToLang, translatorOpts...)

	log.Info("building index",
		slog.String("path", cfg.Index.Path),
		slog.String("langs", cfg.Index.FromLang+" -> "+cfg.Index.ToLang),
		slog.Int("words", vocab.Len()))

	return vindex.Build(vindex.Config{
		FromLang:    cfg.Index.FromLang,
		ToLang:      cfg.Index.ToLang,
		IndexPath:   cfg.Index.Path,
		BatchWrites: cfg.Index.BatchWrites,
		Transforms:  transforms,
		Translator:  translator,
		Logger:      log,
	}, vocab)
}

func writeDeck(log *slog.Logger, cfg *config.Config, name string, store *vindex.Store) error {
	template, err := anki.LoadTemplateDir(cfg.Deck.TemplateDir)
	if err != nil {
		return err
	}
	model := template.Model(modelName)

	deck := anki.NewDeck(deckNamePrefix+name, model)
	entries, err := store.ReadEntries()
	if err != nil {
		return err
	}
	for _, entry := range entries {
		note, err := anki.KindleNote(model, entry)
		if err != nil {
			return err
		}
		if err := deck.AddNote(note); err != nil {
			return err
		}
	}

	if err := deck.WriteFile(cfg.Deck.Output); err != nil {
		return err
	}
	log.Info("deck written",
		slog.String("deck", deck.Name()),
		slog.Int("notes", deck.Len()),
		slog.String("path", cfg.Deck.Output))
	return nil
}

func encodeBookID(id string) string {
	return base64.URLEncoding.EncodeToString([]byte(id))
}

func decodeBookID(encoded string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("book id %q is not base64url: %w", encoded, err)
	}
	return string(raw), nil
}
