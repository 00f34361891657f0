package vindex

import (
	"database/sql"
	"errors"
	"fmt"
	"regexp"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotOpen is returned by store operations before Open or after Close.
	ErrNotOpen = errors.New("vindex: store is not open")
	// ErrAlreadyOpen is returned by Open on a store that is already open.
	ErrAlreadyOpen = errors.New("vindex: store is already open")
)

// Language tags become part of a table name, so they are restricted to
// letters, digits and dashes.
var langTagRe = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

// dbExecutor abstracts over *sql.DB and *sql.Tx so reads and writes run
// against the pending transaction when auto commit is disabled.
type dbExecutor interface {
	Exec(query string, args ...any) (sql.Result, error)
	Query(query string, args ...any) (*sql.Rows, error)
	QueryRow(query string, args ...any) *sql.Row
}

// Store persists entries for one language pair in a SQLite database. Each
// pair owns a table named "<from>_<to>" keyed by word, so a single database
// file can hold several independent indexes.
type Store struct {
	path       string
	fromLang   string
	toLang     string
	autoCommit bool

	db *sql.DB
	tx *sql.Tx
}

// StoreOption adjusts a store at construction time.
type StoreOption func(*Store)

// WithoutAutoCommit batches writes into a single transaction that is flushed
// by Commit or Close instead of committing after every write.
func WithoutAutoCommit() StoreOption {
	return func(s *Store) { s.autoCommit = false }
}

// NewStore describes an index store without touching the database. Call Open
// before reading or writing entries.
func NewStore(path, fromLang, toLang string, opts ...StoreOption) *Store {
	s := &Store{
		path:       path,
		fromLang:   fromLang,
		toLang:     toLang,
		autoCommit: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromLang returns the source language tag of the indexed pair.
func (s *Store) FromLang() string { return s.fromLang }

// ToLang returns the target language tag of the indexed pair.
func (s *Store) ToLang() string { return s.toLang }

// IsOpen reports whether the store currently holds a database connection.
func (s *Store) IsOpen() bool { return s.db != nil }

// table returns the quoted table name for the language pair.
func (s *Store) table() string {
	return fmt.Sprintf("%q", s.fromLang+"_"+s.toLang)
}

// Open connects to the database file, creating it and the language pair
// table as needed. Opening an already open store fails with ErrAlreadyOpen.
func (s *Store) Open() error {
	if s.db != nil {
		return ErrAlreadyOpen
	}
	for _, tag := range []string{s.fromLang, s.toLang} {
		if !langTagRe.MatchString(tag) {
			return fmt.Errorf("vindex: invalid language tag %q", tag)
		}
	}

	db, err := sql.Open("sqlite3", s.path)
	if err != nil {
		return fmt.Errorf("vindex: open database %s: %w", s.path, err)
	}
	db.SetMaxOpenConns(1)

	create := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		word TEXT PRIMARY KEY,
		usage_word_index INTEGER,
		usage TEXT,
		translator TEXT,
		translation TEXT
	)`, s.table())
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return fmt.Errorf("vindex: create table %s: %w", s.table(), err)
	}

	s.db = db
	if !s.autoCommit {
		if err := s.begin(); err != nil {
			db.Close()
			s.db = nil
			return err
		}
	}
	return nil
}

// Close commits any pending writes and releases the connection. Closing a
// store that is not open is a no-op.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	var err error
	if s.tx != nil {
		err = s.tx.Commit()
		s.tx = nil
	}
	if cerr := s.db.Close(); cerr != nil && err == nil {
		err = cerr
	}
	s.db = nil
	if err != nil {
		return fmt.Errorf("vindex: close store: %w", err)
	}
	return nil
}

// Commit flushes pending writes without closing the store. With auto commit
// enabled there is never anything pending and Commit is a no-op.
func (s *Store) Commit() error {
	if s.db == nil {
		return ErrNotOpen
	}
	if s.tx == nil {
		return nil
	}
	err := s.tx.Commit()
	s.tx = nil
	if err != nil {
		return fmt.Errorf("vindex: commit: %w", err)
	}
	return s.begin()
}

// With opens the store, runs fn and closes the store again regardless of how
// fn returns.
func (s *Store) With(fn func() error) (err error) {
	if err := s.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}

func (s *Store) begin() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("vindex: begin transaction: %w", err)
	}
	s.tx = tx
	return nil
}

// executor returns the pending transaction when one is open, otherwise the
// plain connection.
func (s *Store) executor() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

var entryColumns = []string{"word", "usage_word_index", "usage", "translator", "translation"}

// ReadEntry returns the stored entry for word, or nil when the word has not
// been indexed yet.
func (s *Store) ReadEntry(word string) (*Entry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	query, args, err := sq.Select(entryColumns...).
		From(s.table()).
		Where(sq.Eq{"word": word}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("vindex: build read query: %w", err)
	}

	entry, err := s.scanEntry(s.executor().QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vindex: read entry %q: %w", word, err)
	}
	return &entry, nil
}

// ReadEntries returns every stored entry for the language pair. The order of
// the result is not specified.
func (s *Store) ReadEntries() ([]Entry, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	query, args, err := sq.Select(entryColumns...).From(s.table()).ToSql()
	if err != nil {
		return nil, fmt.Errorf("vindex: build read query: %w", err)
	}

	rows, err := s.executor().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("vindex: read entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := s.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("vindex: scan entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vindex: read entries: %w", err)
	}
	return entries, nil
}

// WriteEntry inserts the entry, replacing any previous record for the same
// word.
func (s *Store) WriteEntry(entry Entry) error {
	if s.db == nil {
		return ErrNotOpen
	}
	query, args, err := sq.Insert(s.table()).
		Columns(entryColumns...).
		Values(entry.Word, nullableInt(entry.UsageWordIndex), nullable(entry.Usage),
			nullable(entry.Translator), nullable(entry.Translation)).
		Suffix(`ON CONFLICT(word) DO UPDATE SET
			usage_word_index = excluded.usage_word_index,
			usage = excluded.usage,
			translator = excluded.translator,
			translation = excluded.translation`).
		ToSql()
	if err != nil {
		return fmt.Errorf("vindex: build write query: %w", err)
	}
	if _, err := s.executor().Exec(query, args...); err != nil {
		return fmt.Errorf("vindex: write entry %q: %w", entry.Word, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one row into an Entry, mapping SQL NULLs back to the
// zero values used by the rest of the package.
func (s *Store) scanEntry(row rowScanner) (Entry, error) {
	var (
		entry                      Entry
		idx                        sql.NullInt64
		usage, translator, payload sql.NullString
	)
	if err := row.Scan(&entry.Word, &idx, &usage, &translator, &payload); err != nil {
		return Entry{}, err
	}
	entry.Lang = s.fromLang
	if idx.Valid {
		entry.SetUsageWordIndex(int(idx.Int64))
	}
	entry.Usage = usage.String
	entry.Translator = translator.String
	entry.Translation = payload.String
	return entry, nil
}

// nullable maps the empty string to NULL so absent optional fields round
// trip as absent.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}
