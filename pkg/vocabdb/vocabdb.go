// Package vocabdb reads the vocabulary database a Kindle device maintains
// in system/vocabulary/vocab.db: the books words were looked up in, the
// words themselves and the individual lookups with their usage sentences.
package vocabdb

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNotOpen is returned by read operations before Open or after Close.
	ErrNotOpen = errors.New("vocabdb: database is not open")
	// ErrAlreadyOpen is returned by Open on an already open database.
	ErrAlreadyOpen = errors.New("vocabdb: database is already open")
)

// Book is a row of the BOOK_INFO table.
type Book struct {
	ID      string
	ASIN    string
	GUID    string
	Lang    string
	Title   string
	Authors string
}

// Word is a row of the WORDS table. Value is the word form that was looked
// up, Stem the dictionary form Kindle resolved it to.
type Word struct {
	ID        string
	Value     string
	Stem      string
	Lang      string
	Category  int64
	Timestamp int64
	ProfileID string
}

// Lookup is a row of the LOOKUPS table: one dictionary lookup of a word
// inside a book, with the sentence it happened in.
type Lookup struct {
	ID        string
	WordID    string
	BookID    string
	DictID    string
	Pos       string
	Usage     string
	Timestamp int64
}

// DB reads a Kindle vocabulary database.
type DB struct {
	path string
	db   *sql.DB
}

// New describes a vocabulary database without opening it.
func New(path string) *DB {
	return &DB{path: path}
}

// Open connects to the database. The file must already exist; a Kindle
// vocabulary database is never created by this package.
func (d *DB) Open() error {
	if d.db != nil {
		return ErrAlreadyOpen
	}
	if _, err := os.Stat(d.path); err != nil {
		return fmt.Errorf("vocabdb: stat %s: %w", d.path, err)
	}
	db, err := sql.Open("sqlite3", d.path)
	if err != nil {
		return fmt.Errorf("vocabdb: open %s: %w", d.path, err)
	}
	db.SetMaxOpenConns(1)
	d.db = db
	return nil
}

// Close releases the connection. Closing a database that is not open is a
// no-op.
func (d *DB) Close() error {
	if d.db == nil {
		return nil
	}
	err := d.db.Close()
	d.db = nil
	if err != nil {
		return fmt.Errorf("vocabdb: close: %w", err)
	}
	return nil
}

// With opens the database, runs fn and closes the database again regardless
// of how fn returns.
func (d *DB) With(fn func() error) (err error) {
	if err := d.Open(); err != nil {
		return err
	}
	defer func() {
		if cerr := d.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn()
}

// Books returns every book words were looked up in, keyed by book id.
func (d *DB) Books() (map[string]Book, error) {
	if d.db == nil {
		return nil, ErrNotOpen
	}
	query, args, err := sq.Select("id", "asin", "guid", "lang", "title", "authors").
		From("BOOK_INFO").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("vocabdb: build books query: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("vocabdb: read books: %w", err)
	}
	defer rows.Close()

	books := make(map[string]Book)
	for rows.Next() {
		var book Book
		var asin, guid, lang, title, authors sql.NullString
		if err := rows.Scan(&book.ID, &asin, &guid, &lang, &title, &authors); err != nil {
			return nil, fmt.Errorf("vocabdb: scan book: %w", err)
		}
		book.ASIN = asin.String
		book.GUID = guid.String
		book.Lang = lang.String
		book.Title = title.String
		book.Authors = authors.String
		books[book.ID] = book
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vocabdb: read books: %w", err)
	}
	return books, nil
}

// Words returns looked up words keyed by word id. With a non empty bookID
// only words looked up in that book are returned.
func (d *DB) Words(bookID string) (map[string]Word, error) {
	if d.db == nil {
		return nil, ErrNotOpen
	}
	builder := sq.Select("id", "word", "stem", "lang", "category", "timestamp", "profileid").
		From("WORDS")
	if bookID != "" {
		builder = sq.Select("w.id", "w.word", "w.stem", "w.lang", "w.category", "w.timestamp", "w.profileid").
			Distinct().
			From("WORDS w").
			Join("LOOKUPS l ON l.word_key = w.id").
			Where(sq.Eq{"l.book_key": bookID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("vocabdb: build words query: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("vocabdb: read words: %w", err)
	}
	defer rows.Close()

	words := make(map[string]Word)
	for rows.Next() {
		var word Word
		var value, stem, lang, profile sql.NullString
		var category, timestamp sql.NullInt64
		if err := rows.Scan(&word.ID, &value, &stem, &lang, &category, &timestamp, &profile); err != nil {
			return nil, fmt.Errorf("vocabdb: scan word: %w", err)
		}
		word.Value = value.String
		word.Stem = stem.String
		word.Lang = lang.String
		word.Category = category.Int64
		word.Timestamp = timestamp.Int64
		word.ProfileID = profile.String
		words[word.ID] = word
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vocabdb: read words: %w", err)
	}
	return words, nil
}

// Lookups returns dictionary lookups ordered by lookup time. With a non
// empty bookID only lookups made in that book are returned.
func (d *DB) Lookups(bookID string) ([]Lookup, error) {
	if d.db == nil {
		return nil, ErrNotOpen
	}
	builder := sq.Select("id", "word_key", "book_key", "dict_key", "pos", "usage", "timestamp").
		From("LOOKUPS").
		OrderBy("timestamp", "id")
	if bookID != "" {
		builder = builder.Where(sq.Eq{"book_key": bookID})
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("vocabdb: build lookups query: %w", err)
	}

	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("vocabdb: read lookups: %w", err)
	}
	defer rows.Close()

	var lookups []Lookup
	for rows.Next() {
		var lookup Lookup
		var wordID, bookKey, dictID, pos, usage sql.NullString
		var timestamp sql.NullInt64
		if err := rows.Scan(&lookup.ID, &wordID, &bookKey, &dictID, &pos, &usage, &timestamp); err != nil {
			return nil, fmt.Errorf("vocabdb: scan lookup: %w", err)
		}
		lookup.WordID = wordID.String
		lookup.BookID = bookKey.String
		lookup.DictID = dictID.String
		lookup.Pos = pos.String
		lookup.Usage = usage.String
		lookup.Timestamp = timestamp.Int64
		lookups = append(lookups, lookup)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vocabdb: read lookups: %w", err)
	}
	return lookups, nil
}
