package anki

import (
	"archive/zip"
	"crypto/sha1"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/flate"
	_ "github.com/mattn/go-sqlite3"
)

// fieldSeparator joins a note's field values inside the notes table.
const fieldSeparator = "\x1f"

// collectionSchema is the Anki 2 collection layout (schema version 11).
const collectionSchema = `
CREATE TABLE col (
	id integer PRIMARY KEY,
	crt integer NOT NULL,
	mod integer NOT NULL,
	scm integer NOT NULL,
	ver integer NOT NULL,
	dty integer NOT NULL,
	usn integer NOT NULL,
	ls integer NOT NULL,
	conf text NOT NULL,
	models text NOT NULL,
	decks text NOT NULL,
	dconf text NOT NULL,
	tags text NOT NULL
);
CREATE TABLE notes (
	id integer PRIMARY KEY,
	guid text NOT NULL,
	mid integer NOT NULL,
	mod integer NOT NULL,
	usn integer NOT NULL,
	tags text NOT NULL,
	flds text NOT NULL,
	sfld integer NOT NULL,
	csum integer NOT NULL,
	flags integer NOT NULL,
	data text NOT NULL
);
CREATE TABLE cards (
	id integer PRIMARY KEY,
	nid integer NOT NULL,
	did integer NOT NULL,
	ord integer NOT NULL,
	mod integer NOT NULL,
	usn integer NOT NULL,
	type integer NOT NULL,
	queue integer NOT NULL,
	due integer NOT NULL,
	ivl integer NOT NULL,
	factor integer NOT NULL,
	reps integer NOT NULL,
	lapses integer NOT NULL,
	left integer NOT NULL,
	odue integer NOT NULL,
	odid integer NOT NULL,
	flags integer NOT NULL,
	data text NOT NULL
);
CREATE TABLE revlog (
	id integer PRIMARY KEY,
	cid integer NOT NULL,
	usn integer NOT NULL,
	ease integer NOT NULL,
	ivl integer NOT NULL,
	lastIvl integer NOT NULL,
	factor integer NOT NULL,
	time integer NOT NULL,
	type integer NOT NULL
);
CREATE TABLE graves (
	usn integer NOT NULL,
	oid integer NOT NULL,
	type integer NOT NULL
);
CREATE INDEX ix_notes_usn ON notes (usn);
CREATE INDEX ix_cards_usn ON cards (usn);
CREATE INDEX ix_revlog_usn ON revlog (usn);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_cid ON revlog (cid);
CREATE INDEX ix_notes_csum ON notes (csum);
`

const latexPre = "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n" +
	"\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n" +
	"\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n"

const latexPost = "\\end{document}"

// WriteFile writes the deck as an .apkg package at path. The package is a
// zip archive holding the collection database and an empty media map.
func (d *Deck) WriteFile(path string) error {
	dir, err := os.MkdirTemp("", "ankipkg-*")
	if err != nil {
		return fmt.Errorf("anki: create staging directory: %w", err)
	}
	defer os.RemoveAll(dir)

	collectionPath := filepath.Join(dir, "collection.anki2")
	if err := d.writeCollection(collectionPath, time.Now()); err != nil {
		return err
	}
	return writeArchive(path, collectionPath)
}

// writeCollection builds the collection.anki2 database for the deck.
func (d *Deck) writeCollection(path string, now time.Time) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("anki: create collection database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(collectionSchema); err != nil {
		return fmt.Errorf("anki: create collection schema: %w", err)
	}

	conf, err := json.Marshal(collectionConf(d.model.id))
	if err != nil {
		return fmt.Errorf("anki: encode collection conf: %w", err)
	}
	models, err := json.Marshal(map[string]any{
		strconv.FormatInt(d.model.id, 10): modelJSON(d.model, d.id, now),
	})
	if err != nil {
		return fmt.Errorf("anki: encode models: %w", err)
	}
	decks, err := json.Marshal(map[string]any{
		"1": deckJSON(1, "Default", now),
		strconv.FormatInt(d.id, 10): deckJSON(d.id, d.name, now),
	})
	if err != nil {
		return fmt.Errorf("anki: encode decks: %w", err)
	}
	dconf, err := json.Marshal(map[string]any{"1": defaultDeckConf()})
	if err != nil {
		return fmt.Errorf("anki: encode deck conf: %w", err)
	}

	_, err = db.Exec(`INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (1, ?, ?, ?, 11, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		now.Unix(), now.UnixMilli(), now.UnixMilli(),
		string(conf), string(models), string(decks), string(dconf))
	if err != nil {
		return fmt.Errorf("anki: write collection row: %w", err)
	}

	for i, note := range d.notes {
		flds := strings.Join(note.fields, fieldSeparator)
		sortField := note.fields[0]
		_, err = db.Exec(`INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
			VALUES (?, ?, ?, ?, -1, '', ?, ?, ?, 0, '')`,
			note.id, strconv.FormatInt(note.id, 10), d.model.id, now.Unix(),
			flds, sortField, fieldChecksum(sortField))
		if err != nil {
			return fmt.Errorf("anki: write note %d: %w", note.id, err)
		}
		for ord := range d.model.templates {
			_, err = db.Exec(`INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due,
				ivl, factor, reps, lapses, left, odue, odid, flags, data)
				VALUES (?, ?, ?, ?, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
				note.id*10+int64(ord), note.id, d.id, ord, now.Unix(), i+1)
			if err != nil {
				return fmt.Errorf("anki: write card for note %d: %w", note.id, err)
			}
		}
	}
	return nil
}

// writeArchive zips the collection database and the media map into the
// final package.
func writeArchive(path, collectionPath string) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("anki: create package file: %w", err)
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(w, flate.BestCompression)
	})

	collection, err := os.Open(collectionPath)
	if err != nil {
		return fmt.Errorf("anki: open staged collection: %w", err)
	}
	defer collection.Close()

	entry, err := zw.Create("collection.anki2")
	if err != nil {
		return fmt.Errorf("anki: add collection to package: %w", err)
	}
	if _, err := io.Copy(entry, collection); err != nil {
		return fmt.Errorf("anki: add collection to package: %w", err)
	}

	media, err := zw.Create("media")
	if err != nil {
		return fmt.Errorf("anki: add media map to package: %w", err)
	}
	if _, err := media.Write([]byte("{}")); err != nil {
		return fmt.Errorf("anki: add media map to package: %w", err)
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("anki: finish package: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("anki: finish package: %w", err)
	}
	return nil
}

// fieldChecksum is the integer value of the first 8 hex digits of the
// SHA-1 of the sort field, the checksum Anki uses to spot duplicates.
func fieldChecksum(field string) int64 {
	sum := sha1.Sum([]byte(field))
	return int64(binary.BigEndian.Uint32(sum[:4]))
}

func collectionConf(modelID int64) map[string]any {
	return map[string]any{
		"activeDecks":   []int64{1},
		"curDeck":       1,
		"curModel":      strconv.FormatInt(modelID, 10),
		"newSpread":     0,
		"collapseTime":  1200,
		"timeLim":       0,
		"estTimes":      true,
		"dueCounts":     true,
		"nextPos":       1,
		"sortType":      "noteFld",
		"sortBackwards": false,
		"addToCur":      true,
		"dayLearnFirst": false,
	}
}

func modelJSON(m *Model, deckID int64, now time.Time) map[string]any {
	flds := make([]map[string]any, len(m.fields))
	for i, name := range m.fields {
		flds[i] = map[string]any{
			"name":   name,
			"ord":    i,
			"sticky": false,
			"rtl":    false,
			"font":   "Liberation Sans",
			"size":   20,
			"media":  []any{},
		}
	}
	tmpls := make([]map[string]any, len(m.templates))
	for i, tmpl := range m.templates {
		tmpls[i] = map[string]any{
			"name":  tmpl.Name,
			"ord":   i,
			"qfmt":  tmpl.Front,
			"afmt":  tmpl.Back,
			"bqfmt": "",
			"bafmt": "",
			"did":   nil,
		}
	}
	return map[string]any{
		"id":        m.id,
		"name":      m.name,
		"type":      0,
		"mod":       now.Unix(),
		"usn":       -1,
		"sortf":     0,
		"did":       deckID,
		"tmpls":     tmpls,
		"flds":      flds,
		"css":       m.css,
		"latexPre":  latexPre,
		"latexPost": latexPost,
		"latexsvg":  false,
		"req":       []any{[]any{0, "all", []int{0}}},
		"tags":      []any{},
		"vers":      []any{},
	}
}

func deckJSON(id int64, name string, now time.Time) map[string]any {
	return map[string]any{
		"id":               id,
		"name":             name,
		"desc":             "",
		"mod":              now.Unix(),
		"usn":              -1,
		"collapsed":        false,
		"browserCollapsed": false,
		"dyn":              0,
		"conf":             1,
		"extendNew":        0,
		"extendRev":        0,
		"newToday":         []int{0, 0},
		"revToday":         []int{0, 0},
		"lrnToday":         []int{0, 0},
		"timeToday":        []int{0, 0},
	}
}

func defaultDeckConf() map[string]any {
	return map[string]any{
		"id":       1,
		"name":     "Default",
		"replayq":  true,
		"timer":    0,
		"maxTaken": 60,
		"autoplay": true,
		"mod":      0,
		"usn":      0,
		"dyn":      false,
		"new": map[string]any{
			"bury":          true,
			"delays":        []int{1, 10},
			"initialFactor": 2500,
			"ints":          []int{1, 4, 7},
			"order":         1,
			"perDay":        20,
			"separate":      true,
		},
		"rev": map[string]any{
			"bury":     true,
			"ease4":    1.3,
			"fuzz":     0.05,
			"ivlFct":   1,
			"maxIvl":   36500,
			"minSpace": 1,
			"perDay":   100,
		},
		"lapse": map[string]any{
			"delays":      []int{10},
			"leechAction": 0,
			"leechFails":  8,
			"minInt":      1,
			"mult":        0,
		},
	}
}
