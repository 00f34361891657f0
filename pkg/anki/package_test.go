package anki

import (
	"archive/zip"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// extractCollection pulls collection.anki2 out of a package so its tables
// can be inspected.
func extractCollection(t *testing.T, packagePath string) *sql.DB {
	t.Helper()

	archive, err := zip.OpenReader(packagePath)
	require.NoError(t, err)
	defer archive.Close()

	names := make([]string, 0, len(archive.File))
	for _, file := range archive.File {
		names = append(names, file.Name)
	}
	require.ElementsMatch(t, []string{"collection.anki2", "media"}, names)

	dbPath := filepath.Join(t.TempDir(), "collection.anki2")
	for _, file := range archive.File {
		if file.Name != "collection.anki2" {
			continue
		}
		src, err := file.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(src)
		require.NoError(t, err)
		require.NoError(t, src.Close())
		require.NoError(t, os.WriteFile(dbPath, data, 0o644))
	}

	db, err := sql.Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDeckWriteFile(t *testing.T) {
	model := testModel()
	deck := NewDeck("Test Deck", model)
	for _, word := range []string{"skiff", "scythe"} {
		note, err := NewNote(model, word, map[string]string{"word": word, "meaning": "x " + word})
		require.NoError(t, err)
		require.NoError(t, deck.AddNote(note))
	}

	packagePath := filepath.Join(t.TempDir(), "deck.apkg")
	require.NoError(t, deck.WriteFile(packagePath))

	db := extractCollection(t, packagePath)

	var ver int
	var models, decks string
	require.NoError(t, db.QueryRow("SELECT ver, models, decks FROM col").Scan(&ver, &models, &decks))
	assert.Equal(t, 11, ver)
	assert.Contains(t, models, `"Test Note Type"`)
	assert.Contains(t, models, `"word"`)
	assert.Contains(t, decks, `"Test Deck"`)
	assert.Contains(t, decks, `"Default"`)

	var noteCount int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM notes").Scan(&noteCount))
	assert.Equal(t, 2, noteCount)

	var guid, flds, sfld string
	var nid, csum int64
	require.NoError(t, db.QueryRow("SELECT id, guid, flds, sfld, csum FROM notes WHERE sfld = 'skiff'").
		Scan(&nid, &guid, &flds, &sfld, &csum))
	assert.Equal(t, textID("skiff"), nid)
	assert.Equal(t, "skiff\x1fx skiff", flds)
	assert.Equal(t, fieldChecksum("skiff"), csum)
	assert.Equal(t, "skiff", sfld)
	assert.NotEmpty(t, guid)

	var cardCount int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM cards WHERE nid = ?", nid).Scan(&cardCount))
	assert.Equal(t, 1, cardCount, "one card per model template")

	var did int64
	require.NoError(t, db.QueryRow("SELECT did FROM cards WHERE nid = ?", nid).Scan(&did))
	assert.Equal(t, deck.ID(), did)
}

func TestDeckWriteFileEmptyDeck(t *testing.T) {
	deck := NewDeck("Empty Deck", testModel())
	packagePath := filepath.Join(t.TempDir(), "empty.apkg")
	require.NoError(t, deck.WriteFile(packagePath))

	db := extractCollection(t, packagePath)
	var noteCount int
	require.NoError(t, db.QueryRow("SELECT count(*) FROM notes").Scan(&noteCount))
	assert.Zero(t, noteCount)
}

func TestDeckWriteFileIsReproducibleIdentity(t *testing.T) {
	model := testModel()

	build := func(path string) {
		deck := NewDeck("Stable Deck", model)
		note, err := NewNote(model, "skiff", map[string]string{"word": "skiff", "meaning": "esquife"})
		require.NoError(t, err)
		require.NoError(t, deck.AddNote(note))
		require.NoError(t, deck.WriteFile(path))
	}

	firstPath := filepath.Join(t.TempDir(), "first.apkg")
	secondPath := filepath.Join(t.TempDir(), "second.apkg")
	build(firstPath)
	build(secondPath)

	readIDs := func(path string) (noteID, deckID int64) {
		db := extractCollection(t, path)
		require.NoError(t, db.QueryRow("SELECT id FROM notes").Scan(&noteID))
		require.NoError(t, db.QueryRow("SELECT did FROM cards").Scan(&deckID))
		return noteID, deckID
	}
	firstNote, firstDeck := readIDs(firstPath)
	secondNote, secondDeck := readIDs(secondPath)
	assert.Equal(t, firstNote, secondNote, "note ids survive rebuilds")
	assert.Equal(t, firstDeck, secondDeck, "deck ids survive rebuilds")
}

func TestFieldChecksum(t *testing.T) {
	assert.Equal(t, fieldChecksum("skiff"), fieldChecksum("skiff"))
	assert.NotEqual(t, fieldChecksum("skiff"), fieldChecksum("scythe"))
	assert.GreaterOrEqual(t, fieldChecksum("skiff"), int64(0))
	assert.LessOrEqual(t, fieldChecksum("skiff"), int64(1)<<32-1)
}
