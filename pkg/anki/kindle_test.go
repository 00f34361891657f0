package anki

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/vindex"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/wordref"
)

func kindleModel() *Model {
	return NewModel("Kindle Vocabulary Note Type",
		[]string{"word", "pronunciation", "meanings", "usage", "notes", "url"},
		[]CardTemplate{{Name: "card", Front: "{{word}}", Back: "{{meanings}}"}},
		"")
}

func translatedEntry() vindex.Entry {
	entry := vindex.Entry{
		Lang:       "en",
		Word:       "give up",
		Usage:      "I gave up.",
		Translator: wordref.Key,
		Translation: `{
			"word": "give up",
			"url": "https://www.wordreference.com/enes/give%20up",
			"pronunciations": [["UK", ["/ɡɪv/"]]],
			"translations": [{
				"title": "Principal Translations",
				"entries": [{
					"from_word": {"source": "give up", "grammar": "vtr"},
					"context": "cease an attempt",
					"to_word": [{"meaning": "rendirse"}, {"meaning": "abandonar"}],
					"from_example": "I gave up smoking.",
					"to_example": ["Dejé de fumar.", "Me rendí."]
				}]
			}]
		}`,
	}
	entry.SetUsageWordIndex(2)
	return entry
}

func TestKindleNote(t *testing.T) {
	note, err := KindleNote(kindleModel(), translatedEntry())
	require.NoError(t, err)

	fields := note.Fields()
	require.Len(t, fields, 6)
	assert.Equal(t, "give up", fields[0])
	assert.Equal(t, `<span class="pronunciation">UK</span> <span class="ipa">/ɡɪv/</span></br>`, fields[1])
	assert.Contains(t, fields[2], `<span class="en gray01">give up => (cease an attempt)</span></br>`)
	assert.Contains(t, fields[2], `<span class="es cyan meaning">rendirse</span></br>`)
	assert.Contains(t, fields[2], `<span class="es cyan meaning">abandonar</span></br>`)
	assert.Contains(t, fields[2], `<span class="en ensentence gray02">I gave up smoking.</span></br>`)
	assert.Contains(t, fields[2], `<span class="es essentence gray00">Dejé de fumar.</span></br>`)
	assert.NotContains(t, fields[2], "Me rendí", "only the first target example is rendered")
	assert.Equal(t, "I gave up.", fields[3])
	assert.Empty(t, fields[4])
	assert.Equal(t, "https://www.wordreference.com/enes/give%20up", fields[5])

	assert.Equal(t, textID("give up"), note.ID())
}

func TestKindleNoteWithoutTranslation(t *testing.T) {
	entry := vindex.Entry{Lang: "en", Word: "skiff", Usage: "The skiff.", Translator: wordref.Key}

	note, err := KindleNote(kindleModel(), entry)
	require.NoError(t, err)

	fields := note.Fields()
	assert.Equal(t, "skiff", fields[0])
	assert.Empty(t, fields[1], "no payload renders empty pronunciation")
	assert.Empty(t, fields[2], "no payload renders empty meanings")
	assert.Empty(t, fields[5])
}

func TestKindleNoteValidation(t *testing.T) {
	model := kindleModel()

	_, err := KindleNote(model, vindex.Entry{Translator: wordref.Key})
	assert.Error(t, err, "word is required")

	_, err = KindleNote(model, vindex.Entry{Word: "skiff"})
	assert.Error(t, err, "untranslated entries cannot become notes")

	_, err = KindleNote(model, vindex.Entry{Word: "skiff", Translator: "other"})
	assert.Error(t, err, "foreign translator payloads are not understood")

	_, err = KindleNote(model, vindex.Entry{Word: "skiff", Translator: wordref.Key, Translation: "not json"})
	assert.Error(t, err)
}
