package anki

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/vindex"
	"github.com/k1r0d3v/kindle-vocabulary/pkg/wordref"
)

// KindleNote renders a translated vocabulary entry into a note for the
// Kindle vocabulary model. The note id derives from the entry's word, so
// the same word always maps to the same note.
func KindleNote(model *Model, entry vindex.Entry) (Note, error) {
	if entry.Word == "" {
		return Note{}, fmt.Errorf("anki: entry without a word")
	}
	if entry.Translator == "" {
		return Note{}, fmt.Errorf("anki: entry %q has no translator", entry.Word)
	}
	if entry.Translator != wordref.Key {
		return Note{}, fmt.Errorf("anki: entry %q: translator %q is not supported",
			entry.Word, entry.Translator)
	}

	translation := entry.Translation
	if translation == "" {
		translation = "{}"
	}
	var payload wordref.Payload
	if err := json.Unmarshal([]byte(translation), &payload); err != nil {
		return Note{}, fmt.Errorf("anki: decode translation of %q: %w", entry.Word, err)
	}

	return NewNote(model, entry.Word, map[string]string{
		"word":          entry.Word,
		"pronunciation": renderPronunciation(payload),
		"meanings":      renderMeanings(payload),
		"usage":         entry.Usage,
		"notes":         "",
		"url":           payload.URL,
	})
}

func renderPronunciation(payload wordref.Payload) string {
	var b strings.Builder
	for _, pron := range payload.Pronunciations {
		fmt.Fprintf(&b, `<span class="pronunciation">%s</span> <span class="ipa">%s</span></br>`,
			pron.Label, strings.Join(pron.Variants, ", "))
	}
	return b.String()
}

func renderMeanings(payload wordref.Payload) string {
	var b strings.Builder
	for _, group := range payload.Translations {
		for _, entry := range group.Entries {
			fmt.Fprintf(&b, `<span class="en gray01">%s => (%s)</span></br>`,
				entry.FromWord.Source, entry.Context)
			for _, word := range entry.ToWords {
				fmt.Fprintf(&b, `<span class="es cyan meaning">%s</span></br>`, word.Meaning)
			}
			b.WriteString("</br>")
			if entry.FromExample != "" {
				fmt.Fprintf(&b, `<span class="en ensentence gray02">%s</span></br>`, entry.FromExample)
			}
			if len(entry.ToExamples) > 0 {
				fmt.Fprintf(&b, `<span class="es essentence gray00">%s</span></br>`, entry.ToExamples[0])
			}
			b.WriteString("</br>")
		}
	}
	return b.String()
}
