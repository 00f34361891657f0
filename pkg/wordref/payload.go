// Package wordref looks up words on wordreference.com and exposes the
// scraped dictionary entries as a stable JSON payload, plus a translator
// that plugs the lookup into a vocabulary index build.
package wordref

import (
	"encoding/json"
	"fmt"
)

// Payload is the JSON document stored as an entry's translation.
type Payload struct {
	Word           string             `json:"word"`
	URL            string             `json:"url"`
	Pronunciations []Pronunciation    `json:"pronunciations"`
	Translations   []TranslationGroup `json:"translations"`
}

// Pronunciation is one accent's IPA readings. It is encoded as a
// [label, variants] pair.
type Pronunciation struct {
	Label    string
	Variants []string
}

// MarshalJSON encodes the pronunciation as a two element array.
func (p Pronunciation) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.Label, p.Variants})
}

// UnmarshalJSON decodes the [label, variants] pair form.
func (p *Pronunciation) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("wordref: pronunciation must be a [label, variants] pair")
	}
	if err := json.Unmarshal(raw[0], &p.Label); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Variants)
}

// TranslationGroup is one titled section of a dictionary page, for example
// "Principal Translations".
type TranslationGroup struct {
	Title   string        `json:"title"`
	Entries []Translation `json:"entries"`
}

// Translation is one sense of the looked up word: the source term, the
// sense context, its translations and example sentences.
type Translation struct {
	FromWord    SourceTerm   `json:"from_word"`
	Context     string       `json:"context"`
	ToWords     []TargetTerm `json:"to_word"`
	FromExample string       `json:"from_example"`
	ToExamples  []string     `json:"to_example"`
}

// SourceTerm is the looked up side of a translation.
type SourceTerm struct {
	Source  string `json:"source"`
	Grammar string `json:"grammar,omitempty"`
}

// TargetTerm is one translated meaning.
type TargetTerm struct {
	Meaning string `json:"meaning"`
	Notes   string `json:"notes,omitempty"`
}
