// Package anki assembles flashcard decks and writes them as .apkg packages
// that Anki imports directly. Models, decks and notes derive their ids from
// their names, so rebuilding a deck yields the same identities and Anki
// treats the import as an update instead of a duplicate.
package anki

import (
	"fmt"
	"slices"

	"golang.org/x/crypto/sha3"
)

// textID derives a stable 56 bit id from a name. Anki identifies models,
// decks and notes by integers; hashing the name keeps ids reproducible
// across runs and machines.
func textID(name string) int64 {
	var digest [7]byte
	sha3.ShakeSum256(digest[:], []byte(name))
	var id int64
	for _, b := range digest {
		id = id<<8 | int64(b)
	}
	return id
}

// CardTemplate is one card layout of a model. Front and Back hold Anki
// template HTML, with {{field}} references.
type CardTemplate struct {
	Name  string
	Front string
	Back  string
}

// Model is a note type: the ordered fields a note carries and the card
// templates rendered from them.
type Model struct {
	id        int64
	name      string
	fields    []string
	templates []CardTemplate
	css       string
}

// NewModel returns a model whose id derives from its name.
func NewModel(name string, fields []string, templates []CardTemplate, css string) *Model {
	return &Model{
		id:        textID(name),
		name:      name,
		fields:    fields,
		templates: templates,
		css:       css,
	}
}

// ID returns the model id.
func (m *Model) ID() int64 { return m.id }

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// Fields returns the model's field names in field order.
func (m *Model) Fields() []string {
	fields := make([]string, len(m.fields))
	copy(fields, m.fields)
	return fields
}

// Note is one flashcard note: field values in the order its model defines.
type Note struct {
	id     int64
	model  *Model
	fields []string
}

// NewNote builds a note for the model. The note id derives from name, and
// values must provide exactly the model's fields.
func NewNote(model *Model, name string, values map[string]string) (Note, error) {
	for field := range values {
		if !slices.Contains(model.fields, field) {
			return Note{}, fmt.Errorf("anki: model %q has no field %q", model.name, field)
		}
	}
	fields := make([]string, len(model.fields))
	var missing []string
	for i, field := range model.fields {
		value, ok := values[field]
		if !ok {
			missing = append(missing, field)
			continue
		}
		fields[i] = value
	}
	if len(missing) > 0 {
		return Note{}, fmt.Errorf("anki: note %q is missing fields %v", name, missing)
	}
	return Note{id: textID(name), model: model, fields: fields}, nil
}

// ID returns the note id.
func (n Note) ID() int64 { return n.id }

// Fields returns the note's field values in model field order.
func (n Note) Fields() []string {
	fields := make([]string, len(n.fields))
	copy(fields, n.fields)
	return fields
}
