package anki

import "fmt"

// Deck is an ordered collection of notes sharing one model.
type Deck struct {
	id    int64
	name  string
	model *Model
	notes []Note
	byID  map[int64]Note
}

// NewDeck returns an empty deck whose id derives from its name.
func NewDeck(name string, model *Model) *Deck {
	return &Deck{
		id:    textID(name),
		name:  name,
		model: model,
		byID:  make(map[int64]Note),
	}
}

// ID returns the deck id.
func (d *Deck) ID() int64 { return d.id }

// Name returns the deck name.
func (d *Deck) Name() string { return d.name }

// Model returns the note model the deck's notes share.
func (d *Deck) Model() *Model { return d.model }

// Len returns the number of notes added so far.
func (d *Deck) Len() int { return len(d.notes) }

// AddNote appends a note to the deck. Two notes hashing to the same id
// would silently merge on import, so a collision is an error.
func (d *Deck) AddNote(note Note) error {
	if existing, ok := d.byID[note.id]; ok {
		return fmt.Errorf("anki: note id collision between %q and %q",
			note.fields, existing.fields)
	}
	d.byID[note.id] = note
	d.notes = append(d.notes, note)
	return nil
}

// Notes returns the deck's notes in insertion order.
func (d *Deck) Notes() []Note {
	notes := make([]Note, len(d.notes))
	copy(notes, d.notes)
	return notes
}
