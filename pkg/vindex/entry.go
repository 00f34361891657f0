// Package vindex builds and stores vocabulary indexes: per language pair
// collections of words, the sentence each word was seen in, and an optional
// translation payload fetched by a pluggable translator.
package vindex

// Entry is the indexing record for a single vocabulary word. Entries are
// plain values; UsageWordIndex is a pointer only because a zero offset is
// meaningful, use Clone before mutating a shared entry.
type Entry struct {
	// Lang is the language the word was read in.
	Lang string
	// Word is the indexed word or phrase.
	Word string
	// Usage is the sentence the word was seen in. Empty means unknown.
	Usage string
	// UsageWordIndex is the byte offset of the word inside Usage, or nil
	// when no usage is recorded.
	UsageWordIndex *int
	// Translator identifies which translator produced Translation.
	Translator string
	// Translation is the translator payload, normally a JSON document.
	Translation string
}

// Clone returns a copy of the entry that shares no state with the original.
func (e Entry) Clone() Entry {
	if e.UsageWordIndex != nil {
		idx := *e.UsageWordIndex
		e.UsageWordIndex = &idx
	}
	return e
}

// SetUsageWordIndex records the byte offset of the word inside its usage.
func (e *Entry) SetUsageWordIndex(idx int) {
	e.UsageWordIndex = &idx
}

// EntryTransform expands a single entry into zero or more entries before
// indexing. Transforms run on a copy of the base entry, so they may rewrite
// Word and UsageWordIndex freely. Returning an error aborts the whole build.
type EntryTransform interface {
	Transform(entry Entry) ([]Entry, error)
}

// EntryTranslator attaches translation payloads to entries as they are
// indexed.
type EntryTranslator interface {
	// Key identifies the translator. It is stamped on every entry the
	// translator handles so a later run can tell stale entries apart.
	Key() string

	// Translate returns the payload for the entry's word. ok reports
	// whether a payload could be produced; a lookup miss is not an error,
	// the entry is indexed without a translation and retried next run.
	Translate(entry Entry) (payload string, ok bool)

	// ShouldUpdate reports whether the stored entry is stale and must be
	// translated and written again.
	ShouldUpdate(fresh, stored Entry) bool
}
