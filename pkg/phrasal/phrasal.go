// Package phrasal expands English vocabulary entries into the phrasal verbs
// they were seen in: a lookup of "give" inside "I gave up." yields an entry
// for "give up" instead.
package phrasal

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/jdkato/prose/v2"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/vindex"
)

// token is one tagged token of a usage sentence. Tags follow the Penn
// Treebank tag set.
type token struct {
	text   string
	tag    string
	offset int // byte offset in the sentence, -1 when unknown
}

// tagger tokenizes and tags a sentence. It is a seam for tests; production
// code tags with a prose document pipeline.
type tagger interface {
	tag(text string) ([]token, error)
}

type proseTagger struct{}

func (proseTagger) tag(text string) ([]token, error) {
	doc, err := prose.NewDocument(text, prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("phrasal: tag usage: %w", err)
	}

	// prose reports no source positions, so offsets are recovered by
	// scanning for each token after the end of the previous one.
	docTokens := doc.Tokens()
	tokens := make([]token, 0, len(docTokens))
	pos := 0
	for _, dt := range docTokens {
		tok := token{text: dt.Text, tag: dt.Tag, offset: -1}
		if idx := strings.Index(text[pos:], dt.Text); idx >= 0 {
			tok.offset = pos + idx
			pos = tok.offset + len(dt.Text)
		}
		tokens = append(tokens, tok)
	}
	return tokens, nil
}

// Transform derives phrasal verb entries from English usage sentences. It
// implements vindex.EntryTransform.
type Transform struct {
	lemmatizer *golem.Lemmatizer
	tagger     tagger
	log        *slog.Logger
}

// New returns a transform backed by the English lemma dictionary.
func New(logger *slog.Logger) (*Transform, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("phrasal: load english lemma dictionary: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Transform{lemmatizer: lemmatizer, tagger: proseTagger{}, log: logger}, nil
}

// Transform returns entries for the phrasal verbs the entry's word is part
// of, with the word rewritten to the full phrasal form in dictionary form.
// When no phrasal verb is found the entry comes back alone, its word
// lemmatized. Entries without a usage sentence pass through untouched.
func (t *Transform) Transform(entry vindex.Entry) ([]vindex.Entry, error) {
	if entry.Lang != "en" {
		return nil, fmt.Errorf("phrasal: unsupported language %q", entry.Lang)
	}
	if entry.Usage == "" {
		t.log.Warn("word has no usage, skipping phrasal verb detection",
			slog.String("word", entry.Word))
		return []vindex.Entry{entry}, nil
	}
	if entry.UsageWordIndex == nil {
		return nil, fmt.Errorf("phrasal: word %q has a usage but no word offset", entry.Word)
	}

	tokens, err := t.tagger.tag(entry.Usage)
	if err != nil {
		return nil, err
	}
	wordToken, ok := tokenAt(tokens, *entry.UsageWordIndex)
	if !ok {
		return nil, fmt.Errorf("phrasal: word %q not found at offset %d of usage %q",
			entry.Word, *entry.UsageWordIndex, entry.Usage)
	}
	lemma := t.lemma(wordToken.text)
	entry.Word = lemma

	candidates := t.particleForms(tokens)
	for _, s := range matchPatterns(tokens) {
		parts := make([]string, 0, s.end-s.start)
		for i := s.start; i < s.end; i++ {
			parts = append(parts, t.lemma(tokens[i].text))
		}
		candidates = append(candidates, candidate{
			form:   strings.Join(parts, " "),
			offset: tokens[s.start].offset,
		})
	}

	var entries []vindex.Entry
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c.form == lemma || !strings.Contains(c.form, lemma) || seen[c.form] {
			continue
		}
		seen[c.form] = true
		derived := entry.Clone()
		derived.Word = c.form
		if c.offset >= 0 {
			derived.SetUsageWordIndex(c.offset)
		}
		t.log.Info("found phrasal verb",
			slog.String("word", lemma),
			slog.String("phrasal", c.form))
		entries = append(entries, derived)
	}
	if len(entries) == 0 {
		return []vindex.Entry{entry}, nil
	}
	return entries, nil
}

func (t *Transform) lemma(word string) string {
	return t.lemmatizer.LemmaLower(word)
}

// candidate is a possible phrasal form and the offset of its first token.
type candidate struct {
	form   string
	offset int
}

// particleForms pairs each verb with the particles that follow it before
// the next verb or clause break, catching split forms like "gave it up".
func (t *Transform) particleForms(tokens []token) []candidate {
	var out []candidate
	for i, tok := range tokens {
		if !isVerb(tok.tag) {
			continue
		}
		parts := []string{t.lemma(tok.text)}
		for j := i + 1; j < len(tokens); j++ {
			next := tokens[j]
			if isVerb(next.tag) || isClauseBreak(next.tag) {
				break
			}
			if isParticle(next.tag) {
				parts = append(parts, t.lemma(next.text))
			}
		}
		if len(parts) > 1 {
			out = append(out, candidate{form: strings.Join(parts, " "), offset: tok.offset})
		}
	}
	return out
}

// span is a run of tokens, end exclusive.
type span struct {
	start, end int
}

// matchPatterns finds token runs shaped like phrasal verbs. Overlapping
// matches are resolved in favor of the longest run.
func matchPatterns(tokens []token) []span {
	patterns := [][]func(string) bool{
		{isVerb, isAdverb, isVerb},
		{isVerb, isAdverb},
		{isPreposition, isVerb},
	}
	var spans []span
	for _, pattern := range patterns {
		for i := 0; i+len(pattern) <= len(tokens); i++ {
			matched := true
			for j, matches := range pattern {
				if !matches(tokens[i+j].tag) {
					matched = false
					break
				}
			}
			if matched {
				spans = append(spans, span{start: i, end: i + len(pattern)})
			}
		}
	}
	return filterSpans(spans)
}

// filterSpans keeps the longest non overlapping spans, preferring the
// earlier span on ties, and returns them in sentence order.
func filterSpans(spans []span) []span {
	sorted := make([]span, len(spans))
	copy(sorted, spans)
	sort.SliceStable(sorted, func(i, j int) bool {
		li, lj := sorted[i].end-sorted[i].start, sorted[j].end-sorted[j].start
		if li != lj {
			return li > lj
		}
		return sorted[i].start < sorted[j].start
	})

	used := make(map[int]bool)
	var kept []span
	for _, s := range sorted {
		overlaps := false
		for i := s.start; i < s.end; i++ {
			if used[i] {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}
		for i := s.start; i < s.end; i++ {
			used[i] = true
		}
		kept = append(kept, s)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	return kept
}

func tokenAt(tokens []token, offset int) (token, bool) {
	for _, tok := range tokens {
		if tok.offset == offset {
			return tok, true
		}
	}
	return token{}, false
}

func isVerb(tag string) bool        { return strings.HasPrefix(tag, "VB") }
func isAdverb(tag string) bool      { return strings.HasPrefix(tag, "RB") }
func isParticle(tag string) bool    { return tag == "RP" }
func isPreposition(tag string) bool { return tag == "IN" }

func isClauseBreak(tag string) bool {
	return tag == "." || tag == "," || tag == ":"
}
