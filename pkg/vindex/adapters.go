package vindex

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/vocabdb"
)

// VocabularyFromCSV reads a vocabulary from a tab separated file with one
// "word<TAB>usage" record per line. The word must occur literally inside
// its usage sentence; the offset of its first occurrence is recorded.
func VocabularyFromCSV(path string) (*Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vindex: open vocabulary file: %w", err)
	}
	defer f.Close()

	vocab := NewVocabulary()
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		parts := strings.Split(scanner.Text(), "\t")
		if len(parts) != 2 {
			return nil, fmt.Errorf("vindex: %s:%d: expected word<TAB>usage", path, line)
		}
		word, usage := parts[0], parts[1]
		idx := strings.Index(usage, word)
		if idx < 0 {
			return nil, fmt.Errorf("vindex: %s:%d: word %q not found in usage %q", path, line, word, usage)
		}
		vocab.Set(word, Usage{Text: usage, WordIndex: idx})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vindex: read vocabulary file: %w", err)
	}
	return vocab, nil
}

// VocabularyFromKindle reads a vocabulary from an open Kindle vocabulary
// database. Only words of the given language are taken; with a non empty
// bookID, only lookups made in that book. Lookups are visited in lookup
// order, so a word looked up twice keeps its latest usage but its original
// position.
//
// Kindle records usage sentences with typographic apostrophes while the
// looked up word form uses plain ones, so U+2019 is normalized before the
// word is located inside the sentence.
func VocabularyFromKindle(db *vocabdb.DB, bookID, lang string) (*Vocabulary, error) {
	words, err := db.Words(bookID)
	if err != nil {
		return nil, err
	}
	lookups, err := db.Lookups(bookID)
	if err != nil {
		return nil, err
	}

	vocab := NewVocabulary()
	for _, lookup := range lookups {
		word, ok := words[lookup.WordID]
		if !ok {
			return nil, fmt.Errorf("vindex: lookup %s references unknown word %s", lookup.ID, lookup.WordID)
		}
		if word.Lang != lang {
			continue
		}
		usage := strings.ReplaceAll(lookup.Usage, "’", "'")
		idx := strings.Index(usage, word.Value)
		if idx < 0 {
			return nil, fmt.Errorf("vindex: word %q not found in usage %q", word.Value, usage)
		}
		vocab.Set(word.Value, Usage{Text: usage, WordIndex: idx})
	}
	return vocab, nil
}
