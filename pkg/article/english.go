package article

import (
	"fmt"
	"strings"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
	"github.com/jdkato/prose/v2"
)

// EnglishAnalyzer tags English text with prose and lemmatizes content
// words with golem.
type EnglishAnalyzer struct {
	lemmatizer *golem.Lemmatizer
}

func NewEnglishAnalyzer() (*EnglishAnalyzer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("article: build english lemmatizer: %w", err)
	}
	return &EnglishAnalyzer{lemmatizer: lemmatizer}, nil
}

func (a *EnglishAnalyzer) Lang() string { return "en" }

func (a *EnglishAnalyzer) Analyze(sentence string) ([]Token, error) {
	doc, err := prose.NewDocument(sentence, prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("article: tag sentence: %w", err)
	}
	var tokens []Token
	for _, tok := range doc.Tokens() {
		content := englishContent(tok.Tag)
		base := strings.ToLower(tok.Text)
		if content {
			base = a.lemmatizer.LemmaLower(tok.Text)
		}
		tokens = append(tokens, Token{Surface: tok.Text, Base: base, Content: content})
	}
	return tokens, nil
}

// englishContent keeps nouns, verbs, adjectives and adverbs. The Penn
// treebank tags for all four start with one of four prefixes.
func englishContent(tag string) bool {
	for _, prefix := range []string{"NN", "VB", "JJ", "RB"} {
		if strings.HasPrefix(tag, prefix) {
			return true
		}
	}
	return false
}
