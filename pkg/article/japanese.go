package article

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// asciiOnly matches tokens with no Japanese in them at all: numbers, latin
// fragments and stray punctuation the tokenizer passes through.
var asciiOnly = regexp.MustCompile(`^[a-zA-Z0-9\s[:punct:]]+$`)

// JapaneseAnalyzer segments Japanese text with the kagome IPA dictionary.
type JapaneseAnalyzer struct {
	t *tokenizer.Tokenizer
}

func NewJapaneseAnalyzer() (*JapaneseAnalyzer, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("article: build japanese tokenizer: %w", err)
	}
	return &JapaneseAnalyzer{t: t}, nil
}

func (a *JapaneseAnalyzer) Lang() string { return "ja" }

// Analyze tokenizes one sentence. The IPA feature layout is POS, three
// sub-POS slots, conjugation type and form, base form, reading and
// pronunciation; absent slots hold "*".
func (a *JapaneseAnalyzer) Analyze(sentence string) ([]Token, error) {
	var tokens []Token
	for _, tok := range a.t.Tokenize(sentence) {
		if tok.Class == tokenizer.DUMMY || strings.TrimSpace(tok.Surface) == "" {
			continue
		}
		features := tok.Features()

		base := tok.Surface
		if len(features) > 6 && features[6] != "*" {
			base = features[6]
		}

		tokens = append(tokens, Token{
			Surface: tok.Surface,
			Base:    base,
			Content: japaneseContent(tok.Surface, features),
		})
	}
	return tokens, nil
}

// japaneseContent drops symbols, particles, auxiliary verbs, numerals and
// purely ASCII tokens. What remains is vocabulary.
func japaneseContent(surface string, features []string) bool {
	if len(features) == 0 {
		return false
	}
	switch features[0] {
	case "記号", "補助記号", "助詞", "助動詞":
		return false
	}
	if len(features) > 1 && features[1] == "数" {
		return false
	}
	return !asciiOnly.MatchString(surface)
}
