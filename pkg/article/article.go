// Package article mines vocabulary out of readable web pages. A page is
// fetched or loaded from disk, boiled down to its text with readability,
// split into sentences and run through a per language analyzer; every
// content word becomes a vocabulary entry carrying the sentence it first
// appeared in.
package article

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/go-shiori/go-readability"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/vindex"
)

// maxPageBytes caps how much of a page Fetch is willing to read.
const maxPageBytes = 10 << 20

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Article is the readable core of a page.
type Article struct {
	URL      string
	Title    string
	Byline   string
	SiteName string
	Text     string
}

// Token is one analyzed unit of a sentence. Base holds the dictionary
// form, falling back to the surface when the analyzer knows no better.
// Content marks words worth collecting; the rest is grammatical glue,
// kept so token offsets can be recovered in order.
type Token struct {
	Surface string
	Base    string
	Content bool
}

// Analyzer segments one sentence into tokens.
type Analyzer interface {
	Lang() string
	Analyze(sentence string) ([]Token, error)
}

// NewAnalyzer picks the analyzer for a language tag.
func NewAnalyzer(lang string) (Analyzer, error) {
	switch lang {
	case "en":
		return NewEnglishAnalyzer()
	case "ja":
		return NewJapaneseAnalyzer()
	}
	return nil, fmt.Errorf("article: no analyzer for language %q", lang)
}

// Fetch downloads a page. Plenty of sites answer a bare Go client with a
// 403, so the request carries ordinary browser headers. A nil client gets
// a 30 second timeout.
func Fetch(ctx context.Context, client *http.Client, pageURL string) ([]byte, error) {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("article: build request for %s: %w", pageURL, err)
	}
	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9,ja;q=0.8")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("article: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("article: fetch %s: status %d", pageURL, resp.StatusCode)
	}
	if resp.ContentLength > maxPageBytes {
		return nil, fmt.Errorf("article: %s announces %d bytes, over the %d byte limit",
			pageURL, resp.ContentLength, maxPageBytes)
	}
	// Read one byte past the cap so truncation is detectable.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("article: read %s: %w", pageURL, err)
	}
	if len(body) > maxPageBytes {
		return nil, fmt.Errorf("article: %s exceeds the %d byte limit", pageURL, maxPageBytes)
	}
	return body, nil
}

var (
	rubyText   = regexp.MustCompile(`(?si)<rt\b[^>]*>.*?</rt>`)
	rubyParens = regexp.MustCompile(`(?si)<rp\b[^>]*>.*?</rp>`)
)

// StripRuby removes furigana annotations before extraction. Readability
// keeps every text node, so <ruby>漢字<rt>かんじ</rt></ruby> would otherwise
// come out as the duplicated "漢字かんじ".
func StripRuby(page []byte) []byte {
	page = rubyText.ReplaceAll(page, nil)
	return rubyParens.ReplaceAll(page, nil)
}

// Extract boils a page down to its readable text. pageURL may be empty for
// local files; when present it lets readability resolve relative links and
// is kept on the article for reference.
func Extract(page []byte, pageURL string) (*Article, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("article: parse url %s: %w", pageURL, err)
	}
	art, err := readability.FromReader(bytes.NewReader(StripRuby(page)), base)
	if err != nil {
		return nil, fmt.Errorf("article: extract %q: %w", pageURL, err)
	}
	text := strings.TrimSpace(art.TextContent)
	if text == "" {
		return nil, fmt.Errorf("article: no readable text in %q", pageURL)
	}
	return &Article{
		URL:      pageURL,
		Title:    art.Title,
		Byline:   art.Byline,
		SiteName: art.SiteName,
		Text:     text,
	}, nil
}

// SplitSentences cuts text at Japanese terminators and newlines, and at
// Latin terminators when followed by whitespace so decimals and domain
// names survive. Delimiters stay attached to their sentence.
func SplitSentences(text string) []string {
	var sentences []string
	var current strings.Builder
	runes := []rune(text)
	for i, r := range runes {
		current.WriteRune(r)
		switch r {
		case '。', '！', '？', '\n':
		case '.', '!', '?':
			if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
				continue
			}
		default:
			continue
		}
		sentences = append(sentences, current.String())
		current.Reset()
	}
	if current.Len() > 0 {
		sentences = append(sentences, current.String())
	}
	return sentences
}

// Vocabulary collects the content words of text. Words are keyed by their
// dictionary form; the first sentence a word shows up in becomes its usage,
// with the offset of the surface form inside that sentence. Later sightings
// of the same word change nothing.
func Vocabulary(a Analyzer, text string) (*vindex.Vocabulary, error) {
	vocab := vindex.NewVocabulary()
	for _, sentence := range SplitSentences(text) {
		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}
		tokens, err := a.Analyze(sentence)
		if err != nil {
			return nil, fmt.Errorf("article: analyze %q: %w", sentence, err)
		}

		// Offsets come from an ordered scan: each surface is searched for
		// after the previous one, so repeated forms land on the right spot.
		search := 0
		for _, tok := range tokens {
			rel := strings.Index(sentence[search:], tok.Surface)
			if rel < 0 {
				continue
			}
			offset := search + rel
			search = offset + len(tok.Surface)

			if !tok.Content || vocab.Contains(tok.Base) {
				continue
			}
			vocab.Set(tok.Base, vindex.Usage{Text: sentence, WordIndex: offset})
		}
	}
	return vocab, nil
}
