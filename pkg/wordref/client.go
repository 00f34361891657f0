package wordref

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// ErrNotFound is returned when the site has no dictionary entry for a word.
var ErrNotFound = errors.New("wordref: word not found")

const (
	defaultBaseURL = "https://www.wordreference.com"

	// The site serves a cut down page to unknown agents, so requests
	// identify as a desktop browser.
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
)

// Client fetches and parses wordreference.com dictionary pages.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
	log        *slog.Logger
}

// ClientOption adjusts a client at construction time.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithBaseURL points the client at another host, mainly for tests.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) { c.userAgent = userAgent }
}

// WithRequestInterval spaces lookups at least interval apart to stay polite
// towards the site.
func WithRequestInterval(interval time.Duration) ClientOption {
	return func(c *Client) {
		if interval > 0 {
			c.limiter = rate.NewLimiter(rate.Every(interval), 1)
		}
	}
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) { c.log = log }
}

// NewClient returns a client for wordreference.com.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		userAgent:  defaultUserAgent,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Translate looks word up in the fromLang to toLang dictionary, for example
// "en", "es" for the English to Spanish one. ErrNotFound is returned when
// the dictionary has no entry for the word.
func (c *Client) Translate(ctx context.Context, fromLang, toLang, word string) (*Payload, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("wordref: wait for request slot: %w", err)
		}
	}

	pageURL := fmt.Sprintf("%s/%s%s/%s", c.baseURL, fromLang, toLang, url.PathEscape(word))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("wordref: build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html")

	c.log.Debug("looking up word", slog.String("word", word), slog.String("url", pageURL))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wordref: fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wordref: fetch %s: unexpected status %s", pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wordref: parse %s: %w", pageURL, err)
	}

	payload := parseDocument(doc, word, pageURL)
	if len(payload.Translations) == 0 {
		return nil, ErrNotFound
	}
	return payload, nil
}

// parseDocument extracts the dictionary entries of a result page. Senses
// live in table.WRD tables: a wrtopsection row opens a titled group, a row
// with a non empty FrWrd cell starts a sense, bare ToWrd rows add further
// meanings and FrEx/ToEx rows carry the example sentences.
func parseDocument(doc *goquery.Document, word, pageURL string) *Payload {
	payload := &Payload{
		Word:           word,
		URL:            pageURL,
		Pronunciations: parsePronunciations(doc),
	}

	doc.Find("table.WRD").Each(func(_ int, table *goquery.Selection) {
		var group TranslationGroup
		var entry *Translation
		flush := func() {
			if entry != nil {
				group.Entries = append(group.Entries, *entry)
				entry = nil
			}
		}

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			switch {
			case row.HasClass("wrtopsection"):
				group.Title = cleanText(row.Find("td").First().Text())
			case row.Find("td.FrEx").Length() > 0:
				if entry != nil {
					entry.FromExample = cleanText(row.Find("td.FrEx").Text())
				}
			case row.Find("td.ToEx").Length() > 0:
				if entry != nil {
					entry.ToExamples = append(entry.ToExamples, cleanText(row.Find("td.ToEx").Text()))
				}
			default:
				frWrd := row.Find("td.FrWrd")
				toWrd := row.Find("td.ToWrd")
				if frWrd.Length() == 0 && toWrd.Length() == 0 {
					return
				}
				if source := cleanText(frWrd.Find("strong").Text()); source != "" {
					flush()
					entry = &Translation{
						FromWord: SourceTerm{
							Source:  source,
							Grammar: cleanText(frWrd.Find("em").First().Text()),
						},
						Context: parseContext(row),
					}
				}
				if entry == nil || toWrd.Length() == 0 {
					return
				}
				grammar := cleanText(toWrd.Find("em").First().Text())
				toWrd.Find("em, span").Remove()
				if meaning := cleanText(toWrd.Text()); meaning != "" {
					entry.ToWords = append(entry.ToWords, TargetTerm{Meaning: meaning, Notes: grammar})
				}
			}
		})
		flush()

		if group.Title != "" || len(group.Entries) > 0 {
			payload.Translations = append(payload.Translations, group)
		}
	})
	return payload
}

// parseContext reads the sense description from the unclassed middle cell
// of a sense row, without the surrounding parentheses.
func parseContext(row *goquery.Selection) string {
	cell := row.Children().FilterFunction(func(_ int, s *goquery.Selection) bool {
		return s.Is("td") && !s.HasClass("FrWrd") && !s.HasClass("ToWrd")
	}).First()
	context := cleanText(cell.Text())
	context = strings.TrimPrefix(context, "(")
	context = strings.TrimSuffix(context, ")")
	return strings.TrimSpace(context)
}

// parsePronunciations reads the IPA widget. Each reading is labeled by the
// accent marker preceding it, defaulting to UK as the site does.
func parsePronunciations(doc *goquery.Document) []Pronunciation {
	var pronunciations []Pronunciation
	doc.Find("span#pronWR").Each(func(_ int, s *goquery.Selection) {
		text := cleanText(s.Text())
		if text == "" {
			return
		}
		label := strings.TrimSuffix(cleanText(s.Prev().Text()), ":")
		if label == "" {
			label = "UK"
		}
		var variants []string
		for _, variant := range strings.Split(text, ",") {
			if variant = strings.TrimSpace(variant); variant != "" {
				variants = append(variants, variant)
			}
		}
		pronunciations = append(pronunciations, Pronunciation{Label: label, Variants: variants})
	})
	return pronunciations
}

// cleanText collapses runs of whitespace, including the non breaking spaces
// the site pads cells with.
func cleanText(s string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(s, " ", " ")), " ")
}
