package article

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/k1r0d3v/kindle-vocabulary/pkg/vindex"
)

type fakeAnalyzer struct {
	tokens map[string][]Token
}

func (f *fakeAnalyzer) Lang() string { return "xx" }

func (f *fakeAnalyzer) Analyze(sentence string) ([]Token, error) {
	toks, ok := f.tokens[sentence]
	if !ok {
		return nil, fmt.Errorf("unexpected sentence %q", sentence)
	}
	return toks, nil
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "japanese terminators",
			text: "今日は晴れた。明日も晴れる！あさっては？",
			want: []string{"今日は晴れた。", "明日も晴れる！", "あさっては？"},
		},
		{
			name: "latin terminators",
			text: "I ran. She rested!",
			want: []string{"I ran.", " She rested!"},
		},
		{
			name: "decimal point survives",
			text: "Pi is about 3.14 here.",
			want: []string{"Pi is about 3.14 here."},
		},
		{
			name: "newline splits",
			text: "line one\nline two",
			want: []string{"line one\n", "line two"},
		},
		{
			name: "trailing text without terminator",
			text: "no terminator",
			want: []string{"no terminator"},
		},
		{
			name: "empty",
			text: "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.text))
		})
	}
}

func TestVocabulary(t *testing.T) {
	analyzer := &fakeAnalyzer{tokens: map[string][]Token{
		"The cat sat.": {
			{Surface: "The", Base: "the"},
			{Surface: "cat", Base: "cat", Content: true},
			{Surface: "sat", Base: "sit", Content: true},
			{Surface: "."},
		},
		"The cat ran.": {
			{Surface: "The", Base: "the"},
			{Surface: "cat", Base: "cat", Content: true},
			{Surface: "ran", Base: "run", Content: true},
			{Surface: "."},
		},
	}}

	vocab, err := Vocabulary(analyzer, "The cat sat. The cat ran.")
	require.NoError(t, err)

	assert.Equal(t, []string{"cat", "sit", "run"}, vocab.Words())
	assert.False(t, vocab.Contains("the"), "glue tokens carry no vocabulary")

	usage, ok := vocab.Get("cat")
	require.True(t, ok)
	assert.Equal(t, vindex.Usage{Text: "The cat sat.", WordIndex: 4}, usage,
		"first sighting wins")

	usage, ok = vocab.Get("sit")
	require.True(t, ok)
	assert.Equal(t, vindex.Usage{Text: "The cat sat.", WordIndex: 8}, usage)

	usage, ok = vocab.Get("run")
	require.True(t, ok)
	assert.Equal(t, vindex.Usage{Text: "The cat ran.", WordIndex: 8}, usage)
}

func TestVocabularyRepeatedSurface(t *testing.T) {
	analyzer := &fakeAnalyzer{tokens: map[string][]Token{
		"go and go.": {
			{Surface: "go", Base: "go", Content: true},
			{Surface: "and", Base: "and"},
			{Surface: "go", Base: "go", Content: true},
			{Surface: "."},
		},
	}}

	vocab, err := Vocabulary(analyzer, "go and go.")
	require.NoError(t, err)

	usage, ok := vocab.Get("go")
	require.True(t, ok)
	assert.Equal(t, 0, usage.WordIndex, "the first occurrence sets the offset")
	assert.Equal(t, 1, vocab.Len())
}

func TestVocabularyAnalyzerError(t *testing.T) {
	analyzer := &fakeAnalyzer{}
	_, err := Vocabulary(analyzer, "Nobody expects this.")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Nobody expects this.")
}

func TestStripRuby(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain ruby",
			in:   "<ruby>漢字<rt>かんじ</rt></ruby>",
			want: "<ruby>漢字</ruby>",
		},
		{
			name: "ruby with fallback parens",
			in:   "<ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>",
			want: "<ruby>漢字</ruby>",
		},
		{
			name: "several annotations",
			in:   "<ruby>私<rt>わたし</rt></ruby>は<ruby>猫<rt>ねこ</rt></ruby>である",
			want: "<ruby>私</ruby>は<ruby>猫</ruby>である",
		},
		{
			name: "attributes on the tags",
			in:   `<ruby class="w">漢字<rt class="r">かんじ</rt></ruby>`,
			want: `<ruby class="w">漢字</ruby>`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, string(StripRuby([]byte(tt.in))))
		})
	}
}

// articlePage is large enough for readability to treat the story as the
// main content of the page.
func articlePage() []byte {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html><html><head><title>緑の季節 | 試し読み</title></head><body>`)
	b.WriteString(`<article><h1>緑の季節</h1>`)
	for i := 0; i < 10; i++ {
		b.WriteString(`<p>春になると、町のはずれの丘はいちめんの緑に変わる。`)
		b.WriteString(`子どもたちは放課後になると丘をかけのぼり、`)
		b.WriteString(`<ruby>風<rt>かぜ</rt></ruby>の音を聞きながら、日が暮れるまで遊んだものだった。</p>`)
	}
	b.WriteString(`</article></body></html>`)
	return []byte(b.String())
}

func TestExtract(t *testing.T) {
	art, err := Extract(articlePage(), "http://localhost/sample")
	require.NoError(t, err)

	assert.Contains(t, art.Title, "緑の季節")
	assert.Equal(t, "http://localhost/sample", art.URL)
	assert.Contains(t, art.Text, "風の音", "annotated kanji keeps only its base text")
	assert.NotContains(t, art.Text, "かぜ", "furigana is stripped before extraction")
	assert.Greater(t, len(art.Text), 100)
}

func TestExtractEmptyPage(t *testing.T) {
	_, err := Extract([]byte("<html><body></body></html>"), "")
	require.Error(t, err)
}

func TestFetch(t *testing.T) {
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Write(articlePage())
	}))
	defer srv.Close()

	body, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, articlePage(), body)
	assert.Contains(t, userAgent, "Mozilla/5.0", "requests look like a browser")
}

func TestFetchErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 403")
}

func TestFetchTooLarge(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(bytes.Repeat([]byte{'a'}, maxPageBytes+1))
	}))
	defer srv.Close()

	_, err := Fetch(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "byte limit")
}
