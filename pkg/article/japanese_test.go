package article

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJapaneseContent(t *testing.T) {
	tests := []struct {
		name     string
		surface  string
		features []string
		want     bool
	}{
		{"verb", "走っ", []string{"動詞", "自立"}, true},
		{"noun", "猫", []string{"名詞", "一般"}, true},
		{"punctuation", "、", []string{"記号", "読点"}, false},
		{"particle", "は", []string{"助詞", "係助詞"}, false},
		{"auxiliary", "だ", []string{"助動詞"}, false},
		{"numeral", "三", []string{"名詞", "数"}, false},
		{"ascii passthrough", "ABC123", []string{"名詞", "固有名詞"}, false},
		{"no features", "猫", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, japaneseContent(tt.surface, tt.features))
		})
	}
}

func TestJapaneseAnalyzer(t *testing.T) {
	analyzer, err := NewJapaneseAnalyzer()
	require.NoError(t, err)
	assert.Equal(t, "ja", analyzer.Lang())

	tokens, err := analyzer.Analyze("私は本を読んだ。")
	require.NoError(t, err)
	require.NotEmpty(t, tokens)

	bySurface := make(map[string]Token)
	for _, tok := range tokens {
		bySurface[tok.Surface] = tok
	}

	read, ok := bySurface["読ん"]
	require.True(t, ok, "expected the conjugated verb as one token")
	assert.Equal(t, "読む", read.Base, "base form comes from the dictionary")
	assert.True(t, read.Content)

	topic, ok := bySurface["は"]
	require.True(t, ok)
	assert.False(t, topic.Content, "particles are glue")
}

func TestJapaneseVocabulary(t *testing.T) {
	analyzer, err := NewJapaneseAnalyzer()
	require.NoError(t, err)

	vocab, err := Vocabulary(analyzer, "私は本を読んだ。")
	require.NoError(t, err)

	assert.Equal(t, []string{"私", "本", "読む"}, vocab.Words())

	usage, ok := vocab.Get("読む")
	require.True(t, ok)
	assert.Equal(t, "私は本を読んだ。", usage.Text)
	assert.Equal(t, 12, usage.WordIndex, "offset points at the surface form 読ん")

	usage, ok = vocab.Get("本")
	require.True(t, ok)
	assert.Equal(t, 6, usage.WordIndex)
}
