package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

func TestQuality_Blank(t *testing.T) {
	p := profile.Resolve(profile.Default)

	assert.Equal(t, 0.0, Quality(Tokenize(""), p))
	assert.Equal(t, 0.0, Quality(Tokenize("   \n\t"), p))
	assert.Equal(t, QualityBreakdown{}, QualityDetail(Tokenize(" "), p))
}

func TestQuality_ShortRepeatedSentences(t *testing.T) {
	p := profile.Resolve(profile.Default)
	detail := QualityDetail(Tokenize("Cats are great. Cats are great."), p)

	assert.InDelta(t, 31.0/50.0, detail.LengthFit, 1e-9)
	assert.Equal(t, 0.5, detail.Structure)
	assert.Equal(t, 0.8, detail.Vocabulary)
	assert.Equal(t, 0.8, detail.Coherence)
	assert.InDelta(t, (0.62+0.5+0.8+0.8)/4, detail.Score(), 1e-9)
}

func TestLengthFit(t *testing.T) {
	b := profile.Resolve(profile.Default).Bounds

	tests := []struct {
		length int
		want   float64
	}{
		{0, 0},
		{25, 0.5},
		{50, 0.8},
		{200, 0.8},
		{300, 1},
		{1000, 1},
		{2000, 0.8},
		{3000, 0.5},
		{4000, 0},
		{9000, 0},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, lengthFit(tt.length, b), 1e-9, "length=%d", tt.length)
	}
}

func TestLengthFit_UsesProfileBounds(t *testing.T) {
	medical := profile.Resolve(profile.Medical).Bounds
	assert.InDelta(t, 100.0/150.0, lengthFit(100, medical), 1e-9)
	assert.Equal(t, 0.8, lengthFit(500, medical))
	assert.Equal(t, 1.0, lengthFit(800, medical))
}

func TestSentenceStructure(t *testing.T) {
	sentence := func(words int) string {
		return strings.TrimSpace(strings.Repeat("word ", words))
	}

	tests := []struct {
		name      string
		sentences []string
		want      float64
	}{
		{"none", nil, 0},
		{"three words", []string{sentence(3)}, 0.5},
		{"seven words", []string{sentence(7)}, 0.7},
		{"twelve words", []string{sentence(12)}, 1},
		{"average of ten", []string{sentence(5), sentence(15)}, 1},
		{"thirty words", []string{sentence(30)}, 0.7},
		{"forty words", []string{sentence(40)}, 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sentenceStructure(tt.sentences))
		})
	}
}

func TestVocabularyDiversity(t *testing.T) {
	assert.Equal(t, 0.0, vocabularyDiversity(nil))
	assert.Equal(t, 1.0, vocabularyDiversity([]string{"a", "b", "c"}))
	assert.Equal(t, 0.8, vocabularyDiversity([]string{"a", "a", "b", "b"}))
	assert.Equal(t, 0.5, vocabularyDiversity([]string{"a", "a", "a", "a", "a", "b"}))
}

func TestCoherence(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    float64
	}{
		{"single sentence with connective", "However it works", 0.8},
		{"no connective", "It failed. Then it worked.", 0.8},
		{"english connective", "It failed. However, the retry worked.", 1},
		{"multi word connective", "Logs rotate daily. In addition, they are compressed.", 1},
		{"chinese connective", "数据很好. 但是速度慢.", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, coherence(Sentences(tt.content)))
		})
	}
}

func TestQuality_WellFormedChunk(t *testing.T) {
	content := strings.Repeat(
		"Kubernetes schedules pods onto nodes based on resource requests and affinity rules. "+
			"However, eviction may occur when memory pressure exceeds configured thresholds on a node. ", 3)

	p := profile.Resolve(profile.Default)
	detail := QualityDetail(Tokenize(content), p)

	assert.Equal(t, 1.0, detail.LengthFit)
	assert.Equal(t, 1.0, detail.Structure)
	assert.Equal(t, 1.0, detail.Coherence)
	assert.Greater(t, Quality(Tokenize(content), p), 0.8)
}
