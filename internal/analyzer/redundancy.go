package analyzer

import (
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

const (
	minPhraseWords = 3
	maxPhraseWords = 8

	// separator between words of a hashed phrase; never part of a word.
	phraseSeparator = "\x1f"
)

// RedundancyBreakdown holds the three redundancy sub-scores.
type RedundancyBreakdown struct {
	Phrase   float64 `json:"phrase"`
	Sentence float64 `json:"sentence"`
	Word     float64 `json:"word"`
}

// Score is the arithmetic mean of the sub-scores.
func (r RedundancyBreakdown) Score() float64 {
	return profile.Clamp((r.Phrase + r.Sentence + r.Word) / 3)
}

// Redundancy measures repetitive content. Higher is worse.
func Redundancy(t Tokens) float64 {
	if t.Blank() {
		return 0
	}
	return RedundancyDetail(t).Score()
}

// RedundancyDetail returns the individual redundancy sub-scores.
func RedundancyDetail(t Tokens) RedundancyBreakdown {
	if t.Blank() {
		return RedundancyBreakdown{}
	}
	return RedundancyBreakdown{
		Phrase:   phraseRepetition(t.Words),
		Sentence: sentenceRepetition(t.Sentences),
		Word:     wordRepetition(t.Words),
	}
}

// phraseRepetition counts every contiguous span of 3 to min(8, n-1) words.
// Spans are hashed incrementally from each start position, so the work is
// O(n * maxPhraseWords) and memory is O(distinct phrases).
func phraseRepetition(words []string) float64 {
	n := len(words)
	if n < 2*minPhraseWords {
		return 0
	}
	longest := min(maxPhraseWords, n-1)

	counts := make(map[uint64]int)
	d := xxhash.New()
	for i := 0; i+minPhraseWords <= n; i++ {
		d.Reset()
		for length := 1; length <= longest && i+length <= n; length++ {
			_, _ = d.WriteString(words[i+length-1])
			_, _ = d.WriteString(phraseSeparator)
			if length >= minPhraseWords {
				counts[d.Sum64()]++
			}
		}
	}

	return repetitionScore(counts, len(counts))
}

// sentenceRepetition compares sentences case-insensitively.
func sentenceRepetition(sentences []string) float64 {
	if len(sentences) < 2 {
		return 0
	}

	counts := make(map[string]int, len(sentences))
	for _, s := range sentences {
		counts[strings.ToLower(strings.TrimSpace(s))]++
	}
	return repetitionScore(counts, len(sentences))
}

// wordRepetition inverts vocabulary diversity: the fewer unique words, the
// higher the score.
func wordRepetition(words []string) float64 {
	if len(words) < 10 {
		return 0
	}

	ratio := uniqueRatio(words)
	switch {
	case ratio >= 0.7:
		return 0
	case ratio >= 0.5:
		return 0.3
	case ratio >= 0.3:
		return 0.6
	default:
		return 1
	}
}

// repetitionScore is min(1, Σ(count-1) / (population*0.5)) over the entries
// seen more than once.
func repetitionScore[K comparable](counts map[K]int, population int) float64 {
	if population == 0 {
		return 0
	}

	repeats := 0
	for _, c := range counts {
		if c > 1 {
			repeats += c - 1
		}
	}
	if repeats == 0 {
		return 0
	}
	return profile.Clamp(float64(repeats) / (float64(population) * 0.5))
}
