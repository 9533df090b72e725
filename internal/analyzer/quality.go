package analyzer

import (
	"strings"

	"github.com/fyrsmithlabs/chunkopt/internal/profile"
)

// transitionTerms mark explicit logical flow between sentences. Matching is a
// case-insensitive substring test against each sentence.
var transitionTerms = []string{
	"however", "therefore", "consequently", "furthermore", "moreover",
	"in addition", "meanwhile", "otherwise", "thus", "hence",
	"accordingly", "nevertheless", "but",
	"但是", "因此", "所以", "此外", "而且", "同时", "否则", "于是", "从而", "然而", "不过",
}

// QualityBreakdown holds the four quality sub-scores.
type QualityBreakdown struct {
	LengthFit  float64 `json:"length_fit"`
	Structure  float64 `json:"structure"`
	Vocabulary float64 `json:"vocabulary"`
	Coherence  float64 `json:"coherence"`
}

// Score is the arithmetic mean of the sub-scores.
func (q QualityBreakdown) Score() float64 {
	return profile.Clamp((q.LengthFit + q.Structure + q.Vocabulary + q.Coherence) / 4)
}

// Quality scores how well-formed a chunk is for the given profile.
func Quality(t Tokens, p profile.Profile) float64 {
	if t.Blank() {
		return 0
	}
	return QualityDetail(t, p).Score()
}

// QualityDetail returns the individual quality sub-scores. Blank content
// yields the zero breakdown.
func QualityDetail(t Tokens, p profile.Profile) QualityBreakdown {
	if t.Blank() {
		return QualityBreakdown{}
	}
	return QualityBreakdown{
		LengthFit:  lengthFit(t.Length, p.Bounds),
		Structure:  sentenceStructure(t.Sentences),
		Vocabulary: vocabularyDiversity(t.Words),
		Coherence:  coherence(t.Sentences),
	}
}

func lengthFit(n int, b profile.Bounds) float64 {
	switch {
	case n < b.Min:
		return profile.Clamp(float64(n) / float64(b.Min))
	case n > b.Max:
		return profile.Clamp(1 - float64(n-b.Max)/float64(b.Max))
	case n >= b.OptimalLow && n <= b.OptimalHigh:
		return 1
	default:
		return 0.8
	}
}

// sentenceStructure rewards an average sentence length of 10 to 25 words.
func sentenceStructure(sentences []string) float64 {
	if len(sentences) == 0 {
		return 0
	}

	total := 0
	for _, s := range sentences {
		total += len(strings.Fields(s))
	}
	avg := float64(total) / float64(len(sentences))

	switch {
	case avg >= 10 && avg <= 25:
		return 1
	case (avg >= 5 && avg < 10) || (avg > 25 && avg <= 35):
		return 0.7
	default:
		return 0.5
	}
}

func vocabularyDiversity(words []string) float64 {
	if len(words) == 0 {
		return 0
	}

	ratio := uniqueRatio(words)
	switch {
	case ratio >= 0.6:
		return 1
	case ratio >= 0.4:
		return 0.8
	default:
		return 0.5
	}
}

// coherence starts at 0.8 and earns 0.2 when any sentence carries a
// transition term. Fewer than two sentences cannot show flow and stay at 0.8.
func coherence(sentences []string) float64 {
	const base = 0.8
	if len(sentences) < 2 {
		return base
	}

	for _, s := range sentences {
		lower := strings.ToLower(s)
		for _, term := range transitionTerms {
			if strings.Contains(lower, term) {
				return profile.Clamp(base + 0.2)
			}
		}
	}
	return base
}

func uniqueRatio(words []string) float64 {
	if len(words) == 0 {
		return 0
	}
	seen := make(map[string]struct{}, len(words))
	for _, w := range words {
		seen[w] = struct{}{}
	}
	return float64(len(seen)) / float64(len(words))
}
