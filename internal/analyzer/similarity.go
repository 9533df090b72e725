package analyzer

import "github.com/fyrsmithlabs/chunkopt/internal/profile"

// Similarity is the internal similarity of one chunk: how often its content
// words repeat. Fewer than five content words score 0.
func Similarity(t Tokens) float64 {
	if t.Blank() {
		return 0
	}

	words := ContentWords(t.Words)
	if len(words) < 5 {
		return 0
	}

	counts := make(map[string]int, len(words))
	for _, w := range words {
		counts[w]++
	}

	repeats := 0
	for _, c := range counts {
		if c > 1 {
			repeats += c - 1
		}
	}
	return profile.Clamp(float64(repeats) / (float64(len(words)) * 0.3))
}

// Pairwise is the Jaccard index of the content-word sets of a and b. It is
// symmetric, and 1 when both sides share the same non-empty set.
func Pairwise(a, b Tokens) float64 {
	left := contentSet(a.Words)
	right := contentSet(b.Words)
	if len(left) == 0 || len(right) == 0 {
		return 0
	}

	if len(left) > len(right) {
		left, right = right, left
	}
	shared := 0
	for w := range left {
		if _, ok := right[w]; ok {
			shared++
		}
	}
	union := len(left) + len(right) - shared
	return profile.Clamp(float64(shared) / float64(union))
}

func contentSet(words []string) map[string]struct{} {
	filtered := ContentWords(words)
	set := make(map[string]struct{}, len(filtered))
	for _, w := range filtered {
		set[w] = struct{}{}
	}
	return set
}
