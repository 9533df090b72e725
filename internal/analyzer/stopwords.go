package analyzer

import "unicode/utf8"

// Stopword sets are fixed. New languages may be added, but a word already
// present in a fixture must never be added to a set, since that would change
// existing scores.
var (
	englishStopwords = wordSet(
		"the", "a", "an", "and", "or", "but", "in", "on", "at", "to", "for", "of",
		"with", "by", "from", "as", "is", "was", "are", "were", "be", "been",
		"being", "have", "has", "had", "do", "does", "did", "will", "would",
		"should", "could", "may", "might", "must", "can", "this", "that",
		"these", "those", "i", "you", "he", "she", "it", "we", "they",
	)

	chineseStopwords = wordSet(
		"的", "了", "在", "是", "我", "有", "和", "就", "不", "人", "都", "一",
		"一个", "上", "也", "很", "到", "说", "要", "去", "你", "会", "着",
		"没有", "看", "好", "自己", "这",
	)
)

func wordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// IsStopword reports whether the lowercase word w is in any stopword set.
func IsStopword(w string) bool {
	if _, ok := englishStopwords[w]; ok {
		return true
	}
	_, ok := chineseStopwords[w]
	return ok
}

// ContentWords filters words down to non-stopwords longer than one character.
func ContentWords(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) > 1 && !IsStopword(w) {
			out = append(out, w)
		}
	}
	return out
}
