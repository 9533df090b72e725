package analyzer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tokens is the tokenized form of a chunk. It is computed once per chunk
// and shared by every analyzer.
type Tokens struct {
	Content string
	// Length is the content length in code points.
	Length    int
	Words     []string
	Sentences []string
}

// Tokenize splits content into lowercase words and trimmed sentences.
func Tokenize(content string) Tokens {
	return Tokens{
		Content:   content,
		Length:    utf8.RuneCountInString(content),
		Words:     Words(content),
		Sentences: Sentences(content),
	}
}

// Blank reports whether the content is empty or whitespace only.
func (t Tokens) Blank() bool {
	return strings.TrimSpace(t.Content) == ""
}

// Words returns the maximal runs of word characters in s, lowercased.
// Letters, digits, combining marks and '_' are word characters, so a run of
// logographic script is a single token.
func Words(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if isWordRune(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			words = append(words, strings.ToLower(s[start:i]))
			start = -1
		}
	}
	if start >= 0 {
		words = append(words, strings.ToLower(s[start:]))
	}
	return words
}

// Sentences splits s on runs of '.', '!' and '?'. Each sentence is trimmed
// and empty sentences are dropped.
func Sentences(s string) []string {
	parts := strings.FieldsFunc(s, isTerminator)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			sentences = append(sentences, p)
		}
	}
	return sentences
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsMark(r)
}

func isTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}
