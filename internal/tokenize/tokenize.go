// Package tokenize splits source text into sentences and queries into terms.
// Every function here is pure and deterministic.
package tokenize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MinSentenceChars is the shortest sentence kept; shorter fragments are noise
	// such as headings, list markers, and page numbers.
	MinSentenceChars = 10
	// MinTermChars is the shortest query term kept.
	MinTermChars = 3
)

var sentenceBoundary = regexp.MustCompile(`[.!?]+`)

// Normalize trims text and collapses every whitespace run into a single space.
func Normalize(text string) string {
	text = strings.TrimSpace(text)
	var b strings.Builder
	b.Grow(len(text))
	wasSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !wasSpace {
				b.WriteRune(' ')
				wasSpace = true
			}
			continue
		}
		b.WriteRune(r)
		wasSpace = false
	}
	return b.String()
}

// Sentences splits text on sentence-terminal punctuation and returns the
// normalized sentences, in document order, that are at least MinSentenceChars long.
// The terminal punctuation itself is not part of the returned sentence.
func Sentences(text string) []string {
	parts := sentenceBoundary.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		s := Normalize(p)
		if utf8.RuneCountInString(s) < MinSentenceChars {
			continue
		}
		out = append(out, s)
	}
	return out
}

// QueryTerms lowercases query, splits it on anything that is not a letter or
// digit, and returns the distinct tokens longer than two characters in first-seen order.
func QueryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	seen := make(map[string]struct{}, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if utf8.RuneCountInString(f) < MinTermChars {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

// Words returns the lowercase alphanumeric words of text.
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

// WordCount returns the number of whitespace-separated words in text.
func WordCount(text string) int {
	return len(strings.Fields(text))
}
