// Package relevance scores source text against a query and ranks the sources
// of a notebook by their best matching sentence.
package relevance

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/BadakalaYashwanth/Scrible/internal/tokenize"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// Weights are the point values used when scoring a sentence.
type Weights struct {
	// Exact is awarded per whole-word occurrence of a term.
	Exact int
	// Substring is awarded once per term when it appears anywhere in the sentence.
	Substring int
	// LongTerm is awarded per whole-word occurrence of a term longer than LongTermLen.
	LongTerm    int
	LongTermLen int
	// Calibration is the per-term score treated as a strong match when normalizing.
	Calibration float64
	// ExcerptChars caps the excerpt length before "..." is appended.
	ExcerptChars int
	// ContextChars caps the surrounding context window.
	ContextChars int
}

// DefaultWeights returns the standard scoring weights.
func DefaultWeights() Weights {
	return Weights{
		Exact:        3,
		Substring:    1,
		LongTerm:     2,
		LongTermLen:  5,
		Calibration:  5,
		ExcerptChars: 200,
		ContextChars: 500,
	}
}

// Match is a source's score for one query.
type Match struct {
	Relevance float64
	// Total is the sum of every sentence score.
	Total int
	// Sentence is the highest-scoring sentence, untruncated.
	Sentence string
	Excerpt  string
	// Context is the best sentence with its immediate neighbours.
	Context string
	// Index is the position of Sentence among the text's sentences.
	Index int
}

// Scorer scores text against query terms.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer using w.
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// DefaultScorer returns a scorer using DefaultWeights.
func DefaultScorer() *Scorer {
	return NewScorer(DefaultWeights())
}

// ScoreSentence returns the points sentence earns for terms. Terms must already
// be lowercase, as returned by tokenize.QueryTerms.
func (s *Scorer) ScoreSentence(terms []string, sentence string) int {
	lower := strings.ToLower(sentence)
	words := wordCounts(lower)
	score := 0
	for _, term := range terms {
		exact := words[term]
		score += exact * s.weights.Exact
		if strings.Contains(lower, term) {
			score += s.weights.Substring
		}
		if utf8.RuneCountInString(term) > s.weights.LongTermLen {
			score += exact * s.weights.LongTerm
		}
	}
	return score
}

// Score scores text against terms. It returns false when there are no terms,
// the text is empty, or no sentence earns any points.
func (s *Scorer) Score(terms []string, text string) (Match, bool) {
	if len(terms) == 0 || text == "" {
		return Match{}, false
	}
	sentences := tokenize.Sentences(text)
	total, best, bestIdx := 0, 0, -1
	for i, sentence := range sentences {
		score := s.ScoreSentence(terms, sentence)
		total += score
		if score > best {
			best, bestIdx = score, i
		}
	}
	if total == 0 || bestIdx < 0 {
		return Match{}, false
	}
	relevance := math.Min(float64(total)/(float64(len(terms))*s.weights.Calibration), 1)
	return Match{
		Relevance: relevance,
		Total:     total,
		Sentence:  sentences[bestIdx],
		Excerpt:   utils.Truncate(sentences[bestIdx], s.weights.ExcerptChars),
		Context:   contextWindow(sentences, bestIdx, s.weights.ContextChars),
		Index:     bestIdx,
	}, true
}

// ScoreQuery tokenizes query and scores text against it.
func (s *Scorer) ScoreQuery(query, text string) (Match, bool) {
	return s.Score(tokenize.QueryTerms(query), text)
}

func contextWindow(sentences []string, idx, maxChars int) string {
	start, end := idx-1, idx+2
	if start < 0 {
		start = 0
	}
	if end > len(sentences) {
		end = len(sentences)
	}
	return utils.Truncate(strings.Join(sentences[start:end], ". ")+".", maxChars)
}

func wordCounts(lower string) map[string]int {
	counts := make(map[string]int)
	for _, w := range strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		counts[w]++
	}
	return counts
}
