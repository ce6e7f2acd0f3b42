package keyword

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/BadakalaYashwanth/Scrible/internal/tokenize"
)

// MinCheckedTermLen is the shortest query term the checker tries to correct.
// Shorter terms are mostly stop words, which the index does not keep.
const MinCheckedTermLen = 4

// TermDictionary exposes indexed terms and their document frequencies.
type TermDictionary interface {
	Terms() (map[string]int, error)
}

// Suggestion represents a spelling suggestion with its score.
type Suggestion struct {
	Term      string
	Distance  int
	Frequency int
	Score     float64
}

// SpellCheckResult contains the result of spell checking a query.
type SpellCheckResult struct {
	OriginalQuery   string
	CorrectedQuery  string
	Suggestions     []Suggestion
	HasCorrections  bool
	MisspelledTerms []string
}

// SpellChecker suggests dictionary terms close to misspelled query terms.
type SpellChecker struct {
	dictionary     TermDictionary
	maxDistance    int
	minFreq        int
	maxSuggestions int
}

// SpellCheckerOption is a functional option for configuring SpellChecker.
type SpellCheckerOption func(*SpellChecker)

// WithMaxDistance sets the maximum edit distance for suggestions.
func WithMaxDistance(d int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if d > 0 {
			s.maxDistance = d
		}
	}
}

// WithMinFrequency ignores dictionary terms seen in fewer than f sources.
func WithMinFrequency(f int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if f >= 0 {
			s.minFreq = f
		}
	}
}

// WithMaxSuggestions sets the maximum number of suggestions to return per term.
func WithMaxSuggestions(n int) SpellCheckerOption {
	return func(s *SpellChecker) {
		if n > 0 {
			s.maxSuggestions = n
		}
	}
}

// NewSpellChecker creates a new SpellChecker with the given dictionary.
func NewSpellChecker(dict TermDictionary, opts ...SpellCheckerOption) *SpellChecker {
	s := &SpellChecker{
		dictionary:     dict,
		maxDistance:    2,
		minFreq:        1,
		maxSuggestions: 5,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check looks up each query term and proposes corrections for unknown ones.
func (s *SpellChecker) Check(query string) (*SpellCheckResult, error) {
	terms, err := s.dictionary.Terms()
	if err != nil {
		return nil, err
	}

	result := &SpellCheckResult{
		OriginalQuery:   query,
		Suggestions:     make([]Suggestion, 0),
		MisspelledTerms: make([]string, 0),
	}
	queryTerms := tokenize.QueryTerms(query)
	corrected := make([]string, 0, len(queryTerms))
	for _, term := range queryTerms {
		if _, known := terms[term]; known || utf8.RuneCountInString(term) < MinCheckedTermLen {
			corrected = append(corrected, term)
			continue
		}
		suggestions := s.suggest(terms, term)
		if len(suggestions) == 0 {
			corrected = append(corrected, term)
			continue
		}
		result.HasCorrections = true
		result.MisspelledTerms = append(result.MisspelledTerms, term)
		result.Suggestions = append(result.Suggestions, suggestions...)
		corrected = append(corrected, suggestions[0].Term)
	}
	result.CorrectedQuery = strings.Join(corrected, " ")
	return result, nil
}

// Suggest returns spelling suggestions for a single term, best first.
func (s *SpellChecker) Suggest(term string) ([]Suggestion, error) {
	terms, err := s.dictionary.Terms()
	if err != nil {
		return nil, err
	}
	return s.suggest(terms, strings.ToLower(term)), nil
}

func (s *SpellChecker) suggest(terms map[string]int, term string) []Suggestion {
	termLen := utf8.RuneCountInString(term)
	suggestions := make([]Suggestion, 0)
	for dictTerm, freq := range terms {
		if dictTerm == term || freq < s.minFreq {
			continue
		}
		lenDiff := utf8.RuneCountInString(dictTerm) - termLen
		if lenDiff < 0 {
			lenDiff = -lenDiff
		}
		if lenDiff > s.maxDistance {
			continue
		}
		distance := DamerauLevenshteinDistance(term, dictTerm)
		if distance > s.maxDistance {
			continue
		}
		suggestions = append(suggestions, Suggestion{
			Term:      dictTerm,
			Distance:  distance,
			Frequency: freq,
			Score:     float64(freq) / float64(distance+1),
		})
	}

	sort.Slice(suggestions, func(i, j int) bool {
		if suggestions[i].Score != suggestions[j].Score {
			return suggestions[i].Score > suggestions[j].Score
		}
		return suggestions[i].Term < suggestions[j].Term
	})
	if len(suggestions) > s.maxSuggestions {
		suggestions = suggestions[:s.maxSuggestions]
	}
	return suggestions
}

// SuggestedQuery returns the corrected query, or "" when nothing was corrected.
func (s *SpellChecker) SuggestedQuery(query string) string {
	result, err := s.Check(query)
	if err != nil || !result.HasCorrections {
		return ""
	}
	return result.CorrectedQuery
}
