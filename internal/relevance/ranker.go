package relevance

import (
	"sort"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/tokenize"
)

const (
	// ChatLimit is the number of sources handed to the answer composer.
	ChatLimit = 5
	// SearchLimit is the number of sources returned by a notebook search.
	SearchLimit = 10
)

// Ranker scores every ready source of a notebook and keeps the best ones.
// It performs no I/O.
type Ranker struct {
	scorer *Scorer
}

// NewRanker returns a ranker backed by scorer; nil uses DefaultScorer.
func NewRanker(scorer *Scorer) *Ranker {
	if scorer == nil {
		scorer = DefaultScorer()
	}
	return &Ranker{scorer: scorer}
}

// Rank scores sources against query and returns at most k results sorted by
// relevance, highest first. Sources that are not ready or do not match are
// skipped. Equal relevance keeps the order of sources. A k of 0 or less keeps all.
func (r *Ranker) Rank(query string, sources []*models.Source, k int) []*models.RankedResult {
	return r.RankTerms(tokenize.QueryTerms(query), sources, k)
}

// RankTerms is Rank for already tokenized terms.
func (r *Ranker) RankTerms(terms []string, sources []*models.Source, k int) []*models.RankedResult {
	results := make([]*models.RankedResult, 0)
	if len(terms) == 0 {
		return results
	}
	for _, src := range sources {
		if !src.Ready() {
			continue
		}
		m, ok := r.scorer.Score(terms, src.Content)
		if !ok {
			continue
		}
		results = append(results, &models.RankedResult{
			SourceID:   src.ID,
			SourceName: src.Name,
			SourceType: src.Kind,
			Relevance:  m.Relevance,
			Excerpt:    m.Excerpt,
			Context:    m.Context,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Relevance > results[j].Relevance
	})
	return TopN(results, k)
}

// TopN returns the first n results. A n of 0 or less returns all of them.
func TopN(results []*models.RankedResult, n int) []*models.RankedResult {
	if n <= 0 || len(results) <= n {
		return results
	}
	return results[:n]
}
