package generate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/tokenize"
)

// MaxKeyPoints is the number of key points kept per source.
const MaxKeyPoints = 6

// MaxKeyInsights is the number of key insights kept per notebook.
const MaxKeyInsights = 5

var (
	documentKeyPoints = []string{
		"Document contains valuable information",
		"Content covers relevant topics",
		"Material provides insights for analysis",
		"Source contributes to research knowledge",
	}
	webKeyPoints = []string{
		"Web page content has been extracted",
		"Article covers relevant topics",
		"Online source provides current information",
		"Content available for research analysis",
	}
	videoKeyPoints = []string{
		"Video transcript has been processed",
		"Spoken content covers key topics",
		"Video provides visual learning material",
		"Transcript available for analysis",
	}
)

// DefaultKeyPoints returns the fixed key points for kind.
func DefaultKeyPoints(kind models.SourceKind) []string {
	var src []string
	switch kind {
	case models.KindURL:
		src = webKeyPoints
	case models.KindYouTube:
		src = videoKeyPoints
	default:
		src = documentKeyPoints
	}
	return append([]string(nil), src...)
}

// FallbackSummary describes a source by kind, title and length.
func FallbackSummary(kind models.SourceKind, title, content string) string {
	n := tokenize.WordCount(content)
	if title == "" {
		title = "Untitled"
	}
	switch {
	case n < 100:
		return fmt.Sprintf("Brief %s titled '%s' with %d words covering the main topic.", kind, title, n)
	case n < 1000:
		return fmt.Sprintf("Medium-length %s titled '%s' with %d words providing detailed information.", kind, title, n)
	default:
		return fmt.Sprintf("Comprehensive %s titled '%s' with %d words offering in-depth coverage.", kind, title, n)
	}
}

var stopWords = map[string]bool{
	"about": true, "after": true, "also": true, "been": true, "before": true, "being": true,
	"between": true, "both": true, "could": true, "does": true, "each": true, "from": true,
	"have": true, "having": true, "here": true, "into": true, "just": true, "more": true,
	"most": true, "much": true, "only": true, "other": true, "over": true, "same": true,
	"should": true, "some": true, "such": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true, "this": true,
	"those": true, "through": true, "under": true, "very": true, "were": true, "what": true,
	"when": true, "where": true, "which": true, "while": true, "will": true, "with": true,
	"would": true, "your": true,
}

var emphasisWords = []string{"important", "key", "significant", "crucial", "main"}

const (
	keyPointMinWords = 6
	frequentWords    = 10
)

// FallbackKeyPoints picks up to MaxKeyPoints sentences of content. Sentences of
// at least six words score one point per frequent content word they contain and
// two more when they use an emphasis word. When no sentence scores, the kind's
// default key points are returned.
func FallbackKeyPoints(kind models.SourceKind, content string) []string {
	top := topWords(content, frequentWords)

	type scored struct {
		text  string
		score int
		pos   int
	}
	candidates := make([]scored, 0)
	for i, sentence := range tokenize.Sentences(content) {
		words := tokenize.Words(sentence)
		if len(words) < keyPointMinWords {
			continue
		}
		present := make(map[string]bool, len(words))
		for _, w := range words {
			present[w] = true
		}
		score := 0
		for _, w := range top {
			if present[w] {
				score++
			}
		}
		for _, w := range emphasisWords {
			if present[w] {
				score += 2
				break
			}
		}
		if score > 0 {
			candidates = append(candidates, scored{text: sentence, score: score, pos: i})
		}
	}
	if len(candidates) == 0 {
		return DefaultKeyPoints(kind)
	}

	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].score > candidates[j].score })
	if len(candidates) > MaxKeyPoints {
		candidates = candidates[:MaxKeyPoints]
	}
	points := make([]string, len(candidates))
	for i, c := range candidates {
		points[i] = c.text + "."
	}
	return points
}

// topWords returns the n most frequent words longer than three runes that are
// not stop words. Ties keep first-seen order.
func topWords(content string, n int) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, w := range tokenize.Words(content) {
		if len([]rune(w)) <= 3 || stopWords[w] {
			continue
		}
		if counts[w] == 0 {
			order = append(order, w)
		}
		counts[w]++
	}
	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })
	if len(order) > n {
		order = order[:n]
	}
	return order
}

// FallbackNotebookSummary describes the ready sources by count, kind and length,
// with one insight per source.
func FallbackNotebookSummary(docs []Document) Digest {
	kinds := make(map[models.SourceKind]int)
	kindOrder := make([]models.SourceKind, 0)
	words := 0
	insights := make([]string, 0, MaxKeyInsights)
	for _, d := range docs {
		if kinds[d.Kind] == 0 {
			kindOrder = append(kindOrder, d.Kind)
		}
		kinds[d.Kind]++
		n := tokenize.WordCount(d.Content)
		words += n
		if len(insights) < MaxKeyInsights {
			insights = append(insights, fmt.Sprintf("'%s' (%s) contributes %d words", d.Title, d.Kind, n))
		}
	}
	parts := make([]string, len(kindOrder))
	for i, k := range kindOrder {
		parts[i] = fmt.Sprintf("%d %s", kinds[k], k)
	}
	noun := "sources"
	if len(docs) == 1 {
		noun = "source"
	}
	summary := fmt.Sprintf("This notebook contains %d ready %s (%s) totaling %d words.",
		len(docs), noun, strings.Join(parts, ", "), words)
	return Digest{Summary: summary, KeyPoints: insights}
}
