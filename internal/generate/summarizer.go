package generate

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

const (
	summarySystemPrompt = "You are an expert research assistant. Provide a comprehensive but concise summary of the given content, highlighting key themes, main arguments, and important findings."
	keyPointsPrompt     = "Extract 4-6 key points from the given content. Each point should be a concise, important insight or finding. Return as a numbered list."
	notebookPrompt      = "You are an expert research assistant. Write an overall summary of the research sources below, connecting their common themes."
	insightsPrompt      = "Extract up to 5 key insights that span the research sources below. Return as a numbered list."
)

// Summarizer produces source and notebook digests. It delegates to a Generator
// when one is set and falls back to the deterministic digests on any failure.
type Summarizer struct {
	gen      Generator
	maxChars int
	logger   *zap.Logger
}

// SummarizerOption configures a Summarizer.
type SummarizerOption func(*Summarizer)

// WithMaxContentChars bounds the content sent per request.
func WithMaxContentChars(n int) SummarizerOption {
	return func(s *Summarizer) {
		if n > 0 {
			s.maxChars = n
		}
	}
}

// WithSummarizerLogger sets the logger used for swallowed generator errors.
func WithSummarizerLogger(l *zap.Logger) SummarizerOption {
	return func(s *Summarizer) { s.logger = utils.OrNop(l) }
}

// NewSummarizer returns a Summarizer. gen may be nil.
func NewSummarizer(gen Generator, opts ...SummarizerOption) *Summarizer {
	s := &Summarizer{gen: gen, maxChars: DefaultMaxContentChars, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SummarizeSource returns the summary and key points of one source.
func (s *Summarizer) SummarizeSource(ctx context.Context, doc Document) Digest {
	fallback := Digest{
		Summary:   FallbackSummary(doc.Kind, doc.Title, doc.Content),
		KeyPoints: FallbackKeyPoints(doc.Kind, doc.Content),
	}
	if s.gen == nil {
		return fallback
	}

	content := Budget(doc.Content, s.maxChars)
	summary, err := s.gen.Generate(ctx, []Message{
		{Role: RoleSystem, Content: summarySystemPrompt},
		{Role: RoleUser, Content: fmt.Sprintf("Please summarize this content:\n\nTitle: %s\nType: %s\n\nContent:\n%s", doc.Title, doc.Kind, content)},
	})
	if err != nil {
		s.logger.Warn("source summary generation failed, using fallback", zap.String("title", doc.Title), zap.Error(err))
		return fallback
	}
	digest := Digest{Summary: summary, KeyPoints: fallback.KeyPoints, Generated: true}

	raw, err := s.gen.Generate(ctx, []Message{
		{Role: RoleSystem, Content: keyPointsPrompt},
		{Role: RoleUser, Content: "Extract key points from:\n\n" + content},
	})
	if err != nil {
		s.logger.Warn("key point generation failed, using fallback", zap.String("title", doc.Title), zap.Error(err))
		return digest
	}
	if points := ParseList(raw, MaxKeyPoints); len(points) > 0 {
		digest.KeyPoints = points
	}
	return digest
}

// SummarizeNotebook returns the overall summary and key insights of docs.
func (s *Summarizer) SummarizeNotebook(ctx context.Context, docs []Document) Digest {
	fallback := FallbackNotebookSummary(docs)
	if s.gen == nil {
		return fallback
	}

	var b strings.Builder
	for _, d := range docs {
		fmt.Fprintf(&b, "Source: %s (%s)\n%s\n\n", d.Title, d.Kind, d.Content)
	}
	content := Budget(b.String(), s.maxChars)

	summary, err := s.gen.Generate(ctx, []Message{
		{Role: RoleSystem, Content: notebookPrompt},
		{Role: RoleUser, Content: content},
	})
	if err != nil {
		s.logger.Warn("notebook summary generation failed, using fallback", zap.Int("sources", len(docs)), zap.Error(err))
		return fallback
	}
	digest := Digest{Summary: summary, KeyPoints: fallback.KeyPoints, Generated: true}

	raw, err := s.gen.Generate(ctx, []Message{
		{Role: RoleSystem, Content: insightsPrompt},
		{Role: RoleUser, Content: content},
	})
	if err != nil {
		s.logger.Warn("key insight generation failed, using fallback", zap.Error(err))
		return digest
	}
	if insights := ParseList(raw, MaxKeyInsights); len(insights) > 0 {
		digest.KeyPoints = insights
	}
	return digest
}

// ParseList reads a numbered or bulleted list, one item per line, and strips
// the markers. Lines without a marker are ignored.
func ParseList(text string, max int) []string {
	items := make([]string, 0)
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		var item string
		switch {
		case unicode.IsDigit([]rune(line)[0]):
			item = strings.TrimLeftFunc(line, unicode.IsDigit)
			item = strings.TrimLeft(item, ".):")
		case strings.HasPrefix(line, "-"), strings.HasPrefix(line, "*"), strings.HasPrefix(line, "•"):
			item = strings.TrimLeft(line, "-*•")
		default:
			continue
		}
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
		if max > 0 && len(items) == max {
			break
		}
	}
	return items
}
