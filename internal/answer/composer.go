// Package answer composes chat replies from ranked results.
package answer

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/generate"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// NoSourcesMessage is the reply for a notebook without sources.
const NoSourcesMessage = "This notebook has no sources yet. Upload a document, add a web page or a YouTube video, then ask your question again."

const (
	systemPrompt = "You are a helpful research assistant. Answer the user's question based on the provided context. Be accurate and cite your sources. If the context doesn't contain enough information, say so clearly."

	// DefaultHistoryTurns is how many recent turns are sent with a question.
	DefaultHistoryTurns = 6
	historyTurnChars    = 500
)

// Request is everything needed to answer one chat message.
type Request struct {
	Query string
	// SourceCount is the number of sources in the notebook, ready or not.
	SourceCount int
	Results     []*models.RankedResult
	History     []models.ChatTurn
}

// Answer is a composed reply.
type Answer struct {
	Text      string
	Citations []*models.RankedResult
	// Generated is true when the text came from the generator.
	Generated bool
}

// Composer builds answers, delegating to a generator when one is configured.
type Composer struct {
	gen          generate.Generator
	maxChars     int
	historyTurns int
	logger       *zap.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithMaxContextChars bounds the context block sent to the generator.
func WithMaxContextChars(n int) Option {
	return func(c *Composer) {
		if n > 0 {
			c.maxChars = n
		}
	}
}

// WithHistoryTurns sets how many recent turns accompany a question.
func WithHistoryTurns(n int) Option {
	return func(c *Composer) {
		if n >= 0 {
			c.historyTurns = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) { c.logger = utils.OrNop(l) }
}

// NewComposer returns a Composer. gen may be nil.
func NewComposer(gen generate.Generator, opts ...Option) *Composer {
	c := &Composer{
		gen:          gen,
		maxChars:     generate.DefaultMaxContentChars,
		historyTurns: DefaultHistoryTurns,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Compose answers req. It never fails: generator errors fall back to the
// deterministic listing of ranked results.
func (c *Composer) Compose(ctx context.Context, req Request) Answer {
	if req.SourceCount == 0 {
		return Answer{Text: NoSourcesMessage, Citations: []*models.RankedResult{}}
	}
	if len(req.Results) == 0 {
		return Answer{Text: NotFoundMessage(req.Query, req.SourceCount), Citations: []*models.RankedResult{}}
	}
	if c.gen != nil {
		text, err := c.gen.Generate(ctx, c.messages(req))
		if err == nil {
			return Answer{Text: text, Citations: req.Results, Generated: true}
		}
		c.logger.Warn("answer generation failed, using fallback", zap.Error(err))
	}
	return Answer{Text: FallbackAnswer(req.Query, req.Results), Citations: req.Results}
}

func (c *Composer) messages(req Request) []generate.Message {
	msgs := []generate.Message{{Role: generate.RoleSystem, Content: systemPrompt}}

	history := req.History
	if len(history) > c.historyTurns {
		history = history[len(history)-c.historyTurns:]
	}
	for _, turn := range history {
		role := generate.RoleUser
		if turn.Role == models.RoleAssistant {
			role = generate.RoleAssistant
		}
		msgs = append(msgs, generate.Message{Role: role, Content: utils.Truncate(turn.Content, historyTurnChars)})
	}

	blocks := make([]string, len(req.Results))
	for i, r := range req.Results {
		text := r.Context
		if text == "" {
			text = r.Excerpt
		}
		blocks[i] = fmt.Sprintf("Source: %s (%s)\n%s", r.SourceName, r.SourceType, text)
	}
	block := generate.Budget(strings.Join(blocks, "\n\n"), c.maxChars)
	msgs = append(msgs, generate.Message{
		Role:    generate.RoleUser,
		Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s\n\nPlease provide a comprehensive answer based on the context above.", block, req.Query),
	})
	return msgs
}

// NotFoundMessage is the reply when no source matches query.
func NotFoundMessage(query string, sourceCount int) string {
	noun := "sources"
	if sourceCount == 1 {
		noun = "source"
	}
	return fmt.Sprintf("I couldn't find information about %q in your %d %s. Try rephrasing your question or using different keywords.", query, sourceCount, noun)
}

// FallbackAnswer lists every ranked result with its match percentage and excerpt.
func FallbackAnswer(query string, results []*models.RankedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Based on your sources, here is what I found about %q:\n\n", query)
	for i, r := range results {
		pct := int(math.Round(r.Relevance * 100))
		fmt.Fprintf(&b, "%d. **%s** (%d%% match)\n%s\n\n", i+1, r.SourceName, pct, r.Excerpt)
	}
	return strings.TrimRight(b.String(), "\n")
}
