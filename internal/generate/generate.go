// Package generate talks to an external text generator for answers and
// summaries, and supplies the deterministic fallbacks used when none is
// configured or a call fails.
package generate

import (
	"context"
	"errors"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// ErrUnavailable is returned when no generator is configured.
var ErrUnavailable = errors.New("generator unavailable")

// DefaultMaxContentChars bounds the content sent in one generation request.
const DefaultMaxContentChars = 6000

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat turn sent to a generator.
type Message struct {
	Role    string
	Content string
}

// Generator produces a completion for a conversation.
type Generator interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// Document is a source's text as seen by the summarizer.
type Document struct {
	Kind    models.SourceKind
	Title   string
	Content string
}

// Digest is a summary plus key points. Generated is false when the fallback produced it.
type Digest struct {
	Summary   string
	KeyPoints []string
	Generated bool
}

// Budget clips content to maxChars runes, marking the cut.
func Budget(content string, maxChars int) string {
	if maxChars <= 0 {
		return content
	}
	clipped := utils.Clip(content, maxChars)
	if clipped != content {
		clipped += "... [content truncated]"
	}
	return clipped
}
