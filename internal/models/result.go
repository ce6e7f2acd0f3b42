package models

import "time"

// RankedResult is one source's best match for a query.
type RankedResult struct {
	SourceID   string     `json:"source_id"`
	SourceName string     `json:"source_name"`
	SourceType SourceKind `json:"source_type"`
	Relevance  float64    `json:"relevance"`
	Excerpt    string     `json:"excerpt"`
	Context    string     `json:"context,omitempty"`
}

// QueryResponse is the response for a notebook search.
type QueryResponse struct {
	Query   string          `json:"query"`
	Results []*RankedResult `json:"results"`
	Total   int             `json:"total"`
	// Suggestion is a "did you mean" rewrite of the query, set only when nothing matched.
	Suggestion string `json:"suggestion,omitempty"`
}

// Passage is a chunk-level semantic search hit.
type Passage struct {
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	ChunkIndex int     `json:"chunk_index"`
	Similarity float64 `json:"similarity"`
	Excerpt    string  `json:"excerpt"`
}

// Role is the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is an immutable entry in a notebook's chat log.
type ChatMessage struct {
	ID         string          `json:"id"`
	NotebookID string          `json:"notebook_id"`
	Role       Role            `json:"role"`
	Content    string          `json:"content"`
	Citations  []*RankedResult `json:"citations,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

// ChatResponse is the reply to a chat request.
type ChatResponse struct {
	Message    *ChatMessage    `json:"message"`
	Answer     string          `json:"answer"`
	Citations  []*RankedResult `json:"citations"`
	Generated  bool            `json:"generated"`
	Suggestion string          `json:"suggestion,omitempty"`
}
