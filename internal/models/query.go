package models

import (
	"strings"

	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
)

// QueryRequest asks for ranked passages from one notebook.
type QueryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Validate trims the query and rejects it when empty.
func (q *QueryRequest) Validate() error {
	q.Query = strings.TrimSpace(q.Query)
	if q.Query == "" {
		return apperr.New(apperr.InvalidInput, "query", "query cannot be empty")
	}
	if q.Limit < 0 {
		q.Limit = 0
	}
	return nil
}

// ChatTurn is one prior exchange supplied by the client as conversation context.
type ChatTurn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is a chat message against a notebook.
type ChatRequest struct {
	Message string     `json:"message"`
	History []ChatTurn `json:"history,omitempty"`
}

// Validate trims the message and rejects it when empty.
func (c *ChatRequest) Validate() error {
	c.Message = strings.TrimSpace(c.Message)
	if c.Message == "" {
		return apperr.New(apperr.InvalidInput, "chat", "message cannot be empty")
	}
	return nil
}
