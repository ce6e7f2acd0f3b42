// Package storage defines the persistence interface for notebooks, sources,
// and chat messages, with in-memory and SQLite implementations.
package storage

import (
	"context"
	"errors"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

// ErrNotFound is returned (wrapped) when a notebook, source, or owner pair does not exist.
var ErrNotFound = errors.New("not found")

// Store persists notebooks, their sources, and chat logs.
//
// Reads return copies; mutating a returned value never affects stored state.
// UpdateSource replaces the whole source record in one step, so readers never
// observe a status change without the content written alongside it.
type Store interface {
	// Notebook operations, keyed by (id, ownerID).
	CreateNotebook(ctx context.Context, nb *models.Notebook) error
	GetNotebook(ctx context.Context, id, ownerID string) (*models.Notebook, error)
	ListNotebooks(ctx context.Context, ownerID string) ([]*models.Notebook, error)
	UpdateNotebook(ctx context.Context, nb *models.Notebook) error
	// DeleteNotebook removes the notebook with all of its sources and chat messages.
	DeleteNotebook(ctx context.Context, id, ownerID string) error

	// Source operations. ListSources returns sources in insertion order.
	CreateSource(ctx context.Context, src *models.Source) error
	GetSource(ctx context.Context, notebookID, sourceID string) (*models.Source, error)
	ListSources(ctx context.Context, notebookID string) ([]*models.Source, error)
	UpdateSource(ctx context.Context, src *models.Source) error
	DeleteSource(ctx context.Context, notebookID, sourceID string) error
	FindSourceByOrigin(ctx context.Context, notebookID, originID string) (*models.Source, error)

	// Chat log. ListChatMessages returns the newest limit messages, oldest first.
	AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error
	ListChatMessages(ctx context.Context, notebookID string, limit int) ([]*models.ChatMessage, error)

	Stats(ctx context.Context) (*Stats, error)

	Close() error
}

// Stats are store-wide counts reported by the status endpoint.
type Stats struct {
	Notebooks    int64 `json:"notebooks"`
	Sources      int64 `json:"sources"`
	ReadySources int64 `json:"ready_sources"`
	ChatMessages int64 `json:"chat_messages"`
}
