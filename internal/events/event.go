// Package events fans ingestion and notebook changes out to live clients.
// Delivery is at most once: events for slow or disconnected clients are dropped.
package events

import (
	"time"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

// Type names what changed.
type Type string

const (
	SourceAdded        Type = "source.added"
	SourceStatus       Type = "source.status"
	SourceDeleted      Type = "source.deleted"
	NotebookSummarized Type = "notebook.summarized"
	NotebookDeleted    Type = "notebook.deleted"
	ChatMessage        Type = "chat.message"
)

// Event is one change within a notebook.
type Event struct {
	Type       Type                     `json:"type"`
	NotebookID string                   `json:"notebook_id"`
	SourceID   string                   `json:"source_id,omitempty"`
	Status     *models.ProcessingStatus `json:"status,omitempty"`
	Data       any                      `json:"data,omitempty"`
	At         time.Time                `json:"at"`
	// Origin is the instance that produced the event; relays use it to skip their own echoes.
	Origin string `json:"origin,omitempty"`
}

// Broadcaster accepts events without blocking the caller.
type Broadcaster interface {
	Broadcast(ev Event)
}

// Discard drops every event.
type Discard struct{}

// Broadcast implements Broadcaster.
func (Discard) Broadcast(Event) {}

// OrDiscard returns b, or Discard when b is nil.
func OrDiscard(b Broadcaster) Broadcaster {
	if b == nil {
		return Discard{}
	}
	return b
}
