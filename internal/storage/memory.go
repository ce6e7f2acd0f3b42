package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

// MemoryStore implements Store with maps guarded by a single RWMutex.
type MemoryStore struct {
	mu        sync.RWMutex
	notebooks map[string]*models.Notebook
	sources   map[string]*models.Source
	// order holds each notebook's source IDs in insertion order.
	order map[string][]string
	chat  map[string][]*models.ChatMessage
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		notebooks: make(map[string]*models.Notebook),
		sources:   make(map[string]*models.Source),
		order:     make(map[string][]string),
		chat:      make(map[string][]*models.ChatMessage),
	}
}

// CreateNotebook stores nb and sets its timestamps.
func (m *MemoryStore) CreateNotebook(ctx context.Context, nb *models.Notebook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.notebooks[nb.ID]; exists {
		return fmt.Errorf("notebook %s already exists", nb.ID)
	}
	now := time.Now()
	nb.CreatedAt, nb.UpdatedAt = now, now
	m.notebooks[nb.ID] = nb.Clone()
	return nil
}

// GetNotebook returns the notebook when it exists and belongs to ownerID.
func (m *MemoryStore) GetNotebook(ctx context.Context, id, ownerID string) (*models.Notebook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	nb, ok := m.notebooks[id]
	if !ok || nb.OwnerID != ownerID {
		return nil, fmt.Errorf("notebook %s: %w", id, ErrNotFound)
	}
	return nb.Clone(), nil
}

// ListNotebooks returns ownerID's notebooks, newest first.
func (m *MemoryStore) ListNotebooks(ctx context.Context, ownerID string) ([]*models.Notebook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*models.Notebook, 0)
	for _, nb := range m.notebooks {
		if nb.OwnerID == ownerID {
			out = append(out, nb.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateNotebook replaces the stored notebook fields.
func (m *MemoryStore) UpdateNotebook(ctx context.Context, nb *models.Notebook) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.notebooks[nb.ID]
	if !ok || cur.OwnerID != nb.OwnerID {
		return fmt.Errorf("notebook %s: %w", nb.ID, ErrNotFound)
	}
	nb.CreatedAt = cur.CreatedAt
	nb.UpdatedAt = time.Now()
	m.notebooks[nb.ID] = nb.Clone()
	return nil
}

// DeleteNotebook removes the notebook, its sources, and its chat log.
func (m *MemoryStore) DeleteNotebook(ctx context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	nb, ok := m.notebooks[id]
	if !ok || nb.OwnerID != ownerID {
		return fmt.Errorf("notebook %s: %w", id, ErrNotFound)
	}
	for _, sid := range m.order[id] {
		delete(m.sources, sid)
	}
	delete(m.order, id)
	delete(m.chat, id)
	delete(m.notebooks, id)
	return nil
}

// CreateSource appends src to its notebook.
func (m *MemoryStore) CreateSource(ctx context.Context, src *models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notebooks[src.NotebookID]; !ok {
		return fmt.Errorf("notebook %s: %w", src.NotebookID, ErrNotFound)
	}
	if _, exists := m.sources[src.ID]; exists {
		return fmt.Errorf("source %s already exists", src.ID)
	}
	now := time.Now()
	src.CreatedAt, src.UpdatedAt = now, now
	m.sources[src.ID] = src.Clone()
	m.order[src.NotebookID] = append(m.order[src.NotebookID], src.ID)
	return nil
}

// GetSource returns a source of notebookID.
func (m *MemoryStore) GetSource(ctx context.Context, notebookID, sourceID string) (*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	src, ok := m.sources[sourceID]
	if !ok || src.NotebookID != notebookID {
		return nil, fmt.Errorf("source %s: %w", sourceID, ErrNotFound)
	}
	return src.Clone(), nil
}

// ListSources returns notebookID's sources in insertion order.
func (m *MemoryStore) ListSources(ctx context.Context, notebookID string) ([]*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := m.order[notebookID]
	out := make([]*models.Source, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.sources[id].Clone())
	}
	return out, nil
}

// UpdateSource replaces the stored source record.
func (m *MemoryStore) UpdateSource(ctx context.Context, src *models.Source) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sources[src.ID]
	if !ok || cur.NotebookID != src.NotebookID {
		return fmt.Errorf("source %s: %w", src.ID, ErrNotFound)
	}
	src.CreatedAt = cur.CreatedAt
	src.UpdatedAt = time.Now()
	m.sources[src.ID] = src.Clone()
	return nil
}

// DeleteSource removes a source from its notebook.
func (m *MemoryStore) DeleteSource(ctx context.Context, notebookID, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, ok := m.sources[sourceID]
	if !ok || src.NotebookID != notebookID {
		return fmt.Errorf("source %s: %w", sourceID, ErrNotFound)
	}
	delete(m.sources, sourceID)
	ids := m.order[notebookID]
	kept := ids[:0]
	for _, id := range ids {
		if id != sourceID {
			kept = append(kept, id)
		}
	}
	m.order[notebookID] = kept
	return nil
}

// FindSourceByOrigin returns the source of notebookID imported from originID.
func (m *MemoryStore) FindSourceByOrigin(ctx context.Context, notebookID, originID string) (*models.Source, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order[notebookID] {
		if src := m.sources[id]; src.OriginID == originID && originID != "" {
			return src.Clone(), nil
		}
	}
	return nil, fmt.Errorf("source with origin %s: %w", originID, ErrNotFound)
}

// AppendChatMessage appends msg to its notebook's chat log.
func (m *MemoryStore) AppendChatMessage(ctx context.Context, msg *models.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.notebooks[msg.NotebookID]; !ok {
		return fmt.Errorf("notebook %s: %w", msg.NotebookID, ErrNotFound)
	}
	c := *msg
	c.Citations = append([]*models.RankedResult(nil), msg.Citations...)
	m.chat[msg.NotebookID] = append(m.chat[msg.NotebookID], &c)
	return nil
}

// ListChatMessages returns the newest limit messages, oldest first. A limit of 0 or less returns all.
func (m *MemoryStore) ListChatMessages(ctx context.Context, notebookID string, limit int) ([]*models.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	log := m.chat[notebookID]
	if limit > 0 && len(log) > limit {
		log = log[len(log)-limit:]
	}
	out := make([]*models.ChatMessage, len(log))
	for i, msg := range log {
		c := *msg
		out[i] = &c
	}
	return out, nil
}

// Stats returns store-wide counts.
func (m *MemoryStore) Stats(ctx context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st := &Stats{Notebooks: int64(len(m.notebooks)), Sources: int64(len(m.sources))}
	for _, src := range m.sources {
		if src.Status.Stage == models.StageCompleted {
			st.ReadySources++
		}
	}
	for _, log := range m.chat {
		st.ChatMessages += int64(len(log))
	}
	return st, nil
}

// Close is a no-op for MemoryStore.
func (m *MemoryStore) Close() error {
	return nil
}
