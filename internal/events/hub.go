package events

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// Defaults for hub clients.
const (
	DefaultClientBuffer = 16
	DefaultHeartbeat    = 15 * time.Second
)

// Client is one live connection subscribed to a notebook.
type Client struct {
	ID         string
	NotebookID string
	Outbound   chan Event
}

// Hub delivers events to the clients subscribed to each notebook.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]map[*Client]struct{}
	buffer    int
	heartbeat time.Duration
	logger    *zap.Logger
}

// HubOption configures a Hub.
type HubOption func(*Hub)

// WithLogger sets the hub's logger.
func WithLogger(l *zap.Logger) HubOption {
	return func(h *Hub) { h.logger = utils.OrNop(l) }
}

// WithClientBuffer sets the per-client outbound buffer size.
func WithClientBuffer(n int) HubOption {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// WithHeartbeat sets the interval of SSE keep-alive comments.
func WithHeartbeat(d time.Duration) HubOption {
	return func(h *Hub) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewHub returns an empty hub.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		clients:   make(map[string]map[*Client]struct{}),
		buffer:    DefaultClientBuffer,
		heartbeat: DefaultHeartbeat,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Subscribe registers a new client for notebookID.
func (h *Hub) Subscribe(notebookID string) *Client {
	c := &Client{
		ID:         uuid.New().String(),
		NotebookID: notebookID,
		Outbound:   make(chan Event, h.buffer),
	}
	h.mu.Lock()
	set, ok := h.clients[notebookID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[notebookID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("sse client subscribed", zap.String("client_id", c.ID), zap.String("notebook_id", notebookID))
	return c
}

// Unsubscribe removes c and closes its outbound channel. It is safe to call twice.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.NotebookID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.NotebookID)
	}
	close(c.Outbound)
}

// Broadcast implements Broadcaster. It never blocks.
func (h *Hub) Broadcast(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[ev.NotebookID] {
		select {
		case c.Outbound <- ev:
		default:
			h.logger.Warn("dropping event; client buffer full",
				zap.String("client_id", c.ID), zap.String("type", string(ev.Type)))
		}
	}
}

// ClientCount returns the number of clients subscribed to notebookID.
func (h *Hub) ClientCount(notebookID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[notebookID])
}

// ServeHTTP streams c's events as server-sent events until the request ends.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, c *Client) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case ev, ok := <-c.Outbound:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.logger.Warn("failed to marshal event", zap.Error(err))
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			flusher.Flush()
		}
	}
}
