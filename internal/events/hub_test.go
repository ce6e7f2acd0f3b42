package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	return Event{}
}

func TestHub_BroadcastByNotebook(t *testing.T) {
	h := NewHub(WithLogger(zap.NewNop()))
	a := h.Subscribe("nb1")
	b := h.Subscribe("nb2")

	h.Broadcast(Event{Type: SourceStatus, NotebookID: "nb1", SourceID: "s1"})

	ev := recv(t, a.Outbound)
	if ev.SourceID != "s1" || ev.At.IsZero() {
		t.Errorf("event = %+v", ev)
	}
	select {
	case ev := <-b.Outbound:
		t.Errorf("nb2 client received %+v", ev)
	default:
	}
}

func TestHub_DropsWhenBufferFull(t *testing.T) {
	h := NewHub(WithClientBuffer(1))
	c := h.Subscribe("nb")
	h.Broadcast(Event{Type: SourceStatus, NotebookID: "nb", SourceID: "first"})
	h.Broadcast(Event{Type: SourceStatus, NotebookID: "nb", SourceID: "second"})

	if ev := recv(t, c.Outbound); ev.SourceID != "first" {
		t.Errorf("got %q, want first", ev.SourceID)
	}
	select {
	case ev := <-c.Outbound:
		t.Errorf("expected dropped event, got %+v", ev)
	default:
	}
}

func TestHub_Unsubscribe(t *testing.T) {
	h := NewHub()
	c := h.Subscribe("nb")
	if h.ClientCount("nb") != 1 {
		t.Fatalf("ClientCount = %d", h.ClientCount("nb"))
	}
	h.Unsubscribe(c)
	h.Unsubscribe(c)
	if h.ClientCount("nb") != 0 {
		t.Errorf("ClientCount after unsubscribe = %d", h.ClientCount("nb"))
	}
	if _, ok := <-c.Outbound; ok {
		t.Error("outbound should be closed")
	}
	h.Broadcast(Event{Type: SourceStatus, NotebookID: "nb"})
}

func TestHub_ServeHTTP(t *testing.T) {
	h := NewHub()
	c := h.Subscribe("nb")
	h.Broadcast(Event{
		Type:       SourceStatus,
		NotebookID: "nb",
		SourceID:   "s1",
		Status:     &models.ProcessingStatus{Stage: models.StageChunking, Progress: 40},
	})
	h.Unsubscribe(c)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/events", nil), c)

	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "event: source.status\n") {
		t.Errorf("missing event line in %q", body)
	}
	if !strings.Contains(body, `"stage":"chunking"`) || !strings.Contains(body, `"progress":40`) {
		t.Errorf("missing status in %q", body)
	}
}

func TestOrDiscard(t *testing.T) {
	if _, ok := OrDiscard(nil).(Discard); !ok {
		t.Error("OrDiscard(nil) should be Discard")
	}
	h := NewHub()
	if OrDiscard(h) != Broadcaster(h) {
		t.Error("OrDiscard should return non-nil broadcaster")
	}
}
