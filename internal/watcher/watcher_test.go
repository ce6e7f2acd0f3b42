package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
	"github.com/BadakalaYashwanth/Scrible/internal/fileid"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
)

type call struct {
	op       string
	owner    string
	notebook string
	origin   string
	input    models.SourceInput
}

type recordingSink struct {
	mu      sync.Mutex
	calls   []call
	origins map[string]bool
}

func newSink() *recordingSink {
	return &recordingSink{origins: make(map[string]bool)}
}

func (s *recordingSink) AddSource(ctx context.Context, owner, nb string, in models.SourceInput) (*models.Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call{op: "add", owner: owner, notebook: nb, origin: in.OriginID, input: in})
	s.origins[in.OriginID] = true
	return &models.Source{ID: "src-" + in.Name, NotebookID: nb}, nil
}

func (s *recordingSink) DeleteSourceByOrigin(ctx context.Context, owner, nb, origin string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.origins[origin] {
		return apperr.New(apperr.NotFound, "delete source", "no source imported from %s", origin)
	}
	delete(s.origins, origin)
	s.calls = append(s.calls, call{op: "delete", owner: owner, notebook: nb, origin: origin})
	return nil
}

func (s *recordingSink) snapshot() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func (s *recordingSink) waitLast(t *testing.T, op string) []call {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if calls := s.snapshot(); len(calls) > 0 && calls[len(calls)-1].op == op {
			return calls
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s, got %+v", op, s.snapshot())
	return nil
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWatcher_Locate(t *testing.T) {
	w, err := New("/inbox", newSink())
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path     string
		owner    string
		notebook string
		ok       bool
	}{
		{"/inbox/alice/nb1/notes.txt", "alice", "nb1", true},
		{"/inbox/alice/notes.txt", "", "", false},
		{"/inbox/alice/nb1/sub/notes.txt", "", "", false},
		{"/inbox/alice/nb1/.hidden.txt", "", "", false},
		{"/elsewhere/alice/nb1/notes.txt", "", "", false},
	}
	for _, tt := range tests {
		owner, nb, ok := w.locate(tt.path)
		if ok != tt.ok || owner != tt.owner || nb != tt.notebook {
			t.Errorf("locate(%q) = %q, %q, %v", tt.path, owner, nb, ok)
		}
	}
}

func TestWatcher_Accepts(t *testing.T) {
	w, _ := New("/inbox", newSink(), WithExtensions([]string{"TXT", ".pdf"}))
	tests := map[string]bool{
		"a.txt":  true,
		"a.PDF":  true,
		"a.md":   false,
		"a.xlsx": false,
	}
	for name, want := range tests {
		if got := w.accepts(name); got != want {
			t.Errorf("accepts(%q) = %v, want %v", name, got, want)
		}
	}
	all, _ := New("/inbox", newSink())
	if !all.accepts("a.md") || all.accepts("a.exe") {
		t.Error("default extensions should follow the extractor")
	}
}

func TestWatcher_ImportReplacesEarlierVersion(t *testing.T) {
	root := t.TempDir()
	sink := newSink()
	w, err := New(root, sink)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(root, "alice", "nb1", "notes.md")
	writeFile(t, path, "first version")

	ctx := context.Background()
	if err := w.Import(ctx, path); err != nil {
		t.Fatal(err)
	}
	writeFile(t, path, "second version")
	if err := w.Import(ctx, path); err != nil {
		t.Fatal(err)
	}

	calls := sink.snapshot()
	if len(calls) != 3 || calls[0].op != "add" || calls[1].op != "delete" || calls[2].op != "add" {
		t.Fatalf("calls = %+v", calls)
	}
	want, _ := fileid.ForPath(root, path)
	if calls[2].origin != want || calls[2].owner != "alice" || calls[2].notebook != "nb1" {
		t.Errorf("add = %+v", calls[2])
	}
	if string(calls[2].input.Data) != "second version" || calls[2].input.Kind != models.KindTXT {
		t.Errorf("input = %q %s", calls[2].input.Data, calls[2].input.Kind)
	}
}

func TestWatcher_ImportLimits(t *testing.T) {
	root := t.TempDir()
	w, _ := New(root, newSink(), WithMaxBytes(4))
	big := filepath.Join(root, "alice", "nb1", "big.txt")
	writeFile(t, big, "too large")
	if err := w.Import(context.Background(), big); err == nil {
		t.Error("expected size error")
	}
	odd := filepath.Join(root, "alice", "nb1", "sheet.xlsx")
	writeFile(t, odd, "x")
	if err := w.Import(context.Background(), odd); err == nil {
		t.Error("expected unsupported type error")
	}
	if err := w.Import(context.Background(), filepath.Join(root, "top.txt")); err == nil {
		t.Error("expected layout error")
	}
}

func TestWatcher_Sync(t *testing.T) {
	root := t.TempDir()
	sink := newSink()
	w, _ := New(root, sink)
	writeFile(t, filepath.Join(root, "alice", "nb1", "a.txt"), "alpha")
	writeFile(t, filepath.Join(root, "bob", "nb2", "b.pdf"), "%PDF")
	writeFile(t, filepath.Join(root, "alice", "loose.txt"), "skip")
	writeFile(t, filepath.Join(root, "alice", "nb1", "deep", "c.txt"), "skip")
	writeFile(t, filepath.Join(root, "alice", "nb1", "image.png"), "skip")

	w.Sync(context.Background())
	calls := sink.snapshot()
	if len(calls) != 2 {
		t.Fatalf("calls = %+v", calls)
	}
	seen := map[string]string{}
	for _, c := range calls {
		seen[c.input.Name] = c.owner + "/" + c.notebook
	}
	if seen["a.txt"] != "alice/nb1" || seen["b.pdf"] != "bob/nb2" {
		t.Errorf("imports = %v", seen)
	}
}

func TestWatcher_WatchesInbox(t *testing.T) {
	root := t.TempDir()
	nbDir := filepath.Join(root, "alice", "nb1")
	if err := os.MkdirAll(nbDir, 0755); err != nil {
		t.Fatal(err)
	}
	sink := newSink()
	w, err := New(root, sink, WithDebounce(100*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(nbDir, "notes.txt")
	writeFile(t, path, "hello inbox")
	calls := sink.waitLast(t, "add")
	added := calls[len(calls)-1]
	if added.input.Name != "notes.txt" || added.owner != "alice" || string(added.input.Data) != "hello inbox" {
		t.Fatalf("add = %+v", added)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	calls = sink.waitLast(t, "delete")
	if calls[len(calls)-1].origin != added.origin {
		t.Errorf("calls = %+v", calls)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, _ := New(t.TempDir(), newSink())
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	w.Stop()
	w.Stop()
}
