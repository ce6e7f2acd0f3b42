package vector

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// MemoryIndex is an in-memory vector index using brute-force inner product search.
type MemoryIndex struct {
	dimensions int
	entries    []Entry
	mu         sync.RWMutex
}

// NewMemoryIndex creates an in-memory vector index with the given dimension.
func NewMemoryIndex(dimensions int) (*MemoryIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &MemoryIndex{dimensions: dimensions}, nil
}

// ReplaceSource swaps the stored chunks of one source.
func (m *MemoryIndex) ReplaceSource(ctx context.Context, notebookID, sourceID string, entries []Entry) error {
	for i := range entries {
		if len(entries[i].Vector) != m.dimensions {
			return fmt.Errorf("vector dimension mismatch: got %d, expected %d", len(entries[i].Vector), m.dimensions)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter(func(e *Entry) bool { return e.NotebookID == notebookID && e.SourceID == sourceID })
	for _, e := range entries {
		e.NotebookID, e.SourceID = notebookID, sourceID
		e.Vector = append([]float32(nil), e.Vector...)
		m.entries = append(m.entries, e)
	}
	return nil
}

// RemoveSource drops the chunks of one source.
func (m *MemoryIndex) RemoveSource(ctx context.Context, notebookID, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter(func(e *Entry) bool { return e.NotebookID == notebookID && e.SourceID == sourceID })
	return nil
}

// RemoveNotebook drops every chunk of a notebook.
func (m *MemoryIndex) RemoveNotebook(ctx context.Context, notebookID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.filter(func(e *Entry) bool { return e.NotebookID == notebookID })
	return nil
}

// filter removes entries matching drop. Callers hold the write lock.
func (m *MemoryIndex) filter(drop func(*Entry) bool) {
	kept := m.entries[:0]
	for i := range m.entries {
		if !drop(&m.entries[i]) {
			kept = append(kept, m.entries[i])
		}
	}
	for i := len(kept); i < len(m.entries); i++ {
		m.entries[i] = Entry{}
	}
	m.entries = kept
}

// Search returns the top-k chunks of notebookID by inner product, best first.
func (m *MemoryIndex) Search(ctx context.Context, notebookID string, query []float32, k int) ([]Hit, error) {
	if len(query) != m.dimensions {
		return nil, fmt.Errorf("query dimension mismatch: got %d, expected %d", len(query), m.dimensions)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	hits := make([]Hit, 0)
	if k <= 0 {
		return hits, nil
	}
	for _, e := range m.entries {
		if e.NotebookID != notebookID {
			continue
		}
		hits = append(hits, Hit{Entry: e, Score: utils.Dot(query, e.Vector)})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Save persists the index to path. The directory is created if needed. Format:
// dimension (4), n (4), then per entry the strings id, notebook, source and text
// (each as length (4) + bytes), chunk index (4) and vector (dimension*4 bytes).
func (m *MemoryIndex) Save(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	if err := binary.Write(w, binary.LittleEndian, uint32(m.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(m.entries))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, e := range m.entries {
		for _, s := range []string{e.ID, e.NotebookID, e.SourceID, e.Text} {
			if err := writeString(w, s); err != nil {
				return err
			}
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(e.ChunkIndex)); err != nil {
			return fmt.Errorf("write chunk index: %w", err)
		}
		if _, err := w.Write(float32SliceToBytes(e.Vector)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return w.Flush()
}

// Load reads the index from path and replaces the in-memory contents. Dimensions must match.
// If the file does not exist, no error is returned and the index is unchanged.
func (m *MemoryIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return fmt.Errorf("read dimensions: %w", err)
	}
	if int(dim) != m.dimensions {
		return fmt.Errorf("dimension mismatch: file has %d, index expects %d", dim, m.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return fmt.Errorf("read count: %w", err)
	}
	entries := make([]Entry, 0, n)
	buf := make([]byte, m.dimensions*4)
	for i := uint32(0); i < n; i++ {
		var fields [4]string
		for j := range fields {
			if fields[j], err = readString(r); err != nil {
				return err
			}
		}
		var chunk uint32
		if err := binary.Read(r, binary.LittleEndian, &chunk); err != nil {
			return fmt.Errorf("read chunk index: %w", err)
		}
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("read vector: %w", err)
		}
		entries = append(entries, Entry{
			ID: fields[0], NotebookID: fields[1], SourceID: fields[2], Text: fields[3],
			ChunkIndex: int(chunk), Vector: bytesToFloat32Slice(buf),
		})
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func writeString(w io.Writer, s string) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
		return fmt.Errorf("write string len: %w", err)
	}
	if _, err := io.WriteString(w, s); err != nil {
		return fmt.Errorf("write string: %w", err)
	}
	return nil
}

func readString(r io.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", fmt.Errorf("read string len: %w", err)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read string: %w", err)
	}
	return string(b), nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of stored chunks.
func (m *MemoryIndex) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Close is a no-op for MemoryIndex.
func (m *MemoryIndex) Close() error {
	return nil
}
