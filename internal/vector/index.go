// Package vector stores chunk embeddings and answers nearest-passage queries
// scoped to a notebook.
package vector

import "context"

// Entry is one embedded chunk of a source.
type Entry struct {
	ID         string
	NotebookID string
	SourceID   string
	ChunkIndex int
	Text       string
	Vector     []float32
}

// Hit is a search result. Score is the inner product, which equals cosine
// similarity for normalized vectors.
type Hit struct {
	Entry
	Score float64
}

// Index defines chunk vector storage and similarity search.
type Index interface {
	// ReplaceSource drops every entry of the source and stores entries in its place.
	ReplaceSource(ctx context.Context, notebookID, sourceID string, entries []Entry) error
	RemoveSource(ctx context.Context, notebookID, sourceID string) error
	RemoveNotebook(ctx context.Context, notebookID string) error
	Search(ctx context.Context, notebookID string, query []float32, k int) ([]Hit, error)
	Save(path string) error
	Load(path string) error
	Size() int
	Close() error
}
