package ingest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Chunk is a window of a source's content.
type Chunk struct {
	ID    string
	Index int
	Text  string
}

// Chunker splits text into overlapping word-based chunks.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker creates a chunker with the given size and overlap (in words).
func NewChunker(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// Chunk splits text into windows of chunkSize words, each starting
// chunkSize-chunkOverlap words after the previous one.
func (c *Chunker) Chunk(sourceID, text string) []Chunk {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	step := c.chunkSize - c.chunkOverlap
	if step <= 0 {
		step = 1
	}
	chunks := make([]Chunk, 0, len(words)/step+1)
	for i := 0; i < len(words); i += step {
		end := min(i+c.chunkSize, len(words))
		chunks = append(chunks, Chunk{
			ID:    fmt.Sprintf("%s_%s", sourceID, uuid.New().String()[:8]),
			Index: len(chunks),
			Text:  strings.Join(words[i:end], " "),
		})
		if end >= len(words) {
			break
		}
	}
	return chunks
}
