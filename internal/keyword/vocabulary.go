package keyword

import (
	"context"
	"fmt"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// Fields indexed for every source.
const (
	fieldName    = "name"
	fieldContent = "content"
)

// Vocabulary holds one in-memory Bleve index per notebook. Only ready sources are
// indexed, so the term dictionary reflects what queries can actually match.
type Vocabulary struct {
	mu      sync.RWMutex
	indexes map[string]bleve.Index
	mapping mapping.IndexMapping
	logger  *zap.Logger
}

// NewVocabulary returns an empty vocabulary.
func NewVocabulary(logger *zap.Logger) *Vocabulary {
	return &Vocabulary{
		indexes: make(map[string]bleve.Index),
		mapping: newSourceMapping(),
		logger:  utils.OrNop(logger),
	}
}

// newSourceMapping uses the standard analyzer (lowercase, no stemming) so that
// dictionary terms are real words a user can be pointed to.
func newSourceMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	text.Store = false
	docMapping.AddFieldMappingsAt(fieldContent, text)
	docMapping.AddFieldMappingsAt(fieldName, text)
	im.DefaultMapping = docMapping
	return im
}

// index returns the notebook's index, or nil.
func (v *Vocabulary) index(notebookID string) bleve.Index {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.indexes[notebookID]
}

// IndexSource adds or replaces a source's text in its notebook's index.
func (v *Vocabulary) IndexSource(ctx context.Context, notebookID, sourceID, name, content string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx, ok := v.indexes[notebookID]
	if !ok {
		var err error
		idx, err = bleve.NewMemOnly(v.mapping)
		if err != nil {
			return fmt.Errorf("failed to create vocabulary index: %w", err)
		}
		v.indexes[notebookID] = idx
	}
	doc := map[string]interface{}{fieldName: name, fieldContent: content}
	if err := idx.Index(sourceID, doc); err != nil {
		return fmt.Errorf("failed to index source %s: %w", sourceID, err)
	}
	return nil
}

// RemoveSource drops a source from its notebook's index. An index left empty is
// closed, which also releases one recreated by a run that outlived its notebook.
func (v *Vocabulary) RemoveSource(ctx context.Context, notebookID, sourceID string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	idx, ok := v.indexes[notebookID]
	if !ok {
		return nil
	}
	if err := idx.Delete(sourceID); err != nil {
		return err
	}
	n, err := idx.DocCount()
	if err != nil || n > 0 {
		return err
	}
	delete(v.indexes, notebookID)
	return idx.Close()
}

// RemoveNotebook closes and forgets a notebook's index.
func (v *Vocabulary) RemoveNotebook(ctx context.Context, notebookID string) error {
	v.mu.Lock()
	idx, ok := v.indexes[notebookID]
	delete(v.indexes, notebookID)
	v.mu.Unlock()
	if !ok {
		return nil
	}
	return idx.Close()
}

// DocCount returns how many sources of the notebook are indexed.
func (v *Vocabulary) DocCount(notebookID string) (uint64, error) {
	idx := v.index(notebookID)
	if idx == nil {
		return 0, nil
	}
	return idx.DocCount()
}

// Dictionary returns the notebook's term dictionary.
func (v *Vocabulary) Dictionary(notebookID string) TermDictionary {
	return notebookDictionary{v: v, notebookID: notebookID}
}

// Suggest returns a corrected form of query built from the notebook's vocabulary,
// or "" when no correction applies.
func (v *Vocabulary) Suggest(ctx context.Context, notebookID, query string) string {
	suggestion := NewSpellChecker(v.Dictionary(notebookID)).SuggestedQuery(query)
	if suggestion != "" {
		v.logger.Debug("query suggestion",
			zap.String("notebook_id", notebookID),
			zap.String("query", query),
			zap.String("suggestion", suggestion))
	}
	return suggestion
}

// Close closes every notebook index.
func (v *Vocabulary) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	var firstErr error
	for id, idx := range v.indexes {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(v.indexes, id)
	}
	return firstErr
}

type notebookDictionary struct {
	v          *Vocabulary
	notebookID string
}

// Terms reads the name and content field dictionaries. A term's frequency is the
// number of sources containing it; a term in both fields keeps the larger count.
func (d notebookDictionary) Terms() (map[string]int, error) {
	terms := make(map[string]int)
	idx := d.v.index(d.notebookID)
	if idx == nil {
		return terms, nil
	}
	for _, field := range []string{fieldContent, fieldName} {
		dict, err := idx.FieldDict(field)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s dictionary: %w", field, err)
		}
		for {
			entry, err := dict.Next()
			if err != nil {
				_ = dict.Close()
				return nil, fmt.Errorf("failed to read %s dictionary: %w", field, err)
			}
			if entry == nil {
				break
			}
			if c := int(entry.Count); c > terms[entry.Term] {
				terms[entry.Term] = c
			}
		}
		if err := dict.Close(); err != nil {
			return nil, err
		}
	}
	return terms, nil
}
