// Package notebook is the application core: notebook and source management,
// search, chat and summarization on top of the store and the ingestion scheduler.
package notebook

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/answer"
	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
	"github.com/BadakalaYashwanth/Scrible/internal/embedding"
	"github.com/BadakalaYashwanth/Scrible/internal/events"
	"github.com/BadakalaYashwanth/Scrible/internal/generate"
	"github.com/BadakalaYashwanth/Scrible/internal/ingest"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/relevance"
	"github.com/BadakalaYashwanth/Scrible/internal/storage"
	"github.com/BadakalaYashwanth/Scrible/internal/vector"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// Vocabulary suggests spelling corrections from a notebook's indexed sources.
type Vocabulary interface {
	Suggest(ctx context.Context, notebookID, query string) string
	RemoveSource(ctx context.Context, notebookID, sourceID string) error
	RemoveNotebook(ctx context.Context, notebookID string) error
}

// NotebookSummarizer produces a notebook's overall summary and key insights.
type NotebookSummarizer interface {
	SummarizeNotebook(ctx context.Context, docs []generate.Document) generate.Digest
}

// View is a notebook with its sources and freshly counted readiness.
type View struct {
	*models.Notebook
	models.Readiness
}

// Service implements the notebook operations. Writes to one notebook are
// serialized by the lock set shared with the ingestion pipeline.
type Service struct {
	store      storage.Store
	scheduler  *ingest.Scheduler
	locks      *ingest.Locks
	ranker     *relevance.Ranker
	composer   *answer.Composer
	summarizer NotebookSummarizer
	vocab      Vocabulary
	embedder   embedding.Embedder
	index      vector.Index
	events     events.Broadcaster
	logger     *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRanker sets the source ranker.
func WithRanker(r *relevance.Ranker) Option {
	return func(s *Service) {
		if r != nil {
			s.ranker = r
		}
	}
}

// WithComposer sets the chat answer composer.
func WithComposer(c *answer.Composer) Option {
	return func(s *Service) {
		if c != nil {
			s.composer = c
		}
	}
}

// WithSummarizer sets the notebook summarizer.
func WithSummarizer(sum NotebookSummarizer) Option {
	return func(s *Service) {
		if sum != nil {
			s.summarizer = sum
		}
	}
}

// WithVocabulary enables "did you mean" suggestions and keeps the vocabulary in step with deletions.
func WithVocabulary(v Vocabulary) Option {
	return func(s *Service) { s.vocab = v }
}

// WithEmbeddings enables semantic passage search over index.
func WithEmbeddings(e embedding.Embedder, index vector.Index) Option {
	return func(s *Service) {
		s.embedder = e
		s.index = index
	}
}

// WithBroadcaster publishes notebook and source changes.
func WithBroadcaster(b events.Broadcaster) Option {
	return func(s *Service) { s.events = events.OrDiscard(b) }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = utils.OrNop(l) }
}

// NewService returns a Service. New sources are queued on scheduler.
func NewService(store storage.Store, scheduler *ingest.Scheduler, opts ...Option) *Service {
	s := &Service{
		store:      store,
		scheduler:  scheduler,
		locks:      scheduler.Locks(),
		ranker:     relevance.NewRanker(nil),
		composer:   answer.NewComposer(nil),
		summarizer: generate.NewSummarizer(nil),
		events:     events.Discard{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// notebook loads a notebook owned by ownerID.
func (s *Service) notebook(ctx context.Context, op, ownerID, id string) (*models.Notebook, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.Unauthorized, op, "missing user identity")
	}
	nb, err := s.store.GetNotebook(ctx, id, ownerID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, op, "notebook not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	return nb, nil
}

func (s *Service) sources(ctx context.Context, op, notebookID string) ([]*models.Source, error) {
	srcs, err := s.store.ListSources(ctx, notebookID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, op, err)
	}
	return srcs, nil
}

// Readiness counts the completed and total sources. It is recomputed on every call.
func Readiness(sources []*models.Source) models.Readiness {
	r := models.Readiness{Total: len(sources)}
	for _, src := range sources {
		if src.Ready() {
			r.Ready++
		}
	}
	return r
}

// CreateNotebook creates a notebook owned by ownerID.
func (s *Service) CreateNotebook(ctx context.Context, ownerID string, in models.NotebookInput) (*View, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "create notebook", "missing user identity")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.New(apperr.InvalidInput, "create notebook", "name cannot be empty")
	}
	nb := &models.Notebook{ID: uuid.New().String(), OwnerID: ownerID, Name: name}
	if in.Description != nil {
		nb.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.store.CreateNotebook(ctx, nb); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create notebook", err)
	}
	s.logger.Info("notebook created", zap.String("notebook_id", nb.ID), zap.String("owner_id", ownerID))
	return &View{Notebook: nb}, nil
}

// ListNotebooks returns ownerID's notebooks with their readiness, without sources.
func (s *Service) ListNotebooks(ctx context.Context, ownerID string) ([]*View, error) {
	if ownerID == "" {
		return nil, apperr.New(apperr.Unauthorized, "list notebooks", "missing user identity")
	}
	nbs, err := s.store.ListNotebooks(ctx, ownerID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "list notebooks", err)
	}
	views := make([]*View, 0, len(nbs))
	for _, nb := range nbs {
		srcs, err := s.sources(ctx, "list notebooks", nb.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, &View{Notebook: nb, Readiness: Readiness(srcs)})
	}
	return views, nil
}

// GetNotebook returns the notebook with its sources in insertion order.
func (s *Service) GetNotebook(ctx context.Context, ownerID, id string) (*View, error) {
	nb, err := s.notebook(ctx, "get notebook", ownerID, id)
	if err != nil {
		return nil, err
	}
	srcs, err := s.sources(ctx, "get notebook", id)
	if err != nil {
		return nil, err
	}
	nb.Sources = srcs
	return &View{Notebook: nb, Readiness: Readiness(srcs)}, nil
}

// UpdateNotebook changes the name and description. Empty fields keep their value.
func (s *Service) UpdateNotebook(ctx context.Context, ownerID, id string, in models.NotebookInput) (*View, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	nb, err := s.notebook(ctx, "update notebook", ownerID, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		nb.Name = name
	}
	if in.Description != nil {
		nb.Description = strings.TrimSpace(*in.Description)
	}
	if err := s.store.UpdateNotebook(ctx, nb); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "update notebook", err)
	}
	srcs, err := s.sources(ctx, "update notebook", id)
	if err != nil {
		return nil, err
	}
	return &View{Notebook: nb, Readiness: Readiness(srcs)}, nil
}

// DeleteNotebook removes the notebook with its sources, chat log, vectors and vocabulary.
func (s *Service) DeleteNotebook(ctx context.Context, ownerID, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.notebook(ctx, "delete notebook", ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteNotebook(ctx, id, ownerID); err != nil {
		return apperr.Wrap(apperr.Internal, "delete notebook", err)
	}
	if s.index != nil {
		if err := s.index.RemoveNotebook(ctx, id); err != nil {
			s.logger.Warn("failed to remove notebook vectors", zap.String("notebook_id", id), zap.Error(err))
		}
	}
	if s.vocab != nil {
		if err := s.vocab.RemoveNotebook(ctx, id); err != nil {
			s.logger.Warn("failed to remove notebook vocabulary", zap.String("notebook_id", id), zap.Error(err))
		}
	}
	s.events.Broadcast(events.Event{Type: events.NotebookDeleted, NotebookID: id, At: time.Now()})
	s.logger.Info("notebook deleted", zap.String("notebook_id", id))
	return nil
}

// Stats returns store-wide counts.
func (s *Service) Stats(ctx context.Context) (*storage.Stats, error) {
	st, err := s.store.Stats(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "stats", err)
	}
	return st, nil
}
