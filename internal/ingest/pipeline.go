package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
	"github.com/BadakalaYashwanth/Scrible/internal/embedding"
	"github.com/BadakalaYashwanth/Scrible/internal/events"
	"github.com/BadakalaYashwanth/Scrible/internal/extract"
	"github.com/BadakalaYashwanth/Scrible/internal/generate"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/storage"
	"github.com/BadakalaYashwanth/Scrible/internal/vector"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// Extractor turns raw source input into text.
type Extractor interface {
	Extract(ctx context.Context, in models.SourceInput) (*extract.Result, error)
}

// SourceSummarizer derives a source's summary and key points.
type SourceSummarizer interface {
	SummarizeSource(ctx context.Context, doc generate.Document) generate.Digest
}

// Vocabulary indexes the terms of completed sources.
type Vocabulary interface {
	IndexSource(ctx context.Context, notebookID, sourceID, name, content string) error
	RemoveSource(ctx context.Context, notebookID, sourceID string) error
}

// Job is one ingestion run of a source.
type Job struct {
	NotebookID string
	SourceID   string
	// Run is the source's run generation when the job was created.
	Run   int
	Input models.SourceInput
	// Reprocess marks runs started by Reset; only those consult the outcome source.
	Reprocess bool
}

// Pipeline runs jobs through the stage plan.
type Pipeline struct {
	store      storage.Store
	extractor  Extractor
	locks      *Locks
	chunker    *Chunker
	embedder   embedding.Embedder
	index      vector.Index
	vocab      Vocabulary
	summarizer SourceSummarizer
	outcomes   OutcomeSource
	events     events.Broadcaster
	delay      time.Duration
	logger     *zap.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLocks shares the per-notebook lock set with other writers.
func WithLocks(l *Locks) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.locks = l
		}
	}
}

// WithChunker sets the chunker.
func WithChunker(c *Chunker) Option {
	return func(p *Pipeline) {
		if c != nil {
			p.chunker = c
		}
	}
}

// WithEmbeddings enables the embedding stage's work: chunks are embedded and stored in index.
func WithEmbeddings(e embedding.Embedder, index vector.Index) Option {
	return func(p *Pipeline) {
		p.embedder = e
		p.index = index
	}
}

// WithVocabulary indexes completed sources for spelling suggestions.
func WithVocabulary(v Vocabulary) Option {
	return func(p *Pipeline) { p.vocab = v }
}

// WithSummarizer sets the source summarizer.
func WithSummarizer(s SourceSummarizer) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.summarizer = s
		}
	}
}

// WithOutcomes sets the outcome source consulted by reprocess runs.
func WithOutcomes(o OutcomeSource) Option {
	return func(p *Pipeline) {
		if o != nil {
			p.outcomes = o
		}
	}
}

// WithBroadcaster publishes every transition.
func WithBroadcaster(b events.Broadcaster) Option {
	return func(p *Pipeline) { p.events = events.OrDiscard(b) }
}

// WithStageDelay pauses between stages.
func WithStageDelay(d time.Duration) Option {
	return func(p *Pipeline) { p.delay = d }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) { p.logger = utils.OrNop(l) }
}

// NewPipeline returns a pipeline over store and extractor.
func NewPipeline(store storage.Store, extractor Extractor, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:      store,
		extractor:  extractor,
		locks:      NewLocks(),
		chunker:    NewChunker(512, 64),
		summarizer: generate.NewSummarizer(nil),
		outcomes:   AlwaysSucceed,
		events:     events.Discard{},
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Locks returns the lock set the pipeline writes under.
func (p *Pipeline) Locks() *Locks {
	return p.locks
}

// errStopped ends a run whose source was deleted or taken over by a newer run.
var errStopped = errors.New("run superseded")

// Run executes job to completion or failure. Stage failures are recorded on
// the source; the returned error reports only storage problems.
func (p *Pipeline) Run(ctx context.Context, job Job) error {
	log := p.logger.With(zap.String("notebook_id", job.NotebookID), zap.String("source_id", job.SourceID), zap.Int("run", job.Run))
	err := p.run(ctx, job, log)
	if errors.Is(err, errStopped) {
		log.Debug("ingestion run stopped")
		if _, gerr := p.store.GetSource(ctx, job.NotebookID, job.SourceID); errors.Is(gerr, storage.ErrNotFound) {
			p.removeDerived(ctx, job)
		}
		return nil
	}
	return err
}

func (p *Pipeline) run(ctx context.Context, job Job, log *zap.Logger) error {
	if err := p.advance(ctx, job, models.StageExtracting, nil); err != nil {
		return err
	}
	res, err := p.extractor.Extract(ctx, job.Input)
	if err != nil {
		log.Warn("extraction failed", zap.Error(err))
		return p.fail(ctx, job, err.Error())
	}

	var name string
	p.pause()
	err = p.advance(ctx, job, models.StageChunking, func(src *models.Source) {
		src.Content = res.Content
		if src.Name == "" {
			src.Name = res.Title
		}
		if src.Metadata == nil {
			src.Metadata = make(map[string]interface{})
		}
		for k, v := range res.Metadata {
			src.Metadata[k] = v
		}
		name = src.Name
	})
	if err != nil {
		return err
	}
	chunks := p.chunker.Chunk(job.SourceID, res.Content)

	p.pause()
	err = p.advance(ctx, job, models.StageEmbedding, func(src *models.Source) {
		if src.Metadata == nil {
			src.Metadata = make(map[string]interface{})
		}
		src.Metadata["chunk_count"] = len(chunks)
	})
	if err != nil {
		return err
	}
	if err := p.embed(ctx, job, chunks); err != nil {
		log.Warn("embedding failed", zap.Error(err))
		return p.fail(ctx, job, fmt.Sprintf("embedding failed: %v", err))
	}
	if job.Reprocess && !p.outcomes.Succeed(job.SourceID) {
		log.Info("reprocess outcome refused")
		return p.fail(ctx, job, ReprocessFailedMessage)
	}

	p.pause()
	if err := p.advance(ctx, job, models.StageSummarizing, nil); err != nil {
		return err
	}
	digest := p.summarizer.SummarizeSource(ctx, generate.Document{
		Kind:    job.Input.Kind,
		Title:   name,
		Content: res.Content,
	})

	if p.vocab != nil {
		if err := p.vocab.IndexSource(ctx, job.NotebookID, job.SourceID, name, res.Content); err != nil {
			log.Warn("vocabulary indexing failed", zap.Error(err))
		}
	}

	p.pause()
	err = p.advance(ctx, job, models.StageCompleted, func(src *models.Source) {
		src.Summary = digest.Summary
		src.KeyPoints = digest.KeyPoints
		src.Status.ErrorMessage = ""
	})
	if err != nil {
		return err
	}
	log.Info("source ingested", zap.Int("chunks", len(chunks)), zap.Bool("generated_summary", digest.Generated))
	return nil
}

func (p *Pipeline) embed(ctx context.Context, job Job, chunks []Chunk) error {
	if p.embedder == nil || p.index == nil || len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}
	entries := make([]vector.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = vector.Entry{
			ID:         c.ID,
			NotebookID: job.NotebookID,
			SourceID:   job.SourceID,
			ChunkIndex: c.Index,
			Text:       c.Text,
			Vector:     vecs[i],
		}
	}
	return p.index.ReplaceSource(ctx, job.NotebookID, job.SourceID, entries)
}

func (p *Pipeline) pause() {
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
}

// advance moves the source to stage. The source is re-read under the notebook
// lock; the write is refused when the source is gone, owned by a newer run,
// already terminal, or further along than stage.
func (p *Pipeline) advance(ctx context.Context, job Job, stage models.Stage, mutate func(*models.Source)) error {
	step, ok := StepFor(stage)
	if !ok {
		return fmt.Errorf("no plan step for stage %q", stage)
	}
	return p.transition(ctx, job, step.Stage, step.Progress, step.Message, "", mutate)
}

// fail moves the source to failed at its current progress.
func (p *Pipeline) fail(ctx context.Context, job Job, reason string) error {
	err := p.transition(ctx, job, models.StageFailed, -1, FailedMessage, reason, nil)
	if err == nil {
		p.removeDerived(ctx, job)
	}
	return err
}

func (p *Pipeline) transition(ctx context.Context, job Job, stage models.Stage, progress int, message, errMsg string, mutate func(*models.Source)) error {
	unlock := p.locks.Lock(job.NotebookID)
	defer unlock()

	src, err := p.store.GetSource(ctx, job.NotebookID, job.SourceID)
	if errors.Is(err, storage.ErrNotFound) {
		return errStopped
	}
	if err != nil {
		return fmt.Errorf("load source: %w", err)
	}
	if src.Run != job.Run || src.Status.Stage.Terminal() {
		return errStopped
	}
	if progress < 0 {
		progress = src.Status.Progress
	}
	if progress < src.Status.Progress {
		return errStopped
	}

	now := time.Now()
	src.Status = models.ProcessingStatus{
		Stage:        stage,
		Progress:     progress,
		Message:      message,
		ErrorMessage: errMsg,
		UpdatedAt:    now,
	}
	if mutate != nil {
		mutate(src)
	}
	src.UpdatedAt = now
	if err := p.store.UpdateSource(ctx, src); err != nil {
		return fmt.Errorf("update source: %w", err)
	}

	status := src.Status
	p.events.Broadcast(events.Event{
		Type:       events.SourceStatus,
		NotebookID: job.NotebookID,
		SourceID:   job.SourceID,
		Status:     &status,
		At:         now,
	})
	p.logger.Debug("source transition",
		zap.String("source_id", job.SourceID),
		zap.String("stage", string(stage)),
		zap.Int("progress", progress))
	return nil
}

// removeDerived drops the vectors and vocabulary of a source.
func (p *Pipeline) removeDerived(ctx context.Context, job Job) {
	if p.index != nil {
		if err := p.index.RemoveSource(ctx, job.NotebookID, job.SourceID); err != nil {
			p.logger.Warn("failed to remove source vectors", zap.String("source_id", job.SourceID), zap.Error(err))
		}
	}
	if p.vocab != nil {
		if err := p.vocab.RemoveSource(ctx, job.NotebookID, job.SourceID); err != nil {
			p.logger.Warn("failed to remove source vocabulary", zap.String("source_id", job.SourceID), zap.Error(err))
		}
	}
}

// Reset prepares a terminal source for another run: it bumps the run
// generation, clears derived fields and puts the source back at extracting.
// The returned job carries the stored content so file sources need no re-upload.
func (p *Pipeline) Reset(ctx context.Context, notebookID, sourceID string) (*models.Source, Job, error) {
	unlock := p.locks.Lock(notebookID)
	defer unlock()

	src, err := p.store.GetSource(ctx, notebookID, sourceID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, Job{}, apperr.New(apperr.NotFound, "reprocess", "source not found")
	}
	if err != nil {
		return nil, Job{}, apperr.Wrap(apperr.Internal, "reprocess", err)
	}
	if !src.Status.Stage.Terminal() {
		return nil, Job{}, apperr.New(apperr.InvalidInput, "reprocess", "source is still processing")
	}

	in := models.SourceInput{
		Kind:     src.Kind,
		Name:     src.Name,
		Text:     src.Content,
		OriginID: src.OriginID,
	}
	if u, ok := src.Metadata["url"].(string); ok {
		in.URL = u
	}
	if in.Kind == models.KindURL {
		in.Text = ""
	}
	// Uploads are not kept, so a source that failed before its text was
	// stored can only come back from a link.
	if in.Text == "" && in.URL == "" {
		return nil, Job{}, apperr.New(apperr.InvalidInput, "reprocess", "source has no stored content; add the file again")
	}

	step, _ := StepFor(models.StageExtracting)
	now := time.Now()
	src.Run++
	src.Status = models.ProcessingStatus{Stage: step.Stage, Progress: step.Progress, Message: step.Message, UpdatedAt: now}
	src.Summary = ""
	src.KeyPoints = nil
	src.UpdatedAt = now
	if err := p.store.UpdateSource(ctx, src); err != nil {
		return nil, Job{}, apperr.Wrap(apperr.Internal, "reprocess", err)
	}

	job := Job{NotebookID: notebookID, SourceID: sourceID, Run: src.Run, Input: in, Reprocess: true}
	p.removeDerived(ctx, job)
	status := src.Status
	p.events.Broadcast(events.Event{
		Type:       events.SourceStatus,
		NotebookID: notebookID,
		SourceID:   sourceID,
		Status:     &status,
		At:         now,
	})
	return src, job, nil
}
