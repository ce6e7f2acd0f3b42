package ingest

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// ErrClosed is returned by Submit after Wait has been called.
var ErrClosed = errors.New("scheduler closed")

// Scheduler runs pipeline jobs in the background with bounded concurrency.
// Runs are never cancelled once started.
type Scheduler struct {
	pipeline *Pipeline
	group    errgroup.Group
	pending  sync.WaitGroup
	mu       sync.Mutex
	closed   bool
	logger   *zap.Logger
}

// NewScheduler returns a scheduler running at most maxConcurrent jobs at a time.
func NewScheduler(p *Pipeline, maxConcurrent int, logger *zap.Logger) *Scheduler {
	s := &Scheduler{pipeline: p, logger: utils.OrNop(logger)}
	if maxConcurrent > 0 {
		s.group.SetLimit(maxConcurrent)
	}
	return s
}

// Submit queues job and returns immediately.
func (s *Scheduler) Submit(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		// Go blocks while the group is at its limit.
		s.group.Go(func() error {
			if err := s.pipeline.Run(context.Background(), job); err != nil {
				s.logger.Error("ingestion run failed",
					zap.String("notebook_id", job.NotebookID),
					zap.String("source_id", job.SourceID),
					zap.Error(err))
			}
			return nil
		})
	}()
	return nil
}

// Closed reports whether Wait has been called.
func (s *Scheduler) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Reprocess resets a terminal source and queues a new run for it.
func (s *Scheduler) Reprocess(ctx context.Context, notebookID, sourceID string) (*models.Source, error) {
	src, job, err := s.pipeline.Reset(ctx, notebookID, sourceID)
	if err != nil {
		return nil, err
	}
	if err := s.Submit(job); err != nil {
		return nil, err
	}
	return src, nil
}

// Wait stops accepting jobs and waits for queued and running jobs, or for ctx.
func (s *Scheduler) Wait(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		_ = s.group.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Locks returns the per-notebook lock set the scheduled runs write under.
func (s *Scheduler) Locks() *Locks {
	return s.pipeline.Locks()
}
