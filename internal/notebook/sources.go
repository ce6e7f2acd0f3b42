package notebook

import (
	"context"
	"errors"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
	"github.com/BadakalaYashwanth/Scrible/internal/events"
	"github.com/BadakalaYashwanth/Scrible/internal/ingest"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/storage"
)

// validateInput rejects inputs that cannot enter the state machine.
func validateInput(in *models.SourceInput) error {
	const op = "add source"
	kind, ok := models.ParseSourceKind(string(in.Kind))
	if !ok {
		return apperr.New(apperr.InvalidInput, op, "unsupported source kind %q", in.Kind)
	}
	in.Kind = kind
	in.Name = strings.TrimSpace(in.Name)
	in.URL = strings.TrimSpace(in.URL)

	switch kind {
	case models.KindURL:
		if in.URL == "" {
			return apperr.New(apperr.InvalidInput, op, "url cannot be empty")
		}
		u, err := url.Parse(in.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return apperr.New(apperr.InvalidInput, op, "invalid url %q", in.URL)
		}
	case models.KindYouTube:
		if in.URL == "" && in.Transcript == "" && len(in.Data) == 0 {
			return apperr.New(apperr.InvalidInput, op, "youtube url or transcript required")
		}
	case models.KindTXT:
		if strings.TrimSpace(in.Text) == "" && len(in.Data) == 0 {
			return apperr.New(apperr.InvalidInput, op, "content cannot be empty")
		}
	case models.KindPDF, models.KindDOCX:
		if len(in.Data) == 0 {
			return apperr.New(apperr.InvalidInput, op, "%s upload is empty", kind)
		}
	}
	return nil
}

func sourceName(in models.SourceInput) string {
	switch {
	case in.Name != "":
		return in.Name
	case in.Filename != "":
		return filepath.Base(in.Filename)
	case in.URL != "":
		return in.URL
	}
	return ""
}

// AddSource registers a source in stage uploading and queues its ingestion run.
func (s *Service) AddSource(ctx context.Context, ownerID, notebookID string, in models.SourceInput) (*models.Source, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	if _, err := s.notebook(ctx, "add source", ownerID, notebookID); err != nil {
		return nil, err
	}
	if s.scheduler.Closed() {
		return nil, apperr.New(apperr.Internal, "add source", "ingestion is shutting down")
	}

	src := &models.Source{
		ID:         uuid.New().String(),
		NotebookID: notebookID,
		Name:       sourceName(in),
		Kind:       in.Kind,
		Status:     ingest.InitialStatus(),
		Metadata:   make(map[string]interface{}),
		OriginID:   in.OriginID,
		Run:        1,
	}
	src.Status.UpdatedAt = time.Now()
	if in.URL != "" {
		src.Metadata["url"] = in.URL
	}
	if in.Filename != "" {
		src.Metadata["filename"] = filepath.Base(in.Filename)
	}

	unlock := s.locks.Lock(notebookID)
	err := s.store.CreateSource(ctx, src)
	unlock()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "add source", err)
	}

	status := src.Status
	s.events.Broadcast(events.Event{Type: events.SourceAdded, NotebookID: notebookID, SourceID: src.ID, Status: &status, At: time.Now()})
	if err := s.scheduler.Submit(ingest.Job{NotebookID: notebookID, SourceID: src.ID, Run: src.Run, Input: in}); err != nil {
		s.abandon(ctx, src, err)
		return nil, apperr.Wrap(apperr.Internal, "add source", err)
	}
	s.logger.Info("source added",
		zap.String("notebook_id", notebookID),
		zap.String("source_id", src.ID),
		zap.String("kind", string(src.Kind)))
	return src, nil
}

// abandon fails a registered source whose run could not be queued.
func (s *Service) abandon(ctx context.Context, src *models.Source, cause error) {
	unlock := s.locks.Lock(src.NotebookID)
	defer unlock()
	cur, err := s.store.GetSource(ctx, src.NotebookID, src.ID)
	if err != nil || cur.Run != src.Run || cur.Status.Stage.Terminal() {
		return
	}
	now := time.Now()
	cur.Status = models.ProcessingStatus{
		Stage:        models.StageFailed,
		Progress:     cur.Status.Progress,
		Message:      ingest.FailedMessage,
		ErrorMessage: "ingestion unavailable: " + cause.Error(),
		UpdatedAt:    now,
	}
	cur.UpdatedAt = now
	if err := s.store.UpdateSource(ctx, cur); err != nil {
		s.logger.Error("failed to mark source failed", zap.String("source_id", src.ID), zap.Error(err))
		return
	}
	status := cur.Status
	s.events.Broadcast(events.Event{Type: events.SourceStatus, NotebookID: src.NotebookID, SourceID: src.ID, Status: &status, At: now})
}

// GetSource returns one source of the notebook.
func (s *Service) GetSource(ctx context.Context, ownerID, notebookID, sourceID string) (*models.Source, error) {
	if _, err := s.notebook(ctx, "get source", ownerID, notebookID); err != nil {
		return nil, err
	}
	src, err := s.store.GetSource(ctx, notebookID, sourceID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.New(apperr.NotFound, "get source", "source not found")
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "get source", err)
	}
	return src, nil
}

// SourceStatus returns the ingestion status of a source.
func (s *Service) SourceStatus(ctx context.Context, ownerID, notebookID, sourceID string) (*models.ProcessingStatus, error) {
	src, err := s.GetSource(ctx, ownerID, notebookID, sourceID)
	if err != nil {
		return nil, err
	}
	return &src.Status, nil
}

// ReprocessSource resets a completed or failed source and runs ingestion again.
func (s *Service) ReprocessSource(ctx context.Context, ownerID, notebookID, sourceID string) (*models.Source, error) {
	if _, err := s.notebook(ctx, "reprocess", ownerID, notebookID); err != nil {
		return nil, err
	}
	src, err := s.scheduler.Reprocess(ctx, notebookID, sourceID)
	if err != nil {
		if apperr.KindOf(err) == apperr.Internal {
			return nil, apperr.Wrap(apperr.Internal, "reprocess", err)
		}
		return nil, err
	}
	s.logger.Info("source reprocessing", zap.String("source_id", sourceID), zap.Int("run", src.Run))
	return src, nil
}

// DeleteSource removes a source and everything derived from it.
func (s *Service) DeleteSource(ctx context.Context, ownerID, notebookID, sourceID string) error {
	if _, err := s.notebook(ctx, "delete source", ownerID, notebookID); err != nil {
		return err
	}
	return s.deleteSource(ctx, notebookID, sourceID)
}

// DeleteSourceByOrigin removes the source imported from originID, if any.
func (s *Service) DeleteSourceByOrigin(ctx context.Context, ownerID, notebookID, originID string) error {
	if _, err := s.notebook(ctx, "delete source", ownerID, notebookID); err != nil {
		return err
	}
	src, err := s.store.FindSourceByOrigin(ctx, notebookID, originID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.New(apperr.NotFound, "delete source", "no source imported from %s", originID)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete source", err)
	}
	return s.deleteSource(ctx, notebookID, src.ID)
}

func (s *Service) deleteSource(ctx context.Context, notebookID, sourceID string) error {
	unlock := s.locks.Lock(notebookID)
	defer unlock()

	err := s.store.DeleteSource(ctx, notebookID, sourceID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.New(apperr.NotFound, "delete source", "source not found")
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "delete source", err)
	}
	if s.index != nil {
		if err := s.index.RemoveSource(ctx, notebookID, sourceID); err != nil {
			s.logger.Warn("failed to remove source vectors", zap.String("source_id", sourceID), zap.Error(err))
		}
	}
	if s.vocab != nil {
		if err := s.vocab.RemoveSource(ctx, notebookID, sourceID); err != nil {
			s.logger.Warn("failed to remove source vocabulary", zap.String("source_id", sourceID), zap.Error(err))
		}
	}
	s.events.Broadcast(events.Event{Type: events.SourceDeleted, NotebookID: notebookID, SourceID: sourceID, At: time.Now()})
	s.logger.Info("source deleted", zap.String("notebook_id", notebookID), zap.String("source_id", sourceID))
	return nil
}
