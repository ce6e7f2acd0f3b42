package notebook

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/answer"
	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
	"github.com/BadakalaYashwanth/Scrible/internal/events"
	"github.com/BadakalaYashwanth/Scrible/internal/generate"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/relevance"
	"github.com/BadakalaYashwanth/Scrible/pkg/utils"
)

// DefaultPassageLimit is the number of passages a semantic search returns by default.
const DefaultPassageLimit = 5

const passageExcerptChars = 200

func (s *Service) suggest(ctx context.Context, notebookID, query string) string {
	if s.vocab == nil {
		return ""
	}
	return s.vocab.Suggest(ctx, notebookID, query)
}

// Query ranks the notebook's ready sources against req.Query. At most
// relevance.SearchLimit results are returned, fewer when req.Limit is smaller.
func (s *Service) Query(ctx context.Context, ownerID, notebookID string, req models.QueryRequest) (*models.QueryResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.notebook(ctx, "search", ownerID, notebookID); err != nil {
		return nil, err
	}
	srcs, err := s.sources(ctx, "search", notebookID)
	if err != nil {
		return nil, err
	}
	k := relevance.SearchLimit
	if req.Limit > 0 && req.Limit < k {
		k = req.Limit
	}
	results := s.ranker.Rank(req.Query, srcs, k)
	resp := &models.QueryResponse{Query: req.Query, Results: results, Total: len(results)}
	if len(results) == 0 {
		resp.Suggestion = s.suggest(ctx, notebookID, req.Query)
	}
	s.logger.Debug("search",
		zap.String("notebook_id", notebookID),
		zap.String("query", req.Query),
		zap.Int("results", len(results)))
	return resp, nil
}

// Chat answers req.Message from the notebook's sources and appends both turns
// to the chat log. Without client-supplied history the stored log supplies it.
func (s *Service) Chat(ctx context.Context, ownerID, notebookID string, req models.ChatRequest) (*models.ChatResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.notebook(ctx, "chat", ownerID, notebookID); err != nil {
		return nil, err
	}
	srcs, err := s.sources(ctx, "chat", notebookID)
	if err != nil {
		return nil, err
	}
	history := req.History
	if len(history) == 0 {
		if history, err = s.recentTurns(ctx, notebookID); err != nil {
			return nil, err
		}
	}

	results := s.ranker.Rank(req.Message, srcs, relevance.ChatLimit)
	ans := s.composer.Compose(ctx, answer.Request{
		Query:       req.Message,
		SourceCount: len(srcs),
		Results:     results,
		History:     history,
	})

	now := time.Now()
	userMsg := &models.ChatMessage{
		ID:         uuid.New().String(),
		NotebookID: notebookID,
		Role:       models.RoleUser,
		Content:    req.Message,
		Timestamp:  now,
	}
	reply := &models.ChatMessage{
		ID:         uuid.New().String(),
		NotebookID: notebookID,
		Role:       models.RoleAssistant,
		Content:    ans.Text,
		Citations:  ans.Citations,
		Timestamp:  now,
	}
	unlock := s.locks.Lock(notebookID)
	err = s.store.AppendChatMessage(ctx, userMsg)
	if err == nil {
		err = s.store.AppendChatMessage(ctx, reply)
	}
	unlock()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "chat", err)
	}
	s.events.Broadcast(events.Event{Type: events.ChatMessage, NotebookID: notebookID, Data: reply, At: now})

	resp := &models.ChatResponse{
		Message:   reply,
		Answer:    ans.Text,
		Citations: ans.Citations,
		Generated: ans.Generated,
	}
	if len(results) == 0 && len(srcs) > 0 {
		resp.Suggestion = s.suggest(ctx, notebookID, req.Message)
	}
	return resp, nil
}

func (s *Service) recentTurns(ctx context.Context, notebookID string) ([]models.ChatTurn, error) {
	msgs, err := s.store.ListChatMessages(ctx, notebookID, answer.DefaultHistoryTurns)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "chat", err)
	}
	turns := make([]models.ChatTurn, len(msgs))
	for i, m := range msgs {
		turns[i] = models.ChatTurn{Role: m.Role, Content: m.Content}
	}
	return turns, nil
}

// ChatHistory returns the newest limit chat messages, oldest first. A limit of 0 or less returns all.
func (s *Service) ChatHistory(ctx context.Context, ownerID, notebookID string, limit int) ([]*models.ChatMessage, error) {
	if _, err := s.notebook(ctx, "chat history", ownerID, notebookID); err != nil {
		return nil, err
	}
	msgs, err := s.store.ListChatMessages(ctx, notebookID, limit)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "chat history", err)
	}
	return msgs, nil
}

// Summarize writes an overall summary and key insights of the ready sources
// onto the notebook. It fails with NoReadySources when none is ready. Sources
// added later do not refresh the stored summary.
func (s *Service) Summarize(ctx context.Context, ownerID, notebookID string) (*models.NotebookSummary, error) {
	if _, err := s.notebook(ctx, "summarize", ownerID, notebookID); err != nil {
		return nil, err
	}
	srcs, err := s.sources(ctx, "summarize", notebookID)
	if err != nil {
		return nil, err
	}
	docs := make([]generate.Document, 0, len(srcs))
	for _, src := range srcs {
		if src.Ready() {
			docs = append(docs, generate.Document{Kind: src.Kind, Title: src.Name, Content: src.Content})
		}
	}
	if len(docs) == 0 {
		return nil, apperr.New(apperr.NoReadySources, "summarize", "no ready sources to summarize; add sources and wait for processing to complete")
	}

	digest := s.summarizer.SummarizeNotebook(ctx, docs)

	unlock := s.locks.Lock(notebookID)
	defer unlock()
	nb, err := s.notebook(ctx, "summarize", ownerID, notebookID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	nb.OverallSummary = digest.Summary
	nb.KeyInsights = digest.KeyPoints
	nb.SummarizedAt = &now
	if err := s.store.UpdateNotebook(ctx, nb); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "summarize", err)
	}

	summary := &models.NotebookSummary{
		OverallSummary: digest.Summary,
		KeyInsights:    digest.KeyPoints,
		ReadySources:   len(docs),
		Generated:      digest.Generated,
	}
	s.events.Broadcast(events.Event{Type: events.NotebookSummarized, NotebookID: notebookID, Data: summary, At: now})
	s.logger.Info("notebook summarized",
		zap.String("notebook_id", notebookID),
		zap.Int("ready_sources", len(docs)),
		zap.Bool("generated", digest.Generated))
	return summary, nil
}

// SemanticSearch returns the chunks of ready sources nearest to query.
func (s *Service) SemanticSearch(ctx context.Context, ownerID, notebookID, query string, k int) ([]*models.Passage, error) {
	req := models.QueryRequest{Query: query}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.notebook(ctx, "semantic search", ownerID, notebookID); err != nil {
		return nil, err
	}
	passages := make([]*models.Passage, 0)
	if s.embedder == nil || s.index == nil {
		return passages, nil
	}
	if k <= 0 {
		k = DefaultPassageLimit
	}
	srcs, err := s.sources(ctx, "semantic search", notebookID)
	if err != nil {
		return nil, err
	}
	ready := make(map[string]*models.Source, len(srcs))
	for _, src := range srcs {
		if src.Ready() {
			ready[src.ID] = src
		}
	}
	if len(ready) == 0 {
		return passages, nil
	}

	vec, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "semantic search", err)
	}
	hits, err := s.index.Search(ctx, notebookID, vec, s.index.Size())
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "semantic search", err)
	}
	for _, h := range hits {
		src, ok := ready[h.SourceID]
		if !ok {
			continue
		}
		passages = append(passages, &models.Passage{
			SourceID:   h.SourceID,
			SourceName: src.Name,
			ChunkIndex: h.ChunkIndex,
			Similarity: h.Score,
			Excerpt:    utils.Truncate(h.Text, passageExcerptChars),
		})
		if len(passages) == k {
			break
		}
	}
	return passages, nil
}
