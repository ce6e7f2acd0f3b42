package server

import (
	"context"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/apperr"
	"github.com/BadakalaYashwanth/Scrible/internal/config"
	"github.com/BadakalaYashwanth/Scrible/internal/extract"
	"github.com/BadakalaYashwanth/Scrible/internal/models"
	"github.com/BadakalaYashwanth/Scrible/internal/storage"
)

type ctxKey int

const userKey ctxKey = iota

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := strings.TrimSpace(r.Header.Get(UserHeader))
		if user == "" {
			s.respondAppError(w, apperr.New(apperr.Unauthorized, "auth", "missing %s header", UserHeader))
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

func userID(r *http.Request) string {
	user, _ := r.Context().Value(userKey).(string)
	return user
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	stats, err := s.notebooks.Stats(r.Context())
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	resp := map[string]interface{}{"store": stats}
	if s.config != nil {
		st := s.config.Storage
		resp["config"] = map[string]interface{}{
			"storage_driver":       st.Driver,
			"database_path":        st.DatabasePath,
			"vector_index_path":    st.VectorIndexPath,
			"embedding_dimensions": s.config.Embedding.Dimensions,
			"chunk_size":           s.config.Ingestion.ChunkSize,
			"chunk_overlap":        s.config.Ingestion.ChunkOverlap,
			"generator_enabled":    s.config.Generator.Enabled(),
		}
		if st.Driver == config.DriverSQLite {
			if diskBytes, err := storage.DiskUsageBytes(st.DatabasePath, st.VectorIndexPath); err == nil {
				resp["disk_usage_bytes"] = diskBytes
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCreateNotebook(w http.ResponseWriter, r *http.Request) {
	var in models.NotebookInput
	if !s.decode(w, r, &in) {
		return
	}
	nb, err := s.notebooks.CreateNotebook(r.Context(), userID(r), in)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, nb)
}

func (s *Server) handleListNotebooks(w http.ResponseWriter, r *http.Request) {
	nbs, err := s.notebooks.ListNotebooks(r.Context(), userID(r))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"notebooks": nbs})
}

func (s *Server) handleGetNotebook(w http.ResponseWriter, r *http.Request) {
	nb, err := s.notebooks.GetNotebook(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nb)
}

func (s *Server) handleUpdateNotebook(w http.ResponseWriter, r *http.Request) {
	var in models.NotebookInput
	if !s.decode(w, r, &in) {
		return
	}
	nb, err := s.notebooks.UpdateNotebook(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, nb)
}

func (s *Server) handleDeleteNotebook(w http.ResponseWriter, r *http.Request) {
	if err := s.notebooks.DeleteNotebook(r.Context(), userID(r), chi.URLParam(r, "id")); err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleAddSource(w http.ResponseWriter, r *http.Request) {
	var (
		in  models.SourceInput
		err error
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		in, err = s.readUpload(w, r)
		if err != nil {
			s.respondAppError(w, err)
			return
		}
	} else if !s.decode(w, r, &in) {
		return
	}

	s.logger.Debug("add source request",
		zap.String("kind", string(in.Kind)),
		zap.String("name", in.Name),
		zap.Int("bytes", len(in.Data)))
	src, err := s.notebooks.AddSource(r.Context(), userID(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, src)
}

// readUpload reads a multipart upload with a "file" part and optional
// "kind" and "name" fields. The kind defaults to the one implied by the file extension.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (models.SourceInput, error) {
	const op = "upload"
	var in models.SourceInput
	maxBytes := int64(extract.DefaultMaxBytes)
	if s.config != nil && s.config.Ingestion.MaxUploadBytes > 0 {
		maxBytes = s.config.Ingestion.MaxUploadBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1<<20)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return in, apperr.New(apperr.InvalidInput, op, "invalid multipart form: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return in, apperr.New(apperr.InvalidInput, op, "file is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return in, apperr.New(apperr.InvalidInput, op, "failed to read upload: %v", err)
	}
	if int64(len(data)) > maxBytes {
		return in, apperr.New(apperr.InvalidInput, op, "file exceeds %d bytes", maxBytes)
	}

	in.Filename = header.Filename
	in.Data = data
	in.Name = r.FormValue("name")
	if kind := r.FormValue("kind"); kind != "" {
		in.Kind = models.SourceKind(kind)
	} else if k, ok := extract.KindForFilename(header.Filename); ok {
		in.Kind = k
	} else {
		return in, apperr.New(apperr.InvalidInput, op, "cannot infer source kind of %q", header.Filename)
	}
	if in.Kind == models.KindYouTube {
		in.URL = r.FormValue("url")
	}
	return in, nil
}

func (s *Server) handleGetSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.notebooks.GetSource(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "sid"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, src)
}

func (s *Server) handleSourceStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.notebooks.SourceStatus(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "sid"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleReprocessSource(w http.ResponseWriter, r *http.Request) {
	src, err := s.notebooks.ReprocessSource(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "sid"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusAccepted, src.Status)
}

func (s *Server) handleDeleteSource(w http.ResponseWriter, r *http.Request) {
	if err := s.notebooks.DeleteSource(r.Context(), userID(r), chi.URLParam(r, "id"), chi.URLParam(r, "sid")); err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("search request", zap.String("query", req.Query), zap.Int("limit", req.Limit))
	resp, err := s.notebooks.Query(r.Context(), userID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	var req models.QueryRequest
	if !s.decode(w, r, &req) {
		return
	}
	passages, err := s.notebooks.SemanticSearch(r.Context(), userID(r), chi.URLParam(r, "id"), req.Query, req.Limit)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"query": strings.TrimSpace(req.Query), "passages": passages})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.logger.Debug("chat request", zap.Int("history", len(req.History)))
	resp, err := s.notebooks.Chat(r.Context(), userID(r), chi.URLParam(r, "id"), req)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	msgs, err := s.notebooks.ChatHistory(r.Context(), userID(r), chi.URLParam(r, "id"), limit)
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"messages": msgs})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	sum, err := s.notebooks.Summarize(r.Context(), userID(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondAppError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sum)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.notebooks.GetNotebook(r.Context(), userID(r), id); err != nil {
		s.respondAppError(w, err)
		return
	}
	client := s.hub.Subscribe(id)
	defer s.hub.Unsubscribe(client)
	s.hub.ServeHTTP(w, r, client)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondAppError writes err with the status of its kind. Internal details are logged, not returned.
func (s *Server) respondAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.Internal {
		s.logger.Error("request failed", zap.Error(err))
	}
	s.respondJSON(w, apperr.HTTPStatus(kind), map[string]string{
		"error": apperr.PublicMessage(err),
		"code":  string(kind),
	})
}
