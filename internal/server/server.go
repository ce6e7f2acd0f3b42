// Package server provides the HTTP API for Scrible.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/BadakalaYashwanth/Scrible/internal/config"
	"github.com/BadakalaYashwanth/Scrible/internal/events"
	"github.com/BadakalaYashwanth/Scrible/internal/notebook"
)

// UserHeader carries the caller's identity.
const UserHeader = "X-User-ID"

// Server is the HTTP server for the Scrible API.
type Server struct {
	notebooks *notebook.Service
	hub       *events.Hub
	config    *config.Config
	logger    *zap.Logger
	server    *http.Server
}

// NewServer creates a server with the given dependencies. hub may be nil, in
// which case the event stream route is not mounted.
func NewServer(notebooks *notebook.Service, hub *events.Hub, cfg *config.Config, logger *zap.Logger) *Server {
	return &Server{
		notebooks: notebooks,
		hub:       hub,
		config:    cfg,
		logger:    logger,
	}
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireUser)

		// Streams must outlive the request timeout and cannot be compressed.
		if s.hub != nil {
			r.Get("/notebooks/{id}/events", s.handleEvents)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))
			r.Use(middleware.Compress(5))

			r.Get("/status", s.handleStatus)
			r.Post("/notebooks", s.handleCreateNotebook)
			r.Get("/notebooks", s.handleListNotebooks)
			r.Get("/notebooks/{id}", s.handleGetNotebook)
			r.Patch("/notebooks/{id}", s.handleUpdateNotebook)
			r.Delete("/notebooks/{id}", s.handleDeleteNotebook)

			r.Post("/notebooks/{id}/sources", s.handleAddSource)
			r.Get("/notebooks/{id}/sources/{sid}", s.handleGetSource)
			r.Get("/notebooks/{id}/sources/{sid}/status", s.handleSourceStatus)
			r.Post("/notebooks/{id}/sources/{sid}/reprocess", s.handleReprocessSource)
			r.Delete("/notebooks/{id}/sources/{sid}", s.handleDeleteSource)

			r.Post("/notebooks/{id}/search", s.handleSearch)
			r.Post("/notebooks/{id}/semantic-search", s.handleSemanticSearch)
			r.Post("/notebooks/{id}/chat", s.handleChat)
			r.Get("/notebooks/{id}/chat", s.handleChatHistory)
			r.Post("/notebooks/{id}/summarize", s.handleSummarize)
		})
	})
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := s.config.Server.Address()
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
