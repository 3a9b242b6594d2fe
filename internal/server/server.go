// Package server provides the HTTP API for document upload and question answering.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/ragqa/internal/config"
	"github.com/hyperjump/ragqa/internal/indexer"
	"github.com/hyperjump/ragqa/internal/retrieval"
	"github.com/hyperjump/ragqa/internal/storage"
	"github.com/hyperjump/ragqa/pkg/utils"
	"go.uber.org/zap"
)

// requestTimeout bounds a whole request, including ingestion and answer generation.
const requestTimeout = 3 * time.Minute

// Asker answers a question. It never fails; problems are reported in the answer.
type Asker interface {
	Ask(ctx context.Context, question string) string
}

// Server is the HTTP server for the ragqa API.
type Server struct {
	engine  *retrieval.Engine
	indexer *indexer.Indexer
	asker   Asker
	storage storage.Storage
	config  *config.Config
	logger  *zap.Logger
	ready   func() bool
	server  *http.Server
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *zap.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithEmbeddingReady reports embedding backend readiness in /api/v1/status.
func WithEmbeddingReady(fn func() bool) ServerOption {
	return func(s *Server) { s.ready = fn }
}

// NewServer creates a server with the given dependencies.
func NewServer(
	engine *retrieval.Engine,
	idx *indexer.Indexer,
	asker Asker,
	store storage.Storage,
	cfg *config.Config,
	opts ...ServerOption,
) *Server {
	s := &Server{
		engine:  engine,
		indexer: idx,
		asker:   asker,
		storage: store,
		config:  cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = utils.OrNop(s.logger)
	return s
}

// Handler returns the API router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.Compress(5))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/documents", s.handleUploadDocument)
		r.Get("/documents", s.handleListDocuments)
		r.Get("/documents/{id}", s.handleGetDocument)
		r.Delete("/documents/{id}", s.handleDeleteDocument)
		r.Post("/ask", s.handleAsk)
		r.Get("/history", s.handleHistory)
		r.Get("/status", s.handleStatus)
	})
	r.Get("/health", s.handleHealth)
	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
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
