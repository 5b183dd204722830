// Package web provides the HTTP host for the pickup batch service: a JSON
// API that accepts an xlsx upload, runs the batch engine against the
// carrier, and serves the annotated workbook and per-order labels.
package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ciclogistica/retiros/internal/config"
	"github.com/ciclogistica/retiros/internal/engine"
	"github.com/ciclogistica/retiros/internal/web/middleware"
)

// Server is the HTTP server for the pickup batch service.
type Server struct {
	engine  *engine.Engine
	labels  engine.LabelFetcher
	store   *resultStore
	limiter *engine.RunLimiter
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server
}

// NewServer creates a Server wired to the given engine and label fetcher.
func NewServer(eng *engine.Engine, labels engine.LabelFetcher, cfg *config.Config) *Server {
	s := &Server{
		engine:  eng,
		labels:  labels,
		store:   newResultStore(cfg.Batch.ResultTTL),
		limiter: engine.NewRunLimiter(cfg.Batch.MaxConcurrent, cfg.Batch.MaxWaitTime),
		cfg:     cfg,
		router:  chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Server.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.cfg.Server.APIKeys))

		// Batch processing
		r.Post("/batches", s.handleCreateBatch)
		r.Get("/batches/{batchID}", s.handleGetBatch)
		r.Get("/batches/{batchID}/file", s.handleDownloadBatch)

		// Label retrieval
		r.Get("/labels/{orderID}", s.handleLabel)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
