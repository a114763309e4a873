// Package server exposes the orchestration pipeline over HTTP. Routing is
// chi with request-id, logging, timeout, recovery, and OpenTelemetry
// middleware; handlers translate the error taxonomy to status codes.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/auraforge/orchestrator/internal/pipeline"
	"github.com/auraforge/orchestrator/internal/registry"
	"github.com/auraforge/orchestrator/internal/storage"
)

// Server hosts the HTTP API.
type Server struct {
	Router *chi.Mux
	Port   int

	logger *slog.Logger
	http   *http.Server
}

// New builds the router and mounts all routes.
func New(port int, p *pipeline.Pipeline, reg *registry.Registry, store storage.Store, logger *slog.Logger) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(120 * time.Second))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "orchestrator")
	})

	h := &handlers{pipeline: p, registry: reg, store: store, logger: logger}

	r.Get("/healthz", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Get("/models", h.listModels)
		r.Route("/projects", func(r chi.Router) {
			r.Post("/generate", h.generate)
			r.Route("/{projectID}", func(r chi.Router) {
				r.Get("/", h.getProject)
				r.Get("/files", h.listFiles)
				r.Get("/traces", h.listTraces)
				r.Post("/regenerate", h.regenerate)
				r.Post("/sync", h.sync)
				r.Post("/deploy", h.deploy)
			})
		})
	})

	return &Server{Router: r, Port: port, logger: logger}
}

// Start blocks serving HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}
