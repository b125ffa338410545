// Package web provides the HTTP server and JSON API for the tabular
// import service.
package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/ipoole/tabular/internal/config"
	"github.com/ipoole/tabular/internal/logging"
	"github.com/ipoole/tabular/internal/store"
	"github.com/ipoole/tabular/internal/tabular"
	"github.com/ipoole/tabular/internal/web/middleware"
)

// DatasetStore is the persistence surface the server needs.
// Satisfied by *store.Store; tests substitute a fake.
type DatasetStore interface {
	SaveTable(ctx context.Context, name string, t *tabular.Table) (*store.Dataset, error)
	ListDatasets(ctx context.Context) ([]store.Dataset, error)
	LoadTable(ctx context.Context, id uuid.UUID) (*tabular.Table, error)
	ColumnStats(ctx context.Context, id uuid.UUID, column string) (*tabular.ColumnAggregation, error)
	DeleteDataset(ctx context.Context, id uuid.UUID) error
}

// Server is the HTTP server for the tabular import service.
type Server struct {
	cfg      *config.Config
	datasets DatasetStore
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a Server with middleware and routes configured.
func NewServer(datasets DatasetStore, cfg *config.Config) *Server {
	s := &Server{
		cfg:      cfg,
		datasets: datasets,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders)

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(s.cfg.Rate.RequestsPerMinute)
		s.router.Use(limiter.middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/datasets", s.handleImport)
		r.Get("/datasets", s.handleListDatasets)
		r.Get("/datasets/{datasetID}", s.handleGetDataset)
		r.Get("/datasets/{datasetID}/stats", s.handleDatasetStats)
		r.Delete("/datasets/{datasetID}", s.handleDeleteDataset)
	})
}

// Start begins listening for HTTP requests. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
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

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds response hardening headers.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// writeError writes a JSON error response. The full message is logged
// server-side; the client gets it verbatim since dataset errors carry
// no internal detail beyond file, line and column names.
func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	logging.FromContext(ctx).Warn("request failed", "status", status, "error", message)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeJSON encodes v as JSON with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
