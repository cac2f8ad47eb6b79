// Package api exposes the HTTP interface for the indexing service.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/indexpilot/indexpilot/internal/config"
	"github.com/indexpilot/indexpilot/internal/gsc"
	"github.com/indexpilot/indexpilot/internal/metrics"
	"github.com/indexpilot/indexpilot/internal/pipeline"
	"github.com/indexpilot/indexpilot/internal/store"
)

// Enqueuer accepts indexing runs into the serial queue.
type Enqueuer interface {
	AddJob(websiteID int64, origin pipeline.Origin) error
}

// PageSubmitter submits a single page on demand.
type PageSubmitter interface {
	SubmitPage(ctx context.Context, websiteID, pageID int64) (gsc.PublishResponse, error)
}

// Server wires HTTP handlers to the queue and store.
type Server struct {
	router    chi.Router
	store     store.Store
	queue     Enqueuer
	submitter PageSubmitter
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(st store.Store, queue Enqueuer, submitter PageSubmitter, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		store:     st,
		queue:     queue,
		submitter: submitter,
		logger:    logger,
	}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))
	if cfg.Auth.Enabled {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Route("/websites/{website_id}", func(r chi.Router) {
			r.Post("/sync", s.syncWebsite)
			r.Get("/stats", s.getStats)
			r.Get("/pages", s.listPages)
			r.Post("/pages/{page_id}/submit", s.submitPage)
		})
		r.Get("/jobs/{job_id}", s.getJob)
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
