package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pagemill/pagemill/internal/api"
	"github.com/pagemill/pagemill/internal/api/handlers"
	"github.com/pagemill/pagemill/internal/api/middleware"
)

type RouterConfig struct {
	APIToken        string
	IngestHandler   *handlers.IngestHandler
	QueryHandler    *handlers.QueryHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{
			"service": "pagemill",
			"message": "PDF retrieval augmented answering service",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.BearerAuth(cfg.APIToken))

		r.Post("/ingest", cfg.IngestHandler.IngestFile)
		r.Post("/ingest/directory", cfg.IngestHandler.IngestDirectory)
		r.Post("/query", cfg.QueryHandler.Query)

		r.Route("/documents", func(r chi.Router) {
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Get("/{id}/download", cfg.DocumentHandler.Download)
		})
	})

	return r
}
