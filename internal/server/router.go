package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/lexfield/regscout/internal/api"
	"github.com/lexfield/regscout/internal/api/handlers"
	"github.com/lexfield/regscout/internal/api/middleware"
)

type RouterConfig struct {
	JobHandler    *handlers.JobHandler
	SearchHandler *handlers.SearchHandler
	AuditHandler  *handlers.AuditHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/jobs", func(r chi.Router) {
		r.Post("/", cfg.JobHandler.Submit)
		r.Post("/bulk", cfg.JobHandler.SubmitBulk)
		r.Get("/", cfg.JobHandler.List)
		r.Get("/stats", cfg.JobHandler.Stats)
		r.Get("/{id}", cfg.JobHandler.Get)
	})

	r.Post("/search", cfg.SearchHandler.Search)
	r.Get("/chunks/{id}/similar", cfg.SearchHandler.Similar)

	r.Get("/audit", cfg.AuditHandler.List)
	r.Delete("/audit", cfg.AuditHandler.Clear)

	return r
}
