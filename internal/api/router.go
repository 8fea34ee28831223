// Package api serves the catalog read endpoints over chi.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/repackdex/repackdex/internal/logger"
)

// NewRouter creates a chi router with all API routes mounted under /api.
// runs may be nil, in which case /api/sync/runs reports an empty ledger.
func NewRouter(catalog CatalogReader, runs RunLister, log logger.Logger) chi.Router {
	h := NewHandler(catalog, runs, log)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.Health)
		r.Get("/games", h.ListGames)
		r.Get("/sync/runs", h.ListRuns)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, h.log, http.StatusNotFound, errorBody("not found"))
	})
	return r
}
