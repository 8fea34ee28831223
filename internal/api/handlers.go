package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/repackdex/repackdex/internal/domain"
	"github.com/repackdex/repackdex/internal/logger"
	"github.com/repackdex/repackdex/internal/storage"
)

const (
	defaultRunsLimit = 10
	maxRunsLimit     = 100
)

// CatalogReader yields the current catalog snapshot.
type CatalogReader interface {
	Entries(ctx context.Context) ([]domain.CatalogEntry, error)
}

// RunLister yields recent sync runs, newest first.
type RunLister interface {
	RecentRuns(limit int) ([]storage.RunRecord, error)
}

// Handler holds HTTP handlers for the catalog API.
type Handler struct {
	catalog CatalogReader
	runs    RunLister
	log     logger.Logger
}

// NewHandler creates a Handler.
func NewHandler(catalog CatalogReader, runs RunLister, log logger.Logger) *Handler {
	return &Handler{catalog: catalog, runs: runs, log: logger.Ensure(log)}
}

// Health handles GET /api/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.log, http.StatusOK, map[string]string{"status": "ok"})
}

// ListGames handles GET /api/games?limit=N.
func (h *Handler) ListGames(w http.ResponseWriter, r *http.Request) {
	entries, err := h.catalog.Entries(r.Context())
	if err != nil {
		h.log.ErrorObj("load games failed", "api_games_error", map[string]any{"error": err.Error()})
		writeJSON(w, h.log, http.StatusInternalServerError, errorBody("failed to load games"))
		return
	}
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}
	if limit, ok := positiveInt(r.URL.Query().Get("limit")); ok && limit < len(entries) {
		entries = entries[:limit]
	}
	writeJSON(w, h.log, http.StatusOK, entries)
}

// ListRuns handles GET /api/sync/runs?limit=N.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, ok := positiveInt(r.URL.Query().Get("limit"))
	if !ok {
		limit = defaultRunsLimit
	}
	if limit > maxRunsLimit {
		limit = maxRunsLimit
	}

	runs := []storage.RunRecord{}
	if h.runs != nil {
		got, err := h.runs.RecentRuns(limit)
		if err != nil {
			h.log.ErrorObj("load sync runs failed", "api_runs_error", map[string]any{"error": err.Error()})
			writeJSON(w, h.log, http.StatusInternalServerError, errorBody("failed to load sync runs"))
			return
		}
		if got != nil {
			runs = got
		}
	}
	writeJSON(w, h.log, http.StatusOK, runs)
}

func positiveInt(raw string) (int, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
