package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/repackdex/repackdex/internal/domain"
	"github.com/repackdex/repackdex/internal/storage"
)

type stubCatalog struct {
	entries []domain.CatalogEntry
	err     error
}

func (s stubCatalog) Entries(context.Context) ([]domain.CatalogEntry, error) {
	return s.entries, s.err
}

type stubRuns struct {
	runs      []storage.RunRecord
	err       error
	lastLimit int
}

func (s *stubRuns) RecentRuns(limit int) ([]storage.RunRecord, error) {
	s.lastLimit = limit
	return s.runs, s.err
}

func sampleEntries() []domain.CatalogEntry {
	return []domain.CatalogEntry{
		{ID: "game-a", Slug: "game-a", Title: "Game A", Link: "https://x/game-a/"},
		{ID: "game-b", Slug: "game-b", Title: "Game B", Link: "https://x/game-b/", Image: domain.StringPtr("https://img/b.jpg"), Year: domain.IntPtr(2021)},
		{ID: "game-c", Slug: "game-c", Title: "Game C", Link: "https://x/game-c/"},
	}
}

func serve(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := NewRouter(stubCatalog{}, nil, nil)
	w := serve(t, router, http.MethodGet, "/api/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"status":"ok"}` {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestListGamesLimit(t *testing.T) {
	router := NewRouter(stubCatalog{entries: sampleEntries()}, nil, nil)

	tests := []struct {
		query string
		want  int
	}{
		{"", 3},
		{"?limit=2", 2},
		{"?limit=10", 3},
		{"?limit=0", 3},
		{"?limit=-1", 3},
		{"?limit=abc", 3},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := serve(t, router, http.MethodGet, "/api/games"+tt.query)
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d", w.Code)
			}
			var got []domain.CatalogEntry
			if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d entries, want %d", len(got), tt.want)
			}
		})
	}
}

func TestListGamesSerializesNullsAndOrder(t *testing.T) {
	router := NewRouter(stubCatalog{entries: sampleEntries()}, nil, nil)
	w := serve(t, router, http.MethodGet, "/api/games?limit=2")

	var raw []map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if raw[0]["id"] != "game-a" || raw[1]["id"] != "game-b" {
		t.Fatalf("unexpected order %v", raw)
	}
	if v, ok := raw[0]["image"]; !ok || v != nil {
		t.Fatalf("unknown image should be null, got %v (present=%v)", v, ok)
	}
	if _, ok := raw[0]["displayTitle"]; ok {
		t.Fatalf("empty displayTitle should be omitted")
	}
	if raw[1]["year"] != float64(2021) {
		t.Fatalf("unexpected year %v", raw[1]["year"])
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("missing CORS header, got %q", got)
	}
}

func TestListGamesEmptyCatalogIsArray(t *testing.T) {
	router := NewRouter(stubCatalog{}, nil, nil)
	w := serve(t, router, http.MethodGet, "/api/games")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestListGamesFailureIsGeneric(t *testing.T) {
	router := NewRouter(stubCatalog{err: errors.New("open /secret/db.json: permission denied")}, nil, nil)
	w := serve(t, router, http.MethodGet, "/api/games")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
	if strings.TrimSpace(w.Body.String()) != `{"error":"failed to load games"}` {
		t.Fatalf("body = %s", w.Body.String())
	}
}

func TestListRuns(t *testing.T) {
	runs := &stubRuns{runs: []storage.RunRecord{{Mode: "incremental", StartedAt: time.Now(), New: 2, Saved: true}}}
	router := NewRouter(stubCatalog{}, runs, nil)

	w := serve(t, router, http.MethodGet, "/api/sync/runs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if runs.lastLimit != defaultRunsLimit {
		t.Fatalf("default limit = %d", runs.lastLimit)
	}
	var got []storage.RunRecord
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil || len(got) != 1 || got[0].New != 2 {
		t.Fatalf("unexpected runs %s (%v)", w.Body.String(), err)
	}

	serve(t, router, http.MethodGet, "/api/sync/runs?limit=500")
	if runs.lastLimit != maxRunsLimit {
		t.Fatalf("limit should be capped, got %d", runs.lastLimit)
	}

	runs.err = errors.New("bolt closed")
	w = serve(t, router, http.MethodGet, "/api/sync/runs")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestListRunsWithoutLedger(t *testing.T) {
	router := NewRouter(stubCatalog{}, nil, nil)
	w := serve(t, router, http.MethodGet, "/api/sync/runs")
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty array, got %s", w.Body.String())
	}
}

func TestPreflightAndNotFound(t *testing.T) {
	router := NewRouter(stubCatalog{}, nil, nil)
	if w := serve(t, router, http.MethodOptions, "/api/games"); w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", w.Code)
	}
	if w := serve(t, router, http.MethodGet, "/api/nope"); w.Code != http.StatusNotFound {
		t.Fatalf("unknown route status = %d", w.Code)
	}
}
