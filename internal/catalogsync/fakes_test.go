package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/repackdex/repackdex/internal/domain"
	"github.com/repackdex/repackdex/internal/storage"
)

type fakeSource struct {
	pages   map[int][]domain.Listing
	errs    map[int]error
	planned int
	fetched []int
}

func (f *fakeSource) ID() string { return "fitgirl" }

func (f *fakeSource) FetchPage(ctx context.Context, page int) ([]domain.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.fetched = append(f.fetched, page)
	if err := f.errs[page]; err != nil {
		return nil, err
	}
	return f.pages[page], nil
}

func (f *fakeSource) DiscoverPageCount(context.Context) int {
	if f.planned > 0 {
		return f.planned
	}
	return len(f.pages)
}

type fakeEnricher struct {
	disabled bool
	results  map[string]domain.Enrichment
	calls    []string
}

func (f *fakeEnricher) Enabled() bool { return !f.disabled }

func (f *fakeEnricher) Resolve(_ context.Context, title string) domain.Enrichment {
	f.calls = append(f.calls, title)
	return f.results[title]
}

type memStore struct {
	entries []domain.CatalogEntry
	loadErr error
	saveErr error
	saves   int
}

func (m *memStore) Load() ([]domain.CatalogEntry, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]domain.CatalogEntry{}, m.entries...), nil
}

func (m *memStore) Save(entries []domain.CatalogEntry) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.entries = append([]domain.CatalogEntry{}, entries...)
	return nil
}

func (m *memStore) ModTime() (time.Time, bool) { return time.Time{}, false }

type fakeRecorder struct {
	mu   sync.Mutex
	runs []storage.RunRecord
	err  error
}

func (f *fakeRecorder) RecordRun(run storage.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.err
}

type fakeAnnouncer struct {
	announced []domain.CatalogEntry
	mode      string
	err       error
}

func (f *fakeAnnouncer) Announce(_ context.Context, _ string, mode string, entries []domain.CatalogEntry) error {
	f.mode = mode
	f.announced = append(f.announced, entries...)
	return f.err
}

func listing(id string) domain.Listing {
	return domain.Listing{ID: id, Title: titleFor(id), URL: "https://repacks.example/" + id + "/"}
}

func titleFor(id string) string {
	return fmt.Sprintf("Title %s", id)
}

func enriched(id, image string, year int) domain.CatalogEntry {
	return domain.CatalogEntry{
		ID: id, Slug: id, Title: titleFor(id), Link: "https://repacks.example/" + id + "/",
		Image: domain.StringPtr(image), Year: domain.IntPtr(year),
	}
}

func bare(id string) domain.CatalogEntry {
	return domain.CatalogEntry{ID: id, Slug: id, Title: titleFor(id), Link: "https://repacks.example/" + id + "/"}
}

func entryIDs(entries []domain.CatalogEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.ID
	}
	return out
}

var errPage = errors.New("status 503")
