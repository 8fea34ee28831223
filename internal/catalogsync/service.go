// Package catalogsync reconciles freshly crawled listings with the persisted
// catalog, enriching new or unresolved entries with metadata.
package catalogsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/repackdex/repackdex/internal/catalog"
	"github.com/repackdex/repackdex/internal/domain"
	"github.com/repackdex/repackdex/internal/logger"
	"github.com/repackdex/repackdex/internal/titles"
	"github.com/repackdex/repackdex/pkg/sources"
)

const (
	ModeFull        = "full"
	ModeIncremental = "incremental"

	defaultIncrementalPages = 5
)

// ErrNoListings is returned by a full sync that crawled nothing; the store is left untouched.
var ErrNoListings = errors.New("no listings crawled")

// Result is the outcome of a sync: the catalog as it now stands and the run report.
type Result struct {
	Entries []domain.CatalogEntry
	Report  Report
}

// Options carries the optional collaborators of a Service.
type Options struct {
	SourceID         string
	IncrementalPages int
	SourcePacer      *Pacer
	MetadataPacer    *Pacer
	Announcer        Announcer
	Recorder         Recorder
	Logger           logger.Logger
	Now              func() time.Time
}

// Service runs full and incremental syncs. At most one sync runs at a time.
type Service struct {
	source      sources.ListingSource
	enricher    Enricher
	store       catalog.Store
	sourcePacer *Pacer
	metaPacer   *Pacer
	announcer   Announcer
	recorder    Recorder
	log         logger.Logger
	now         func() time.Time
	sourceID    string
	pages       int

	mu sync.Mutex
}

// NewService wires a synchronizer. A nil enricher disables metadata lookups.
func NewService(src sources.ListingSource, enricher Enricher, store catalog.Store, opts Options) *Service {
	if enricher == nil {
		enricher = disabledEnricher{}
	}
	if opts.SourcePacer == nil {
		opts.SourcePacer = NewPacer(0, 0, 0)
	}
	if opts.MetadataPacer == nil {
		opts.MetadataPacer = NewPacer(0, 0, 0)
	}
	if opts.IncrementalPages <= 0 {
		opts.IncrementalPages = defaultIncrementalPages
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.SourceID == "" && src != nil {
		opts.SourceID = src.ID()
	}

	return &Service{
		source:      src,
		enricher:    enricher,
		store:       store,
		sourcePacer: opts.SourcePacer,
		metaPacer:   opts.MetadataPacer,
		announcer:   opts.Announcer,
		recorder:    opts.Recorder,
		log:         logger.Ensure(opts.Logger),
		now:         opts.Now,
		sourceID:    opts.SourceID,
		pages:       opts.IncrementalPages,
	}
}

// FullSync crawls every listing page and rebuilds the catalog, keeping prior
// enrichment for entries that already have it.
func (s *Service) FullSync(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rep := s.newReport(ModeFull)

	prior, err := s.store.Load()
	if err != nil {
		err = fmt.Errorf("load catalog: %w", err)
		return Result{Report: s.finish(rep, err)}, err
	}

	rep.PagesPlanned = s.source.DiscoverPageCount(ctx)
	listings := s.crawl(ctx, rep.PagesPlanned, &rep)
	if err := ctx.Err(); err != nil {
		return Result{Report: s.finish(rep, err)}, err
	}
	if len(listings) == 0 {
		return Result{Report: s.finish(rep, ErrNoListings)}, ErrNoListings
	}

	priorByID := indexByID(prior)
	entries := make([]domain.CatalogEntry, 0, len(listings)+len(prior))
	var fresh []domain.CatalogEntry
	seen := make(map[string]struct{}, len(listings))

	for _, listing := range listings {
		prev, existed := priorByID[listing.ID]
		entry, item := s.merge(ctx, listing, prev, existed)
		if err := ctx.Err(); err != nil {
			return Result{Report: s.finish(rep, err)}, err
		}
		rep.addItem(item)
		entries = append(entries, entry)
		seen[listing.ID] = struct{}{}
		if !existed {
			fresh = append(fresh, entry)
		}
	}
	rep.New = len(fresh)

	// A transient page failure must not drop catalog rows.
	if rep.PagesFailed > 0 {
		for _, entry := range prior {
			if _, ok := seen[entry.ID]; ok {
				continue
			}
			entries = append(entries, entry)
			rep.Retained++
		}
	}

	return s.commit(ctx, rep, entries, fresh)
}

// Rebuild runs a full sync; it lets the catalog cache rebuild itself on a new day.
func (s *Service) Rebuild(ctx context.Context) ([]domain.CatalogEntry, error) {
	res, err := s.FullSync(ctx)
	return res.Entries, err
}

// IncrementalSync crawls the first pages (the configured count when pages <= 0)
// and prepends listings that are not yet in the catalog.
func (s *Service) IncrementalSync(ctx context.Context, pages int) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pages <= 0 {
		pages = s.pages
	}
	rep := s.newReport(ModeIncremental)
	rep.PagesPlanned = pages

	prior, err := s.store.Load()
	if err != nil {
		err = fmt.Errorf("load catalog: %w", err)
		return Result{Report: s.finish(rep, err)}, err
	}

	listings := s.crawl(ctx, pages, &rep)
	if err := ctx.Err(); err != nil {
		return Result{Report: s.finish(rep, err)}, err
	}

	priorByID := indexByID(prior)
	var fresh []domain.CatalogEntry
	for _, listing := range listings {
		if _, existed := priorByID[listing.ID]; existed {
			rep.addItem(ItemOutcome{ID: listing.ID, Title: listing.Title, Action: ActionPreserved, Reason: "already in catalog"})
			continue
		}
		entry, item := s.merge(ctx, listing, domain.CatalogEntry{}, false)
		if err := ctx.Err(); err != nil {
			return Result{Report: s.finish(rep, err)}, err
		}
		rep.addItem(item)
		fresh = append(fresh, entry)
	}
	rep.New = len(fresh)

	if len(fresh) == 0 {
		rep.Entries = len(prior)
		rep = s.finish(rep, nil)
		return Result{Entries: prior, Report: rep}, nil
	}

	entries := make([]domain.CatalogEntry, 0, len(fresh)+len(prior))
	entries = append(entries, fresh...)
	entries = append(entries, prior...)
	return s.commit(ctx, rep, entries, fresh)
}

// commit saves the snapshot, then records and announces on success.
func (s *Service) commit(ctx context.Context, rep Report, entries, fresh []domain.CatalogEntry) (Result, error) {
	rep.Entries = len(entries)

	if err := s.store.Save(entries); err != nil {
		err = fmt.Errorf("save catalog: %w", err)
		rep = s.finish(rep, err)
		return Result{Entries: entries, Report: rep}, err
	}
	rep.Saved = true
	rep = s.finish(rep, nil)

	if s.announcer != nil && len(fresh) > 0 {
		if err := s.announcer.Announce(ctx, s.sourceID, rep.Mode, fresh); err != nil {
			s.log.WarnObj("announce new entries failed", "sync_announce_error", map[string]any{
				"source_id": s.sourceID,
				"entries":   len(fresh),
				"error":     err.Error(),
			})
		}
	}
	return Result{Entries: entries, Report: rep}, nil
}

// crawl fetches pages 1..pages sequentially, de-duplicating listings by ID.
func (s *Service) crawl(ctx context.Context, pages int, rep *Report) []domain.Listing {
	var (
		out  []domain.Listing
		seen = make(map[string]struct{})
	)

	for page := 1; page <= pages; page++ {
		if err := s.sourcePacer.Wait(ctx); err != nil {
			break
		}

		items, err := s.source.FetchPage(ctx, page)
		if err != nil {
			rep.PagesFailed++
			rep.Pages = append(rep.Pages, PageOutcome{Page: page, Err: err.Error()})
			s.log.WarnObj("listing page failed", "sync_page_error", map[string]any{
				"source_id": s.sourceID,
				"page":      page,
				"error":     err.Error(),
			})
			continue
		}

		rep.PagesCrawled++
		rep.Pages = append(rep.Pages, PageOutcome{Page: page, Listings: len(items)})
		for _, item := range items {
			if item.ID == "" {
				continue
			}
			if _, dup := seen[item.ID]; dup {
				rep.Duplicates++
				continue
			}
			seen[item.ID] = struct{}{}
			out = append(out, item)
		}
	}

	rep.Listings = len(out)
	return out
}

// merge builds the entry for a crawled listing. Prior enrichment is kept
// verbatim; otherwise a lookup is attempted.
func (s *Service) merge(ctx context.Context, listing domain.Listing, prev domain.CatalogEntry, existed bool) (domain.CatalogEntry, ItemOutcome) {
	entry := domain.CatalogEntry{
		ID:           listing.ID,
		Slug:         listing.ID,
		Title:        listing.Title,
		DisplayTitle: displayTitle(listing.Title),
		Link:         listing.URL,
	}
	item := ItemOutcome{ID: listing.ID, Title: listing.Title}

	if existed && prev.Enriched() {
		entry.Image, entry.Year = prev.Image, prev.Year
		item.Action = ActionPreserved
		return entry, item
	}

	if !s.enricher.Enabled() {
		item.Action = ActionSkipped
		item.Reason = "metadata lookups disabled"
		return entry, item
	}

	if err := s.metaPacer.Wait(ctx); err != nil {
		item.Action = ActionSkipped
		item.Reason = err.Error()
		return entry, item
	}

	res := s.enricher.Resolve(ctx, listing.Title)
	entry.Image, entry.Year = res.Image, res.Year
	if res.Found() {
		item.Action = ActionEnriched
	} else {
		item.Action = ActionUnresolved
		item.Reason = "no metadata match"
		if existed {
			item.Reason = "no metadata match on retry"
		}
	}
	return entry, item
}

func (s *Service) newReport(mode string) Report {
	return Report{
		SourceID:  s.sourceID,
		Mode:      mode,
		StartedAt: s.now(),
	}
}

// finish stamps the report, logs it and records it in the run ledger.
func (s *Service) finish(rep Report, err error) Report {
	rep.FinishedAt = s.now()
	if err != nil {
		rep.Error = err.Error()
	} else if rep.PagesFailed > 0 {
		rep.Error = fmt.Sprintf("%d of %d pages failed", rep.PagesFailed, rep.PagesPlanned)
	}

	summary := rep.summary()
	if err != nil {
		summary["error"] = err.Error()
		s.log.ErrorObj("catalog sync failed", "sync_report", summary)
	} else {
		s.log.InfoObj("catalog sync completed", "sync_report", summary)
	}

	if s.recorder != nil {
		if recErr := s.recorder.RecordRun(rep.Record()); recErr != nil {
			s.log.WarnObj("record sync run failed", "sync_record_error", map[string]any{
				"source_id": s.sourceID,
				"error":     recErr.Error(),
			})
		}
	}
	return rep
}

func indexByID(entries []domain.CatalogEntry) map[string]domain.CatalogEntry {
	idx := make(map[string]domain.CatalogEntry, len(entries))
	for _, e := range entries {
		if _, ok := idx[e.ID]; !ok {
			idx[e.ID] = e
		}
	}
	return idx
}

// displayTitle is the cleaned title, or empty when cleaning changes nothing.
func displayTitle(raw string) string {
	clean := titles.Normalize(raw)
	if clean == "" || clean == raw {
		return ""
	}
	return clean
}
