package catalogsync

import (
	"time"

	"github.com/repackdex/repackdex/internal/storage"
)

// Action is what a sync did with one crawled listing.
type Action string

const (
	ActionPreserved  Action = "preserved"
	ActionEnriched   Action = "enriched"
	ActionUnresolved Action = "unresolved"
	ActionSkipped    Action = "skipped"
)

// ItemOutcome describes the handling of one crawled listing.
type ItemOutcome struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Action Action `json:"action"`
	Reason string `json:"reason,omitempty"`
}

// PageOutcome describes one listing page fetch.
type PageOutcome struct {
	Page     int    `json:"page"`
	Listings int    `json:"listings"`
	Err      string `json:"error,omitempty"`
}

// Report summarizes one sync run.
type Report struct {
	SourceID     string        `json:"source_id"`
	Mode         string        `json:"mode"`
	StartedAt    time.Time     `json:"started_at"`
	FinishedAt   time.Time     `json:"finished_at"`
	PagesPlanned int           `json:"pages_planned"`
	PagesCrawled int           `json:"pages_crawled"`
	PagesFailed  int           `json:"pages_failed"`
	Pages        []PageOutcome `json:"pages"`
	Listings     int           `json:"listings"`
	Duplicates   int           `json:"duplicates"`
	New          int           `json:"new"`
	Preserved    int           `json:"preserved"`
	Enriched     int           `json:"enriched"`
	Unresolved   int           `json:"unresolved"`
	Retained     int           `json:"retained"`
	Entries      int           `json:"entries"`
	Saved        bool          `json:"saved"`
	Error        string        `json:"error,omitempty"`
	Items        []ItemOutcome `json:"items"`
}

func (r *Report) addItem(item ItemOutcome) {
	r.Items = append(r.Items, item)
	switch item.Action {
	case ActionPreserved:
		r.Preserved++
	case ActionEnriched:
		r.Enriched++
	case ActionUnresolved:
		r.Unresolved++
	}
}

// Record converts the report to its ledger form. Per-item outcomes stay in memory.
func (r Report) Record() storage.RunRecord {
	pages := make([]storage.PageRecord, 0, len(r.Pages))
	for _, p := range r.Pages {
		pages = append(pages, storage.PageRecord{Page: p.Page, Listings: p.Listings, Error: p.Err})
	}
	return storage.RunRecord{
		SourceID:     r.SourceID,
		Mode:         r.Mode,
		StartedAt:    r.StartedAt,
		FinishedAt:   r.FinishedAt,
		PagesPlanned: r.PagesPlanned,
		PagesCrawled: r.PagesCrawled,
		PagesFailed:  r.PagesFailed,
		Pages:        pages,
		Listings:     r.Listings,
		Duplicates:   r.Duplicates,
		New:          r.New,
		Preserved:    r.Preserved,
		Enriched:     r.Enriched,
		Unresolved:   r.Unresolved,
		Retained:     r.Retained,
		Entries:      r.Entries,
		Saved:        r.Saved,
		Error:        r.Error,
	}
}

func (r Report) summary() map[string]any {
	return map[string]any{
		"source_id":     r.SourceID,
		"mode":          r.Mode,
		"pages_planned": r.PagesPlanned,
		"pages_crawled": r.PagesCrawled,
		"pages_failed":  r.PagesFailed,
		"listings":      r.Listings,
		"duplicates":    r.Duplicates,
		"new":           r.New,
		"preserved":     r.Preserved,
		"enriched":      r.Enriched,
		"unresolved":    r.Unresolved,
		"retained":      r.Retained,
		"entries":       r.Entries,
		"saved":         r.Saved,
		"duration_ms":   r.FinishedAt.Sub(r.StartedAt).Milliseconds(),
	}
}
