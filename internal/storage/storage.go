// Package storage keeps a ledger of catalog sync runs.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Store records sync runs and answers questions about recent ones.
type Store interface {
	Close() error
	RecordRun(run RunRecord) error
	RecentRuns(limit int) ([]RunRecord, error)
	LastRun(mode string) (RunRecord, bool, error)
}

// PageRecord is the outcome of fetching one listing page.
type PageRecord struct {
	Page     int    `json:"page"`
	Listings int    `json:"listings"`
	Error    string `json:"error,omitempty"`
}

// RunRecord is the persisted summary of one sync run.
type RunRecord struct {
	SourceID     string       `json:"source_id"`
	Mode         string       `json:"mode"`
	StartedAt    time.Time    `json:"started_at"`
	FinishedAt   time.Time    `json:"finished_at"`
	PagesPlanned int          `json:"pages_planned"`
	PagesCrawled int          `json:"pages_crawled"`
	PagesFailed  int          `json:"pages_failed"`
	Pages        []PageRecord `json:"pages,omitempty"`
	Listings     int          `json:"listings"`
	Duplicates   int          `json:"duplicates"`
	New          int          `json:"new"`
	Preserved    int          `json:"preserved"`
	Enriched     int          `json:"enriched"`
	Unresolved   int          `json:"unresolved"`
	Retained     int          `json:"retained"`
	Entries      int          `json:"entries"`
	Saved        bool         `json:"saved"`
	Error        string       `json:"error,omitempty"`
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	RunTTL          time.Duration
	CleanupInterval time.Duration
}

const (
	defaultRunTTL          = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.RunTTL <= 0 {
		opts.RunTTL = defaultRunTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                            { return nil }
func (noopStore) RecordRun(RunRecord) error               { return nil }
func (noopStore) RecentRuns(int) ([]RunRecord, error)     { return []RunRecord{}, nil }
func (noopStore) LastRun(string) (RunRecord, bool, error) { return RunRecord{}, false, nil }
