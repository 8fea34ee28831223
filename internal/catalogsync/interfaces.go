package catalogsync

import (
	"context"

	"github.com/repackdex/repackdex/internal/domain"
	"github.com/repackdex/repackdex/internal/storage"
)

// Enricher resolves cover art and release year for a raw listing title.
type Enricher interface {
	Enabled() bool
	Resolve(ctx context.Context, rawTitle string) domain.Enrichment
}

// Announcer is told about entries that appeared for the first time.
type Announcer interface {
	Announce(ctx context.Context, sourceID, mode string, entries []domain.CatalogEntry) error
}

// Recorder persists run summaries.
type Recorder interface {
	RecordRun(run storage.RunRecord) error
}

type disabledEnricher struct{}

func (disabledEnricher) Enabled() bool { return false }
func (disabledEnricher) Resolve(context.Context, string) domain.Enrichment {
	return domain.Enrichment{}
}
