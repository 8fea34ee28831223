package publishers

import (
	"time"

	"github.com/repackdex/repackdex/internal/domain"
)

// Event announces a catalog entry that appeared for the first time in a sync.
type Event struct {
	SourceID     string              `json:"source_id"`
	Mode         string              `json:"mode"`
	Entry        domain.CatalogEntry `json:"entry"`
	DiscoveredAt time.Time           `json:"discovered_at"`
}

// NewEvent constructs an Event for an entry discovered by the given sync mode.
func NewEvent(sourceID, mode string, entry domain.CatalogEntry) Event {
	return Event{
		SourceID:     sourceID,
		Mode:         mode,
		Entry:        entry,
		DiscoveredAt: time.Now().UTC(),
	}
}

// attributes are attached to queue and topic messages for subscriber filtering.
func (e Event) attributes() map[string]string {
	return map[string]string{
		"source_id": e.SourceID,
		"mode":      e.Mode,
		"entry_id":  e.Entry.ID,
	}
}
