package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/repackdex/repackdex/internal/domain"
)

// Fanout dispatches events to all configured publishers.
type Fanout struct {
	publishers []Publisher
	log        Logger
}

// NewFanout builds a dispatcher that fans out events across publishers.
func NewFanout(pubs []Publisher, log Logger) *Fanout {
	cp := make([]Publisher, 0, len(pubs))
	for _, p := range pubs {
		if p == nil {
			continue
		}
		cp = append(cp, p)
	}
	return &Fanout{publishers: cp, log: ensureLogger(log)}
}

// Publish forwards the event to every registered publisher.
// It returns the number of publishers that successfully handled the event.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.publishers) == 0 {
		return 0, nil
	}

	var errs []error
	successful := 0
	for _, p := range f.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s publisher[%s]: %w", p.Type(), p.ID(), err))
		} else {
			successful++
		}
	}
	return successful, errors.Join(errs...)
}

// Announce publishes one event per newly discovered entry.
func (f *Fanout) Announce(ctx context.Context, sourceID, mode string, entries []domain.CatalogEntry) error {
	if f.Size() == 0 || len(entries) == 0 {
		return nil
	}

	var errs []error
	delivered := 0
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		n, err := f.Publish(ctx, NewEvent(sourceID, mode, entry))
		if err != nil {
			errs = append(errs, err)
		}
		if n > 0 {
			delivered++
		}
	}

	f.log.InfoObj("announced new catalog entries", "publisher_fanout", map[string]any{
		"source_id":  sourceID,
		"mode":       mode,
		"entries":    len(entries),
		"delivered":  delivered,
		"publishers": len(f.publishers),
	})
	return errors.Join(errs...)
}

// Size returns the number of active publishers.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.publishers)
}

// Close releases publishers that hold client resources.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.publishers)
}

func closeAll(pubs []Publisher) error {
	var errs []error
	for _, p := range pubs {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s publisher[%s]: %w", p.Type(), p.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
