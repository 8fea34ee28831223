package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/repackdex/repackdex/internal/domain"
	"golang.org/x/sync/singleflight"
)

// Rebuilder produces a fresh catalog, typically by running a full sync. It may
// return entries together with an error when the result could not be persisted.
type Rebuilder interface {
	Rebuild(ctx context.Context) ([]domain.CatalogEntry, error)
}

// RebuilderFunc adapts a function to Rebuilder.
type RebuilderFunc func(ctx context.Context) ([]domain.CatalogEntry, error)

// Rebuild calls f(ctx).
func (f RebuilderFunc) Rebuild(ctx context.Context) ([]domain.CatalogEntry, error) {
	return f(ctx)
}

// Logger defines the logging surface used by the cache and watcher.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
	ErrorObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{})  {}
func (noopLogger) WarnObj(string, string, interface{})  {}
func (noopLogger) ErrorObj(string, string, interface{}) {}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides the clock used for day comparisons.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithRebuilder enables background rebuilds when the snapshot goes stale.
func WithRebuilder(r Rebuilder) Option {
	return func(c *Cache) { c.rebuilder = r }
}

// WithBaseContext sets the context background rebuilds run under.
func WithBaseContext(ctx context.Context) Option {
	return func(c *Cache) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(log Logger) Option {
	return func(c *Cache) {
		if log != nil {
			c.log = log
		}
	}
}

const rebuildKey = "rebuild"

// Cache is the read path over a Store. It serves an immutable snapshot that is
// considered fresh for the calendar day it was filled on.
type Cache struct {
	store     Store
	rebuilder Rebuilder
	baseCtx   context.Context
	log       Logger
	now       func() time.Time

	mu       sync.RWMutex
	entries  []domain.CatalogEntry
	filledAt time.Time
	warm     bool

	group singleflight.Group
}

// NewCache creates a cold cache over store.
func NewCache(store Store, opts ...Option) *Cache {
	c := &Cache{
		store:   store,
		baseCtx: context.Background(),
		log:     noopLogger{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Entries returns the current catalog. Callers must not modify the returned slice.
func (c *Cache) Entries(ctx context.Context) ([]domain.CatalogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := c.now()
	entries, filledAt, warm := c.snapshot()
	if warm && sameDay(filledAt, now) {
		return entries, nil
	}

	if mod, ok := c.store.ModTime(); ok && sameDay(mod, now) {
		loaded, err := c.store.Load()
		if err != nil {
			if warm {
				c.log.WarnObj("catalog reread failed, serving snapshot", "catalog_cache", map[string]any{"error": err.Error()})
				return entries, nil
			}
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		c.fill(loaded, now)
		return loaded, nil
	}

	if !warm {
		loaded, err := c.store.Load()
		if err != nil {
			return nil, fmt.Errorf("load catalog: %w", err)
		}
		entries = loaded
	}

	if c.rebuilder == nil {
		c.fill(entries, now)
		return entries, nil
	}

	c.mu.Lock()
	if !c.warm {
		c.entries = entries
		c.warm = true
	}
	c.mu.Unlock()

	c.startRebuild()
	return entries, nil
}

// Refresh runs a rebuild synchronously, sharing it with any rebuild already in flight.
func (c *Cache) Refresh(ctx context.Context) error {
	if c.rebuilder == nil {
		return fmt.Errorf("catalog cache has no rebuilder")
	}
	ch := c.startRebuild()
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Cache) startRebuild() <-chan singleflight.Result {
	return c.group.DoChan(rebuildKey, func() (interface{}, error) {
		c.log.InfoObj("catalog rebuild started", "catalog_cache", map[string]any{"stale_since": c.filledAtString()})
		entries, err := c.rebuilder.Rebuild(c.baseCtx)
		now := c.now()
		if err != nil {
			c.log.ErrorObj("catalog rebuild failed", "catalog_cache", map[string]any{"error": err.Error()})
			if entries != nil {
				c.fill(entries, now)
			} else {
				c.touch(now)
			}
			return nil, err
		}
		c.fill(entries, now)
		c.log.InfoObj("catalog rebuild finished", "catalog_cache", map[string]any{"entries": len(entries)})
		return nil, nil
	})
}

// Swap replaces the snapshot after a successful sync.
func (c *Cache) Swap(entries []domain.CatalogEntry) {
	c.fill(entries, c.now())
}

// Invalidate drops the fill time so the next read rereads or rebuilds.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.filledAt = time.Time{}
	c.mu.Unlock()
}

// FilledAt returns when the snapshot was last filled.
func (c *Cache) FilledAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.filledAt
}

func (c *Cache) filledAtString() string {
	at := c.FilledAt()
	if at.IsZero() {
		return ""
	}
	return at.Format(time.RFC3339)
}

func (c *Cache) snapshot() ([]domain.CatalogEntry, time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.entries, c.filledAt, c.warm
}

func (c *Cache) fill(entries []domain.CatalogEntry, at time.Time) {
	if entries == nil {
		entries = []domain.CatalogEntry{}
	}
	c.mu.Lock()
	c.entries = entries
	c.filledAt = at
	c.warm = true
	c.mu.Unlock()
}

func (c *Cache) touch(at time.Time) {
	c.mu.Lock()
	c.filledAt = at
	c.mu.Unlock()
}

// sameDay compares calendar days in a's location.
func sameDay(a, b time.Time) bool {
	if a.IsZero() || b.IsZero() {
		return false
	}
	b = b.In(a.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
