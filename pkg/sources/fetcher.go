package sources

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/repackdex/repackdex/pkg/httpclient"
)

// Builder creates a ListingSource from a config entry.
type Builder func(cfg Source, client HTTPClient, log Logger) ListingSource

// TypeRegistry maps source types to builders.
type TypeRegistry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewTypeRegistry returns a registry with optional pre-registered builders.
func NewTypeRegistry(builders map[string]Builder) *TypeRegistry {
	reg := &TypeRegistry{builders: make(map[string]Builder)}
	for typ, b := range builders {
		reg.Register(typ, b)
	}
	return reg
}

// Register associates a builder with a source type.
func (r *TypeRegistry) Register(typ string, builder Builder) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" || builder == nil {
		return
	}

	r.mu.Lock()
	r.builders[key] = builder
	r.mu.Unlock()
}

// SourceFor builds the listing source for cfg based on its type.
func (r *TypeRegistry) SourceFor(cfg Source, client HTTPClient, log Logger) (ListingSource, error) {
	if r == nil {
		return nil, fmt.Errorf("source type registry is nil")
	}
	if strings.TrimSpace(cfg.ID) == "" {
		return nil, fmt.Errorf("source id is empty")
	}
	cfg = sanitizeSource(cfg)

	r.mu.RLock()
	builder := r.builders[cfg.Type]
	r.mu.RUnlock()

	if builder == nil {
		return nil, fmt.Errorf("no listing source registered for source %q (type %q)", cfg.ID, cfg.Type)
	}
	return builder(cfg, client, log), nil
}

// DefaultHTTPClient returns a tuned HTTP client for listing pages.
func DefaultHTTPClient() HTTPClient {
	return httpclient.NewRestyClient(15*time.Second, httpclient.WithRetry(2, 500*time.Millisecond))
}

// DefaultTypeRegistry wires up known source types.
func DefaultTypeRegistry() *TypeRegistry {
	return NewTypeRegistry(map[string]Builder{
		TypeLCPCatlist: NewLCPSource,
	})
}
