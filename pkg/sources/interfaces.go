package sources

import (
	"context"

	"github.com/repackdex/repackdex/internal/domain"
	"github.com/repackdex/repackdex/pkg/httpclient"
)

// ListingSource fetches raw listings page by page from a catalog site.
// Concrete implementations live in type-specific files (e.g., lcp.go).
type ListingSource interface {
	ID() string
	FetchPage(ctx context.Context, page int) ([]domain.Listing, error)
	DiscoverPageCount(ctx context.Context) int
}

// HTTPClient aliases the shared httpclient.Client interface for clarity within sources.
type HTTPClient = httpclient.Client

// Logger defines the logging surface sources rely on.
type Logger interface {
	InfoObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) InfoObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{}) {}

func ensureLogger(log Logger) Logger {
	if log == nil {
		return noopLogger{}
	}
	return log
}
