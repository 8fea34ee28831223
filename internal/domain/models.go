package domain

import (
	"net/url"
	"strings"
)

// Domain contains core models shared by the sync engine and the read path.

// Listing is a single raw title+link pair scraped from one catalog page.
type Listing struct {
	ID    string
	Title string
	URL   string
}

// CatalogEntry is the merged, persisted record for one game.
type CatalogEntry struct {
	ID           string  `json:"id"`
	Slug         string  `json:"slug"`
	Title        string  `json:"title"`
	DisplayTitle string  `json:"displayTitle,omitempty"`
	Link         string  `json:"link"`
	Image        *string `json:"image"`
	Year         *int    `json:"year"`
}

// Enriched reports whether the entry carries any metadata from the enrichment service.
func (e CatalogEntry) Enriched() bool {
	return e.Image != nil || e.Year != nil
}

// Enrichment is the cover image and release year resolved for a title.
type Enrichment struct {
	Image *string
	Year  *int
}

// Found reports whether either field was resolved.
func (e Enrichment) Found() bool {
	return e.Image != nil || e.Year != nil
}

// ListingID derives the stable identifier for a listing: the last non-empty path
// segment of its link, or the slugified title when the link has none.
func ListingID(link, title string) string {
	path := link
	if u, err := url.Parse(link); err == nil && u.Path != "" {
		path = u.Path
	}
	segments := strings.FieldsFunc(path, func(r rune) bool { return r == '/' })
	if len(segments) > 0 {
		if last := strings.TrimSpace(segments[len(segments)-1]); last != "" {
			return last
		}
	}
	return slugify(title)
}

func slugify(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), "-")
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string { return &s }

// IntPtr returns a pointer to n.
func IntPtr(n int) *int { return &n }
