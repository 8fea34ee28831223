package sources

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/repackdex/repackdex/internal/domain"
)

// TypeLCPCatlist is a WordPress "List Category Posts" A-Z index paginated via ?lcp_page0=N.
const TypeLCPCatlist = "lcp_catlist"

// lcpSource implements ListingSource for List Category Posts pages.
type lcpSource struct {
	cfg       Source
	client    HTTPClient
	log       Logger
	pageParam *regexp.Regexp
}

// NewLCPSource builds a listing source for a List Category Posts index.
func NewLCPSource(cfg Source, client HTTPClient, log Logger) ListingSource {
	if client == nil {
		client = DefaultHTTPClient()
	}
	cfg = sanitizeSource(cfg)
	return &lcpSource{
		cfg:       cfg,
		client:    client,
		log:       ensureLogger(log),
		pageParam: regexp.MustCompile(regexp.QuoteMeta(cfg.PageParam) + `=(\d+)`),
	}
}

func (s *lcpSource) ID() string {
	return s.cfg.ID
}

// FetchPage downloads one index page and extracts its (title, href) anchors.
func (s *lcpSource) FetchPage(ctx context.Context, page int) ([]domain.Listing, error) {
	target, err := pageURL(s.cfg.BaseURL, s.cfg.PageParam, page)
	if err != nil {
		return nil, err
	}

	body, err := fetchHTML(ctx, s.client, target, s.cfg.ID, Headers(s.cfg))
	if err != nil {
		return nil, err
	}

	listings, err := parseListings(body, s.cfg.ListSelector)
	if err != nil {
		return nil, fmt.Errorf("parse %s page %d: %w", s.cfg.ID, page, err)
	}
	return listings, nil
}

// DiscoverPageCount inspects the pagination links on page 1. Any failure, or a
// page without pagination numbers, degrades to the configured fallback.
func (s *lcpSource) DiscoverPageCount(ctx context.Context) int {
	body, err := fetchHTML(ctx, s.client, s.cfg.BaseURL, s.cfg.ID, Headers(s.cfg))
	if err != nil {
		s.log.WarnObj("page count detection failed; using fallback", "page_count_error", map[string]any{
			"source_id":      s.cfg.ID,
			"fallback_pages": s.cfg.FallbackPages,
			"error":          err.Error(),
		})
		return s.cfg.FallbackPages
	}

	pages, err := parsePageCount(body, s.cfg.PaginationSelector, s.pageParam)
	if err != nil || pages < 1 {
		reason := "no pagination markers found"
		if err != nil {
			reason = err.Error()
		}
		s.log.WarnObj("page count not found; using fallback", "page_count_error", map[string]any{
			"source_id":      s.cfg.ID,
			"fallback_pages": s.cfg.FallbackPages,
			"error":          reason,
		})
		return s.cfg.FallbackPages
	}

	s.log.InfoObj("page count detected", "page_count", map[string]any{
		"source_id": s.cfg.ID,
		"pages":     pages,
	})
	return pages
}

func parseListings(body []byte, selector string) ([]domain.Listing, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var listings []domain.Listing
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		title := strings.TrimSpace(sel.Text())
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if title == "" || href == "" {
			return
		}
		listings = append(listings, domain.Listing{
			ID:    domain.ListingID(href, title),
			Title: title,
			URL:   href,
		})
	})
	return listings, nil
}

// parsePageCount returns the highest page number found in pagination hrefs or
// link texts, or 0 when there is none.
func parsePageCount(body []byte, selector string, param *regexp.Regexp) (int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("parse html: %w", err)
	}

	maxPage := 0
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		if href, ok := sel.Attr("href"); ok {
			if m := param.FindStringSubmatch(href); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n > maxPage {
					maxPage = n
				}
			}
		}
		if n, err := strconv.Atoi(strings.TrimSpace(sel.Text())); err == nil && n > maxPage {
			maxPage = n
		}
	})
	return maxPage, nil
}
