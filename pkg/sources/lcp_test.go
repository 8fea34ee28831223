package sources

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/repackdex/repackdex/pkg/httpclient"
)

const base = "https://repacks.example/all-my-repacks-a-z/"

const page1HTML = `
<html><body>
<div id="lcp_instance_0">
  <ul class="lcp_catlist">
    <li><a href="https://repacks.example/game-a/">Game A v1.2 Repack</a></li>
    <li><a href="https://repacks.example/game-b/">Game B</a></li>
    <li><a href="">Missing Link</a></li>
    <li><a href="https://repacks.example/no-title/">   </a></li>
  </ul>
</div>
<ul class="lcp_paginator">
  <li><a href="https://repacks.example/all-my-repacks-a-z/?lcp_page0=2#lcp_instance_0">2</a></li>
  <li><a href="https://repacks.example/all-my-repacks-a-z/?lcp_page0=3#lcp_instance_0">3</a></li>
  <li><a href="https://repacks.example/all-my-repacks-a-z/?lcp_page0=131#lcp_instance_0">Last</a></li>
  <li><a href="#">Next</a></li>
</ul>
</body></html>`

type fakeResponse struct {
	body       []byte
	statusCode int
}

func (f fakeResponse) Body() []byte    { return f.body }
func (f fakeResponse) StatusCode() int { return f.statusCode }

// fakeHTTPClient returns canned responses per URL to avoid network calls.
type fakeHTTPClient struct {
	responses map[string]fakeResponse
	calls     []string
	headers   []map[string]string
}

func (f *fakeHTTPClient) Get(_ context.Context, url string, headers map[string]string) (httpclient.Response, error) {
	f.calls = append(f.calls, url)
	f.headers = append(f.headers, headers)
	resp, ok := f.responses[url]
	if !ok {
		return nil, errors.New("connection refused")
	}
	return resp, nil
}

func testSource() Source {
	return Source{
		ID:            "fitgirl",
		Name:          "FitGirl",
		BaseURL:       base,
		FallbackPages: 99,
		Config:        map[string]any{ConfigUserAgentKey: "UA"},
	}
}

func TestLCPSourceFetchPageParsesListings(t *testing.T) {
	client := &fakeHTTPClient{responses: map[string]fakeResponse{
		base: {body: []byte(page1HTML), statusCode: http.StatusOK},
	}}
	src := NewLCPSource(testSource(), client, nil)

	listings, err := src.FetchPage(context.Background(), 1)
	if err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if len(listings) != 2 {
		t.Fatalf("expected 2 listings, got %d: %#v", len(listings), listings)
	}
	if listings[0].ID != "game-a" || listings[0].Title != "Game A v1.2 Repack" {
		t.Errorf("unexpected first listing %#v", listings[0])
	}
	if listings[1].URL != "https://repacks.example/game-b/" {
		t.Errorf("unexpected second listing %#v", listings[1])
	}
	if got := client.headers[0]["User-Agent"]; got != "UA" {
		t.Errorf("User-Agent header = %q", got)
	}
}

func TestLCPSourceFetchPageBuildsPagedURL(t *testing.T) {
	paged := base + "?lcp_page0=7"
	client := &fakeHTTPClient{responses: map[string]fakeResponse{
		paged: {body: []byte(page1HTML), statusCode: http.StatusOK},
	}}
	src := NewLCPSource(testSource(), client, nil)

	if _, err := src.FetchPage(context.Background(), 7); err != nil {
		t.Fatalf("FetchPage: %v", err)
	}
	if client.calls[0] != paged {
		t.Fatalf("requested %q want %q", client.calls[0], paged)
	}
}

func TestLCPSourceFetchPageReportsStatusErrors(t *testing.T) {
	client := &fakeHTTPClient{responses: map[string]fakeResponse{
		base: {body: []byte("blocked"), statusCode: http.StatusForbidden},
	}}
	src := NewLCPSource(testSource(), client, nil)

	if _, err := src.FetchPage(context.Background(), 1); err == nil {
		t.Fatalf("expected error on 403")
	}
}

func TestDiscoverPageCountUsesHighestMarker(t *testing.T) {
	client := &fakeHTTPClient{responses: map[string]fakeResponse{
		base: {body: []byte(page1HTML), statusCode: http.StatusOK},
	}}
	src := NewLCPSource(testSource(), client, nil)

	if got := src.DiscoverPageCount(context.Background()); got != 131 {
		t.Fatalf("DiscoverPageCount = %d want 131", got)
	}
}

func TestDiscoverPageCountFallsBack(t *testing.T) {
	noPagination := &fakeHTTPClient{responses: map[string]fakeResponse{
		base: {body: []byte(`<html><body><p>nothing here</p></body></html>`), statusCode: http.StatusOK},
	}}
	if got := NewLCPSource(testSource(), noPagination, nil).DiscoverPageCount(context.Background()); got != 99 {
		t.Fatalf("expected fallback without markers, got %d", got)
	}

	unreachable := &fakeHTTPClient{}
	if got := NewLCPSource(testSource(), unreachable, nil).DiscoverPageCount(context.Background()); got != 99 {
		t.Fatalf("expected fallback on fetch failure, got %d", got)
	}
}

func TestTypeRegistryResolvesDefaultType(t *testing.T) {
	reg := DefaultTypeRegistry()
	src, err := reg.SourceFor(testSource(), &fakeHTTPClient{}, nil)
	if err != nil {
		t.Fatalf("SourceFor: %v", err)
	}
	if src.ID() != "fitgirl" {
		t.Fatalf("ID = %q", src.ID())
	}

	bad := testSource()
	bad.Type = "rss"
	if _, err := reg.SourceFor(bad, nil, nil); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
