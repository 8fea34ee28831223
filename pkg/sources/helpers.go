package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// pageURL returns the URL for a 1-based page number; page 1 is the base URL itself.
func pageURL(base, param string, page int) (string, error) {
	if page <= 1 {
		return base, nil
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base_url: %w", err)
	}
	q := parsed.Query()
	q.Set(param, strconv.Itoa(page))
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

func fetchHTML(ctx context.Context, client HTTPClient, target, sourceID string, headers map[string]string) ([]byte, error) {
	resp, err := client.Get(ctx, target, headers)
	if err != nil {
		return nil, fmt.Errorf("fetch %s page: %w", sourceID, err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%s page returned status %d body: %s", sourceID, resp.StatusCode(), responseSnippet(body))
	}
	return body, nil
}
