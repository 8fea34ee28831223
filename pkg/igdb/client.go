// Package igdb resolves cover art and release years for repack titles through the
// IGDB API, authenticating with Twitch client credentials.
package igdb

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/repackdex/repackdex/internal/domain"
	"github.com/repackdex/repackdex/internal/titles"
	"github.com/repackdex/repackdex/pkg/httpclient"
)

const (
	DefaultTokenURL      = "https://id.twitch.tv/oauth2/token"
	DefaultAPIURL        = "https://api.igdb.com/v4"
	DefaultImageTemplate = "https://images.igdb.com/igdb/image/upload/t_cover_big/%s.jpg"

	// tokenSafetyMargin is the minimum remaining lifetime for a cached token to be reused.
	tokenSafetyMargin = 60 * time.Second
	candidateLimit    = 3
	defaultTimeout    = 15 * time.Second
)

// Config holds the IGDB credentials and endpoints.
type Config struct {
	ClientID      string
	ClientSecret  string
	TokenURL      string
	APIURL        string
	ImageTemplate string
	Timeout       time.Duration
}

// Logger defines the logging surface the client relies on.
type Logger interface {
	DebugObj(msg, key string, obj interface{})
	WarnObj(msg, key string, obj interface{})
}

type noopLogger struct{}

func (noopLogger) DebugObj(string, string, interface{}) {}
func (noopLogger) WarnObj(string, string, interface{})  {}

type accessToken struct {
	value     string
	expiresAt time.Time
}

// Client is an IGDB lookup client. It owns the bearer token and a per-title
// result cache that lives as long as the client does.
type Client struct {
	cfg  Config
	http *resty.Client
	log  Logger
	now  func() time.Time

	tokenMu sync.Mutex
	token   accessToken

	cacheMu sync.RWMutex
	cache   map[string]domain.Enrichment
}

// NewClient builds a client; missing endpoints fall back to the public IGDB ones.
func NewClient(cfg Config, log Logger) *Client {
	cfg.ClientID = strings.TrimSpace(cfg.ClientID)
	cfg.ClientSecret = strings.TrimSpace(cfg.ClientSecret)
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.ImageTemplate == "" {
		cfg.ImageTemplate = DefaultImageTemplate
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = noopLogger{}
	}
	return &Client{
		cfg:   cfg,
		http:  httpclient.NewRestyHTTPClient(cfg.Timeout),
		log:   log,
		now:   time.Now,
		cache: make(map[string]domain.Enrichment),
	}
}

// Enabled reports whether credentials are configured.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.ClientID != "" && c.cfg.ClientSecret != ""
}

// Resolve returns the cover image and release year for a raw listing title.
// It never fails: every error path degrades to an empty Enrichment.
func (c *Client) Resolve(ctx context.Context, rawTitle string) domain.Enrichment {
	if !c.Enabled() {
		return domain.Enrichment{}
	}

	key := strings.ToLower(rawTitle)
	if res, ok := c.cached(key); ok {
		return res
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		c.log.WarnObj("igdb token unavailable", "igdb_token_error", map[string]any{
			"title": rawTitle,
			"error": err.Error(),
		})
		return domain.Enrichment{}
	}

	search := titles.Normalize(rawTitle)
	if search == "" {
		search = strings.TrimSpace(rawTitle)
	}

	var res domain.Enrichment
	if match, ok := c.findMatch(ctx, token, search); ok {
		res = c.project(match)
	}
	c.store(key, res)
	return res
}

func (c *Client) cached(key string) (domain.Enrichment, bool) {
	c.cacheMu.RLock()
	defer c.cacheMu.RUnlock()
	res, ok := c.cache[key]
	return res, ok
}

func (c *Client) store(key string, res domain.Enrichment) {
	c.cacheMu.Lock()
	c.cache[key] = res
	c.cacheMu.Unlock()
}

// accessToken returns the cached bearer token, exchanging credentials when the
// cached one is missing or expires within the safety margin.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.tokenMu.Lock()
	defer c.tokenMu.Unlock()

	if c.token.value != "" && c.token.expiresAt.Sub(c.now()) > tokenSafetyMargin {
		return c.token.value, nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"client_id":     c.cfg.ClientID,
			"client_secret": c.cfg.ClientSecret,
			"grant_type":    "client_credentials",
		}).
		Post(c.cfg.TokenURL)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("token response status %d", resp.StatusCode())
	}

	var payload struct {
		AccessToken string  `json:"access_token"`
		ExpiresIn   float64 `json:"expires_in"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token response has no access_token")
	}

	c.token = accessToken{
		value:     payload.AccessToken,
		expiresAt: c.now().Add(time.Duration(payload.ExpiresIn * float64(time.Second))),
	}
	return c.token.value, nil
}

// findMatch runs the search strategies in order and stops at the first one
// that yields any candidate.
func (c *Client) findMatch(ctx context.Context, token, search string) (candidate, bool) {
	for i, query := range buildQueries(search) {
		candidates, err := c.queryGames(ctx, token, query)
		if err != nil {
			c.log.DebugObj("igdb strategy failed", "igdb_query_error", map[string]any{
				"strategy": i + 1,
				"search":   search,
				"error":    err.Error(),
			})
			continue
		}
		if len(candidates) == 0 {
			continue
		}
		return selectMatch(candidates, search)
	}
	return candidate{}, false
}

func (c *Client) queryGames(ctx context.Context, token, query string) ([]candidate, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeaders(map[string]string{
			"Client-ID":     c.cfg.ClientID,
			"Authorization": "Bearer " + token,
			"Content-Type":  "text/plain",
			"Accept":        "application/json",
		}).
		SetBody(query).
		Post(strings.TrimRight(c.cfg.APIURL, "/") + "/games")
	if err != nil {
		return nil, fmt.Errorf("games request: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("games response status %d", resp.StatusCode())
	}

	var candidates []candidate
	if err := json.Unmarshal(resp.Body(), &candidates); err != nil {
		return nil, fmt.Errorf("decode games: %w", err)
	}
	return candidates, nil
}

func (c *Client) project(match candidate) domain.Enrichment {
	var res domain.Enrichment
	if match.hasCover() {
		res.Image = domain.StringPtr(fmt.Sprintf(c.cfg.ImageTemplate, match.Cover.ImageID))
	}
	if year, ok := releaseYear(match.FirstReleaseDate); ok {
		res.Year = domain.IntPtr(year)
	}
	return res
}

// releaseYear converts a Unix-seconds release timestamp to a UTC calendar year.
func releaseYear(ts *float64) (int, bool) {
	if ts == nil || *ts == 0 || math.IsNaN(*ts) || math.IsInf(*ts, 0) {
		return 0, false
	}
	// Beyond this the year leaves the four-digit range.
	if math.Abs(*ts) > 253402300799 {
		return 0, false
	}
	return time.Unix(int64(*ts), 0).UTC().Year(), true
}
