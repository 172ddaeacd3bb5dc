// Package search provides the search-provider adapter with two-tier
// result memoization: a Supabase search_cache table when the remote store
// is configured, fronted by an in-process TTL cache.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/p-blackswan/code-company/internal/cache"
	"github.com/p-blackswan/code-company/internal/supabase"
)

// CacheTTL is how long a search result (including an error sentinel) stays
// memoized. Transient provider failures are cached for the full window.
const CacheTTL = 300 * time.Second

const (
	ProviderMock = "mock"
	ProviderHTTP = "http"

	cacheTable   = "search_cache"
	resultCount  = 10
	localEntries = 128
)

// Result is one search hit.
type Result struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

// Outcome describes how a Search call was satisfied.
type Outcome string

const (
	OutcomeCached   Outcome = "cached"
	OutcomeMock     Outcome = "mock"
	OutcomeLive     Outcome = "live"
	OutcomeDegraded Outcome = "degraded"
)

// Config holds the search provider settings.
type Config struct {
	Mode    string // ProviderMock or ProviderHTTP
	APIURL  string
	APIKey  string
	Timeout time.Duration
}

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client is the search-provider adapter.
type Client struct {
	cfg        Config
	remote     *supabase.Client
	local      *cache.TTL[string, []Result]
	httpClient HTTPClient
	logger     zerolog.Logger
}

// NewClient creates a search adapter. remote may be a disabled client, in
// which case only the in-process cache tier is used.
func NewClient(cfg Config, remote *supabase.Client, logger zerolog.Logger) *Client {
	if cfg.Mode == "" {
		cfg.Mode = ProviderMock
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.APIURL == "" {
		cfg.APIURL = "https://google.serper.dev/search"
	}
	return &Client{
		cfg:        cfg,
		remote:     remote,
		local:      cache.New[string, []Result](localEntries),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "search").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// SetClock overrides the in-process cache's time source (for testing).
func (c *Client) SetClock(now func() time.Time) {
	c.local.SetClock(now)
}

// Provider returns the configured provider mode.
func (c *Client) Provider() string { return c.cfg.Mode }

// Search returns results for the query, from cache when possible. It never
// returns an error: upstream failures degrade to a single sentinel result,
// which is memoized like any other outcome.
func (c *Client) Search(ctx context.Context, query string) ([]Result, Outcome) {
	provider := c.cfg.Mode
	key := query + "|" + provider

	if results, ok := c.local.Get(key); ok {
		return results, OutcomeCached
	}
	if results, ok := c.remoteGet(ctx, query, provider); ok {
		c.local.Put(key, results, CacheTTL)
		return results, OutcomeCached
	}

	var results []Result
	outcome := OutcomeLive
	if provider == ProviderMock {
		results = []Result{{
			Title:   fmt.Sprintf("Mock result for '%s'", query),
			Snippet: "Demo snippet",
			URL:     "#",
		}}
		outcome = OutcomeMock
	} else {
		var err error
		results, err = c.fetch(ctx, query)
		if err != nil {
			c.logger.Warn().Err(err).Str("query", query).Msg("search provider failed, returning sentinel")
			results = []Result{{Title: "Error fetching results", Snippet: err.Error(), URL: "#"}}
			outcome = OutcomeDegraded
		}
	}

	c.local.Put(key, results, CacheTTL)
	c.remotePut(ctx, query, provider, results)
	return results, outcome
}

// serperRequest is the Serper.dev search request body.
type serperRequest struct {
	Q   string `json:"q"`
	GL  string `json:"gl"`
	HL  string `json:"hl"`
	Num int    `json:"num"`
}

type serperItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	URL     string `json:"url"`
}

type serperResponse struct {
	Organic []serperItem `json:"organic"`
}

// fetch issues the upstream search request and parses items defensively:
// missing fields degrade to placeholders, never errors.
func (c *Client) fetch(ctx context.Context, query string) ([]Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(serperRequest{Q: query, GL: "in", HL: "en", Num: resultCount})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-KEY", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("search API error (status %d): %s", resp.StatusCode, raw)
	}

	var sr serperResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	results := make([]Result, 0, len(sr.Organic))
	for _, item := range sr.Organic {
		title := item.Title
		if title == "" {
			title = "Untitled Result"
		}
		snippet := item.Snippet
		if snippet == "" {
			snippet = "No description available."
		}
		link := item.Link
		if link == "" {
			link = item.URL
		}
		if link == "" {
			link = "#"
		}
		results = append(results, Result{Title: title, Snippet: snippet, URL: link})
	}
	return results, nil
}

// cacheRow is the search_cache table shape.
type cacheRow struct {
	Query    string          `json:"query"`
	Provider string          `json:"provider"`
	Results  json.RawMessage `json:"results"`
	Expiry   string          `json:"expiry"`
}

// remoteGet checks the Supabase cache. Errors degrade to a miss.
func (c *Client) remoteGet(ctx context.Context, query, provider string) ([]Result, bool) {
	if !c.remote.Enabled() {
		return nil, false
	}

	var rows []cacheRow
	err := c.remote.Select(ctx, supabase.From(cacheTable).Eq("query", query).Eq("provider", provider), &rows)
	if err != nil {
		c.logger.Warn().Err(err).Msg("cache fetch error")
		return nil, false
	}

	now := time.Now().UTC().Format(time.RFC3339)
	for _, row := range rows {
		if row.Expiry <= now {
			continue
		}
		var results []Result
		if json.Unmarshal(row.Results, &results) == nil && len(results) > 0 {
			return results, true
		}
	}
	return nil, false
}

// remotePut writes results to the Supabase cache, best-effort.
func (c *Client) remotePut(ctx context.Context, query, provider string, results []Result) {
	if !c.remote.Enabled() {
		return
	}

	raw, err := json.Marshal(results)
	if err != nil {
		return
	}
	row := cacheRow{
		Query:    query,
		Provider: provider,
		Results:  raw,
		Expiry:   time.Now().UTC().Add(CacheTTL).Format(time.RFC3339),
	}
	if err := c.remote.Insert(ctx, cacheTable, row); err != nil {
		c.logger.Warn().Err(err).Msg("cache save error")
	}
}
