// Package supabase wraps the Supabase REST (PostgREST) interface used for
// the remote cache and history tables. Only the generic operations the
// backend needs are exposed: filtered select, ordered select and insert.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apierrors "github.com/p-blackswan/code-company/internal/errors"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to a Supabase project's REST endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient HTTPClient
	logger     zerolog.Logger
}

// NewClient creates a new Supabase REST client. baseURL is the project URL
// (https://<ref>.supabase.co); key is the service or anon key.
func NewClient(baseURL, key string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     key,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With().Str("component", "supabase").Logger(),
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(hc HTTPClient) {
	c.httpClient = hc
}

// Enabled reports whether the client has a usable configuration.
func (c *Client) Enabled() bool {
	return c != nil && c.baseURL != "" && c.apiKey != ""
}

// Query describes a select against one table.
type Query struct {
	Table   string
	filters [][2]string
	order   string
	limit   int
}

// From starts a query on a table.
func From(table string) Query {
	return Query{Table: table}
}

// Eq adds an equality filter on a column.
func (q Query) Eq(column, value string) Query {
	q.filters = append(q.filters, [2]string{column, value})
	return q
}

// OrderDesc orders results by a column, newest first.
func (q Query) OrderDesc(column string) Query {
	q.order = column + ".desc"
	return q
}

// Limit caps the number of returned rows.
func (q Query) Limit(n int) Query {
	q.limit = n
	return q
}

func (q Query) encode() string {
	params := url.Values{}
	params.Set("select", "*")
	for _, f := range q.filters {
		params.Set(f[0], "eq."+f[1])
	}
	if q.order != "" {
		params.Set("order", q.order)
	}
	if q.limit > 0 {
		params.Set("limit", strconv.Itoa(q.limit))
	}
	return params.Encode()
}

// Select runs the query and decodes the returned rows into dest, which must
// be a pointer to a slice.
func (c *Client) Select(ctx context.Context, q Query, dest interface{}) error {
	if !c.Enabled() {
		return apierrors.ErrNotConfigured
	}

	path := fmt.Sprintf("/rest/v1/%s?%s", q.Table, q.encode())
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, dest)
}

// Insert adds one record to a table.
func (c *Client) Insert(ctx context.Context, table string, record interface{}) error {
	if !c.Enabled() {
		return apierrors.ErrNotConfigured
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/rest/v1/"+table, bytes.NewReader(body))
	if err != nil {
		return err
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

// do executes an authenticated API request.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if method == http.MethodPost {
		req.Header.Set("Prefer", "return=minimal")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, apierrors.NewAPIError("supabase", resp.StatusCode, string(respBody))
	}

	return resp, nil
}

// decodeResponse reads and decodes a JSON response.
func decodeResponse(resp *http.Response, v interface{}) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
