// Package sparql fetches activity data from a SPARQL endpoint and imports it
// into the inventory store.
package sparql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const resultsMediaType = "application/sparql-results+json"

// Term is one bound value in a result row.
type Term struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Row maps variable names to bound terms. Unbound variables are absent.
type Row map[string]Term

// Value returns the value bound to name, or "" when unbound.
func (r Row) Value(name string) string {
	return r[name].Value
}

// Results is a SELECT query response in the SPARQL 1.1 JSON results format.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Row `json:"bindings"`
	} `json:"results"`
}

// Client queries a SPARQL endpoint over HTTP GET.
type Client struct {
	endpoint string
	http     *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithHTTPClient replaces the underlying *http.Client entirely.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a client for the given endpoint URL.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Select runs a SELECT query and returns its bindings.
func (c *Client) Select(ctx context.Context, query string) (*Results, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("sparql: parse endpoint: %w", err)
	}
	params := u.Query()
	params.Set("query", query)
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("sparql: create request: %w", err)
	}
	req.Header.Set("Accept", resultsMediaType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sparql: query: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("sparql: query: HTTP %d: %s", resp.StatusCode, string(body))
	}

	var results Results
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return nil, fmt.Errorf("sparql: decode results: %w", err)
	}
	return &results, nil
}
