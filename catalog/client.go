// Copyright 2026 Tesserae Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const searchRoute = "/db2whrest/v1/search"

// Row is one decoded catalog search row.
type Row map[string]any

// String returns the row's value for a column as a string, empty when the
// column is absent or not textual.
func (r Row) String(column string) string {
	value, ok := r[column].(string)
	if !ok {
		return ""
	}
	return value
}

// searchRequest is the catalog's search body.
type searchRequest struct {
	Query   string   `json:"query"`
	Filters []string `json:"filters"`
	GroupBy []string `json:"group_by"`
	SortBy  []string `json:"sort_by"`
	Limit   int      `json:"limit,omitempty"`
}

// searchResponse carries the rows as a JSON-encoded string, the catalog's
// JSON-in-JSON quirk.
type searchResponse struct {
	Rows string `json:"rows"`
}

// Client runs searches against the catalog REST API.
type Client struct {
	session    *Session
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a search client over an authenticated session.
func NewClient(session *Session, opts ...ClientOption) (*Client, error) {
	if session == nil {
		return nil, ErrHostRequired
	}

	c := &Client{
		session:    session,
		httpClient: http.DefaultClient,
		logger:     slog.Default().With("component", "catalog-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Search runs a catalog query and returns the decoded rows.
// A 401 answer refreshes the session token once and retries; a second
// rejection, or any other non-200 status, fails the call.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Row, error) {
	resp, err := c.post(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		c.logger.Debug("catalog token expired, refreshing")
		if err := c.session.RefreshToken(ctx); err != nil {
			return nil, err
		}
		resp, err = c.post(ctx, query, limit)
		if err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrQueryFailed, resp.StatusCode)
	}

	var wire searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRows, err)
	}

	var rows []Row
	if err := json.Unmarshal([]byte(wire.Rows), &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRows, err)
	}
	return rows, nil
}

// MetadataByFkey returns the catalog row for one file key.
// ErrEntryNotFound when the catalog has no row for it.
func (c *Client) MetadataByFkey(ctx context.Context, fkey string) (Row, error) {
	query := fmt.Sprintf("fkey = '%s'", strings.ReplaceAll(fkey, "'", "''"))
	rows, err := c.Search(ctx, query, 3)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", fkey, ErrEntryNotFound)
	}
	return rows[0], nil
}

func (c *Client) post(ctx context.Context, query string, limit int) (*http.Response, error) {
	body, err := json.Marshal(searchRequest{
		Query:   query,
		Filters: []string{},
		GroupBy: []string{},
		SortBy:  []string{},
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.session.Host()+searchRoute, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.httpClient.Do(req)
}
