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


// Package catalog queries the metadata catalog's REST search API and the
// local client database, the variant enrichment path that scores items by
// side metadata instead of document content.
package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
)

const tokenRoute = "/auth/v1/token"

// Session holds the catalog host and the bearer-token state shared by
// catalog calls. Token state lives here, not in globals, so two workers can
// talk to two catalogs.
type Session struct {
	host     string
	user     string
	password string

	httpClient *http.Client
	logger     *slog.Logger

	mu    sync.Mutex
	token string
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithSessionHTTPClient replaces the underlying HTTP client.
func WithSessionHTTPClient(httpClient *http.Client) SessionOption {
	return func(s *Session) {
		if httpClient != nil {
			s.httpClient = httpClient
		}
	}
}

// WithSessionLogger sets a custom logger. Default is slog.Default().
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSession creates a session for the given catalog host and credentials.
// No token is fetched until the first call needs one.
func NewSession(host, user, password string, opts ...SessionOption) (*Session, error) {
	if host == "" {
		return nil, ErrHostRequired
	}
	if user == "" {
		return nil, ErrUserRequired
	}
	if password == "" {
		return nil, ErrPasswordRequired
	}

	s := &Session{
		host:       strings.TrimSuffix(host, "/"),
		user:       user,
		password:   password,
		httpClient: http.DefaultClient,
		logger:     slog.Default().With("component", "catalog-session"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Host returns the catalog base URL without a trailing slash.
func (s *Session) Host() string {
	return s.host
}

// Token returns the current bearer token, possibly empty before the first
// refresh.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// RefreshToken obtains a fresh bearer token from the identity endpoint
// using basic authentication and replaces the session token.
func (s *Session) RefreshToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.host+tokenRoute, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.user, s.password)

	s.logger.Debug("requesting new catalog token", "user", s.user, "host", s.host)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrTokenRejected, resp.StatusCode)
	}

	token := resp.Header.Get("X-Auth-Token")
	if token == "" {
		return fmt.Errorf("%w: no X-Auth-Token header", ErrTokenRejected)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}
