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


// Package inference submits staged documents to the external
// classification server and decodes its structured reply.
//
// The server contract is a multipart file upload answered with a JSON
// object carrying model_version, filename_seg, obj_count and result. A
// response missing any of those fields is malformed; the item is not
// retried here; redelivery, if wanted, is queue policy.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tesserae/deepinspect/core"
)

// Result is the structured reply for one successfully inferred document.
// Ephemeral: mapped onto tags and dropped, never persisted.
type Result struct {
	ModelVersion string
	SegmentFile  string          // name of the derived segmentation artifact
	ObjectCount  int             // objects (e.g. nodules) detected
	Payload      json.RawMessage // full result object, passed through verbatim
}

// Fields returns the extracted fields in tag-matching order.
// The order is part of the contract: a tag name containing several
// candidate field names gets the first match listed here.
func (r *Result) Fields() core.Fields {
	return core.Fields{
		{Name: "segfile", Value: r.SegmentFile},
		{Name: "model_version", Value: r.ModelVersion},
		{Name: "obj_count", Value: strconv.Itoa(r.ObjectCount)},
		{Name: "result", Value: string(r.Payload)},
	}
}

// wireResult mirrors the server's JSON reply. Pointer fields distinguish
// absent from zero-valued so presence is checked at decode time.
type wireResult struct {
	ModelVersion *string          `json:"model_version"`
	SegmentFile  *string          `json:"filename_seg"`
	ObjectCount  *int             `json:"obj_count"`
	Payload      *json.RawMessage `json:"result"`
}

// Client submits local files to the inference server.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests and by
// deployments that need custom transports.
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

// NewClient creates a client for the configured inference server.
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		url:        config.URL(),
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     slog.Default().With("component", "inference-client"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Infer uploads the file at localPath and decodes the server's reply.
// Failures are classified as ErrUnreachable, ErrTimeout or
// ErrMalformedResponse for outcome mapping.
func (c *Client) Infer(ctx context.Context, localPath string) (*Result, error) {
	body, contentType, err := buildUpload(localPath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("sending file to inference server", "file", localPath, "url", c.url)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, classifyTransport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrMalformedResponse, resp.StatusCode)
	}

	var wire wireResult
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return wire.validate()
}

// validate checks field presence once, at decode time, so missing data
// surfaces here and not on first use.
func (w *wireResult) validate() (*Result, error) {
	switch {
	case w.ModelVersion == nil:
		return nil, fmt.Errorf("%w: missing model_version", ErrMalformedResponse)
	case w.SegmentFile == nil:
		return nil, fmt.Errorf("%w: missing filename_seg", ErrMalformedResponse)
	case w.ObjectCount == nil:
		return nil, fmt.Errorf("%w: missing obj_count", ErrMalformedResponse)
	case w.Payload == nil:
		return nil, fmt.Errorf("%w: missing result", ErrMalformedResponse)
	}

	return &Result{
		ModelVersion: *w.ModelVersion,
		SegmentFile:  *w.SegmentFile,
		ObjectCount:  *w.ObjectCount,
		Payload:      *w.Payload,
	}, nil
}

func buildUpload(localPath string) (io.Reader, string, error) {
	file, err := os.Open(localPath)
	if err != nil {
		return nil, "", err
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filepath.Base(localPath))
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return &buf, writer.FormDataContentType(), nil
}

func classifyTransport(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrUnreachable, err)
}
