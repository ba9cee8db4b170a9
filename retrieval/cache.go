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


package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tesserae/deepinspect/core"
)

// HandleCache owns the per-source retrieval handles for one worker process.
//
// Invariant: the cache never holds two live handles for the same source.
// Invalidation removes the cache entry and closes the handle under the same
// lock, so no caller can observe an open handle for an invalidated source.
type HandleCache struct {
	factory Factory
	logger  *slog.Logger

	mu      sync.Mutex
	handles map[core.SourceID]*Handle
}

// CacheOption configures a HandleCache.
type CacheOption func(*HandleCache)

// WithCacheLogger sets a custom logger. Default is slog.Default().
func WithCacheLogger(logger *slog.Logger) CacheOption {
	return func(c *HandleCache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewHandleCache creates a handle cache backed by the given factory.
func NewHandleCache(factory Factory, opts ...CacheOption) (*HandleCache, error) {
	if factory == nil {
		return nil, ErrFactoryRequired
	}

	c := &HandleCache{
		factory: factory,
		logger:  slog.Default().With("component", "handle-cache"),
		handles: make(map[core.SourceID]*Handle),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetOrCreate returns the cached handle for a source, building one on first
// use. A factory failure is reported as ErrSourceUnavailable.
func (c *HandleCache) GetOrCreate(ctx context.Context, source core.SourceID) (*Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if handle, ok := c.handles[source]; ok && !handle.Closed() {
		return handle, nil
	}

	retriever, err := c.factory.Create(ctx, source)
	if err != nil {
		if isUnavailable(err) {
			return nil, fmt.Errorf("%s: %w", source, ErrSourceUnavailable)
		}
		return nil, fmt.Errorf("%s: %w: %w", source, ErrSourceUnavailable, err)
	}

	handle := newHandle(source, retriever, c.logger)
	c.handles[source] = handle
	c.logger.Debug("created retrieval handle", "source", source)
	return handle, nil
}

// Invalidate closes and forgets the handle for a source. Idempotent; a
// source with no cached handle is a no-op.
func (c *HandleCache) Invalidate(source core.SourceID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(source)
}

// InvalidateAll drains a pending-invalidation set supplied by the transport
// layer. Called once per batch boundary, before any item is processed.
func (c *HandleCache) InvalidateAll(stale []core.SourceID) {
	if len(stale) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, source := range stale {
		c.invalidateLocked(source)
	}
}

// invalidateLocked removes the entry before closing the handle, so a
// concurrent GetOrCreate can never return the handle being torn down.
func (c *HandleCache) invalidateLocked(source core.SourceID) {
	handle, ok := c.handles[source]
	if !ok {
		return
	}
	delete(c.handles, source)

	c.logger.Debug("closing retrieval handle", "source", source)
	if err := handle.Close(); err != nil {
		c.logger.Warn("error closing retrieval handle", "source", source, "err", err)
	}
}

// Len returns the number of live cached handles.
func (c *HandleCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.handles)
}

// Close tears down every cached handle. Used at process shutdown.
func (c *HandleCache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for source := range c.handles {
		c.invalidateLocked(source)
	}
}
