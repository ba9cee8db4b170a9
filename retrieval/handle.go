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

type handleState int

const (
	stateIdle handleState = iota
	stateFetching
	stateFetched
	stateClosed
)

// Handle is a live, source-scoped resource permitting document retrieval.
// It is owned exclusively by the HandleCache that created it.
//
// A handle serves one fetch at a time. The gate channel serializes items
// that share a source: Fetch acquires it, Cleanup releases it, so two items
// on the same datasource never interleave the fetch state machine even when
// the batch runs on a multi-worker pool.
type Handle struct {
	source    core.SourceID
	retriever Retriever
	logger    *slog.Logger

	gate chan struct{} // capacity 1, held from Fetch through Cleanup

	mu        sync.Mutex
	state     handleState
	localPath string
}

func newHandle(source core.SourceID, retriever Retriever, logger *slog.Logger) *Handle {
	return &Handle{
		source:    source,
		retriever: retriever,
		logger:    logger,
		gate:      make(chan struct{}, 1),
	}
}

// Source returns the datasource this handle is bound to.
func (h *Handle) Source() core.SourceID {
	return h.source
}

// Fetch stages the item's document locally and returns its path.
// On success the handle stays in the fetched state until Cleanup runs;
// the caller must invoke Cleanup on every exit path.
func (h *Handle) Fetch(ctx context.Context, item core.WorkItem) (string, error) {
	select {
	case h.gate <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	h.mu.Lock()
	if h.state == stateClosed {
		h.mu.Unlock()
		h.releaseGate()
		return "", fmt.Errorf("%s: %w", h.source, ErrHandleClosed)
	}
	if h.state != stateIdle {
		h.mu.Unlock()
		h.releaseGate()
		return "", fmt.Errorf("%s: %w", h.source, ErrHandleBusy)
	}
	h.state = stateFetching
	h.mu.Unlock()

	localPath, err := h.retriever.Retrieve(ctx, item)

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state == stateClosed {
		// Closed while the fetch was in flight. Drop the staged copy and
		// report the source as gone.
		if err == nil {
			if discardErr := h.retriever.Discard(localPath); discardErr != nil {
				h.logger.Warn("discard after close failed", "source", h.source, "err", discardErr)
			}
		}
		h.releaseGate()
		return "", fmt.Errorf("%s: %w", h.source, ErrHandleClosed)
	}

	if err != nil {
		h.state = stateIdle
		h.releaseGate()
		return "", err
	}

	h.state = stateFetched
	h.localPath = localPath
	return localPath, nil
}

// Cleanup releases the staging resource tied to the last fetch and returns
// the handle to the idle state. Safe to call more than once; a second call
// is a no-op and never double-releases.
func (h *Handle) Cleanup() error {
	h.mu.Lock()
	if h.state != stateFetched {
		h.mu.Unlock()
		h.releaseGate()
		return nil
	}
	localPath := h.localPath
	h.localPath = ""
	h.state = stateIdle
	h.mu.Unlock()

	err := h.retriever.Discard(localPath)
	h.releaseGate()
	return err
}

// Close transitions the handle to the closed state from any state,
// discarding any staged document and releasing the connection. Idempotent.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.state == stateClosed {
		h.mu.Unlock()
		return nil
	}
	localPath := h.localPath
	wasFetched := h.state == stateFetched
	h.localPath = ""
	h.state = stateClosed
	h.mu.Unlock()

	if wasFetched {
		if err := h.retriever.Discard(localPath); err != nil {
			h.logger.Warn("discard on close failed", "source", h.source, "err", err)
		}
	}
	return h.retriever.Close()
}

// Closed reports whether the handle has been closed.
func (h *Handle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == stateClosed
}

func (h *Handle) releaseGate() {
	select {
	case <-h.gate:
	default:
	}
}
