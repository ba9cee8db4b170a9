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


package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/tesserae/deepinspect/core"
	"github.com/tesserae/deepinspect/journal"
	"github.com/tesserae/deepinspect/retrieval"
	"github.com/tesserae/deepinspect/transport"
)

const defaultPollTimeout = 30 * time.Second

// WorkLoop polls the transport for work batches and replies with one
// outcome message per batch until its context is cancelled.
type WorkLoop struct {
	transport   transport.Transport
	stale       transport.StaleNotifier
	cache       *retrieval.HandleCache
	processor   *BatchProcessor
	journal     journal.Repository
	pollTimeout time.Duration
	logger      *slog.Logger
}

// LoopOption configures a WorkLoop.
type LoopOption func(*WorkLoop)

// WithStaleNotifier wires in a source of stale-connection notices, drained
// before each batch is processed.
func WithStaleNotifier(stale transport.StaleNotifier) LoopOption {
	return func(l *WorkLoop) {
		l.stale = stale
	}
}

// WithJournal records every sent reply in the given repository.
// Journal failures are logged and never block the reply path.
func WithJournal(repo journal.Repository) LoopOption {
	return func(l *WorkLoop) {
		l.journal = repo
	}
}

// WithPollTimeout sets how long a single receive waits before the loop
// re-checks its context. Default is 30s.
func WithPollTimeout(timeout time.Duration) LoopOption {
	return func(l *WorkLoop) {
		if timeout > 0 {
			l.pollTimeout = timeout
		}
	}
}

// WithLoopLogger sets a custom logger. Default is slog.Default().
func WithLoopLogger(logger *slog.Logger) LoopOption {
	return func(l *WorkLoop) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// NewWorkLoop creates a work loop over the given transport, handle cache
// and batch processor.
func NewWorkLoop(tr transport.Transport, cache *retrieval.HandleCache, processor *BatchProcessor, opts ...LoopOption) (*WorkLoop, error) {
	if tr == nil {
		return nil, ErrTransportRequired
	}
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	l := &WorkLoop{
		transport:   tr,
		cache:       cache,
		processor:   processor,
		pollTimeout: defaultPollTimeout,
		logger:      slog.Default().With("component", "work-loop"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Run polls for work until ctx is cancelled. It only returns the context's
// error: malformed messages, transport hiccups and item failures are logged
// and absorbed so the loop keeps serving.
func (l *WorkLoop) Run(ctx context.Context) error {
	l.logger.Info("looking for work")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		raw, err := l.transport.Receive(ctx, l.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			l.logger.Error("receive failed", "err", err)
			continue
		}
		if raw == nil {
			l.logger.Debug("poll timeout reached")
			continue
		}

		l.handleMessage(ctx, raw)
	}
}

// handleMessage runs one received message through decode, invalidation,
// processing and reply. A message that cannot be decoded is dropped.
func (l *WorkLoop) handleMessage(ctx context.Context, raw []byte) {
	batch, err := transport.DecodeWorkBatch(raw)
	if err != nil {
		l.logger.Error("dropping undecodable work message", "err", err)
		return
	}
	l.logger.Info("work received", "correlation_id", batch.CorrelationID,
		"items", len(batch.Items), "tags", len(batch.RequestedTags))

	if l.stale != nil {
		if staleSources := l.stale.DrainStale(); len(staleSources) > 0 {
			l.logger.Info("invalidating stale connections", "count", len(staleSources))
			l.cache.InvalidateAll(staleSources)
		}
	}

	var reply *core.BatchReply
	switch err := core.ValidateWorkBatch(batch); {
	case errors.Is(err, core.ErrNoRequestedTags):
		// The batch itself is answerable, just unscoreable: reply with one
		// failed outcome per item rather than wedging the queue.
		l.logger.Error("work message requests no tags, failing batch",
			"correlation_id", batch.CorrelationID)
		reply = FailAll(batch)
	case err != nil:
		l.logger.Error("dropping invalid work message",
			"correlation_id", batch.CorrelationID, "err", err)
		return
	default:
		reply = l.processor.Process(ctx, batch)
	}

	encoded, err := transport.EncodeBatchReply(reply)
	if err != nil {
		l.logger.Error("reply encoding failed", "correlation_id", batch.CorrelationID, "err", err)
		return
	}
	if err := l.transport.Send(ctx, encoded); err != nil {
		l.logger.Error("reply send failed", "correlation_id", batch.CorrelationID, "err", err)
		return
	}
	l.logger.Info("reply sent", "correlation_id", batch.CorrelationID, "outcomes", len(reply.Outcomes))

	if l.journal != nil {
		entry := &journal.Entry{CorrelationID: batch.CorrelationID, Reply: encoded}
		if err := l.journal.Record(ctx, entry); err != nil {
			l.logger.Warn("journal record failed", "correlation_id", batch.CorrelationID, "err", err)
		}
	}
}
