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
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/tesserae/deepinspect/core"
	"github.com/tesserae/deepinspect/retrieval"
	"github.com/tesserae/deepinspect/tagmap"
)

// BatchProcessor turns one work batch into one reply.
type BatchProcessor struct {
	cache    *retrieval.HandleCache
	enricher Enricher
	pool     *ants.Pool
	logger   *slog.Logger
}

// ProcessorOption configures a BatchProcessor.
type ProcessorOption func(*BatchProcessor) error

// WithPoolSize sets the worker pool size for item processing.
// Default is 1: items run strictly in order, one at a time.
func WithPoolSize(size int) ProcessorOption {
	return func(p *BatchProcessor) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *BatchProcessor) error {
		if logger != nil {
			p.logger = logger
		}
		return nil
	}
}

// NewBatchProcessor creates a processor over the given handle cache and
// enrichment path.
func NewBatchProcessor(cache *retrieval.HandleCache, enricher Enricher, opts ...ProcessorOption) (*BatchProcessor, error) {
	if cache == nil {
		return nil, ErrCacheRequired
	}
	if enricher == nil {
		return nil, ErrEnricherRequired
	}

	pool, err := ants.NewPool(1)
	if err != nil {
		return nil, err
	}

	p := &BatchProcessor{
		cache:    cache,
		enricher: enricher,
		pool:     pool,
		logger:   slog.Default().With("component", "batch-processor"),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	return p, nil
}

// Process produces exactly one outcome per input item, in input order.
// Item failures never abort the batch; the worst outcome is a failed item.
func (p *BatchProcessor) Process(ctx context.Context, batch *core.WorkBatch) *core.BatchReply {
	outcomes := make([]core.ItemOutcome, len(batch.Items))

	var wg sync.WaitGroup
	for i := range batch.Items {
		index := i
		item := batch.Items[i]

		wg.Add(1)
		task := func() {
			defer wg.Done()
			outcomes[index] = p.processItem(ctx, batch.RequestedTags, item)
		}
		if err := p.pool.Submit(task); err != nil {
			// Pool unavailable; run on the caller.
			task()
		}
	}
	wg.Wait()

	return &core.BatchReply{
		CorrelationID: batch.CorrelationID,
		Outcomes:      outcomes,
	}
}

// processItem applies retrieval, enrichment and tag mapping to one item and
// converts every error class into an outcome status.
func (p *BatchProcessor) processItem(ctx context.Context, requestedTags []string, item core.WorkItem) (outcome core.ItemOutcome) {
	outcome = core.ItemOutcome{Item: item, Status: core.StatusFailed}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic processing item", "item", item.String(), "panic", r)
			outcome = core.ItemOutcome{Item: item, Status: core.StatusFailed}
		}
	}()

	p.logger.Info("inspecting document", "doc", item.ID(), "item", item.String(), "enricher", p.enricher.Name())

	localPath := ""
	if p.enricher.NeedsDocument() {
		handle, err := p.cache.GetOrCreate(ctx, item.Source)
		if err != nil {
			// The connection cannot be built: the source is gone, not the item.
			p.logger.Info("no connection for source, skipping", "item", item.String(), "err", err)
			outcome.Status = core.StatusSkipped
			return outcome
		}

		path, err := handle.Fetch(ctx, item)
		if err != nil {
			outcome.Status = retrievalStatus(err)
			p.logger.Info("document retrieval failed", "item", item.String(),
				"status", outcome.Status.String(), "err", err)
			return outcome
		}
		defer func() {
			if err := handle.Cleanup(); err != nil {
				p.logger.Warn("cleanup failed", "item", item.String(), "err", err)
			}
		}()
		localPath = path
		p.logger.Debug("document staged", "item", item.String(), "staged", localPath)
	}

	fields, err := p.enricher.Enrich(ctx, item, localPath)
	if err != nil {
		p.logger.Info("enrichment failed", "item", item.String(), "err", err)
		return outcome
	}

	outcome.Status = core.StatusSuccess
	outcome.Tags = tagmap.Map(requestedTags, fields)
	return outcome
}

// FailAll builds an all-failed reply for a batch that cannot be scored at
// all (no requested tags). One outcome per item, order preserved.
func FailAll(batch *core.WorkBatch) *core.BatchReply {
	outcomes := make([]core.ItemOutcome, len(batch.Items))
	for i, item := range batch.Items {
		outcomes[i] = core.ItemOutcome{Item: item, Status: core.StatusFailed}
	}
	return &core.BatchReply{
		CorrelationID: batch.CorrelationID,
		Outcomes:      outcomes,
	}
}

// Release releases the worker pool.
// The processor should not be used after calling Release.
func (p *BatchProcessor) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

func retrievalStatus(err error) core.Status {
	if errors.Is(err, retrieval.ErrHandleClosed) {
		return core.StatusSkipped
	}
	return core.StatusFailed
}
