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
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tesserae/deepinspect/core"
	"github.com/tesserae/deepinspect/retrieval"
)

type fakeRetriever struct {
	mu        sync.Mutex
	retrieves int
	discards  int
	failWith  error
}

func (f *fakeRetriever) Retrieve(_ context.Context, item core.WorkItem) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.retrieves++
	if f.failWith != nil {
		return "", f.failWith
	}
	return "/tmp/staged-" + item.Path, nil
}

func (f *fakeRetriever) Discard(string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.discards++
	return nil
}

func (f *fakeRetriever) Close() error { return nil }

// fakeFactory knows a fixed set of sources; anything else is unavailable.
type fakeFactory struct {
	mu         sync.Mutex
	retrievers map[core.SourceID]*fakeRetriever
	creates    int
}

func newFakeFactory(sources ...core.SourceID) *fakeFactory {
	retrievers := make(map[core.SourceID]*fakeRetriever, len(sources))
	for _, source := range sources {
		retrievers[source] = &fakeRetriever{}
	}
	return &fakeFactory{retrievers: retrievers}
}

func (f *fakeFactory) Create(_ context.Context, source core.SourceID) (retrieval.Retriever, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	retriever, ok := f.retrievers[source]
	if !ok {
		return nil, retrieval.ErrSourceUnavailable
	}
	return retriever, nil
}

type fakeEnricher struct {
	mu            sync.Mutex
	needsDocument bool
	fields        core.Fields
	failPaths     map[string]error
	seenPaths     []string
	seenStaged    []string
}

func (f *fakeEnricher) Name() string        { return "fake" }
func (f *fakeEnricher) NeedsDocument() bool { return f.needsDocument }

func (f *fakeEnricher) Enrich(_ context.Context, item core.WorkItem, localPath string) (core.Fields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seenPaths = append(f.seenPaths, item.Path)
	f.seenStaged = append(f.seenStaged, localPath)
	if err, ok := f.failPaths[item.Path]; ok {
		return nil, err
	}
	return f.fields, nil
}

func newTestCache(t *testing.T, factory retrieval.Factory) *retrieval.HandleCache {
	t.Helper()
	cache, err := retrieval.NewHandleCache(factory)
	require.NoError(t, err)
	t.Cleanup(cache.Close)
	return cache
}

func newTestProcessor(t *testing.T, cache *retrieval.HandleCache, enricher Enricher, opts ...ProcessorOption) *BatchProcessor {
	t.Helper()
	processor, err := NewBatchProcessor(cache, enricher, opts...)
	require.NoError(t, err)
	t.Cleanup(processor.Release)
	return processor
}

func testBatch(items ...core.WorkItem) *core.WorkBatch {
	return &core.WorkBatch{
		CorrelationID: "msg-1",
		RequestedTags: []string{"dicom_model_version"},
		Items:         items,
	}
}

func TestNewBatchProcessorValidation(t *testing.T) {
	cache := newTestCache(t, newFakeFactory())

	_, err := NewBatchProcessor(nil, &fakeEnricher{})
	assert.ErrorIs(t, err, ErrCacheRequired)

	_, err = NewBatchProcessor(cache, nil)
	assert.ErrorIs(t, err, ErrEnricherRequired)
}

func TestProcessAllSuccess(t *testing.T) {
	factory := newFakeFactory("conn-a")
	cache := newTestCache(t, factory)
	enricher := &fakeEnricher{
		needsDocument: true,
		fields:        core.Fields{{Name: "model_version", Value: "v3"}},
	}
	processor := newTestProcessor(t, cache, enricher)

	batch := testBatch(
		core.WorkItem{Source: "conn-a", Path: "/scans/a.dcm", Fkey: "fk-1"},
		core.WorkItem{Source: "conn-a", Path: "/scans/b.dcm", Fkey: "fk-2"},
	)
	reply := processor.Process(context.Background(), batch)

	require.Len(t, reply.Outcomes, 2)
	assert.Equal(t, "msg-1", reply.CorrelationID)
	for i, outcome := range reply.Outcomes {
		assert.Equal(t, batch.Items[i], outcome.Item)
		assert.Equal(t, core.StatusSuccess, outcome.Status)
		assert.Equal(t, map[string]string{"dicom_model_version": "v3"}, outcome.Tags)
	}

	// Both items share one source: one handle, every staged copy discarded.
	assert.Equal(t, 1, factory.creates)
	assert.Equal(t, 2, factory.retrievers["conn-a"].retrieves)
	assert.Equal(t, 2, factory.retrievers["conn-a"].discards)
}

func TestProcessUnavailableSourceSkipsOnlyItsItems(t *testing.T) {
	factory := newFakeFactory("conn-a")
	cache := newTestCache(t, factory)
	enricher := &fakeEnricher{
		needsDocument: true,
		fields:        core.Fields{{Name: "model_version", Value: "v3"}},
	}
	processor := newTestProcessor(t, cache, enricher)

	batch := testBatch(
		core.WorkItem{Source: "conn-a", Path: "/scans/a.dcm"},
		core.WorkItem{Source: "conn-gone", Path: "/scans/b.dcm"},
		core.WorkItem{Source: "conn-a", Path: "/scans/c.dcm"},
	)
	reply := processor.Process(context.Background(), batch)

	require.Len(t, reply.Outcomes, 3)
	assert.Equal(t, core.StatusSuccess, reply.Outcomes[0].Status)
	assert.Equal(t, core.StatusSkipped, reply.Outcomes[1].Status)
	assert.Equal(t, core.StatusSuccess, reply.Outcomes[2].Status)
	assert.Empty(t, reply.Outcomes[1].Tags)
}

func TestProcessRetrieveErrorFailsItem(t *testing.T) {
	factory := newFakeFactory("conn-a")
	factory.retrievers["conn-a"].failWith = retrieval.ErrNotFound
	cache := newTestCache(t, factory)
	enricher := &fakeEnricher{needsDocument: true}
	processor := newTestProcessor(t, cache, enricher)

	batch := testBatch(core.WorkItem{Source: "conn-a", Path: "/scans/a.dcm"})
	reply := processor.Process(context.Background(), batch)

	require.Len(t, reply.Outcomes, 1)
	assert.Equal(t, core.StatusFailed, reply.Outcomes[0].Status)
	assert.Empty(t, enricher.seenPaths)
}

func TestProcessEnrichErrorIsolatedPerItem(t *testing.T) {
	factory := newFakeFactory("conn-a")
	cache := newTestCache(t, factory)
	enricher := &fakeEnricher{
		needsDocument: true,
		fields:        core.Fields{{Name: "model_version", Value: "v3"}},
		failPaths:     map[string]error{"/scans/a.dcm": errors.New("model exploded")},
	}
	processor := newTestProcessor(t, cache, enricher)

	batch := testBatch(
		core.WorkItem{Source: "conn-a", Path: "/scans/a.dcm"},
		core.WorkItem{Source: "conn-a", Path: "/scans/b.dcm"},
	)
	reply := processor.Process(context.Background(), batch)

	require.Len(t, reply.Outcomes, 2)
	assert.Equal(t, core.StatusFailed, reply.Outcomes[0].Status)
	assert.Equal(t, core.StatusSuccess, reply.Outcomes[1].Status)

	// The failed item still releases its staged copy.
	assert.Equal(t, 2, factory.retrievers["conn-a"].discards)
}

func TestProcessMetadataOnlyEnricherSkipsRetrieval(t *testing.T) {
	factory := newFakeFactory()
	cache := newTestCache(t, factory)
	enricher := &fakeEnricher{
		needsDocument: false,
		fields:        core.Fields{{Name: "blood_group", Value: "B+"}},
	}
	processor := newTestProcessor(t, cache, enricher)

	batch := testBatch(core.WorkItem{Source: "conn-unknown", Path: "/scans/a.dcm"})
	batch.RequestedTags = []string{"dicom_blood_group"}
	reply := processor.Process(context.Background(), batch)

	require.Len(t, reply.Outcomes, 1)
	assert.Equal(t, core.StatusSuccess, reply.Outcomes[0].Status)
	assert.Equal(t, map[string]string{"dicom_blood_group": "B+"}, reply.Outcomes[0].Tags)
	assert.Equal(t, 0, factory.creates)
	assert.Equal(t, []string{""}, enricher.seenStaged)
}

func TestProcessUnmatchedTagsMapToEmpty(t *testing.T) {
	factory := newFakeFactory()
	cache := newTestCache(t, factory)
	enricher := &fakeEnricher{fields: core.Fields{{Name: "result", Value: "3 nodules"}}}
	processor := newTestProcessor(t, cache, enricher)

	batch := testBatch(core.WorkItem{Source: "conn-a", Path: "/scans/a.dcm"})
	batch.RequestedTags = []string{"dicom_result", "dicom_operator"}
	reply := processor.Process(context.Background(), batch)

	require.Len(t, reply.Outcomes, 1)
	assert.Equal(t, map[string]string{
		"dicom_result":   "3 nodules",
		"dicom_operator": "",
	}, reply.Outcomes[0].Tags)
}

func TestProcessEmptyBatch(t *testing.T) {
	cache := newTestCache(t, newFakeFactory())
	processor := newTestProcessor(t, cache, &fakeEnricher{})

	reply := processor.Process(context.Background(), testBatch())
	assert.Equal(t, "msg-1", reply.CorrelationID)
	assert.Len(t, reply.Outcomes, 0)
}

func TestProcessPoolKeepsOutcomesInInputOrder(t *testing.T) {
	factory := newFakeFactory("conn-a", "conn-b", "conn-c", "conn-d")
	cache := newTestCache(t, factory)
	enricher := &fakeEnricher{
		needsDocument: true,
		fields:        core.Fields{{Name: "model_version", Value: "v3"}},
	}
	processor := newTestProcessor(t, cache, enricher, WithPoolSize(4))

	items := make([]core.WorkItem, 16)
	for i := range items {
		source := core.SourceID(fmt.Sprintf("conn-%c", 'a'+i%4))
		items[i] = core.WorkItem{Source: source, Path: fmt.Sprintf("/scans/%02d.dcm", i)}
	}
	reply := processor.Process(context.Background(), testBatch(items...))

	require.Len(t, reply.Outcomes, len(items))
	for i, outcome := range reply.Outcomes {
		assert.Equal(t, items[i], outcome.Item, "outcome %d out of order", i)
		assert.Equal(t, core.StatusSuccess, outcome.Status)
	}
}

func TestProcessLogsDocumentIdentity(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	cache := newTestCache(t, newFakeFactory())
	enricher := &fakeEnricher{fields: core.Fields{{Name: "result", Value: "clean"}}}
	processor, err := NewBatchProcessor(cache, enricher, WithLogger(logger))
	require.NoError(t, err)
	t.Cleanup(processor.Release)

	item := core.WorkItem{Source: "conn-a", Path: "/scans/a.dcm"}
	processor.Process(context.Background(), testBatch(item))

	assert.Contains(t, logs.String(), item.ID().String())
}

func TestFailAll(t *testing.T) {
	batch := testBatch(
		core.WorkItem{Source: "conn-a", Path: "/scans/a.dcm", Fkey: "fk-1"},
		core.WorkItem{Source: "conn-b", Path: "/scans/b.dcm", Fkey: "fk-2"},
	)
	reply := FailAll(batch)

	require.Len(t, reply.Outcomes, 2)
	assert.Equal(t, "msg-1", reply.CorrelationID)
	for i, outcome := range reply.Outcomes {
		assert.Equal(t, batch.Items[i], outcome.Item)
		assert.Equal(t, core.StatusFailed, outcome.Status)
		assert.Nil(t, outcome.Tags)
	}
}
