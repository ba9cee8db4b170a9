package pipeline

import (
	"context"

	"github.com/tesserae/deepinspect/core"
)

// Enricher produces the extracted fields for one work item.
// Implementations handle a specific enrichment path: document inference or
// catalog metadata lookup.
type Enricher interface {
	// Name identifies the enrichment path in logs.
	Name() string

	// NeedsDocument reports whether Enrich requires the document staged at
	// a local path. Metadata-only enrichers skip retrieval entirely.
	NeedsDocument() bool

	// Enrich returns the item's extracted fields in tag-matching order.
	// localPath is empty when NeedsDocument is false.
	Enrich(ctx context.Context, item core.WorkItem, localPath string) (core.Fields, error)
}
