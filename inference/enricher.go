package inference

import (
	"context"

	"github.com/tesserae/deepinspect/core"
)

// Enricher adapts the inference client to the batch pipeline's enricher
// contract: it needs the staged document and turns the server's reply into
// ordered fields for tag matching.
type Enricher struct {
	client *Client
}

// NewEnricher wraps a client for use by the batch processor.
func NewEnricher(client *Client) *Enricher {
	return &Enricher{client: client}
}

// Name identifies this enrichment path in logs and replies.
func (e *Enricher) Name() string {
	return "inference"
}

// NeedsDocument reports that inference operates on the staged file.
func (e *Enricher) NeedsDocument() bool {
	return true
}

// Enrich runs inference on the staged document.
func (e *Enricher) Enrich(ctx context.Context, item core.WorkItem, localPath string) (core.Fields, error) {
	result, err := e.client.Infer(ctx, localPath)
	if err != nil {
		return nil, err
	}
	return result.Fields(), nil
}
