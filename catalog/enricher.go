package catalog

import (
	"context"
	"fmt"

	"github.com/tesserae/deepinspect/core"
)

// pidColumn is the catalog column holding the client-database key.
const pidColumn = "dicom_pid"

// Enricher scores items by catalog metadata and the client database instead
// of document content; it never needs the document itself.
type Enricher struct {
	client *Client
	db     *ClientDB
}

// NewEnricher wraps the catalog client and client database for the batch
// processor.
func NewEnricher(client *Client, db *ClientDB) *Enricher {
	return &Enricher{client: client, db: db}
}

// Name identifies this enrichment path in logs and replies.
func (e *Enricher) Name() string {
	return "catalog"
}

// NeedsDocument reports that catalog enrichment is metadata-only.
func (e *Enricher) NeedsDocument() bool {
	return false
}

// Enrich looks the item up in the catalog and joins the client database.
// A missing catalog row or client record fails the item: the document is
// readable, the item itself cannot be scored.
func (e *Enricher) Enrich(ctx context.Context, item core.WorkItem, localPath string) (core.Fields, error) {
	row, err := e.client.MetadataByFkey(ctx, item.Fkey)
	if err != nil {
		return nil, err
	}

	pid := row.String(pidColumn)
	record, ok := e.db.Lookup(pid)
	if !ok {
		return nil, fmt.Errorf("%s: client record %q: %w", item.Fkey, pid, ErrEntryNotFound)
	}

	return core.Fields{
		{Name: "blood_group", Value: record.BloodGroup},
		{Name: "email", Value: record.Email},
		{Name: "smoker", Value: record.Smoker},
	}, nil
}
