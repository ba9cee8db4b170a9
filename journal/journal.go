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


// Package journal records every batch reply the worker sends, so operators
// can audit or replay what was reported for a given work message. Entries
// store the encoded wire bytes verbatim: a journaled reply is byte-for-byte
// what went onto the queue.
//
// Journaling is best-effort infrastructure: a journal failure is logged by
// the work loop and never fails the batch.
package journal

import (
	"context"
	"errors"
	"time"
)

// Entry is one journaled batch reply.
type Entry struct {
	CorrelationID string
	SentAt        time.Time
	Reply         []byte // encoded wire bytes, exactly as sent
}

// Repository persists journal entries.
//
// Implementations must be safe for concurrent use. Constructors return this
// interface, not the concrete type, so backends stay swappable.
type Repository interface {
	// Record persists one entry. Re-recording a correlation id overwrites
	// the previous entry (queue redelivery resends the same message id).
	Record(ctx context.Context, entry *Entry) error

	// Get returns the entry for a correlation id, or ErrNotFound.
	Get(ctx context.Context, correlationID string) (*Entry, error)

	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]*Entry, error)

	// Close releases the backing store.
	Close() error
}

var (
	// ErrNotFound indicates no entry exists for the correlation id.
	ErrNotFound = errors.New("journal entry not found")

	// ErrInvalidEntry indicates an entry is missing its correlation id.
	ErrInvalidEntry = errors.New("invalid journal entry")
)
