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


package core

import (
	"encoding/binary"
	"fmt"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities, derived from content hashing.
type ID uint64

// String renders the ID as fixed-width hex, the form used in log lines and
// staged-file names.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// SourceID identifies a distinct upstream datasource connection.
// Two work items with the same SourceID must share one retrieval handle.
type SourceID string

// WorkItem is one document-processing unit drawn from a batch.
// Immutable once decoded from the work message.
type WorkItem struct {
	Source SourceID // datasource connection the document lives on
	Path   string   // document path within the source
	Fkey   string   // opaque catalog key carried through to the reply
}

// ID returns the document identity: a hash over the source connection and
// the path within it, so the same path on two sources never collides.
func (w WorkItem) ID() ID {
	return IDFromContent(string(w.Source) + "\x00" + w.Path)
}

func (w WorkItem) String() string {
	return fmt.Sprintf("%s:%s", w.Source, w.Path)
}

// WorkBatch is one unit of work received from the queue. It is processed
// atomically and answered with exactly one BatchReply.
type WorkBatch struct {
	CorrelationID string   // queue message identity, echoed in the reply
	RequestedTags []string // tag names the caller wants populated
	Items         []WorkItem
}

// Status is the per-item result reported back through the reply protocol.
type Status int

const (
	// StatusSuccess means the item was enriched and carries a tag mapping.
	StatusSuccess Status = iota + 1
	// StatusFailed means the item itself could not be scored.
	StatusFailed
	// StatusSkipped means the item's source disappeared before it could be read.
	StatusSkipped
)

var statusNames = map[Status]string{
	StatusSuccess: "success",
	StatusFailed:  "failed",
	StatusSkipped: "skipped",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// ParseStatus converts a wire-format status string back to a Status.
func ParseStatus(name string) (Status, error) {
	for status, n := range statusNames {
		if n == name {
			return status, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, name)
}

// ItemOutcome is the result of processing a single work item.
type ItemOutcome struct {
	Item   WorkItem
	Status Status
	Tags   map[string]string // populated only on success
}

// BatchReply aggregates one outcome per input item, in input order.
type BatchReply struct {
	CorrelationID string
	Outcomes      []ItemOutcome
}

// Field is one named value extracted from a document by an enricher.
type Field struct {
	Name  string
	Value string
}

// Fields is an ordered list of extracted fields. Order is load-bearing:
// tag matching evaluates field names first-match-wins in this order.
type Fields []Field
