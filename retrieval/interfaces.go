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

	"github.com/tesserae/deepinspect/core"
)

// Retriever is a live connection to one datasource, able to stage documents
// locally. Implementations (filesystem mounts, SFTP) report failures with
// the package sentinels ErrNotFound and ErrPermissionDenied so callers can
// classify outcomes without knowing the transport.
type Retriever interface {
	// Retrieve stages the item's document and returns its local path.
	Retrieve(ctx context.Context, item core.WorkItem) (string, error)

	// Discard releases the staging resource created by a previous Retrieve.
	Discard(localPath string) error

	// Close releases the connection. The retriever must not be used afterwards.
	Close() error
}

// Factory builds retrievers on demand, one per datasource connection.
// A source the factory does not know must be reported as ErrSourceUnavailable.
type Factory interface {
	Create(ctx context.Context, source core.SourceID) (Retriever, error)
}

// MultiFactory tries each wrapped factory in order, so filesystem-mounted
// and SFTP-reached datasources can serve the same worker.
type MultiFactory struct {
	factories []Factory
}

var _ Factory = (*MultiFactory)(nil)

// NewMultiFactory combines factories. Order matters: the first factory that
// recognizes a source wins.
func NewMultiFactory(factories ...Factory) *MultiFactory {
	return &MultiFactory{factories: factories}
}

// Create asks each factory in turn, skipping those that report the source
// as unavailable. Any other error stops the search.
func (m *MultiFactory) Create(ctx context.Context, source core.SourceID) (Retriever, error) {
	for _, factory := range m.factories {
		retriever, err := factory.Create(ctx, source)
		if err == nil {
			return retriever, nil
		}
		if !isUnavailable(err) {
			return nil, err
		}
	}
	return nil, ErrSourceUnavailable
}
