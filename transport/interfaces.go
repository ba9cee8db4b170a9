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


package transport

import (
	"context"
	"time"

	"github.com/tesserae/deepinspect/core"
)

// Transport is the external message queue as the work loop sees it.
// Implementations must be safe for use from the single loop goroutine.
type Transport interface {
	// Receive waits up to timeout for the next work message.
	// Returns nil, nil when the wait expires with nothing to do; a poll
	// timeout is a no-op for the loop, not an error.
	Receive(ctx context.Context, timeout time.Duration) ([]byte, error)

	// Send delivers one encoded batch reply.
	Send(ctx context.Context, reply []byte) error
}

// StaleNotifier surfaces datasource invalidation signals collected by the
// transport layer. DrainStale empties and returns the pending set; the work
// loop drains it at every batch boundary so a stale handle never serves a
// request in the same or a later batch.
type StaleNotifier interface {
	DrainStale() []core.SourceID
}
