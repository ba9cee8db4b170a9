// Package retrieval manages the per-datasource handles used to bring
// documents to a local, addressable path.
//
// Handles are created lazily, one per datasource connection, and cached for
// the life of the process. The HandleCache owns every handle it creates:
//   - GetOrCreate returns the cached open handle for a source, building one
//     through the configured Factory on first use.
//   - Invalidate removes a source's cache entry and closes its handle, so a
//     stale connection can never serve a later request.
//   - InvalidateAll drains the pending-invalidation set supplied by the
//     transport layer at a batch boundary.
//
// Each Handle runs a small fetch state machine (idle, fetching, fetched,
// closed). Fetch and Cleanup are strictly paired: Cleanup must run on every
// exit path after a successful Fetch, and is idempotent.
package retrieval
