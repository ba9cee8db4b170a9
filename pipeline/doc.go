// Package pipeline drives the worker: the BatchProcessor turns one decoded
// work batch into one reply, and the WorkLoop polls the queue, drains
// pending handle invalidations, runs the processor and sends the reply,
// forever.
//
// Failure isolation is the processor's core contract: an error while
// retrieving, inferring or mapping one item converts to that item's failed
// or skipped outcome and never aborts its siblings. Every batch produces
// exactly one outcome per input item, in input order.
//
// Items run on a worker pool. The default pool size of one processes items
// strictly in sequence; larger pools keep ordering through index-addressed
// results and keep per-source handle state machines serial through the
// handles' own gating.
package pipeline
