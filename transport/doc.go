// Package transport defines the queue-facing boundary of the worker: a
// Transport delivering raw work messages and accepting raw replies, a
// StaleNotifier surfacing datasource invalidation signals, and the JSON
// codec between raw messages and domain batches.
//
// The wire format is the catalog's agent protocol: a work message carries
// mq_message_id, action_id, action_params.extract_tags and a docs list of
// {connection, path, fkey}; the reply echoes the ids and reports one
// {fkey, path, status, tags} entry per doc, in order.
package transport
