package pipeline

import "errors"

var (
	// ErrEnricherRequired is returned when an enricher is not provided.
	ErrEnricherRequired = errors.New("enricher required")

	// ErrCacheRequired is returned when a handle cache is not provided.
	ErrCacheRequired = errors.New("handle cache required")

	// ErrProcessorRequired is returned when a batch processor is not provided.
	ErrProcessorRequired = errors.New("batch processor required")

	// ErrTransportRequired is returned when a queue transport is not provided.
	ErrTransportRequired = errors.New("queue transport required")
)
