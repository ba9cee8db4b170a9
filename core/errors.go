package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidWorkItem indicates a WorkItem failed validation.
	ErrInvalidWorkItem = errors.New("invalid work item")

	// ErrInvalidBatch indicates a WorkBatch failed validation.
	ErrInvalidBatch = errors.New("invalid work batch")

	// ErrEmptySource indicates the Source field is empty.
	ErrEmptySource = errors.New("source cannot be empty")

	// ErrEmptyPath indicates the Path field is empty.
	ErrEmptyPath = errors.New("path cannot be empty")

	// ErrEmptyCorrelationID indicates the batch has no correlation id.
	ErrEmptyCorrelationID = errors.New("correlation id cannot be empty")

	// ErrNoRequestedTags indicates the batch declares no tags to extract.
	// No item in such a batch can be scored.
	ErrNoRequestedTags = errors.New("no requested tags")

	// ErrUnknownStatus indicates an unrecognized wire-format status value.
	ErrUnknownStatus = errors.New("unknown status")
)
