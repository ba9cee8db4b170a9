package inference

import "errors"

var (
	// ErrUnreachable indicates the inference server could not be reached.
	ErrUnreachable = errors.New("inference server unreachable")

	// ErrTimeout indicates the inference call exceeded its deadline.
	ErrTimeout = errors.New("inference call timed out")

	// ErrMalformedResponse indicates a response was received but is missing
	// required fields or cannot be decoded.
	ErrMalformedResponse = errors.New("malformed inference response")

	// Config validation errors
	ErrHostRequired    = errors.New("inference host required")
	ErrInvalidPort     = errors.New("invalid inference port")
	ErrInvalidEndpoint = errors.New("invalid inference endpoint")
)
