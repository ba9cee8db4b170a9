package catalog

import "errors"

var (
	// ErrTokenRejected indicates the token endpoint refused the credentials.
	ErrTokenRejected = errors.New("catalog token rejected")

	// ErrQueryFailed indicates the search endpoint answered with an
	// unexpected status.
	ErrQueryFailed = errors.New("catalog query failed")

	// ErrMalformedRows indicates the search response's rows payload could
	// not be decoded.
	ErrMalformedRows = errors.New("malformed catalog rows")

	// ErrEntryNotFound indicates no catalog row (or no client-database
	// record) exists for the queried key.
	ErrEntryNotFound = errors.New("catalog entry not found")

	// Config validation errors
	ErrHostRequired     = errors.New("catalog host required")
	ErrUserRequired     = errors.New("catalog user required")
	ErrPasswordRequired = errors.New("catalog password required")
)
