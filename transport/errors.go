package transport

import "errors"

var (
	// ErrDecode indicates a received message does not follow the work
	// protocol. The message is dropped and logged; a malformed message must
	// not kill a long-running worker.
	ErrDecode = errors.New("cannot decode work message")

	// ErrEncode indicates a reply could not be serialized.
	ErrEncode = errors.New("cannot encode batch reply")
)
