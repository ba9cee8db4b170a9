package retrieval

import "errors"

var (
	// ErrNotFound indicates the document does not exist on its source.
	ErrNotFound = errors.New("document not found")

	// ErrPermissionDenied indicates the source refused to serve the document.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrHandleClosed indicates the handle was closed before or during the fetch.
	// Callers should treat the item as skipped, not failed: the source
	// disappeared, the item itself may be fine.
	ErrHandleClosed = errors.New("handle closed")

	// ErrHandleBusy indicates a fetch was attempted while a previous fetch
	// on the same handle had not been cleaned up.
	ErrHandleBusy = errors.New("handle busy")

	// ErrSourceUnavailable indicates no retriever could be built for a source.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrFactoryRequired is returned when a retrieval factory is not provided.
	ErrFactoryRequired = errors.New("retrieval factory required")
)

func isUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
