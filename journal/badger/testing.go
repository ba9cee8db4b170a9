package badger

import "github.com/tesserae/deepinspect/journal"

// NewMemoryRepository creates an in-memory reply journal for testing.
// Caller must close the repository when done.
func NewMemoryRepository() (journal.Repository, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return NewRepository(backend), nil
}
