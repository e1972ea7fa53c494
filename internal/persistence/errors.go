package persistence

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrConflict is returned when a record cannot be restored because its identifier is taken.
	ErrConflict = errors.New("persistence: identifier already in use")
	// ErrStorage wraps failures of the underlying snapshot or journal store.
	ErrStorage = errors.New("persistence: storage failure")
	// ErrSnapshot marks a storage failure that happened after the journal entry was
	// written. The mutation is applied and replays on the next load.
	ErrSnapshot = fmt.Errorf("%w: snapshot not saved", ErrStorage)
)

// Committed reports whether err leaves its mutation applied, either because err is
// nil or because only the snapshot write failed.
func Committed(err error) bool {
	return err == nil || errors.Is(err, ErrSnapshot)
}
