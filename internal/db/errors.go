package db

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Domain storage errors. Repositories translate raw GORM/driver errors into
// these so callers can tell an empty result from an unreachable store.
var (
	// ErrNotFound indicates the requested row does not exist.
	ErrNotFound = errors.New("db: not found")
	// ErrStorageUnavailable indicates the backing store could not serve the
	// request (connection refused, timeout, constraint machinery failure).
	ErrStorageUnavailable = errors.New("db: storage unavailable")
)

// Classify maps a raw storage error onto the domain taxonomy. A nil error
// stays nil; record-not-found becomes ErrNotFound; anything else is wrapped
// as ErrStorageUnavailable with the cause retained.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
