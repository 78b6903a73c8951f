package store

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a session or cache entry does not exist.
var ErrNotFound = errors.New("not found")

// StorageError wraps a backend failure with the operation that caused it.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

// NewStorageError creates a StorageError.
func NewStorageError(backend, op string, err error) *StorageError {
	return &StorageError{Backend: backend, Op: op, Err: err}
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("%s storage %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}
