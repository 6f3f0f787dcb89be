package directory

import (
	"errors"
	"fmt"
)

// ErrStoreUnavailable matches every StoreError. Failures are never retried by the adapter.
var ErrStoreUnavailable = errors.New("directory: store unavailable")

// StoreError reports a connection or query failure against the backing store.
type StoreError struct {
	code string
	err  error
}

func (e *StoreError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: database error: %v", e.code, e.err)
}

func (e *StoreError) Unwrap() error {
	return e.err
}

// Is reports StoreError as ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

// Code identifies the failing operation and reason, e.g. "directory.count_users.query_failed".
func (e *StoreError) Code() string {
	return e.code
}

func newStoreError(operation, reason string, cause error) error {
	return &StoreError{code: fmt.Sprintf("directory.%s.%s", operation, reason), err: cause}
}
