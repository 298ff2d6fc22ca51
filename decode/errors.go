package decode

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals that no code is present in the frame. It is not a
	// user-facing error: the scan loop suppresses it and continues.
	ErrNotFound = errors.New("decode: no code found")

	// ErrTimeout reports that a decode request exceeded its deadline.
	ErrTimeout = errors.New("decode: request timed out")

	// ErrUnavailable reports that the backend can no longer serve requests.
	// The session reacts by replacing the engine.
	ErrUnavailable = errors.New("decode: backend unavailable")
)

// BackendError wraps a failure reported by a decode backend.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// IsUnavailable reports whether err indicates a fatal backend condition that
// warrants replacing the engine.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
