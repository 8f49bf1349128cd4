// Package repository defines error values that are reused across the
// data access layer. These sentinel values let handlers distinguish
// failure cases and map them onto distinct HTTP statuses instead of
// collapsing everything into a generic 500. Slot and reservation
// mutations return exactly one of these (or nil); an ambiguous
// "maybe it worked" outcome is never surfaced.
package repository

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a referenced slot, reservation or site
// does not exist. Handlers should translate this into HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a slot cannot be claimed or occupied
// because it is disabled, already reserved, or actively held by
// someone else. Handlers should translate this into HTTP 409.
var ErrConflict = errors.New("conflict")

// ErrGone is returned at confirm time when the hold token is unknown
// or its expiry has passed. The claim no longer exists; the caller
// must start over with a fresh hold. Handlers should translate this
// into HTTP 410.
var ErrGone = errors.New("hold expired or unknown")

// ErrUnavailable is returned when the store could not complete a
// transaction, for example on lock contention. The operation did not
// happen and is safe to retry; retrying is the caller's decision, the
// repository never retries on its own. Handlers should translate this
// into HTTP 503.
var ErrUnavailable = errors.New("store unavailable")

// ValidationError reports malformed input that was rejected before
// any write: bad date or time formats, a non-positive loads target,
// a close time at or before the open time. Field names the offending
// input so clients can pinpoint it.
type ValidationError struct {
	Field  string // input field that failed validation
	Reason string // human readable description
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validation builds a ValidationError for the given field.
func Validation(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
