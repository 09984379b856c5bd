package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every service. Callers match them with errors.Is and
// the API layer maps each kind to exactly one HTTP status.
var (
	// ErrNotFound is returned when a referenced card or user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the caller may not act on the resource,
	// either because it belongs to somebody else or because of its status.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidArgument is returned for requests that are well-formed but
	// semantically invalid (equal cards, non-positive amounts, ...).
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is returned when the request clashes with current state,
	// e.g. insufficient funds or a phone number already in use.
	ErrConflict = errors.New("conflict")

	// ErrUnauthorized is returned when credentials or tokens are not accepted.
	ErrUnauthorized = errors.New("unauthorized")
)

// Validation errors for entity construction.
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidCardNumber = errors.New("invalid card number")
	ErrInvalidPhone      = errors.New("invalid phone number")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidRole       = errors.New("invalid role")
)

// Error carries one of the kind sentinels above together with a reason that
// is safe to show to a client.
type Error struct {
	Kind   error  // one of ErrNotFound, ErrForbidden, ...
	Reason string // client-facing message
	Err    error  // optional underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds an ErrNotFound error.
func NotFound(reason string) error {
	return &Error{Kind: ErrNotFound, Reason: reason}
}

// Forbidden builds an ErrForbidden error.
func Forbidden(reason string) error {
	return &Error{Kind: ErrForbidden, Reason: reason}
}

// InvalidArgument builds an ErrInvalidArgument error.
func InvalidArgument(reason string) error {
	return &Error{Kind: ErrInvalidArgument, Reason: reason}
}

// Conflict builds an ErrConflict error.
func Conflict(reason string) error {
	return &Error{Kind: ErrConflict, Reason: reason}
}

// Unauthorized builds an ErrUnauthorized error wrapping cause, which may be nil.
func Unauthorized(reason string, cause error) error {
	return &Error{Kind: ErrUnauthorized, Reason: reason, Err: cause}
}

// Reason extracts the client-facing reason from err, if it carries one.
func Reason(err error) (string, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Reason, true
	}
	return "", false
}
