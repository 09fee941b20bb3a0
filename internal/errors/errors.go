// Package errors provides standardized domain errors that express business intent
// rather than infrastructure details. These errors should be used by use cases
// and mapped to appropriate HTTP status codes by handlers.
package errors

import (
	"errors"
	"fmt"
)

// Standard domain errors that can be used across all domain modules.
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a conflict with existing data (e.g., duplicate key).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates the input data is invalid or fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates the request lacks valid authentication credentials.
	// All identity and claim-binding failures collapse into this error at the API
	// boundary; the specific cause is logged, never returned, so a caller cannot
	// probe which check rejected an assertion.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the authenticated session doesn't have permission.
	ErrForbidden = errors.New("forbidden")

	// ErrPermissionDenied indicates the session's rule set does not permit the
	// operation on the requested path. Responses built from it must not reveal
	// whether the path exists.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrMaxTTLExceeded indicates a renewal would push a session or lease past
	// its maximum cumulative lifetime.
	ErrMaxTTLExceeded = errors.New("max ttl exceeded")

	// ErrBackendUnavailable indicates the credential backend connector could not
	// be reached or refused the operation.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// New creates a new error with the given message.
// This is a convenience wrapper around errors.New for consistency.
func New(message string) error {
	return errors.New(message)
}

// Wrap wraps an error with additional context while preserving the error chain.
// Use this to add context at each layer without losing the original error type.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted message while preserving the error chain.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}
