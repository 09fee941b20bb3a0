package domain

import (
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

var (
	// ErrSessionNotFound indicates no session matches the lookup.
	ErrSessionNotFound = apperrors.Wrap(apperrors.ErrNotFound, "session not found")

	// ErrAuthenticationFailed is the single error returned for an unknown,
	// expired or revoked token. The specific cause is logged, never
	// returned, so a caller cannot distinguish the cases.
	ErrAuthenticationFailed = apperrors.Wrap(apperrors.ErrUnauthorized, "authentication failed")

	// ErrSessionMaxTTLExceeded indicates a renewal would push the session
	// past its maximum cumulative lifetime.
	ErrSessionMaxTTLExceeded = apperrors.Wrap(apperrors.ErrMaxTTLExceeded, "session renewal refused")
)
