package domain

import (
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// Identity verification and binding errors. The API boundary collapses all
// of these except ErrAmbiguousBinding into a generic authentication failure;
// the specific cause is only logged.
var (
	// ErrInvalidSignature indicates the assertion signature did not verify,
	// or a live review rejected the assertion.
	ErrInvalidSignature = apperrors.Wrap(apperrors.ErrUnauthorized, "invalid assertion signature")

	// ErrUnknownIssuer indicates no registered trust domain matches the
	// assertion's issuer, or an offline key lookup failed. Unknown keys
	// fail closed; there is no live fallback.
	ErrUnknownIssuer = apperrors.Wrap(apperrors.ErrUnauthorized, "unknown issuer")

	// ErrExpiredAssertion indicates the assertion is outside its validity window.
	ErrExpiredAssertion = apperrors.Wrap(apperrors.ErrUnauthorized, "expired assertion")

	// ErrAudienceMismatch indicates the assertion carries none of the trust
	// domain's accepted audiences.
	ErrAudienceMismatch = apperrors.Wrap(apperrors.ErrUnauthorized, "audience mismatch")

	// ErrValidationUnreachable indicates a live review call failed at the
	// transport level or timed out. Never retried.
	ErrValidationUnreachable = apperrors.Wrap(apperrors.ErrUnauthorized, "identity validation unreachable")

	// ErrNoMatchingBinding indicates verified claims matched no registered binding.
	ErrNoMatchingBinding = apperrors.Wrap(apperrors.ErrUnauthorized, "no matching identity binding")

	// ErrAmbiguousBinding indicates verified claims matched more than one
	// binding. This is a configuration error and is surfaced, never
	// resolved by priority.
	ErrAmbiguousBinding = apperrors.Wrap(apperrors.ErrConflict, "ambiguous identity binding")

	// ErrTrustDomainNotFound indicates the trust domain is not registered.
	ErrTrustDomainNotFound = apperrors.Wrap(apperrors.ErrNotFound, "trust domain not found")

	// ErrTrustDomainExists indicates a trust domain with the same issuer exists.
	ErrTrustDomainExists = apperrors.Wrap(apperrors.ErrConflict, "trust domain already exists")

	// ErrBindingNotFound indicates the binding does not exist.
	ErrBindingNotFound = apperrors.Wrap(apperrors.ErrNotFound, "binding not found")
)
