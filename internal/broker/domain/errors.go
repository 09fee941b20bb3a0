package domain

import (
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

var (
	// ErrRoleNotFound is returned when a credential role does not exist.
	ErrRoleNotFound = apperrors.Wrap(apperrors.ErrNotFound, "credential role not found")

	// ErrRoleExists is returned when registering a role name already taken
	// within the domain.
	ErrRoleExists = apperrors.Wrap(apperrors.ErrConflict, "credential role already exists")

	// ErrLeaseNotFound is returned when a lease does not exist.
	ErrLeaseNotFound = apperrors.Wrap(apperrors.ErrNotFound, "lease not found")

	// ErrLeaseNotActive is returned when renewing a lease that is expired or
	// already queued for revocation.
	ErrLeaseNotActive = apperrors.Wrap(apperrors.ErrConflict, "lease is not active")

	// ErrLeaseMaxTTLExceeded is returned when a renewal would push the lease
	// past its cumulative lifetime ceiling.
	ErrLeaseMaxTTLExceeded = apperrors.Wrap(apperrors.ErrMaxTTLExceeded, "lease reached its maximum lifetime")
)
