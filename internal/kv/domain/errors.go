package domain

import (
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

var (
	// ErrSecretNotFound indicates no readable secret exists at the path and
	// version. Destroyed versions report this too.
	ErrSecretNotFound = apperrors.Wrap(apperrors.ErrNotFound, "secret not found")

	// ErrSecretDestroyed indicates the version's ciphertext was removed and
	// the operation (undelete) can no longer apply.
	ErrSecretDestroyed = apperrors.Wrap(apperrors.ErrConflict, "secret version destroyed")
)
