package domain

import (
	"github.com/pbarbosa/tenantvault/internal/errors"
)

// Policy and domain registry errors.
var (
	// ErrUnknownDomain indicates a domain with the specified ID is not registered.
	ErrUnknownDomain = errors.Wrap(errors.ErrNotFound, "unknown domain")

	// ErrDomainExists indicates a domain with the specified ID is already registered.
	ErrDomainExists = errors.Wrap(errors.ErrConflict, "domain already exists")
)
