// Package service provides backend connectors and credential material
// generation for the dynamic credential broker.
package service

import (
	"context"
	"time"
)

// Connector provisions and removes principals on a credential backend.
// Implementations must be safe for concurrent use; every call opens its own
// short-lived administrative connection.
type Connector interface {
	// CreatePrincipal creates a login principal with the given password. The
	// backend-side expiry is advisory; authoritative revocation is the
	// broker's DestroyPrincipal.
	CreatePrincipal(ctx context.Context, connectionString, principal, password string, validUntil time.Time) error

	// ExtendPrincipal moves the backend-side expiry of an existing principal.
	ExtendPrincipal(ctx context.Context, connectionString, principal string, validUntil time.Time) error

	// DestroyPrincipal drops the principal. Dropping a principal that no
	// longer exists succeeds.
	DestroyPrincipal(ctx context.Context, connectionString, principal string) error
}

// CredentialService generates principal names and passwords for issued leases.
type CredentialService interface {
	GeneratePrincipal(roleName string) (string, error)
	GeneratePassword() (string, error)
}
