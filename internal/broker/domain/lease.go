// Package domain defines dynamic credential roles and leases. A lease tracks
// a short-lived database principal from issuance until the principal is
// confirmed dropped on the backend; the lease row doubles as the durable
// revocation queue entry.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Backend identifies the database engine a role provisions principals on.
type Backend string

const (
	// PostgresBackend provisions principals with CREATE ROLE / DROP ROLE.
	PostgresBackend Backend = "postgres"

	// MySQLBackend provisions principals with CREATE USER / DROP USER.
	MySQLBackend Backend = "mysql"
)

// LeaseState is the lifecycle state of a lease.
type LeaseState string

const (
	// ActiveLease means the backend principal exists and may be used.
	ActiveLease LeaseState = "active"

	// RevokingLease means the principal must be dropped; the sweeper keeps
	// retrying until the backend confirms.
	RevokingLease LeaseState = "revoking"
)

// Role is a registered credential template for a domain. Issuing against a
// role creates a fresh principal on the role's backend.
type Role struct {
	ID               uuid.UUID
	DomainID         string
	Name             string
	Backend          Backend
	ConnectionString string
	DefaultTTL       time.Duration
	MaxTTL           time.Duration
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Lease tracks one issued principal.
type Lease struct {
	ID            uuid.UUID
	DomainID      string
	RoleName      string
	Principal     string
	State         LeaseState
	IssuedAt      time.Time
	ExpiresAt     time.Time
	MaxExpiresAt  time.Time
	RenewCount    int
	Retries       int
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Active reports whether the lease is usable at the given instant.
func (l *Lease) Active(now time.Time) bool {
	return l.State == ActiveLease && now.Before(l.ExpiresAt)
}
