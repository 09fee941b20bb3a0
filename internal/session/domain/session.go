// Package domain defines the session entity: a time-bounded bearer token
// carrying a snapshot of the rule set its domain resolved to at login.
package domain

import (
	"time"

	"github.com/google/uuid"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// Session is an authenticated caller's handle. Only the SHA-256 hash of the
// bearer token is stored. The rule set is frozen at issue time; registry
// changes apply to future sessions, never retroactively.
type Session struct {
	ID        uuid.UUID
	TokenHash string
	DomainID  string
	Rules     policyDomain.RuleSet

	IssuedAt  time.Time
	ExpiresAt time.Time
	// MaxExpiresAt is the ceiling renewals can never push ExpiresAt past.
	MaxExpiresAt time.Time
	RenewCount   int
	RevokedAt    *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Valid reports whether the session is usable at the given instant.
func (s *Session) Valid(now time.Time) bool {
	return s.RevokedAt == nil && s.ExpiresAt.After(now)
}

// Allows checks the session's frozen rule set.
func (s *Session) Allows(path string, capability policyDomain.Capability) bool {
	return s.Rules.Allows(path, capability)
}
