// Package domain defines authorization decision records. Every evaluated
// request leaves a decision log entry, allowed or denied, so access patterns
// stay reconstructable after the fact.
package domain

import (
	"time"

	"github.com/google/uuid"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// Outcome is the result of an authorization decision.
type Outcome string

const (
	// AllowOutcome means the rule set permitted the operation.
	AllowOutcome Outcome = "allow"

	// DenyOutcome means the operation was refused.
	DenyOutcome Outcome = "deny"
)

// DecisionLog records one authorization decision: who asked, for what path
// and capability, and how it came out.
type DecisionLog struct {
	ID         uuid.UUID
	RequestID  uuid.UUID
	DomainID   string
	Subject    string
	Path       string
	Capability policyDomain.Capability
	Outcome    Outcome
	Metadata   map[string]any
	CreatedAt  time.Time
}
