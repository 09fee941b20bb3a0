// Package usecase implements decision log recording and retrieval.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// DecisionLogRepository defines the interface for decision log persistence.
type DecisionLogRepository interface {
	Create(ctx context.Context, entry *auditDomain.DecisionLog) error
	List(
		ctx context.Context,
		domainID string,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*auditDomain.DecisionLog, error)
}

// RecordDecisionInput contains the parameters for recording a decision.
type RecordDecisionInput struct {
	RequestID  uuid.UUID
	DomainID   string
	Subject    string
	Path       string
	Capability policyDomain.Capability
	Outcome    auditDomain.Outcome
	Metadata   map[string]any
}

// AuditUseCase defines the interface for decision log operations.
type AuditUseCase interface {
	// Record persists one authorization decision.
	Record(ctx context.Context, input RecordDecisionInput) error

	// List retrieves decisions newest first. An empty domainID lists across
	// all domains; nil time boundaries mean no filter, both are inclusive.
	List(
		ctx context.Context,
		domainID string,
		offset, limit int,
		createdAtFrom, createdAtTo *time.Time,
	) ([]*auditDomain.DecisionLog, error)
}
