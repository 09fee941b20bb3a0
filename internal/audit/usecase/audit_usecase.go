package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// auditUseCase implements AuditUseCase.
type auditUseCase struct {
	decisionLogRepo DecisionLogRepository
}

// Record persists one authorization decision with a fresh UUIDv7 and
// timestamp.
func (a *auditUseCase) Record(ctx context.Context, input RecordDecisionInput) error {
	entry := &auditDomain.DecisionLog{
		ID:         uuid.Must(uuid.NewV7()),
		RequestID:  input.RequestID,
		DomainID:   input.DomainID,
		Subject:    input.Subject,
		Path:       input.Path,
		Capability: input.Capability,
		Outcome:    input.Outcome,
		Metadata:   input.Metadata,
		CreatedAt:  time.Now().UTC(),
	}

	if err := a.decisionLogRepo.Create(ctx, entry); err != nil {
		return apperrors.Wrap(err, "failed to record decision")
	}
	return nil
}

// List retrieves decisions newest first with pagination and optional domain
// and time filtering.
func (a *auditUseCase) List(
	ctx context.Context,
	domainID string,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.DecisionLog, error) {
	entries, err := a.decisionLogRepo.List(ctx, domainID, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list decisions")
	}
	return entries, nil
}

// NewAuditUseCase creates a new AuditUseCase with the provided dependencies.
func NewAuditUseCase(decisionLogRepo DecisionLogRepository) AuditUseCase {
	return &auditUseCase{decisionLogRepo: decisionLogRepo}
}
