package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pbarbosa/tenantvault/internal/metrics"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
)

// sessionUseCaseWithMetrics decorates SessionUseCase with metrics instrumentation.
type sessionUseCaseWithMetrics struct {
	next    SessionUseCase
	metrics metrics.BusinessMetrics
}

// NewSessionUseCaseWithMetrics wraps a SessionUseCase with metrics recording.
func NewSessionUseCaseWithMetrics(useCase SessionUseCase, m metrics.BusinessMetrics) SessionUseCase {
	return &sessionUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (s *sessionUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.RecordOperation(ctx, "session", operation, status)
	s.metrics.RecordDuration(ctx, "session", operation, time.Since(start), status)
}

// Issue records metrics for session issuance.
func (s *sessionUseCaseWithMetrics) Issue(
	ctx context.Context,
	domainID string,
	rules policyDomain.RuleSet,
) (*IssueSessionOutput, error) {
	start := time.Now()
	output, err := s.next.Issue(ctx, domainID, rules)
	s.record(ctx, "session_issue", start, err)
	return output, err
}

// Authenticate records metrics for token authentication.
func (s *sessionUseCaseWithMetrics) Authenticate(
	ctx context.Context,
	plainToken string,
) (*sessionDomain.Session, error) {
	start := time.Now()
	session, err := s.next.Authenticate(ctx, plainToken)
	s.record(ctx, "session_authenticate", start, err)
	return session, err
}

// Renew records metrics for session renewal.
func (s *sessionUseCaseWithMetrics) Renew(
	ctx context.Context,
	session *sessionDomain.Session,
) (*sessionDomain.Session, error) {
	start := time.Now()
	renewed, err := s.next.Renew(ctx, session)
	s.record(ctx, "session_renew", start, err)
	return renewed, err
}

// Revoke records metrics for session revocation.
func (s *sessionUseCaseWithMetrics) Revoke(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := s.next.Revoke(ctx, id)
	s.record(ctx, "session_revoke", start, err)
	return err
}

// CleanExpired records metrics for expired-session cleanup.
func (s *sessionUseCaseWithMetrics) CleanExpired(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	start := time.Now()
	count, err := s.next.CleanExpired(ctx, retention)
	s.record(ctx, "session_clean_expired", start, err)
	return count, err
}
