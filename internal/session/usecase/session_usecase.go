package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/pbarbosa/tenantvault/internal/config"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
	sessionService "github.com/pbarbosa/tenantvault/internal/session/service"
)

// sessionUseCase implements SessionUseCase.
type sessionUseCase struct {
	config       *config.Config
	sessionRepo  SessionRepository
	tokenService sessionService.TokenService
}

// Issue mints a new session bound to the resolved rule set.
//
// The token is 256 bits of randomness; only its SHA-256 hash is persisted.
// ExpiresAt starts at now+ttl and renewals can extend it up to
// MaxExpiresAt, fixed here at now+max_ttl.
func (s *sessionUseCase) Issue(
	ctx context.Context,
	domainID string,
	rules policyDomain.RuleSet,
) (*IssueSessionOutput, error) {
	plainToken, tokenHash, err := s.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	session := &sessionDomain.Session{
		ID:           uuid.Must(uuid.NewV7()),
		TokenHash:    tokenHash,
		DomainID:     domainID,
		Rules:        rules,
		IssuedAt:     now,
		ExpiresAt:    now.Add(s.config.SessionTTL),
		MaxExpiresAt: now.Add(s.config.SessionMaxTTL),
		RenewCount:   0,
		RevokedAt:    nil,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return &IssueSessionOutput{PlainToken: plainToken, Session: session}, nil
}

// Authenticate resolves a bearer token to its session. Every failure mode
// collapses into ErrAuthenticationFailed; the cause is only logged.
func (s *sessionUseCase) Authenticate(
	ctx context.Context,
	plainToken string,
) (*sessionDomain.Session, error) {
	tokenHash := s.tokenService.HashToken(plainToken)

	session, err := s.sessionRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if apperrors.Is(err, sessionDomain.ErrSessionNotFound) {
			slog.InfoContext(ctx, "authentication rejected", "cause", "unknown token")
			return nil, sessionDomain.ErrAuthenticationFailed
		}
		return nil, err
	}

	now := time.Now().UTC()
	if session.RevokedAt != nil {
		slog.InfoContext(
			ctx,
			"authentication rejected",
			"cause", "revoked session",
			"session_id", session.ID,
		)
		return nil, sessionDomain.ErrAuthenticationFailed
	}
	if !session.ExpiresAt.After(now) {
		slog.InfoContext(
			ctx,
			"authentication rejected",
			"cause", "expired session",
			"session_id", session.ID,
		)
		return nil, sessionDomain.ErrAuthenticationFailed
	}

	return session, nil
}

// Renew extends the session's expiry by the configured ttl. Once the new
// expiry would pass the session's maximum lifetime the renewal is refused;
// the session then simply runs out.
func (s *sessionUseCase) Renew(
	ctx context.Context,
	session *sessionDomain.Session,
) (*sessionDomain.Session, error) {
	now := time.Now().UTC()
	newExpiresAt := now.Add(s.config.SessionTTL)
	if newExpiresAt.After(session.MaxExpiresAt) {
		return nil, sessionDomain.ErrSessionMaxTTLExceeded
	}

	renewed, err := s.sessionRepo.Renew(ctx, session.ID, newExpiresAt, session.RenewCount+1)
	if err != nil {
		return nil, err
	}
	if !renewed {
		// Revoked or deleted since authentication.
		return nil, sessionDomain.ErrAuthenticationFailed
	}

	updated := *session
	updated.ExpiresAt = newExpiresAt
	updated.RenewCount = session.RenewCount + 1
	updated.UpdatedAt = now
	return &updated, nil
}

// Revoke invalidates the session immediately. Revoking an already revoked
// or missing session succeeds; revocation is unconditional and idempotent.
func (s *sessionUseCase) Revoke(ctx context.Context, id uuid.UUID) error {
	revoked, err := s.sessionRepo.Revoke(ctx, id, time.Now().UTC())
	if err != nil {
		return err
	}
	if !revoked {
		slog.InfoContext(ctx, "session already revoked or gone", "session_id", id)
	}
	return nil
}

// CleanExpired deletes sessions whose expiry passed more than the retention
// window ago. Recently expired rows are kept so revocation and audit
// lookups still resolve.
func (s *sessionUseCase) CleanExpired(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := s.sessionRepo.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		slog.InfoContext(ctx, "expired sessions removed", "count", deleted)
	}
	return deleted, nil
}

// NewSessionUseCase creates a new SessionUseCase with the provided dependencies.
func NewSessionUseCase(
	cfg *config.Config,
	sessionRepo SessionRepository,
	tokenService sessionService.TokenService,
) SessionUseCase {
	return &sessionUseCase{
		config:       cfg,
		sessionRepo:  sessionRepo,
		tokenService: tokenService,
	}
}
