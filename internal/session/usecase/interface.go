// Package usecase implements session lifecycle orchestration: issue,
// authenticate, renew, revoke and expired-session cleanup.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
)

// SessionRepository defines the interface for session persistence.
type SessionRepository interface {
	Create(ctx context.Context, session *sessionDomain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*sessionDomain.Session, error)
	// Renew extends an unrevoked session's expiry. Returns false when the
	// session is missing or revoked.
	Renew(ctx context.Context, id uuid.UUID, expiresAt time.Time, renewCount int) (bool, error)
	// Revoke marks the session revoked. Returns false when the session is
	// missing or already revoked.
	Revoke(ctx context.Context, id uuid.UUID, revokedAt time.Time) (bool, error)
	// DeleteExpiredBefore removes sessions whose expiry passed before the cutoff.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// IssueSessionOutput is the result of minting a session. PlainToken is only
// available here; it is never stored or shown again.
type IssueSessionOutput struct {
	PlainToken string
	Session    *sessionDomain.Session
}

// SessionUseCase defines the interface for session lifecycle operations.
type SessionUseCase interface {
	// Issue mints a session for the domain, freezing the given rule set
	// into it.
	Issue(
		ctx context.Context,
		domainID string,
		rules policyDomain.RuleSet,
	) (*IssueSessionOutput, error)

	// Authenticate resolves a presented bearer token to its session.
	// Unknown, expired and revoked tokens all return
	// ErrAuthenticationFailed.
	Authenticate(ctx context.Context, plainToken string) (*sessionDomain.Session, error)

	// Renew extends the session by the configured ttl, bounded by the
	// session's maximum lifetime.
	Renew(ctx context.Context, session *sessionDomain.Session) (*sessionDomain.Session, error)

	// Revoke invalidates the session immediately. Idempotent.
	Revoke(ctx context.Context, id uuid.UUID) error

	// CleanExpired deletes sessions that expired before now minus the
	// retention window. Returns the number of sessions removed.
	CleanExpired(ctx context.Context, retention time.Duration) (int64, error)
}
