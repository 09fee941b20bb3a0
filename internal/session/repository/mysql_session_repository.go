package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
)

// MySQLSessionRepository implements Session persistence for MySQL.
type MySQLSessionRepository struct {
	db *sql.DB
}

// Create inserts a new Session into the MySQL database.
func (m *MySQLSessionRepository) Create(
	ctx context.Context,
	session *sessionDomain.Session,
) error {
	querier := database.GetTx(ctx, m.db)

	rules, err := json.Marshal(session.Rules)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode session rules")
	}

	query := `INSERT INTO sessions (id, token_hash, domain_id, rules, issued_at, expires_at, max_expires_at, renew_count, revoked_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		session.ID.String(),
		session.TokenHash,
		session.DomainID,
		rules,
		session.IssuedAt,
		session.ExpiresAt,
		session.MaxExpiresAt,
		session.RenewCount,
		session.RevokedAt,
		session.CreatedAt,
		session.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "session token collision")
		}
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByTokenHash retrieves a Session by its token hash.
func (m *MySQLSessionRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*sessionDomain.Session, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, token_hash, domain_id, rules, issued_at, expires_at, max_expires_at, renew_count, revoked_at, created_at, updated_at
			  FROM sessions
			  WHERE token_hash = ?`

	return scanSession(querier.QueryRowContext(ctx, query, tokenHash))
}

// Renew extends an unrevoked session's expiry.
func (m *MySQLSessionRepository) Renew(
	ctx context.Context,
	id uuid.UUID,
	expiresAt time.Time,
	renewCount int,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sessions
			  SET expires_at = ?, renew_count = ?, updated_at = ?
			  WHERE id = ? AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, expiresAt, renewCount, time.Now().UTC(), id.String())
	if err != nil {
		return false, apperrors.Wrap(err, "failed to renew session")
	}
	return oneRowAffected(result)
}

// Revoke marks the session revoked if it is not already.
func (m *MySQLSessionRepository) Revoke(
	ctx context.Context,
	id uuid.UUID,
	revokedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE sessions
			  SET revoked_at = ?, updated_at = ?
			  WHERE id = ? AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, revokedAt, revokedAt, id.String())
	if err != nil {
		return false, apperrors.Wrap(err, "failed to revoke session")
	}
	return oneRowAffected(result)
}

// DeleteExpiredBefore removes sessions that expired before the cutoff.
func (m *MySQLSessionRepository) DeleteExpiredBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read rows affected")
	}
	return deleted, nil
}

// NewMySQLSessionRepository creates a new MySQL Session repository instance.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}
