// Package repository implements session persistence for PostgreSQL and
// MySQL. The rule-set snapshot is stored as JSON alongside the session row.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
)

// PostgreSQLSessionRepository implements Session persistence for PostgreSQL.
type PostgreSQLSessionRepository struct {
	db *sql.DB
}

// Create inserts a new Session into the PostgreSQL database.
func (p *PostgreSQLSessionRepository) Create(
	ctx context.Context,
	session *sessionDomain.Session,
) error {
	querier := database.GetTx(ctx, p.db)

	rules, err := json.Marshal(session.Rules)
	if err != nil {
		return apperrors.Wrap(err, "failed to encode session rules")
	}

	query := `INSERT INTO sessions (id, token_hash, domain_id, rules, issued_at, expires_at, max_expires_at, renew_count, revoked_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = querier.ExecContext(
		ctx,
		query,
		session.ID,
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
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "session token collision")
		}
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByTokenHash retrieves a Session by its token hash.
func (p *PostgreSQLSessionRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*sessionDomain.Session, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, token_hash, domain_id, rules, issued_at, expires_at, max_expires_at, renew_count, revoked_at, created_at, updated_at
			  FROM sessions
			  WHERE token_hash = $1`

	return scanSession(querier.QueryRowContext(ctx, query, tokenHash))
}

// Renew extends an unrevoked session's expiry. The revoked_at guard makes a
// renew racing a revoke lose once the revocation is committed.
func (p *PostgreSQLSessionRepository) Renew(
	ctx context.Context,
	id uuid.UUID,
	expiresAt time.Time,
	renewCount int,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sessions
			  SET expires_at = $1, renew_count = $2, updated_at = $3
			  WHERE id = $4 AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, expiresAt, renewCount, time.Now().UTC(), id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to renew session")
	}
	return oneRowAffected(result)
}

// Revoke marks the session revoked if it is not already.
func (p *PostgreSQLSessionRepository) Revoke(
	ctx context.Context,
	id uuid.UUID,
	revokedAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE sessions
			  SET revoked_at = $1, updated_at = $1
			  WHERE id = $2 AND revoked_at IS NULL`

	result, err := querier.ExecContext(ctx, query, revokedAt, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to revoke session")
	}
	return oneRowAffected(result)
}

// DeleteExpiredBefore removes sessions that expired before the cutoff.
func (p *PostgreSQLSessionRepository) DeleteExpiredBefore(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < $1`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read rows affected")
	}
	return deleted, nil
}

// NewPostgreSQLSessionRepository creates a new PostgreSQL Session repository instance.
func NewPostgreSQLSessionRepository(db *sql.DB) *PostgreSQLSessionRepository {
	return &PostgreSQLSessionRepository{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*sessionDomain.Session, error) {
	var s sessionDomain.Session
	var rules []byte

	err := row.Scan(
		&s.ID,
		&s.TokenHash,
		&s.DomainID,
		&rules,
		&s.IssuedAt,
		&s.ExpiresAt,
		&s.MaxExpiresAt,
		&s.RenewCount,
		&s.RevokedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sessionDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan session")
	}

	if err := json.Unmarshal(rules, &s.Rules); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode session rules")
	}

	return &s, nil
}

func oneRowAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read rows affected")
	}
	return affected == 1, nil
}

// isPostgreSQLUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isPostgreSQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation.
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
