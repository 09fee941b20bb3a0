// Package repository implements versioned secret persistence for PostgreSQL
// and MySQL. Versions are immutable rows keyed by (path, version); soft
// delete and destroy flip timestamps instead of removing rows.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
)

// PostgreSQLSecretRepository implements Secret persistence for PostgreSQL.
type PostgreSQLSecretRepository struct {
	db *sql.DB
}

// Create inserts a new secret version into the PostgreSQL database.
func (p *PostgreSQLSecretRepository) Create(ctx context.Context, secret *kvDomain.Secret) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO secrets (id, path, version, ciphertext, deleted_at, destroyed_at, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		secret.ID,
		secret.Path,
		secret.Version,
		secret.Ciphertext,
		secret.DeletedAt,
		secret.DestroyedAt,
		secret.CreatedAt,
		secret.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "secret version already exists")
		}
		return apperrors.Wrap(err, "failed to create secret version")
	}
	return nil
}

// GetLatest retrieves the highest version at the path regardless of its
// deletion state.
func (p *PostgreSQLSecretRepository) GetLatest(
	ctx context.Context,
	path string,
) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, path, version, ciphertext, deleted_at, destroyed_at, created_at, updated_at
			  FROM secrets
			  WHERE path = $1
			  ORDER BY version DESC
			  LIMIT 1`

	return scanSecret(querier.QueryRowContext(ctx, query, path))
}

// GetByVersion retrieves a specific version at the path.
func (p *PostgreSQLSecretRepository) GetByVersion(
	ctx context.Context,
	path string,
	version uint,
) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, path, version, ciphertext, deleted_at, destroyed_at, created_at, updated_at
			  FROM secrets
			  WHERE path = $1 AND version = $2`

	return scanSecret(querier.QueryRowContext(ctx, query, path, version))
}

// SetDeleted marks or clears the soft-delete timestamp of a version.
func (p *PostgreSQLSecretRepository) SetDeleted(
	ctx context.Context,
	path string,
	version uint,
	deletedAt *time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secrets
			  SET deleted_at = $1, updated_at = $2
			  WHERE path = $3 AND version = $4 AND destroyed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, deletedAt, time.Now().UTC(), path, version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update secret deletion state")
	}
	return requireRowAffected(result, kvDomain.ErrSecretNotFound)
}

// Destroy removes the ciphertext and marks the version destroyed. The row
// stays behind as a tombstone so the version number is never reused.
func (p *PostgreSQLSecretRepository) Destroy(
	ctx context.Context,
	path string,
	version uint,
	destroyedAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE secrets
			  SET ciphertext = NULL, destroyed_at = $1, updated_at = $1
			  WHERE path = $2 AND version = $3 AND destroyed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, destroyedAt, path, version)
	if err != nil {
		return apperrors.Wrap(err, "failed to destroy secret version")
	}
	return requireRowAffected(result, kvDomain.ErrSecretNotFound)
}

// ListByPrefix returns metadata for the latest version of each path under
// the prefix. Ciphertext is not selected.
func (p *PostgreSQLSecretRepository) ListByPrefix(
	ctx context.Context,
	prefix string,
	offset, limit int,
) ([]*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT s.id, s.path, s.version, s.deleted_at, s.destroyed_at, s.created_at, s.updated_at
			  FROM secrets s
			  JOIN (
				  SELECT path, MAX(version) AS version
				  FROM secrets
				  GROUP BY path
			  ) latest ON s.path = latest.path AND s.version = latest.version
			  WHERE s.path LIKE $1 || '%'
			  ORDER BY s.path
			  OFFSET $2 LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, prefix, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list secrets")
	}
	defer rows.Close()

	var secrets []*kvDomain.Secret
	for rows.Next() {
		var s kvDomain.Secret
		err := rows.Scan(
			&s.ID, &s.Path, &s.Version,
			&s.DeletedAt, &s.DestroyedAt, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan secret metadata")
		}
		secrets = append(secrets, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate secrets")
	}

	return secrets, nil
}

// DeleteByPathPrefix removes every version under the prefix.
func (p *PostgreSQLSecretRepository) DeleteByPathPrefix(
	ctx context.Context,
	prefix string,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM secrets WHERE path LIKE $1 || '%'`, prefix)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete secrets by prefix")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read rows affected")
	}
	return deleted, nil
}

// NewPostgreSQLSecretRepository creates a new PostgreSQL Secret repository instance.
func NewPostgreSQLSecretRepository(db *sql.DB) *PostgreSQLSecretRepository {
	return &PostgreSQLSecretRepository{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanSecret(row rowScanner) (*kvDomain.Secret, error) {
	var s kvDomain.Secret

	err := row.Scan(
		&s.ID,
		&s.Path,
		&s.Version,
		&s.Ciphertext,
		&s.DeletedAt,
		&s.DestroyedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, kvDomain.ErrSecretNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan secret")
	}

	return &s, nil
}

// requireRowAffected maps a zero-row update/delete to the given error.
func requireRowAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read rows affected")
	}
	if affected == 0 {
		return notFound
	}
	return nil
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
