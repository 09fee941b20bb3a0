package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
)

// MySQLSecretRepository implements Secret persistence for MySQL.
type MySQLSecretRepository struct {
	db *sql.DB
}

// Create inserts a new secret version into the MySQL database.
func (m *MySQLSecretRepository) Create(ctx context.Context, secret *kvDomain.Secret) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO secrets (id, path, version, ciphertext, deleted_at, destroyed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		secret.ID.String(),
		secret.Path,
		secret.Version,
		secret.Ciphertext,
		secret.DeletedAt,
		secret.DestroyedAt,
		secret.CreatedAt,
		secret.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return apperrors.Wrap(apperrors.ErrConflict, "secret version already exists")
		}
		return apperrors.Wrap(err, "failed to create secret version")
	}
	return nil
}

// GetLatest retrieves the highest version at the path regardless of its
// deletion state.
func (m *MySQLSecretRepository) GetLatest(
	ctx context.Context,
	path string,
) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, path, version, ciphertext, deleted_at, destroyed_at, created_at, updated_at
			  FROM secrets
			  WHERE path = ?
			  ORDER BY version DESC
			  LIMIT 1`

	return scanSecret(querier.QueryRowContext(ctx, query, path))
}

// GetByVersion retrieves a specific version at the path.
func (m *MySQLSecretRepository) GetByVersion(
	ctx context.Context,
	path string,
	version uint,
) (*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, path, version, ciphertext, deleted_at, destroyed_at, created_at, updated_at
			  FROM secrets
			  WHERE path = ? AND version = ?`

	return scanSecret(querier.QueryRowContext(ctx, query, path, version))
}

// SetDeleted marks or clears the soft-delete timestamp of a version.
func (m *MySQLSecretRepository) SetDeleted(
	ctx context.Context,
	path string,
	version uint,
	deletedAt *time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE secrets
			  SET deleted_at = ?, updated_at = ?
			  WHERE path = ? AND version = ? AND destroyed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, deletedAt, time.Now().UTC(), path, version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update secret deletion state")
	}
	return requireRowAffected(result, kvDomain.ErrSecretNotFound)
}

// Destroy removes the ciphertext and marks the version destroyed.
func (m *MySQLSecretRepository) Destroy(
	ctx context.Context,
	path string,
	version uint,
	destroyedAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE secrets
			  SET ciphertext = NULL, destroyed_at = ?, updated_at = ?
			  WHERE path = ? AND version = ? AND destroyed_at IS NULL`

	result, err := querier.ExecContext(ctx, query, destroyedAt, destroyedAt, path, version)
	if err != nil {
		return apperrors.Wrap(err, "failed to destroy secret version")
	}
	return requireRowAffected(result, kvDomain.ErrSecretNotFound)
}

// ListByPrefix returns metadata for the latest version of each path under
// the prefix. Ciphertext is not selected.
func (m *MySQLSecretRepository) ListByPrefix(
	ctx context.Context,
	prefix string,
	offset, limit int,
) ([]*kvDomain.Secret, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT s.id, s.path, s.version, s.deleted_at, s.destroyed_at, s.created_at, s.updated_at
			  FROM secrets s
			  JOIN (
				  SELECT path, MAX(version) AS version
				  FROM secrets
				  GROUP BY path
			  ) latest ON s.path = latest.path AND s.version = latest.version
			  WHERE s.path LIKE CONCAT(?, '%')
			  ORDER BY s.path
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, prefix, limit, offset)
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
func (m *MySQLSecretRepository) DeleteByPathPrefix(
	ctx context.Context,
	prefix string,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`DELETE FROM secrets WHERE path LIKE CONCAT(?, '%')`,
		prefix,
	)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete secrets by prefix")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read rows affected")
	}
	return deleted, nil
}

// NewMySQLSecretRepository creates a new MySQL Secret repository instance.
func NewMySQLSecretRepository(db *sql.DB) *MySQLSecretRepository {
	return &MySQLSecretRepository{db: db}
}
