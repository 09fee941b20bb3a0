// Package repository implements credential role and lease persistence for
// PostgreSQL and MySQL. Lease state transitions are single-statement
// compare-and-set updates; the rows-affected count tells the caller whether
// the guard matched.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// PostgreSQLRoleRepository implements Role persistence for PostgreSQL.
type PostgreSQLRoleRepository struct {
	db *sql.DB
}

// Create inserts a new credential role into the PostgreSQL database.
func (p *PostgreSQLRoleRepository) Create(ctx context.Context, role *brokerDomain.Role) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO roles (id, domain_id, name, backend, connection_string, default_ttl_seconds, max_ttl_seconds, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := querier.ExecContext(
		ctx,
		query,
		role.ID,
		role.DomainID,
		role.Name,
		role.Backend,
		role.ConnectionString,
		int64(role.DefaultTTL.Seconds()),
		int64(role.MaxTTL.Seconds()),
		role.CreatedAt,
		role.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return brokerDomain.ErrRoleExists
		}
		return apperrors.Wrap(err, "failed to create role")
	}
	return nil
}

// Get retrieves a role by domain and name.
func (p *PostgreSQLRoleRepository) Get(
	ctx context.Context,
	domainID, name string,
) (*brokerDomain.Role, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, domain_id, name, backend, connection_string, default_ttl_seconds, max_ttl_seconds, created_at, updated_at
			  FROM roles
			  WHERE domain_id = $1 AND name = $2`

	return scanRole(querier.QueryRowContext(ctx, query, domainID, name))
}

// Delete removes a role.
func (p *PostgreSQLRoleRepository) Delete(ctx context.Context, domainID, name string) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(
		ctx,
		`DELETE FROM roles WHERE domain_id = $1 AND name = $2`,
		domainID,
		name,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete role")
	}
	return requireRowAffected(result, brokerDomain.ErrRoleNotFound)
}

// List retrieves the roles of a domain with pagination.
func (p *PostgreSQLRoleRepository) List(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Role, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, domain_id, name, backend, connection_string, default_ttl_seconds, max_ttl_seconds, created_at, updated_at
			  FROM roles
			  WHERE domain_id = $1
			  ORDER BY name
			  OFFSET $2 LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, domainID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list roles")
	}
	defer rows.Close()

	return collectRoles(rows)
}

// ListRoleNames returns every role name registered for a domain.
func (p *PostgreSQLRoleRepository) ListRoleNames(
	ctx context.Context,
	domainID string,
) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	rows, err := querier.QueryContext(
		ctx,
		`SELECT name FROM roles WHERE domain_id = $1 ORDER BY name`,
		domainID,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list role names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan role name")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate role names")
	}

	return names, nil
}

// NewPostgreSQLRoleRepository creates a new PostgreSQL Role repository instance.
func NewPostgreSQLRoleRepository(db *sql.DB) *PostgreSQLRoleRepository {
	return &PostgreSQLRoleRepository{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRole(row rowScanner) (*brokerDomain.Role, error) {
	var (
		role              brokerDomain.Role
		defaultTTLSeconds int64
		maxTTLSeconds     int64
	)

	err := row.Scan(
		&role.ID,
		&role.DomainID,
		&role.Name,
		&role.Backend,
		&role.ConnectionString,
		&defaultTTLSeconds,
		&maxTTLSeconds,
		&role.CreatedAt,
		&role.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, brokerDomain.ErrRoleNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan role")
	}

	role.DefaultTTL = time.Duration(defaultTTLSeconds) * time.Second
	role.MaxTTL = time.Duration(maxTTLSeconds) * time.Second
	return &role, nil
}

func collectRoles(rows *sql.Rows) ([]*brokerDomain.Role, error) {
	var roles []*brokerDomain.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate roles")
	}
	return roles, nil
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

// oneRowAffected reports whether a compare-and-set update matched its guard.
func oneRowAffected(result sql.Result) (bool, error) {
	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read rows affected")
	}
	return affected > 0, nil
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
