package repository

import (
	"context"
	"database/sql"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// MySQLRoleRepository implements Role persistence for MySQL.
type MySQLRoleRepository struct {
	db *sql.DB
}

// Create inserts a new credential role into the MySQL database.
func (m *MySQLRoleRepository) Create(ctx context.Context, role *brokerDomain.Role) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO roles (id, domain_id, name, backend, connection_string, default_ttl_seconds, max_ttl_seconds, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		role.ID.String(),
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
		if isMySQLUniqueViolation(err) {
			return brokerDomain.ErrRoleExists
		}
		return apperrors.Wrap(err, "failed to create role")
	}
	return nil
}

// Get retrieves a role by domain and name.
func (m *MySQLRoleRepository) Get(
	ctx context.Context,
	domainID, name string,
) (*brokerDomain.Role, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, domain_id, name, backend, connection_string, default_ttl_seconds, max_ttl_seconds, created_at, updated_at
			  FROM roles
			  WHERE domain_id = ? AND name = ?`

	return scanRole(querier.QueryRowContext(ctx, query, domainID, name))
}

// Delete removes a role.
func (m *MySQLRoleRepository) Delete(ctx context.Context, domainID, name string) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(
		ctx,
		`DELETE FROM roles WHERE domain_id = ? AND name = ?`,
		domainID,
		name,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete role")
	}
	return requireRowAffected(result, brokerDomain.ErrRoleNotFound)
}

// List retrieves the roles of a domain with pagination.
func (m *MySQLRoleRepository) List(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Role, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, domain_id, name, backend, connection_string, default_ttl_seconds, max_ttl_seconds, created_at, updated_at
			  FROM roles
			  WHERE domain_id = ?
			  ORDER BY name
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, domainID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list roles")
	}
	defer rows.Close()

	return collectRoles(rows)
}

// ListRoleNames returns every role name registered for a domain.
func (m *MySQLRoleRepository) ListRoleNames(
	ctx context.Context,
	domainID string,
) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	rows, err := querier.QueryContext(
		ctx,
		`SELECT name FROM roles WHERE domain_id = ? ORDER BY name`,
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

// NewMySQLRoleRepository creates a new MySQL Role repository instance.
func NewMySQLRoleRepository(db *sql.DB) *MySQLRoleRepository {
	return &MySQLRoleRepository{db: db}
}
