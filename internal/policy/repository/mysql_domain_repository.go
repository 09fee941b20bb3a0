package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// MySQLDomainRepository implements Domain persistence for MySQL.
type MySQLDomainRepository struct {
	db *sql.DB
}

// Create inserts a new Domain into the MySQL database.
func (m *MySQLDomainRepository) Create(ctx context.Context, d *policyDomain.Domain) error {
	querier := database.GetTx(ctx, m.db)

	prefixes, patterns, err := marshalRuleMaterial(d)
	if err != nil {
		return err
	}

	query := `INSERT INTO domains (id, description, namespace, secret_path_prefixes, deny_patterns, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		d.ID,
		d.Description,
		d.Namespace,
		prefixes,
		patterns,
		d.CreatedAt,
		d.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return policyDomain.ErrDomainExists
		}
		return apperrors.Wrap(err, "failed to create domain")
	}
	return nil
}

// Get retrieves a Domain by ID from the MySQL database.
func (m *MySQLDomainRepository) Get(
	ctx context.Context,
	domainID string,
) (*policyDomain.Domain, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, description, namespace, secret_path_prefixes, deny_patterns, created_at, updated_at
			  FROM domains
			  WHERE id = ?`

	return scanDomain(querier.QueryRowContext(ctx, query, domainID))
}

// Update modifies an existing Domain in the MySQL database.
func (m *MySQLDomainRepository) Update(ctx context.Context, d *policyDomain.Domain) error {
	querier := database.GetTx(ctx, m.db)

	prefixes, patterns, err := marshalRuleMaterial(d)
	if err != nil {
		return err
	}

	query := `UPDATE domains
			  SET description = ?,
				  secret_path_prefixes = ?,
				  deny_patterns = ?,
				  updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(
		ctx,
		query,
		d.Description,
		prefixes,
		patterns,
		d.UpdatedAt,
		d.ID,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update domain")
	}

	return requireRowAffected(result, policyDomain.ErrUnknownDomain)
}

// Delete removes a Domain registration from the MySQL database.
func (m *MySQLDomainRepository) Delete(ctx context.Context, domainID string) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM domains WHERE id = ?`, domainID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete domain")
	}

	return requireRowAffected(result, policyDomain.ErrUnknownDomain)
}

// List retrieves Domains ordered by ID with pagination.
func (m *MySQLDomainRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Domain, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, description, namespace, secret_path_prefixes, deny_patterns, created_at, updated_at
			  FROM domains
			  ORDER BY id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list domains")
	}
	defer rows.Close()

	var domains []*policyDomain.Domain
	for rows.Next() {
		d, err := scanDomain(rows)
		if err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate domains")
	}

	return domains, nil
}

// NewMySQLDomainRepository creates a new MySQL Domain repository instance.
func NewMySQLDomainRepository(db *sql.DB) *MySQLDomainRepository {
	return &MySQLDomainRepository{db: db}
}

// isMySQLUniqueViolation checks if the error is a MySQL unique constraint violation.
func isMySQLUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errMsg := strings.ToLower(err.Error())
	// MySQL: "Error 1062: Duplicate entry"
	return strings.Contains(errMsg, "duplicate entry") || strings.Contains(errMsg, "1062")
}
