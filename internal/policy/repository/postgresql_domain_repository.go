// Package repository implements data persistence for the domain registry.
//
// Provides PostgreSQL and MySQL implementations with transaction support via
// database.GetTx(). Path prefixes and deny patterns are stored as JSON.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// PostgreSQLDomainRepository implements Domain persistence for PostgreSQL.
type PostgreSQLDomainRepository struct {
	db *sql.DB
}

// Create inserts a new Domain into the PostgreSQL database.
func (p *PostgreSQLDomainRepository) Create(ctx context.Context, d *policyDomain.Domain) error {
	querier := database.GetTx(ctx, p.db)

	prefixes, patterns, err := marshalRuleMaterial(d)
	if err != nil {
		return err
	}

	query := `INSERT INTO domains (id, description, namespace, secret_path_prefixes, deny_patterns, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7)`

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
		if isPostgreSQLUniqueViolation(err) {
			return policyDomain.ErrDomainExists
		}
		return apperrors.Wrap(err, "failed to create domain")
	}
	return nil
}

// Get retrieves a Domain by ID from the PostgreSQL database.
func (p *PostgreSQLDomainRepository) Get(
	ctx context.Context,
	domainID string,
) (*policyDomain.Domain, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, description, namespace, secret_path_prefixes, deny_patterns, created_at, updated_at
			  FROM domains
			  WHERE id = $1`

	return scanDomain(querier.QueryRowContext(ctx, query, domainID))
}

// Update modifies an existing Domain in the PostgreSQL database.
func (p *PostgreSQLDomainRepository) Update(ctx context.Context, d *policyDomain.Domain) error {
	querier := database.GetTx(ctx, p.db)

	prefixes, patterns, err := marshalRuleMaterial(d)
	if err != nil {
		return err
	}

	query := `UPDATE domains
			  SET description = $1,
				  secret_path_prefixes = $2,
				  deny_patterns = $3,
				  updated_at = $4
			  WHERE id = $5`

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

// Delete removes a Domain registration from the PostgreSQL database.
func (p *PostgreSQLDomainRepository) Delete(ctx context.Context, domainID string) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM domains WHERE id = $1`, domainID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete domain")
	}

	return requireRowAffected(result, policyDomain.ErrUnknownDomain)
}

// List retrieves Domains ordered by ID with pagination.
func (p *PostgreSQLDomainRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*policyDomain.Domain, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, description, namespace, secret_path_prefixes, deny_patterns, created_at, updated_at
			  FROM domains
			  ORDER BY id
			  OFFSET $1 LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, offset, limit)
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

// NewPostgreSQLDomainRepository creates a new PostgreSQL Domain repository instance.
func NewPostgreSQLDomainRepository(db *sql.DB) *PostgreSQLDomainRepository {
	return &PostgreSQLDomainRepository{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanDomain reads one domain row, decoding the JSON rule material.
func scanDomain(row rowScanner) (*policyDomain.Domain, error) {
	var d policyDomain.Domain
	var prefixes, patterns []byte

	err := row.Scan(
		&d.ID,
		&d.Description,
		&d.Namespace,
		&prefixes,
		&patterns,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, policyDomain.ErrUnknownDomain
		}
		return nil, apperrors.Wrap(err, "failed to scan domain")
	}

	if err := json.Unmarshal(prefixes, &d.SecretPathPrefixes); err != nil {
		return nil, apperrors.Wrap(err, "failed to decode secret path prefixes")
	}
	if len(patterns) > 0 {
		if err := json.Unmarshal(patterns, &d.DenyPatterns); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode deny patterns")
		}
	}

	return &d, nil
}

// marshalRuleMaterial encodes the domain's prefixes and deny patterns as JSON.
func marshalRuleMaterial(d *policyDomain.Domain) ([]byte, []byte, error) {
	prefixes, err := json.Marshal(d.SecretPathPrefixes)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode secret path prefixes")
	}
	patterns, err := json.Marshal(d.DenyPatterns)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode deny patterns")
	}
	return prefixes, patterns, nil
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
	// PostgreSQL: "duplicate key value violates unique constraint" or "pq: duplicate key"
	return strings.Contains(errMsg, "duplicate key") || strings.Contains(errMsg, "unique constraint")
}
