// Package repository implements persistence for trust domains and identity
// bindings on PostgreSQL and MySQL. Key sets, audiences and bound claims
// are stored as JSON.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// PostgreSQLTrustDomainRepository implements TrustDomain persistence for PostgreSQL.
type PostgreSQLTrustDomainRepository struct {
	db *sql.DB
}

// Create inserts a new TrustDomain into the PostgreSQL database.
func (p *PostgreSQLTrustDomainRepository) Create(
	ctx context.Context,
	trustDomain *identityDomain.TrustDomain,
) error {
	querier := database.GetTx(ctx, p.db)

	keys, audiences, err := marshalTrustDomainMaterial(trustDomain)
	if err != nil {
		return err
	}

	query := `INSERT INTO trust_domains (id, issuer, mode, public_keys_pem, review_url, audiences, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = querier.ExecContext(
		ctx,
		query,
		trustDomain.ID,
		trustDomain.Issuer,
		string(trustDomain.Mode),
		keys,
		trustDomain.ReviewURL,
		audiences,
		trustDomain.CreatedAt,
		trustDomain.UpdatedAt,
	)
	if err != nil {
		if isPostgreSQLUniqueViolation(err) {
			return identityDomain.ErrTrustDomainExists
		}
		return apperrors.Wrap(err, "failed to create trust domain")
	}
	return nil
}

// GetByIssuer retrieves a TrustDomain by issuer from the PostgreSQL database.
func (p *PostgreSQLTrustDomainRepository) GetByIssuer(
	ctx context.Context,
	issuer string,
) (*identityDomain.TrustDomain, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, issuer, mode, public_keys_pem, review_url, audiences, created_at, updated_at
			  FROM trust_domains
			  WHERE issuer = $1`

	return scanTrustDomain(querier.QueryRowContext(ctx, query, issuer))
}

// ListTrustDomains retrieves all registered trust domains ordered by issuer.
func (p *PostgreSQLTrustDomainRepository) ListTrustDomains(
	ctx context.Context,
) ([]*identityDomain.TrustDomain, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, issuer, mode, public_keys_pem, review_url, audiences, created_at, updated_at
			  FROM trust_domains
			  ORDER BY issuer`

	rows, err := querier.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list trust domains")
	}
	defer rows.Close()

	var trustDomains []*identityDomain.TrustDomain
	for rows.Next() {
		td, err := scanTrustDomain(rows)
		if err != nil {
			return nil, err
		}
		trustDomains = append(trustDomains, td)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate trust domains")
	}

	return trustDomains, nil
}

// Delete removes a TrustDomain registration from the PostgreSQL database.
func (p *PostgreSQLTrustDomainRepository) Delete(ctx context.Context, issuer string) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM trust_domains WHERE issuer = $1`, issuer)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete trust domain")
	}

	return requireRowAffected(result, identityDomain.ErrTrustDomainNotFound)
}

// NewPostgreSQLTrustDomainRepository creates a new PostgreSQL TrustDomain repository instance.
func NewPostgreSQLTrustDomainRepository(db *sql.DB) *PostgreSQLTrustDomainRepository {
	return &PostgreSQLTrustDomainRepository{db: db}
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrustDomain(row rowScanner) (*identityDomain.TrustDomain, error) {
	var td identityDomain.TrustDomain
	var mode string
	var keys, audiences []byte

	err := row.Scan(
		&td.ID,
		&td.Issuer,
		&mode,
		&keys,
		&td.ReviewURL,
		&audiences,
		&td.CreatedAt,
		&td.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identityDomain.ErrTrustDomainNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan trust domain")
	}

	td.Mode = identityDomain.VerificationMode(mode)
	if len(keys) > 0 {
		if err := json.Unmarshal(keys, &td.PublicKeysPEM); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode trust domain keys")
		}
	}
	if len(audiences) > 0 {
		if err := json.Unmarshal(audiences, &td.Audiences); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode trust domain audiences")
		}
	}

	return &td, nil
}

func marshalTrustDomainMaterial(td *identityDomain.TrustDomain) ([]byte, []byte, error) {
	keys, err := json.Marshal(td.PublicKeysPEM)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode trust domain keys")
	}
	audiences, err := json.Marshal(td.Audiences)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode trust domain audiences")
	}
	return keys, audiences, nil
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
