package repository

import (
	"context"
	"database/sql"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// MySQLTrustDomainRepository implements TrustDomain persistence for MySQL.
type MySQLTrustDomainRepository struct {
	db *sql.DB
}

// Create inserts a new TrustDomain into the MySQL database.
func (m *MySQLTrustDomainRepository) Create(
	ctx context.Context,
	trustDomain *identityDomain.TrustDomain,
) error {
	querier := database.GetTx(ctx, m.db)

	keys, audiences, err := marshalTrustDomainMaterial(trustDomain)
	if err != nil {
		return err
	}

	query := `INSERT INTO trust_domains (id, issuer, mode, public_keys_pem, review_url, audiences, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		trustDomain.ID.String(),
		trustDomain.Issuer,
		string(trustDomain.Mode),
		keys,
		trustDomain.ReviewURL,
		audiences,
		trustDomain.CreatedAt,
		trustDomain.UpdatedAt,
	)
	if err != nil {
		if isMySQLUniqueViolation(err) {
			return identityDomain.ErrTrustDomainExists
		}
		return apperrors.Wrap(err, "failed to create trust domain")
	}
	return nil
}

// GetByIssuer retrieves a TrustDomain by issuer from the MySQL database.
func (m *MySQLTrustDomainRepository) GetByIssuer(
	ctx context.Context,
	issuer string,
) (*identityDomain.TrustDomain, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, issuer, mode, public_keys_pem, review_url, audiences, created_at, updated_at
			  FROM trust_domains
			  WHERE issuer = ?`

	return scanTrustDomain(querier.QueryRowContext(ctx, query, issuer))
}

// ListTrustDomains retrieves all registered trust domains ordered by issuer.
func (m *MySQLTrustDomainRepository) ListTrustDomains(
	ctx context.Context,
) ([]*identityDomain.TrustDomain, error) {
	querier := database.GetTx(ctx, m.db)

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

// Delete removes a TrustDomain registration from the MySQL database.
func (m *MySQLTrustDomainRepository) Delete(ctx context.Context, issuer string) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM trust_domains WHERE issuer = ?`, issuer)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete trust domain")
	}

	return requireRowAffected(result, identityDomain.ErrTrustDomainNotFound)
}

// NewMySQLTrustDomainRepository creates a new MySQL TrustDomain repository instance.
func NewMySQLTrustDomainRepository(db *sql.DB) *MySQLTrustDomainRepository {
	return &MySQLTrustDomainRepository{db: db}
}
