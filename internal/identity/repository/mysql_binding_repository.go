package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// MySQLBindingRepository implements Binding persistence for MySQL.
type MySQLBindingRepository struct {
	db *sql.DB
}

// Create inserts a new Binding into the MySQL database.
func (m *MySQLBindingRepository) Create(
	ctx context.Context,
	binding *identityDomain.Binding,
) error {
	querier := database.GetTx(ctx, m.db)

	audiences, claims, err := marshalBindingMaterial(binding)
	if err != nil {
		return err
	}

	query := `INSERT INTO bindings (id, issuer, domain_id, bound_audiences, bound_subject_pattern, bound_claims, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		binding.ID.String(),
		binding.Issuer,
		binding.DomainID,
		audiences,
		binding.BoundSubjectPattern,
		claims,
		binding.CreatedAt,
		binding.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create binding")
	}
	return nil
}

// ListByIssuer retrieves all bindings registered for an issuer.
func (m *MySQLBindingRepository) ListByIssuer(
	ctx context.Context,
	issuer string,
) ([]*identityDomain.Binding, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, issuer, domain_id, bound_audiences, bound_subject_pattern, bound_claims, created_at, updated_at
			  FROM bindings
			  WHERE issuer = ?
			  ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, issuer)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list bindings by issuer")
	}
	defer rows.Close()

	return collectBindings(rows)
}

// List retrieves bindings ordered by ID with pagination.
func (m *MySQLBindingRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*identityDomain.Binding, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, issuer, domain_id, bound_audiences, bound_subject_pattern, bound_claims, created_at, updated_at
			  FROM bindings
			  ORDER BY id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list bindings")
	}
	defer rows.Close()

	return collectBindings(rows)
}

// Delete removes a Binding from the MySQL database.
func (m *MySQLBindingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM bindings WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete binding")
	}

	return requireRowAffected(result, identityDomain.ErrBindingNotFound)
}

// NewMySQLBindingRepository creates a new MySQL Binding repository instance.
func NewMySQLBindingRepository(db *sql.DB) *MySQLBindingRepository {
	return &MySQLBindingRepository{db: db}
}
