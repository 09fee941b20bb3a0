package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// PostgreSQLBindingRepository implements Binding persistence for PostgreSQL.
type PostgreSQLBindingRepository struct {
	db *sql.DB
}

// Create inserts a new Binding into the PostgreSQL database.
func (p *PostgreSQLBindingRepository) Create(
	ctx context.Context,
	binding *identityDomain.Binding,
) error {
	querier := database.GetTx(ctx, p.db)

	audiences, claims, err := marshalBindingMaterial(binding)
	if err != nil {
		return err
	}

	query := `INSERT INTO bindings (id, issuer, domain_id, bound_audiences, bound_subject_pattern, bound_claims, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = querier.ExecContext(
		ctx,
		query,
		binding.ID,
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
func (p *PostgreSQLBindingRepository) ListByIssuer(
	ctx context.Context,
	issuer string,
) ([]*identityDomain.Binding, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, issuer, domain_id, bound_audiences, bound_subject_pattern, bound_claims, created_at, updated_at
			  FROM bindings
			  WHERE issuer = $1
			  ORDER BY id`

	rows, err := querier.QueryContext(ctx, query, issuer)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list bindings by issuer")
	}
	defer rows.Close()

	return collectBindings(rows)
}

// List retrieves bindings ordered by ID with pagination.
func (p *PostgreSQLBindingRepository) List(
	ctx context.Context,
	offset, limit int,
) ([]*identityDomain.Binding, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, issuer, domain_id, bound_audiences, bound_subject_pattern, bound_claims, created_at, updated_at
			  FROM bindings
			  ORDER BY id
			  OFFSET $1 LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list bindings")
	}
	defer rows.Close()

	return collectBindings(rows)
}

// Delete removes a Binding from the PostgreSQL database.
func (p *PostgreSQLBindingRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM bindings WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete binding")
	}

	return requireRowAffected(result, identityDomain.ErrBindingNotFound)
}

// NewPostgreSQLBindingRepository creates a new PostgreSQL Binding repository instance.
func NewPostgreSQLBindingRepository(db *sql.DB) *PostgreSQLBindingRepository {
	return &PostgreSQLBindingRepository{db: db}
}

func scanBinding(row rowScanner) (*identityDomain.Binding, error) {
	var b identityDomain.Binding
	var audiences, claims []byte

	err := row.Scan(
		&b.ID,
		&b.Issuer,
		&b.DomainID,
		&audiences,
		&b.BoundSubjectPattern,
		&claims,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, identityDomain.ErrBindingNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan binding")
	}

	if len(audiences) > 0 {
		if err := json.Unmarshal(audiences, &b.BoundAudiences); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode bound audiences")
		}
	}
	if len(claims) > 0 {
		if err := json.Unmarshal(claims, &b.BoundClaims); err != nil {
			return nil, apperrors.Wrap(err, "failed to decode bound claims")
		}
	}

	return &b, nil
}

func collectBindings(rows *sql.Rows) ([]*identityDomain.Binding, error) {
	var bindings []*identityDomain.Binding
	for rows.Next() {
		b, err := scanBinding(rows)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate bindings")
	}
	return bindings, nil
}

func marshalBindingMaterial(b *identityDomain.Binding) ([]byte, []byte, error) {
	audiences, err := json.Marshal(b.BoundAudiences)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode bound audiences")
	}
	claims, err := json.Marshal(b.BoundClaims)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, "failed to encode bound claims")
	}
	return audiences, claims, nil
}
