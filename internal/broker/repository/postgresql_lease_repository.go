package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// PostgreSQLLeaseRepository implements Lease persistence for PostgreSQL.
type PostgreSQLLeaseRepository struct {
	db *sql.DB
}

const leaseColumns = `id, domain_id, role_name, principal, state, issued_at, expires_at, max_expires_at, renew_count, retries, next_attempt_at, created_at, updated_at`

// Create inserts a new lease into the PostgreSQL database.
func (p *PostgreSQLLeaseRepository) Create(ctx context.Context, lease *brokerDomain.Lease) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO leases (` + leaseColumns + `)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := querier.ExecContext(
		ctx,
		query,
		lease.ID,
		lease.DomainID,
		lease.RoleName,
		lease.Principal,
		lease.State,
		lease.IssuedAt,
		lease.ExpiresAt,
		lease.MaxExpiresAt,
		lease.RenewCount,
		lease.Retries,
		lease.NextAttemptAt,
		lease.CreatedAt,
		lease.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create lease")
	}
	return nil
}

// Get retrieves a lease by ID.
func (p *PostgreSQLLeaseRepository) Get(ctx context.Context, id uuid.UUID) (*brokerDomain.Lease, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + leaseColumns + ` FROM leases WHERE id = $1`

	return scanLease(querier.QueryRowContext(ctx, query, id))
}

// ListByDomain retrieves the leases of a domain with pagination.
func (p *PostgreSQLLeaseRepository) ListByDomain(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Lease, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + leaseColumns + `
			  FROM leases
			  WHERE domain_id = $1
			  ORDER BY issued_at
			  OFFSET $2 LIMIT $3`

	rows, err := querier.QueryContext(ctx, query, domainID, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list leases")
	}
	defer rows.Close()

	return collectLeases(rows)
}

// CountByRole counts the leases referencing a role.
func (p *PostgreSQLLeaseRepository) CountByRole(
	ctx context.Context,
	domainID, roleName string,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM leases WHERE domain_id = $1 AND role_name = $2`,
		domainID,
		roleName,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count leases")
	}
	return count, nil
}

// Renew extends an active lease.
func (p *PostgreSQLLeaseRepository) Renew(
	ctx context.Context,
	id uuid.UUID,
	expiresAt time.Time,
	renewCount int,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE leases
			  SET expires_at = $1, next_attempt_at = $1, renew_count = $2, updated_at = $3
			  WHERE id = $4 AND state = 'active'`

	result, err := querier.ExecContext(ctx, query, expiresAt, renewCount, time.Now().UTC(), id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to renew lease")
	}
	return oneRowAffected(result)
}

// MarkRevoking moves an active lease into the revocation queue.
func (p *PostgreSQLLeaseRepository) MarkRevoking(
	ctx context.Context,
	id uuid.UUID,
	nextAttemptAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE leases
			  SET state = 'revoking', next_attempt_at = $1, updated_at = $1
			  WHERE id = $2 AND state = 'active'`

	result, err := querier.ExecContext(ctx, query, nextAttemptAt, id)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark lease revoking")
	}
	return oneRowAffected(result)
}

// ScheduleRetry records a failed revocation attempt.
func (p *PostgreSQLLeaseRepository) ScheduleRetry(
	ctx context.Context,
	id uuid.UUID,
	retries int,
	nextAttemptAt time.Time,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE leases
			  SET retries = $1, next_attempt_at = $2, updated_at = $3
			  WHERE id = $4`

	result, err := querier.ExecContext(ctx, query, retries, nextAttemptAt, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to schedule revocation retry")
	}
	return requireRowAffected(result, brokerDomain.ErrLeaseNotFound)
}

// Delete removes a lease row.
func (p *PostgreSQLLeaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM leases WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete lease")
	}
	return nil
}

// MarkExpiredRevoking queues every active lease past its expiry, up to limit.
func (p *PostgreSQLLeaseRepository) MarkExpiredRevoking(
	ctx context.Context,
	now time.Time,
	limit int,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE leases
			  SET state = 'revoking', next_attempt_at = $1, updated_at = $1
			  WHERE id IN (
				  SELECT id FROM leases
				  WHERE state = 'active' AND expires_at <= $1
				  ORDER BY expires_at
				  LIMIT $2
			  )`

	result, err := querier.ExecContext(ctx, query, now, limit)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to queue expired leases")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read rows affected")
	}
	return affected, nil
}

// MarkDomainRevoking queues every active lease of a domain.
func (p *PostgreSQLLeaseRepository) MarkDomainRevoking(
	ctx context.Context,
	domainID string,
	now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE leases
			  SET state = 'revoking', next_attempt_at = $1, updated_at = $1
			  WHERE domain_id = $2 AND state = 'active'`

	result, err := querier.ExecContext(ctx, query, now, domainID)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to queue domain leases")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to read rows affected")
	}
	return affected, nil
}

// ListDue returns queued leases whose next attempt is due.
func (p *PostgreSQLLeaseRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*brokerDomain.Lease, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + leaseColumns + `
			  FROM leases
			  WHERE state = 'revoking' AND next_attempt_at <= $1
			  ORDER BY next_attempt_at
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due leases")
	}
	defer rows.Close()

	return collectLeases(rows)
}

// NewPostgreSQLLeaseRepository creates a new PostgreSQL Lease repository instance.
func NewPostgreSQLLeaseRepository(db *sql.DB) *PostgreSQLLeaseRepository {
	return &PostgreSQLLeaseRepository{db: db}
}

func scanLease(row rowScanner) (*brokerDomain.Lease, error) {
	var lease brokerDomain.Lease

	err := row.Scan(
		&lease.ID,
		&lease.DomainID,
		&lease.RoleName,
		&lease.Principal,
		&lease.State,
		&lease.IssuedAt,
		&lease.ExpiresAt,
		&lease.MaxExpiresAt,
		&lease.RenewCount,
		&lease.Retries,
		&lease.NextAttemptAt,
		&lease.CreatedAt,
		&lease.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, brokerDomain.ErrLeaseNotFound
		}
		return nil, apperrors.Wrap(err, "failed to scan lease")
	}

	return &lease, nil
}

func collectLeases(rows *sql.Rows) ([]*brokerDomain.Lease, error) {
	var leases []*brokerDomain.Lease
	for rows.Next() {
		lease, err := scanLease(rows)
		if err != nil {
			return nil, err
		}
		leases = append(leases, lease)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate leases")
	}
	return leases, nil
}
