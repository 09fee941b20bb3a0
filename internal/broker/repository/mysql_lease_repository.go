package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// MySQLLeaseRepository implements Lease persistence for MySQL.
type MySQLLeaseRepository struct {
	db *sql.DB
}

// Create inserts a new lease into the MySQL database.
func (m *MySQLLeaseRepository) Create(ctx context.Context, lease *brokerDomain.Lease) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO leases (` + leaseColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := querier.ExecContext(
		ctx,
		query,
		lease.ID.String(),
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
func (m *MySQLLeaseRepository) Get(ctx context.Context, id uuid.UUID) (*brokerDomain.Lease, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + leaseColumns + ` FROM leases WHERE id = ?`

	return scanLease(querier.QueryRowContext(ctx, query, id.String()))
}

// ListByDomain retrieves the leases of a domain with pagination.
func (m *MySQLLeaseRepository) ListByDomain(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Lease, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + leaseColumns + `
			  FROM leases
			  WHERE domain_id = ?
			  ORDER BY issued_at
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, domainID, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list leases")
	}
	defer rows.Close()

	return collectLeases(rows)
}

// CountByRole counts the leases referencing a role.
func (m *MySQLLeaseRepository) CountByRole(
	ctx context.Context,
	domainID, roleName string,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM leases WHERE domain_id = ? AND role_name = ?`,
		domainID,
		roleName,
	).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count leases")
	}
	return count, nil
}

// Renew extends an active lease.
func (m *MySQLLeaseRepository) Renew(
	ctx context.Context,
	id uuid.UUID,
	expiresAt time.Time,
	renewCount int,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE leases
			  SET expires_at = ?, next_attempt_at = ?, renew_count = ?, updated_at = ?
			  WHERE id = ? AND state = 'active'`

	result, err := querier.ExecContext(ctx, query, expiresAt, expiresAt, renewCount, time.Now().UTC(), id.String())
	if err != nil {
		return false, apperrors.Wrap(err, "failed to renew lease")
	}
	return oneRowAffected(result)
}

// MarkRevoking moves an active lease into the revocation queue.
func (m *MySQLLeaseRepository) MarkRevoking(
	ctx context.Context,
	id uuid.UUID,
	nextAttemptAt time.Time,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE leases
			  SET state = 'revoking', next_attempt_at = ?, updated_at = ?
			  WHERE id = ? AND state = 'active'`

	result, err := querier.ExecContext(ctx, query, nextAttemptAt, nextAttemptAt, id.String())
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark lease revoking")
	}
	return oneRowAffected(result)
}

// ScheduleRetry records a failed revocation attempt.
func (m *MySQLLeaseRepository) ScheduleRetry(
	ctx context.Context,
	id uuid.UUID,
	retries int,
	nextAttemptAt time.Time,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE leases
			  SET retries = ?, next_attempt_at = ?, updated_at = ?
			  WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, retries, nextAttemptAt, time.Now().UTC(), id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to schedule revocation retry")
	}
	return requireRowAffected(result, brokerDomain.ErrLeaseNotFound)
}

// Delete removes a lease row.
func (m *MySQLLeaseRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	_, err := querier.ExecContext(ctx, `DELETE FROM leases WHERE id = ?`, id.String())
	if err != nil {
		return apperrors.Wrap(err, "failed to delete lease")
	}
	return nil
}

// MarkExpiredRevoking queues every active lease past its expiry, up to limit.
// MySQL refuses updates that select from the target table, so the candidate
// IDs go through a derived table.
func (m *MySQLLeaseRepository) MarkExpiredRevoking(
	ctx context.Context,
	now time.Time,
	limit int,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE leases
			  SET state = 'revoking', next_attempt_at = ?, updated_at = ?
			  WHERE id IN (
				  SELECT id FROM (
					  SELECT id FROM leases
					  WHERE state = 'active' AND expires_at <= ?
					  ORDER BY expires_at
					  LIMIT ?
				  ) AS due
			  )`

	result, err := querier.ExecContext(ctx, query, now, now, now, limit)
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
func (m *MySQLLeaseRepository) MarkDomainRevoking(
	ctx context.Context,
	domainID string,
	now time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE leases
			  SET state = 'revoking', next_attempt_at = ?, updated_at = ?
			  WHERE domain_id = ? AND state = 'active'`

	result, err := querier.ExecContext(ctx, query, now, now, domainID)
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
func (m *MySQLLeaseRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]*brokerDomain.Lease, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + leaseColumns + `
			  FROM leases
			  WHERE state = 'revoking' AND next_attempt_at <= ?
			  ORDER BY next_attempt_at
			  LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, now, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list due leases")
	}
	defer rows.Close()

	return collectLeases(rows)
}

// NewMySQLLeaseRepository creates a new MySQL Lease repository instance.
func NewMySQLLeaseRepository(db *sql.DB) *MySQLLeaseRepository {
	return &MySQLLeaseRepository{db: db}
}
