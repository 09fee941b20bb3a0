package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// MySQLDecisionLogRepository implements DecisionLog persistence for MySQL.
type MySQLDecisionLogRepository struct {
	db *sql.DB
}

// Create inserts a new decision log entry. Nil metadata is stored as NULL.
func (m *MySQLDecisionLogRepository) Create(ctx context.Context, entry *auditDomain.DecisionLog) error {
	querier := database.GetTx(ctx, m.db)

	metadataJSON, err := marshalDecisionMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO decision_logs (id, request_id, domain_id, subject, path, capability, outcome, metadata, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID.String(),
		entry.RequestID.String(),
		entry.DomainID,
		entry.Subject,
		entry.Path,
		string(entry.Capability),
		string(entry.Outcome),
		metadataJSON,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create decision log")
	}
	return nil
}

// List retrieves decision logs newest first with pagination and optional
// domain and inclusive time filters.
func (m *MySQLDecisionLogRepository) List(
	ctx context.Context,
	domainID string,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.DecisionLog, error) {
	querier := database.GetTx(ctx, m.db)

	var (
		conditions []string
		args       []any
	)
	if domainID != "" {
		conditions = append(conditions, "domain_id = ?")
		args = append(args, domainID)
	}
	if createdAtFrom != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, *createdAtFrom)
	}
	if createdAtTo != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, *createdAtTo)
	}

	query := `SELECT id, request_id, domain_id, subject, path, capability, outcome, metadata, created_at
			  FROM decision_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list decision logs")
	}
	defer rows.Close()

	return collectDecisionLogs(rows)
}

// NewMySQLDecisionLogRepository creates a new MySQL DecisionLog repository instance.
func NewMySQLDecisionLogRepository(db *sql.DB) *MySQLDecisionLogRepository {
	return &MySQLDecisionLogRepository{db: db}
}
