// Package repository implements decision log persistence for PostgreSQL and
// MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// PostgreSQLDecisionLogRepository implements DecisionLog persistence for PostgreSQL.
type PostgreSQLDecisionLogRepository struct {
	db *sql.DB
}

// Create inserts a new decision log entry. Nil metadata is stored as NULL.
func (p *PostgreSQLDecisionLogRepository) Create(ctx context.Context, entry *auditDomain.DecisionLog) error {
	querier := database.GetTx(ctx, p.db)

	metadataJSON, err := marshalDecisionMetadata(entry.Metadata)
	if err != nil {
		return err
	}

	query := `INSERT INTO decision_logs (id, request_id, domain_id, subject, path, capability, outcome, metadata, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.RequestID,
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
func (p *PostgreSQLDecisionLogRepository) List(
	ctx context.Context,
	domainID string,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.DecisionLog, error) {
	querier := database.GetTx(ctx, p.db)

	var (
		conditions []string
		args       []any
	)
	if domainID != "" {
		args = append(args, domainID)
		conditions = append(conditions, fmt.Sprintf("domain_id = $%d", len(args)))
	}
	if createdAtFrom != nil {
		args = append(args, *createdAtFrom)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if createdAtTo != nil {
		args = append(args, *createdAtTo)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	query := `SELECT id, request_id, domain_id, subject, path, capability, outcome, metadata, created_at
			  FROM decision_logs`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY id DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list decision logs")
	}
	defer rows.Close()

	return collectDecisionLogs(rows)
}

// NewPostgreSQLDecisionLogRepository creates a new PostgreSQL DecisionLog repository instance.
func NewPostgreSQLDecisionLogRepository(db *sql.DB) *PostgreSQLDecisionLogRepository {
	return &PostgreSQLDecisionLogRepository{db: db}
}

func marshalDecisionMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		return nil, nil
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal decision metadata")
	}
	return metadataJSON, nil
}

func collectDecisionLogs(rows *sql.Rows) ([]*auditDomain.DecisionLog, error) {
	entries := make([]*auditDomain.DecisionLog, 0)
	for rows.Next() {
		var (
			entry        auditDomain.DecisionLog
			capability   string
			outcome      string
			metadataJSON []byte
		)

		err := rows.Scan(
			&entry.ID,
			&entry.RequestID,
			&entry.DomainID,
			&entry.Subject,
			&entry.Path,
			&capability,
			&outcome,
			&metadataJSON,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan decision log")
		}

		entry.Capability = policyDomain.Capability(capability)
		entry.Outcome = auditDomain.Outcome(outcome)
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, apperrors.Wrap(err, "failed to unmarshal decision metadata")
			}
		}

		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate decision logs")
	}

	return entries, nil
}
