package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// PostgresConnector provisions PostgreSQL login roles. Role DDL does not
// accept bind parameters, so identifiers and literals go through lib/pq
// quoting.
type PostgresConnector struct{}

// CreatePrincipal creates a login role with a backend-side expiry.
func (c *PostgresConnector) CreatePrincipal(
	ctx context.Context,
	connectionString, principal, password string,
	validUntil time.Time,
) error {
	statement := fmt.Sprintf(
		"CREATE ROLE %s WITH LOGIN PASSWORD %s VALID UNTIL %s",
		pq.QuoteIdentifier(principal),
		pq.QuoteLiteral(password),
		pq.QuoteLiteral(validUntil.UTC().Format(time.RFC3339)),
	)
	return c.exec(ctx, connectionString, statement, "failed to create postgres principal")
}

// ExtendPrincipal moves the backend-side expiry of an existing role.
func (c *PostgresConnector) ExtendPrincipal(
	ctx context.Context,
	connectionString, principal string,
	validUntil time.Time,
) error {
	statement := fmt.Sprintf(
		"ALTER ROLE %s VALID UNTIL %s",
		pq.QuoteIdentifier(principal),
		pq.QuoteLiteral(validUntil.UTC().Format(time.RFC3339)),
	)
	return c.exec(ctx, connectionString, statement, "failed to extend postgres principal")
}

// DestroyPrincipal drops the role. A missing role is treated as already
// revoked.
func (c *PostgresConnector) DestroyPrincipal(
	ctx context.Context,
	connectionString, principal string,
) error {
	statement := fmt.Sprintf("DROP ROLE IF EXISTS %s", pq.QuoteIdentifier(principal))
	return c.exec(ctx, connectionString, statement, "failed to destroy postgres principal")
}

func (c *PostgresConnector) exec(ctx context.Context, connectionString, statement, failure string) error {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrBackendUnavailable, failure+": "+err.Error())
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, statement); err != nil {
		return apperrors.Wrap(apperrors.ErrBackendUnavailable, failure+": "+err.Error())
	}
	return nil
}

// NewPostgresConnector creates a new PostgreSQL connector instance.
func NewPostgresConnector() *PostgresConnector {
	return &PostgresConnector{}
}
