package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// MySQLConnector provisions MySQL users. User DDL does not accept bind
// parameters; principals and passwords are generated locally from a safe
// alphabet and validated again before interpolation.
type MySQLConnector struct{}

// CreatePrincipal creates a user account. MySQL has no time-based account
// expiry, so validUntil is recorded on the lease only and enforced by the
// sweeper.
func (c *MySQLConnector) CreatePrincipal(
	ctx context.Context,
	connectionString, principal, password string,
	_ time.Time,
) error {
	if err := validateCredentialMaterial(principal, password); err != nil {
		return err
	}

	statement := fmt.Sprintf("CREATE USER '%s'@'%%' IDENTIFIED BY '%s'", principal, password)
	return c.exec(ctx, connectionString, statement, "failed to create mysql principal")
}

// ExtendPrincipal is a no-op: lease expiry is the only clock MySQL
// principals run on.
func (c *MySQLConnector) ExtendPrincipal(
	_ context.Context,
	_, _ string,
	_ time.Time,
) error {
	return nil
}

// DestroyPrincipal drops the user. A missing user is treated as already
// revoked.
func (c *MySQLConnector) DestroyPrincipal(
	ctx context.Context,
	connectionString, principal string,
) error {
	if err := validateCredentialMaterial(principal, ""); err != nil {
		return err
	}

	statement := fmt.Sprintf("DROP USER IF EXISTS '%s'@'%%'", principal)
	return c.exec(ctx, connectionString, statement, "failed to destroy mysql principal")
}

func (c *MySQLConnector) exec(ctx context.Context, connectionString, statement, failure string) error {
	db, err := sql.Open("mysql", connectionString)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrBackendUnavailable, failure+": "+err.Error())
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, statement); err != nil {
		return apperrors.Wrap(apperrors.ErrBackendUnavailable, failure+": "+err.Error())
	}
	return nil
}

// validateCredentialMaterial rejects anything outside the alphabets the
// generator produces, so interpolated DDL can never be escaped.
func validateCredentialMaterial(principal, password string) error {
	if !isSafeCredentialToken(principal) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "principal contains unsupported characters")
	}
	if password != "" && !isSafeCredentialToken(password) {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "password contains unsupported characters")
	}
	return nil
}

func isSafeCredentialToken(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
		default:
			return false
		}
	}
	return true
}

// NewMySQLConnector creates a new MySQL connector instance.
func NewMySQLConnector() *MySQLConnector {
	return &MySQLConnector{}
}
