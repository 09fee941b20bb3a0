// Package commands contains CLI command implementations for the application.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/golang-migrate/migrate/v4"

	"github.com/pbarbosa/tenantvault/internal/app"
	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// IOTuple holds reader and writer for commands, allowing for testing.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO returns an IOTuple with os.Stdin and os.Stdout.
func DefaultIO() IOTuple {
	return IOTuple{
		Reader: os.Stdin,
		Writer: os.Stdout,
	}
}

// closeContainer closes all resources in the container and logs any errors.
func closeContainer(container *app.Container, logger *slog.Logger) {
	if err := container.Shutdown(context.Background()); err != nil {
		logger.Error("failed to shutdown container", slog.Any("error", err))
	}
}

// closeMigrate closes the migration instance and logs any errors.
func closeMigrate(migrate *migrate.Migrate, logger *slog.Logger) {
	sourceError, databaseError := migrate.Close()
	if sourceError != nil || databaseError != nil {
		logger.Error(
			"failed to close the migrate",
			slog.Any("source_error", sourceError),
			slog.Any("database_error", databaseError),
		)
	}
}

// parseBackend converts a backend string to brokerDomain.Backend.
// Returns an error if the backend string is invalid.
func parseBackend(backend string) (brokerDomain.Backend, error) {
	switch backend {
	case "postgres":
		return brokerDomain.PostgresBackend, nil
	case "mysql":
		return brokerDomain.MySQLBackend, nil
	default:
		return "", fmt.Errorf("invalid backend: %s (valid options: postgres, mysql)", backend)
	}
}

// parseVerificationMode converts a mode string to identityDomain.VerificationMode.
// Returns an error if the mode string is invalid.
func parseVerificationMode(mode string) (identityDomain.VerificationMode, error) {
	switch mode {
	case "offline":
		return identityDomain.OfflineVerification, nil
	case "live":
		return identityDomain.LiveVerification, nil
	default:
		return "", fmt.Errorf("invalid verification mode: %s (valid options: offline, live)", mode)
	}
}

// writeJSON outputs the value in indented JSON format for machine consumption.
func writeJSON(writer io.Writer, value any) {
	jsonBytes, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}
	_, _ = fmt.Fprintln(writer, string(jsonBytes))
}
