package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	brokerUseCase "github.com/pbarbosa/tenantvault/internal/broker/usecase"
)

// RunCreateRole registers a dynamic credential role for a tenant domain.
// Zero TTLs fall back to the service defaults.
//
// Requirements: Database must be migrated and accessible. The connection
// string must carry privileges to create and drop principals on the backend.
func RunCreateRole(
	ctx context.Context,
	broker brokerUseCase.BrokerUseCase,
	logger *slog.Logger,
	writer io.Writer,
	domainID string,
	name string,
	backend string,
	connectionString string,
	defaultTTL time.Duration,
	maxTTL time.Duration,
	format string,
) error {
	logger.Info("creating role",
		slog.String("domain_id", domainID),
		slog.String("name", name),
		slog.String("backend", backend),
	)

	backendType, err := parseBackend(backend)
	if err != nil {
		return err
	}

	role, err := broker.RegisterRole(ctx, brokerUseCase.RegisterRoleInput{
		DomainID:         domainID,
		Name:             name,
		Backend:          backendType,
		ConnectionString: connectionString,
		DefaultTTL:       defaultTTL,
		MaxTTL:           maxTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	if format == "json" {
		writeJSON(writer, map[string]any{
			"id":          role.ID.String(),
			"domain_id":   role.DomainID,
			"name":        role.Name,
			"backend":     string(role.Backend),
			"default_ttl": role.DefaultTTL.String(),
			"max_ttl":     role.MaxTTL.String(),
		})
	} else {
		_, _ = fmt.Fprintln(writer, "Role created successfully!")
		_, _ = fmt.Fprintf(writer, "ID: %s\n", role.ID.String())
		_, _ = fmt.Fprintf(writer, "Domain: %s\n", role.DomainID)
		_, _ = fmt.Fprintf(writer, "Name: %s\n", role.Name)
		_, _ = fmt.Fprintf(writer, "Backend: %s\n", role.Backend)
		_, _ = fmt.Fprintf(writer, "Default TTL: %s\n", role.DefaultTTL)
		_, _ = fmt.Fprintf(writer, "Max TTL: %s\n", role.MaxTTL)
	}

	logger.Info("role created successfully",
		slog.String("role_id", role.ID.String()),
		slog.String("domain_id", domainID),
		slog.String("name", name),
	)

	return nil
}
