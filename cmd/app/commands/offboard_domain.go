package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	brokerUseCase "github.com/pbarbosa/tenantvault/internal/broker/usecase"
	kvUseCase "github.com/pbarbosa/tenantvault/internal/kv/usecase"
	policyUseCase "github.com/pbarbosa/tenantvault/internal/policy/usecase"
)

// RunOffboardDomain removes a tenant domain: queues every active lease for
// revocation, purges the domain's stored secrets under each declared prefix,
// then removes the registry entry. The sweeper finishes the backend drops
// after the registry entry is gone.
//
// Requirements: Database must be migrated and accessible.
func RunOffboardDomain(
	ctx context.Context,
	policies policyUseCase.PolicyUseCase,
	broker brokerUseCase.BrokerUseCase,
	kv kvUseCase.KVUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id string,
	format string,
) error {
	logger.Info("offboarding domain", slog.String("domain_id", id))

	domain, err := policies.GetDomain(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to load domain: %w", err)
	}

	revoked, err := broker.RevokeDomainLeases(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to revoke domain leases: %w", err)
	}

	var purged int64
	for _, prefix := range domain.SecretPathPrefixes {
		count, err := kv.Purge(ctx, prefix)
		if err != nil {
			return fmt.Errorf("failed to purge secrets under %q: %w", prefix, err)
		}
		purged += count
	}

	if err := policies.RemoveDomain(ctx, id); err != nil {
		return fmt.Errorf("failed to remove domain: %w", err)
	}

	if format == "json" {
		writeJSON(writer, map[string]any{
			"domain_id":              id,
			"leases_revoked":         revoked,
			"secret_versions_purged": purged,
		})
	} else {
		_, _ = fmt.Fprintf(writer, "Domain %s offboarded\n", id)
		_, _ = fmt.Fprintf(writer, "Leases queued for revocation: %d\n", revoked)
		_, _ = fmt.Fprintf(writer, "Secret versions purged: %d\n", purged)
	}

	logger.Info("domain offboarded",
		slog.String("domain_id", id),
		slog.Int64("leases_revoked", revoked),
		slog.Int64("secret_versions_purged", purged),
	)

	return nil
}
