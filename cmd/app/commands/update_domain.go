package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	policyUseCase "github.com/pbarbosa/tenantvault/internal/policy/usecase"
)

// RunUpdateDomain updates a tenant domain's description, secret path prefixes
// and deny patterns. The domain ID and namespace are immutable.
//
// Requirements: Database must be migrated and accessible.
func RunUpdateDomain(
	ctx context.Context,
	policies policyUseCase.PolicyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id string,
	description string,
	prefixes []string,
	denyPatterns []string,
	format string,
) error {
	logger.Info("updating domain", slog.String("domain_id", id))

	if len(prefixes) == 0 {
		return fmt.Errorf("at least one secret path prefix is required")
	}

	domain, err := policies.UpdateDomain(ctx, id, policyUseCase.UpdateDomainInput{
		Description:        description,
		SecretPathPrefixes: prefixes,
		DenyPatterns:       denyPatterns,
	})
	if err != nil {
		return fmt.Errorf("failed to update domain: %w", err)
	}

	outputDomain(domain, format, writer)

	logger.Info("domain updated successfully", slog.String("domain_id", domain.ID))

	return nil
}
