package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	policyUseCase "github.com/pbarbosa/tenantvault/internal/policy/usecase"
)

// RunCreateDomain onboards a new tenant domain with its secret path prefixes
// and deny patterns. Outputs the registered domain in either text or JSON
// format.
//
// Requirements: Database must be migrated and accessible.
func RunCreateDomain(
	ctx context.Context,
	policies policyUseCase.PolicyUseCase,
	logger *slog.Logger,
	writer io.Writer,
	id string,
	description string,
	namespace string,
	prefixes []string,
	denyPatterns []string,
	format string,
) error {
	logger.Info("creating domain", slog.String("domain_id", id))

	if len(prefixes) == 0 {
		return fmt.Errorf("at least one secret path prefix is required")
	}

	domain, err := policies.RegisterDomain(ctx, policyUseCase.RegisterDomainInput{
		ID:                 id,
		Description:        description,
		Namespace:          namespace,
		SecretPathPrefixes: prefixes,
		DenyPatterns:       denyPatterns,
	})
	if err != nil {
		return fmt.Errorf("failed to create domain: %w", err)
	}

	outputDomain(domain, format, writer)

	logger.Info("domain created successfully",
		slog.String("domain_id", domain.ID),
		slog.String("namespace", domain.Namespace),
	)

	return nil
}

// outputDomain outputs a domain in the requested format.
func outputDomain(domain *policyDomain.Domain, format string, writer io.Writer) {
	if format == "json" {
		writeJSON(writer, map[string]any{
			"id":                   domain.ID,
			"description":          domain.Description,
			"namespace":            domain.Namespace,
			"secret_path_prefixes": domain.SecretPathPrefixes,
			"deny_patterns":        domain.DenyPatterns,
		})
		return
	}

	_, _ = fmt.Fprintf(writer, "Domain: %s\n", domain.ID)
	_, _ = fmt.Fprintf(writer, "Namespace: %s\n", domain.Namespace)
	if domain.Description != "" {
		_, _ = fmt.Fprintf(writer, "Description: %s\n", domain.Description)
	}
	_, _ = fmt.Fprintf(writer, "Secret path prefixes: %v\n", domain.SecretPathPrefixes)
	if len(domain.DenyPatterns) > 0 {
		_, _ = fmt.Fprintf(writer, "Deny patterns: %v\n", domain.DenyPatterns)
	}
}
