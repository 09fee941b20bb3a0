package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
)

// RunCreateBinding binds an issuer's claim shape to a tenant domain. The
// claims argument is a JSON object of claim names to required values.
//
// Requirements: Database must be migrated and accessible.
func RunCreateBinding(
	ctx context.Context,
	identity identityUseCase.IdentityUseCase,
	logger *slog.Logger,
	writer io.Writer,
	issuer string,
	domainID string,
	audiences []string,
	subjectPattern string,
	claimsJSON string,
	format string,
) error {
	logger.Info("creating binding",
		slog.String("issuer", issuer),
		slog.String("domain_id", domainID),
	)

	var boundClaims map[string]string
	if claimsJSON != "" {
		if err := json.Unmarshal([]byte(claimsJSON), &boundClaims); err != nil {
			return fmt.Errorf("failed to parse claims JSON: %w", err)
		}
	}

	binding, err := identity.RegisterBinding(ctx, identityUseCase.RegisterBindingInput{
		Issuer:              issuer,
		DomainID:            domainID,
		BoundAudiences:      audiences,
		BoundSubjectPattern: subjectPattern,
		BoundClaims:         boundClaims,
	})
	if err != nil {
		return fmt.Errorf("failed to create binding: %w", err)
	}

	if format == "json" {
		writeJSON(writer, map[string]any{
			"id":                    binding.ID.String(),
			"issuer":                binding.Issuer,
			"domain_id":             binding.DomainID,
			"bound_audiences":       binding.BoundAudiences,
			"bound_subject_pattern": binding.BoundSubjectPattern,
			"bound_claims":          binding.BoundClaims,
		})
	} else {
		_, _ = fmt.Fprintln(writer, "Binding created successfully!")
		_, _ = fmt.Fprintf(writer, "ID: %s\n", binding.ID.String())
		_, _ = fmt.Fprintf(writer, "Issuer: %s\n", binding.Issuer)
		_, _ = fmt.Fprintf(writer, "Domain: %s\n", binding.DomainID)
		_, _ = fmt.Fprintf(writer, "Subject pattern: %s\n", binding.BoundSubjectPattern)
	}

	logger.Info("binding created successfully",
		slog.String("binding_id", binding.ID.String()),
		slog.String("domain_id", domainID),
	)

	return nil
}
