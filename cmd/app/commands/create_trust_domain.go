package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
)

// RunCreateTrustDomain registers an external identity provider. Offline mode
// requires a JSON object mapping key IDs to PEM public keys; live mode
// requires a review URL.
//
// Requirements: Database must be migrated and accessible.
func RunCreateTrustDomain(
	ctx context.Context,
	identity identityUseCase.IdentityUseCase,
	logger *slog.Logger,
	writer io.Writer,
	issuer string,
	mode string,
	keysJSON string,
	reviewURL string,
	audiences []string,
	format string,
) error {
	logger.Info("creating trust domain",
		slog.String("issuer", issuer),
		slog.String("mode", mode),
	)

	verificationMode, err := parseVerificationMode(mode)
	if err != nil {
		return err
	}

	var publicKeys map[string]string
	if keysJSON != "" {
		if err := json.Unmarshal([]byte(keysJSON), &publicKeys); err != nil {
			return fmt.Errorf("failed to parse keys JSON: %w", err)
		}
	}

	trustDomain, err := identity.RegisterTrustDomain(ctx, identityUseCase.RegisterTrustDomainInput{
		Issuer:        issuer,
		Mode:          verificationMode,
		PublicKeysPEM: publicKeys,
		ReviewURL:     reviewURL,
		Audiences:     audiences,
	})
	if err != nil {
		return fmt.Errorf("failed to create trust domain: %w", err)
	}

	if format == "json" {
		writeJSON(writer, map[string]any{
			"id":        trustDomain.ID.String(),
			"issuer":    trustDomain.Issuer,
			"mode":      string(trustDomain.Mode),
			"audiences": trustDomain.Audiences,
		})
	} else {
		_, _ = fmt.Fprintln(writer, "Trust domain created successfully!")
		_, _ = fmt.Fprintf(writer, "ID: %s\n", trustDomain.ID.String())
		_, _ = fmt.Fprintf(writer, "Issuer: %s\n", trustDomain.Issuer)
		_, _ = fmt.Fprintf(writer, "Mode: %s\n", trustDomain.Mode)
	}

	logger.Info("trust domain created successfully",
		slog.String("trust_domain_id", trustDomain.ID.String()),
		slog.String("issuer", issuer),
	)

	return nil
}
