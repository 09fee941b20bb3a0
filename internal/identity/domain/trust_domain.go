// Package domain defines the core entities for federated identity:
// trust domains, verified claim sets, and identity bindings.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// VerificationMode selects how assertions from a trust domain are verified.
// The mode is fixed at trust-domain registration time.
type VerificationMode string

const (
	// OfflineVerification checks assertion signatures against a locally
	// cached key set. No network call happens on the request path.
	OfflineVerification VerificationMode = "offline"

	// LiveVerification submits the assertion to the trust domain's review
	// endpoint for synchronous validation.
	LiveVerification VerificationMode = "live"
)

// TrustDomain is a registered external identity provider. Assertions are
// accepted only from registered trust domains, keyed by issuer.
type TrustDomain struct {
	ID     uuid.UUID
	Issuer string
	Mode   VerificationMode

	// PublicKeysPEM maps key IDs to PEM-encoded public keys. Used in
	// offline mode; loaded into the verifier's key cache at startup and on
	// the configured refresh cadence.
	PublicKeysPEM map[string]string

	// ReviewURL is the synchronous validation endpoint. Used in live mode.
	ReviewURL string

	// Audiences lists the audience values this trust domain accepts. An
	// assertion must carry at least one of them.
	Audiences []string

	CreatedAt time.Time
	UpdatedAt time.Time
}
