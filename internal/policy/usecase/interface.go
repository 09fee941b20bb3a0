// Package usecase implements domain registry management and policy resolution.
// Resolution composes a domain's rule fragments into the rule set a session
// gets bound to; it is deterministic and reads a consistent registry snapshot.
package usecase

import (
	"context"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// DomainRepository defines the interface for domain registry persistence.
type DomainRepository interface {
	Create(ctx context.Context, d *policyDomain.Domain) error
	Get(ctx context.Context, domainID string) (*policyDomain.Domain, error)
	Update(ctx context.Context, d *policyDomain.Domain) error
	Delete(ctx context.Context, domainID string) error
	List(ctx context.Context, offset, limit int) ([]*policyDomain.Domain, error)
}

// CredentialRoleLister exposes the dynamic-credential role names registered
// for a domain. Implemented by the broker's role repository; policy resolution
// only needs the names to compose credential-path rules.
type CredentialRoleLister interface {
	ListRoleNames(ctx context.Context, domainID string) ([]string, error)
}

// RegisterDomainInput contains the parameters for onboarding a new domain.
type RegisterDomainInput struct {
	ID                 string
	Description        string
	Namespace          string
	SecretPathPrefixes []string
	DenyPatterns       []string
}

// UpdateDomainInput contains the mutable fields of a registered domain.
// The domain ID and namespace are immutable after onboarding.
type UpdateDomainInput struct {
	Description        string
	SecretPathPrefixes []string
	DenyPatterns       []string
}

// PolicyUseCase defines the interface for domain registry and policy resolution.
type PolicyUseCase interface {
	// Resolve returns the fully composed, deduplicated rule set for a domain.
	// Same domain state always yields the same rule set. Returns
	// ErrUnknownDomain if the domain is not registered.
	Resolve(ctx context.Context, domainID string) (policyDomain.RuleSet, error)

	RegisterDomain(ctx context.Context, input RegisterDomainInput) (*policyDomain.Domain, error)
	UpdateDomain(ctx context.Context, domainID string, input UpdateDomainInput) (*policyDomain.Domain, error)
	RemoveDomain(ctx context.Context, domainID string) error
	GetDomain(ctx context.Context, domainID string) (*policyDomain.Domain, error)
	ListDomains(ctx context.Context, offset, limit int) ([]*policyDomain.Domain, error)
}
