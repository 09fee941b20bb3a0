// Package usecase implements the authentication flow: assertion
// verification, claim binding and session issuance, plus trust-domain and
// binding administration.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// TrustDomainRepository defines the interface for trust domain persistence.
type TrustDomainRepository interface {
	Create(ctx context.Context, trustDomain *identityDomain.TrustDomain) error
	GetByIssuer(ctx context.Context, issuer string) (*identityDomain.TrustDomain, error)
	ListTrustDomains(ctx context.Context) ([]*identityDomain.TrustDomain, error)
	Delete(ctx context.Context, issuer string) error
}

// BindingRepository defines the interface for identity binding persistence.
type BindingRepository interface {
	Create(ctx context.Context, binding *identityDomain.Binding) error
	ListByIssuer(ctx context.Context, issuer string) ([]*identityDomain.Binding, error)
	List(ctx context.Context, offset, limit int) ([]*identityDomain.Binding, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// PolicyResolver resolves a domain's composed rule set.
type PolicyResolver interface {
	Resolve(ctx context.Context, domainID string) (policyDomain.RuleSet, error)
}

// DomainGetter looks up registered tenant domains. Used to enforce the
// binding namespace invariant at registration.
type DomainGetter interface {
	GetDomain(ctx context.Context, domainID string) (*policyDomain.Domain, error)
}

// SessionIssuer mints a session bound to a resolved rule set.
type SessionIssuer interface {
	Issue(
		ctx context.Context,
		domainID string,
		rules policyDomain.RuleSet,
	) (plainToken string, expiresAt time.Time, err error)
}

// LoginInput contains the parameters for authenticating a workload.
type LoginInput struct {
	Assertion string
}

// LoginOutput is the result of a successful login: a bearer token scoped to
// the matched domain's rule set.
type LoginOutput struct {
	Token     string
	ExpiresAt time.Time
	DomainID  string
	Subject   string
}

// RegisterTrustDomainInput contains the parameters for registering an
// external identity provider.
type RegisterTrustDomainInput struct {
	Issuer        string
	Mode          identityDomain.VerificationMode
	PublicKeysPEM map[string]string
	ReviewURL     string
	Audiences     []string
}

// RegisterBindingInput contains the parameters for binding claim shapes to
// a tenant domain.
type RegisterBindingInput struct {
	Issuer              string
	DomainID            string
	BoundAudiences      []string
	BoundSubjectPattern string
	BoundClaims         map[string]string
}

// IdentityUseCase defines the interface for authentication and identity
// administration.
type IdentityUseCase interface {
	// Login verifies the assertion, binds the claims to exactly one domain
	// and issues a session. All verification and binding failures map to
	// ErrUnauthorized except an ambiguous binding, which is a surfaced
	// configuration error.
	Login(ctx context.Context, input LoginInput) (*LoginOutput, error)

	RegisterTrustDomain(ctx context.Context, input RegisterTrustDomainInput) (*identityDomain.TrustDomain, error)
	RemoveTrustDomain(ctx context.Context, issuer string) error
	ListTrustDomains(ctx context.Context) ([]*identityDomain.TrustDomain, error)

	RegisterBinding(ctx context.Context, input RegisterBindingInput) (*identityDomain.Binding, error)
	RemoveBinding(ctx context.Context, id uuid.UUID) error
	ListBindings(ctx context.Context, offset, limit int) ([]*identityDomain.Binding, error)
}
