// Package usecase implements dynamic credential brokering: roles describe
// how to mint short-lived database principals, leases track them, and the
// sweeper guarantees every expired or revoked lease ends with the principal
// dropped on the backend.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// RoleRepository defines the interface for credential role persistence.
type RoleRepository interface {
	Create(ctx context.Context, role *brokerDomain.Role) error
	Get(ctx context.Context, domainID, name string) (*brokerDomain.Role, error)
	Delete(ctx context.Context, domainID, name string) error
	List(ctx context.Context, domainID string, offset, limit int) ([]*brokerDomain.Role, error)
	ListRoleNames(ctx context.Context, domainID string) ([]string, error)
}

// LeaseRepository defines the interface for lease persistence. State changes
// go through compare-and-set updates so concurrent renew, revoke, and sweep
// never double-apply; the boolean result reports whether the guard matched.
type LeaseRepository interface {
	Create(ctx context.Context, lease *brokerDomain.Lease) error
	Get(ctx context.Context, id uuid.UUID) (*brokerDomain.Lease, error)
	ListByDomain(ctx context.Context, domainID string, offset, limit int) ([]*brokerDomain.Lease, error)
	CountByRole(ctx context.Context, domainID, roleName string) (int64, error)

	// Renew extends an active lease. Returns false when the lease is not
	// active anymore.
	Renew(ctx context.Context, id uuid.UUID, expiresAt time.Time, renewCount int) (bool, error)

	// MarkRevoking moves an active lease into the revocation queue. Returns
	// false when the lease was already queued or is gone.
	MarkRevoking(ctx context.Context, id uuid.UUID, nextAttemptAt time.Time) (bool, error)

	// ScheduleRetry records a failed revocation attempt and when to try next.
	ScheduleRetry(ctx context.Context, id uuid.UUID, retries int, nextAttemptAt time.Time) error

	// Delete removes the lease row after the backend confirmed the principal
	// is gone.
	Delete(ctx context.Context, id uuid.UUID) error

	// MarkExpiredRevoking queues every active lease past its expiry.
	MarkExpiredRevoking(ctx context.Context, now time.Time, limit int) (int64, error)

	// MarkDomainRevoking queues every active lease of a domain.
	MarkDomainRevoking(ctx context.Context, domainID string, now time.Time) (int64, error)

	// ListDue returns queued leases whose next attempt is due.
	ListDue(ctx context.Context, now time.Time, limit int) ([]*brokerDomain.Lease, error)
}

// RegisterRoleInput contains the parameters for registering a credential role.
type RegisterRoleInput struct {
	DomainID         string
	Name             string
	Backend          brokerDomain.Backend
	ConnectionString string
	DefaultTTL       time.Duration
	MaxTTL           time.Duration
}

// IssueCredentialOutput carries the one-time credential material. The
// password exists only in this response; it is never persisted.
type IssueCredentialOutput struct {
	Lease    *brokerDomain.Lease
	Username string
	Password string
}

// BrokerUseCase defines the interface for dynamic credential operations.
type BrokerUseCase interface {
	// Issue mints a fresh principal for the role and returns its credentials
	// with a lease. Requires read capability on the role's credential path.
	Issue(ctx context.Context, rules policyDomain.RuleSet, domainID, roleName string) (*IssueCredentialOutput, error)

	// Renew extends an active lease up to its maximum lifetime.
	Renew(ctx context.Context, rules policyDomain.RuleSet, leaseID uuid.UUID) (*brokerDomain.Lease, error)

	// Revoke queues the lease for revocation and attempts the backend drop
	// immediately. Revoking an already queued lease is a no-op.
	Revoke(ctx context.Context, rules policyDomain.RuleSet, leaseID uuid.UUID) error

	// RevokeDomainLeases queues every active lease of a domain. Used during
	// domain offboarding; the sweeper completes the backend drops.
	RevokeDomainLeases(ctx context.Context, domainID string) (int64, error)

	RegisterRole(ctx context.Context, input RegisterRoleInput) (*brokerDomain.Role, error)
	RemoveRole(ctx context.Context, domainID, name string) error
	GetRole(ctx context.Context, domainID, name string) (*brokerDomain.Role, error)
	ListRoles(ctx context.Context, domainID string, offset, limit int) ([]*brokerDomain.Role, error)
	ListLeases(ctx context.Context, domainID string, offset, limit int) ([]*brokerDomain.Lease, error)
}
