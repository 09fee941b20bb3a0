package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	"github.com/pbarbosa/tenantvault/internal/metrics"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// brokerUseCaseWithMetrics decorates BrokerUseCase with metrics instrumentation.
type brokerUseCaseWithMetrics struct {
	next    BrokerUseCase
	metrics metrics.BusinessMetrics
}

// NewBrokerUseCaseWithMetrics wraps a BrokerUseCase with metrics recording.
func NewBrokerUseCaseWithMetrics(useCase BrokerUseCase, m metrics.BusinessMetrics) BrokerUseCase {
	return &brokerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (b *brokerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	b.metrics.RecordOperation(ctx, "broker", operation, status)
	b.metrics.RecordDuration(ctx, "broker", operation, time.Since(start), status)
}

// Issue records metrics for credential issuance.
func (b *brokerUseCaseWithMetrics) Issue(
	ctx context.Context,
	rules policyDomain.RuleSet,
	domainID, roleName string,
) (*IssueCredentialOutput, error) {
	start := time.Now()
	output, err := b.next.Issue(ctx, rules, domainID, roleName)
	b.record(ctx, "credential_issue", start, err)
	return output, err
}

// Renew records metrics for lease renewal.
func (b *brokerUseCaseWithMetrics) Renew(
	ctx context.Context,
	rules policyDomain.RuleSet,
	leaseID uuid.UUID,
) (*brokerDomain.Lease, error) {
	start := time.Now()
	lease, err := b.next.Renew(ctx, rules, leaseID)
	b.record(ctx, "lease_renew", start, err)
	return lease, err
}

// Revoke records metrics for lease revocation.
func (b *brokerUseCaseWithMetrics) Revoke(
	ctx context.Context,
	rules policyDomain.RuleSet,
	leaseID uuid.UUID,
) error {
	start := time.Now()
	err := b.next.Revoke(ctx, rules, leaseID)
	b.record(ctx, "lease_revoke", start, err)
	return err
}

// RevokeDomainLeases records metrics for domain-wide lease revocation.
func (b *brokerUseCaseWithMetrics) RevokeDomainLeases(
	ctx context.Context,
	domainID string,
) (int64, error) {
	start := time.Now()
	count, err := b.next.RevokeDomainLeases(ctx, domainID)
	b.record(ctx, "lease_revoke_domain", start, err)
	return count, err
}

// RegisterRole records metrics for role registration.
func (b *brokerUseCaseWithMetrics) RegisterRole(
	ctx context.Context,
	input RegisterRoleInput,
) (*brokerDomain.Role, error) {
	start := time.Now()
	role, err := b.next.RegisterRole(ctx, input)
	b.record(ctx, "role_register", start, err)
	return role, err
}

// RemoveRole records metrics for role removal.
func (b *brokerUseCaseWithMetrics) RemoveRole(ctx context.Context, domainID, name string) error {
	start := time.Now()
	err := b.next.RemoveRole(ctx, domainID, name)
	b.record(ctx, "role_remove", start, err)
	return err
}

// GetRole records metrics for role retrieval.
func (b *brokerUseCaseWithMetrics) GetRole(
	ctx context.Context,
	domainID, name string,
) (*brokerDomain.Role, error) {
	start := time.Now()
	role, err := b.next.GetRole(ctx, domainID, name)
	b.record(ctx, "role_get", start, err)
	return role, err
}

// ListRoles records metrics for role listing.
func (b *brokerUseCaseWithMetrics) ListRoles(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Role, error) {
	start := time.Now()
	roles, err := b.next.ListRoles(ctx, domainID, offset, limit)
	b.record(ctx, "role_list", start, err)
	return roles, err
}

// ListLeases records metrics for lease listing.
func (b *brokerUseCaseWithMetrics) ListLeases(
	ctx context.Context,
	domainID string,
	offset, limit int,
) ([]*brokerDomain.Lease, error) {
	start := time.Now()
	leases, err := b.next.ListLeases(ctx, domainID, offset, limit)
	b.record(ctx, "lease_list", start, err)
	return leases, err
}
