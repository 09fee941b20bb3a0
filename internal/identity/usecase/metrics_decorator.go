package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
	"github.com/pbarbosa/tenantvault/internal/metrics"
)

// identityUseCaseWithMetrics decorates IdentityUseCase with metrics instrumentation.
type identityUseCaseWithMetrics struct {
	next    IdentityUseCase
	metrics metrics.BusinessMetrics
}

// NewIdentityUseCaseWithMetrics wraps an IdentityUseCase with metrics recording.
func NewIdentityUseCaseWithMetrics(useCase IdentityUseCase, m metrics.BusinessMetrics) IdentityUseCase {
	return &identityUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (i *identityUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	i.metrics.RecordOperation(ctx, "identity", operation, status)
	i.metrics.RecordDuration(ctx, "identity", operation, time.Since(start), status)
}

// Login records metrics for workload authentication.
func (i *identityUseCaseWithMetrics) Login(ctx context.Context, input LoginInput) (*LoginOutput, error) {
	start := time.Now()
	output, err := i.next.Login(ctx, input)
	i.record(ctx, "login", start, err)
	return output, err
}

// RegisterTrustDomain records metrics for trust domain registration.
func (i *identityUseCaseWithMetrics) RegisterTrustDomain(
	ctx context.Context,
	input RegisterTrustDomainInput,
) (*identityDomain.TrustDomain, error) {
	start := time.Now()
	trustDomain, err := i.next.RegisterTrustDomain(ctx, input)
	i.record(ctx, "trust_domain_register", start, err)
	return trustDomain, err
}

// RemoveTrustDomain records metrics for trust domain removal.
func (i *identityUseCaseWithMetrics) RemoveTrustDomain(ctx context.Context, issuer string) error {
	start := time.Now()
	err := i.next.RemoveTrustDomain(ctx, issuer)
	i.record(ctx, "trust_domain_remove", start, err)
	return err
}

// ListTrustDomains records metrics for trust domain listing.
func (i *identityUseCaseWithMetrics) ListTrustDomains(
	ctx context.Context,
) ([]*identityDomain.TrustDomain, error) {
	start := time.Now()
	trustDomains, err := i.next.ListTrustDomains(ctx)
	i.record(ctx, "trust_domain_list", start, err)
	return trustDomains, err
}

// RegisterBinding records metrics for binding registration.
func (i *identityUseCaseWithMetrics) RegisterBinding(
	ctx context.Context,
	input RegisterBindingInput,
) (*identityDomain.Binding, error) {
	start := time.Now()
	binding, err := i.next.RegisterBinding(ctx, input)
	i.record(ctx, "binding_register", start, err)
	return binding, err
}

// RemoveBinding records metrics for binding removal.
func (i *identityUseCaseWithMetrics) RemoveBinding(ctx context.Context, id uuid.UUID) error {
	start := time.Now()
	err := i.next.RemoveBinding(ctx, id)
	i.record(ctx, "binding_remove", start, err)
	return err
}

// ListBindings records metrics for binding listing.
func (i *identityUseCaseWithMetrics) ListBindings(
	ctx context.Context,
	offset, limit int,
) ([]*identityDomain.Binding, error) {
	start := time.Now()
	bindings, err := i.next.ListBindings(ctx, offset, limit)
	i.record(ctx, "binding_list", start, err)
	return bindings, err
}
