package usecase

import (
	"context"
	"time"

	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
	"github.com/pbarbosa/tenantvault/internal/metrics"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// kvUseCaseWithMetrics decorates KVUseCase with metrics instrumentation.
type kvUseCaseWithMetrics struct {
	next    KVUseCase
	metrics metrics.BusinessMetrics
}

// NewKVUseCaseWithMetrics wraps a KVUseCase with metrics recording.
func NewKVUseCaseWithMetrics(useCase KVUseCase, m metrics.BusinessMetrics) KVUseCase {
	return &kvUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (k *kvUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	k.metrics.RecordOperation(ctx, "kv", operation, status)
	k.metrics.RecordDuration(ctx, "kv", operation, time.Since(start), status)
}

// CreateOrUpdate records metrics for secret write operations.
func (k *kvUseCaseWithMetrics) CreateOrUpdate(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	value []byte,
) (*kvDomain.Secret, error) {
	start := time.Now()
	secret, err := k.next.CreateOrUpdate(ctx, rules, path, value)
	k.record(ctx, "kv_write", start, err)
	return secret, err
}

// Get records metrics for secret read operations.
func (k *kvUseCaseWithMetrics) Get(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) (*kvDomain.Secret, error) {
	start := time.Now()
	secret, err := k.next.Get(ctx, rules, path, version)
	k.record(ctx, "kv_get", start, err)
	return secret, err
}

// Delete records metrics for soft-delete operations.
func (k *kvUseCaseWithMetrics) Delete(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) error {
	start := time.Now()
	err := k.next.Delete(ctx, rules, path, version)
	k.record(ctx, "kv_delete", start, err)
	return err
}

// Undelete records metrics for undelete operations.
func (k *kvUseCaseWithMetrics) Undelete(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) error {
	start := time.Now()
	err := k.next.Undelete(ctx, rules, path, version)
	k.record(ctx, "kv_undelete", start, err)
	return err
}

// Destroy records metrics for destroy operations.
func (k *kvUseCaseWithMetrics) Destroy(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) error {
	start := time.Now()
	err := k.next.Destroy(ctx, rules, path, version)
	k.record(ctx, "kv_destroy", start, err)
	return err
}

// List records metrics for metadata listing operations.
func (k *kvUseCaseWithMetrics) List(
	ctx context.Context,
	rules policyDomain.RuleSet,
	prefix string,
	offset, limit int,
) ([]*kvDomain.Secret, error) {
	start := time.Now()
	secrets, err := k.next.List(ctx, rules, prefix, offset, limit)
	k.record(ctx, "kv_list", start, err)
	return secrets, err
}

// Purge records metrics for offboarding purge operations.
func (k *kvUseCaseWithMetrics) Purge(ctx context.Context, prefix string) (int64, error) {
	start := time.Now()
	count, err := k.next.Purge(ctx, prefix)
	k.record(ctx, "kv_purge", start, err)
	return count, err
}
