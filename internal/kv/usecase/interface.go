// Package usecase implements the versioned key/value store: encrypted
// writes, versioned reads, soft delete, undelete and destroy, all gated by
// the caller's session rule set.
package usecase

import (
	"context"
	"time"

	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// SecretRepository defines the interface for versioned secret persistence.
type SecretRepository interface {
	Create(ctx context.Context, secret *kvDomain.Secret) error
	// GetLatest returns the highest version at the path, whatever its
	// deletion state.
	GetLatest(ctx context.Context, path string) (*kvDomain.Secret, error)
	GetByVersion(ctx context.Context, path string, version uint) (*kvDomain.Secret, error)
	// SetDeleted marks or clears a version's soft-delete flag.
	SetDeleted(ctx context.Context, path string, version uint, deletedAt *time.Time) error
	// Destroy removes the version's ciphertext and marks it destroyed.
	Destroy(ctx context.Context, path string, version uint, destroyedAt time.Time) error
	// ListByPrefix returns metadata (no ciphertext) for the latest version
	// of each path under the prefix.
	ListByPrefix(ctx context.Context, prefix string, offset, limit int) ([]*kvDomain.Secret, error)
	// DeleteByPathPrefix removes every version under the prefix. Used at
	// domain offboarding.
	DeleteByPathPrefix(ctx context.Context, prefix string) (int64, error)
}

// KVUseCase defines the interface for rule-gated secret store operations.
// Every operation checks the supplied rule set against the literal path
// before touching storage; a denial never reveals whether the path exists.
type KVUseCase interface {
	// CreateOrUpdate writes a value at the path, appending version n+1.
	CreateOrUpdate(
		ctx context.Context,
		rules policyDomain.RuleSet,
		path string,
		value []byte,
	) (*kvDomain.Secret, error)

	// Get reads the latest readable version, or a specific version when
	// version > 0. Soft-deleted and destroyed versions read as not found.
	Get(
		ctx context.Context,
		rules policyDomain.RuleSet,
		path string,
		version uint,
	) (*kvDomain.Secret, error)

	// Delete soft-deletes a version (latest when version is 0). Reversible.
	Delete(ctx context.Context, rules policyDomain.RuleSet, path string, version uint) error

	// Undelete restores a soft-deleted version.
	Undelete(ctx context.Context, rules policyDomain.RuleSet, path string, version uint) error

	// Destroy irreversibly removes a version's ciphertext.
	Destroy(ctx context.Context, rules policyDomain.RuleSet, path string, version uint) error

	// List returns metadata for paths under the prefix.
	List(
		ctx context.Context,
		rules policyDomain.RuleSet,
		prefix string,
		offset, limit int,
	) ([]*kvDomain.Secret, error)

	// Purge removes every version under the prefix without rule checks.
	// Reserved for domain offboarding.
	Purge(ctx context.Context, prefix string) (int64, error)
}
