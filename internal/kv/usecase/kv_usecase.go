package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/pbarbosa/tenantvault/internal/database"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
	kvService "github.com/pbarbosa/tenantvault/internal/kv/service"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// kvUseCase implements KVUseCase.
type kvUseCase struct {
	txManager  database.TxManager
	secretRepo SecretRepository
	keeper     kvService.Keeper
}

// CreateOrUpdate writes an encrypted value at the path. The first write at
// a path creates version 1; later writes append version n+1 inside a
// transaction so concurrent writers cannot mint the same version.
func (k *kvUseCase) CreateOrUpdate(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	value []byte,
) (*kvDomain.Secret, error) {
	if !rules.Allows(path, policyDomain.CreateCapability) &&
		!rules.Allows(path, policyDomain.UpdateCapability) {
		return nil, apperrors.ErrPermissionDenied
	}

	ciphertext, err := k.keeper.Encrypt(ctx, value)
	if err != nil {
		return nil, err
	}

	var secret *kvDomain.Secret
	err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
		var version uint = 1
		latest, err := k.secretRepo.GetLatest(txCtx, path)
		if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if latest != nil {
			version = latest.Version + 1
		}

		// Version 1 needs the create capability, later versions need
		// update. Checked against the head read in this transaction so a
		// racing first write cannot change which capability applies.
		required := policyDomain.CreateCapability
		if version > 1 {
			required = policyDomain.UpdateCapability
		}
		if !rules.Allows(path, required) {
			return apperrors.ErrPermissionDenied
		}

		now := time.Now().UTC()
		secret = &kvDomain.Secret{
			ID:         uuid.Must(uuid.NewV7()),
			Path:       path,
			Version:    version,
			Ciphertext: ciphertext,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		return k.secretRepo.Create(txCtx, secret)
	})
	if err != nil {
		return nil, err
	}

	return secret, nil
}

// Get reads and decrypts a version. Version 0 means latest. A soft-deleted
// or destroyed version reads as not found.
func (k *kvUseCase) Get(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) (*kvDomain.Secret, error) {
	if !rules.Allows(path, policyDomain.ReadCapability) {
		return nil, apperrors.ErrPermissionDenied
	}

	secret, err := k.fetch(ctx, path, version)
	if err != nil {
		return nil, err
	}
	if !secret.Readable() {
		return nil, kvDomain.ErrSecretNotFound
	}

	plaintext, err := k.keeper.Decrypt(ctx, secret.Ciphertext)
	if err != nil {
		return nil, err
	}
	secret.Plaintext = plaintext

	return secret, nil
}

// Delete soft-deletes a version. Metadata and ciphertext are retained so
// Undelete can restore it.
func (k *kvUseCase) Delete(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) error {
	if !rules.Allows(path, policyDomain.DeleteCapability) {
		return apperrors.ErrPermissionDenied
	}

	secret, err := k.fetch(ctx, path, version)
	if err != nil {
		return err
	}
	if secret.DestroyedAt != nil {
		return kvDomain.ErrSecretNotFound
	}

	now := time.Now().UTC()
	return k.secretRepo.SetDeleted(ctx, secret.Path, secret.Version, &now)
}

// Undelete restores a soft-deleted version. A destroyed version cannot be
// restored; its ciphertext is gone.
func (k *kvUseCase) Undelete(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) error {
	if !rules.Allows(path, policyDomain.UpdateCapability) {
		return apperrors.ErrPermissionDenied
	}

	secret, err := k.fetch(ctx, path, version)
	if err != nil {
		return err
	}
	if secret.DestroyedAt != nil {
		return kvDomain.ErrSecretDestroyed
	}

	return k.secretRepo.SetDeleted(ctx, secret.Path, secret.Version, nil)
}

// Destroy irreversibly removes a version's ciphertext. The version row
// remains as a tombstone so the version number is never reused.
func (k *kvUseCase) Destroy(
	ctx context.Context,
	rules policyDomain.RuleSet,
	path string,
	version uint,
) error {
	if !rules.Allows(path, policyDomain.DeleteCapability) {
		return apperrors.ErrPermissionDenied
	}

	secret, err := k.fetch(ctx, path, version)
	if err != nil {
		return err
	}
	if secret.DestroyedAt != nil {
		return nil
	}

	return k.secretRepo.Destroy(ctx, secret.Path, secret.Version, time.Now().UTC())
}

// List returns metadata for the latest version of each path under the prefix.
func (k *kvUseCase) List(
	ctx context.Context,
	rules policyDomain.RuleSet,
	prefix string,
	offset, limit int,
) ([]*kvDomain.Secret, error) {
	if !rules.Allows(prefix, policyDomain.ListCapability) {
		return nil, apperrors.ErrPermissionDenied
	}

	return k.secretRepo.ListByPrefix(ctx, prefix, offset, limit)
}

// Purge removes every version under the prefix. No rule check: this only
// runs from domain offboarding, never from a session-facing endpoint.
func (k *kvUseCase) Purge(ctx context.Context, prefix string) (int64, error) {
	return k.secretRepo.DeleteByPathPrefix(ctx, prefix)
}

// fetch loads a version (latest when version is 0), hiding destroyed
// versions behind not-found for reads that would expose them.
func (k *kvUseCase) fetch(ctx context.Context, path string, version uint) (*kvDomain.Secret, error) {
	if version == 0 {
		return k.secretRepo.GetLatest(ctx, path)
	}
	return k.secretRepo.GetByVersion(ctx, path, version)
}

// NewKVUseCase creates a new KVUseCase with the provided dependencies.
func NewKVUseCase(
	txManager database.TxManager,
	secretRepo SecretRepository,
	keeper kvService.Keeper,
) KVUseCase {
	return &kvUseCase{
		txManager:  txManager,
		secretRepo: secretRepo,
		keeper:     keeper,
	}
}
