package usecase

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbarbosa/tenantvault/internal/config"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
	kvService "github.com/pbarbosa/tenantvault/internal/kv/service"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// fakeTxManager runs the function directly without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type versionKey struct {
	path    string
	version uint
}

// fakeSecretRepo is an in-memory SecretRepository.
type fakeSecretRepo struct {
	secrets map[versionKey]*kvDomain.Secret
}

func newFakeSecretRepo() *fakeSecretRepo {
	return &fakeSecretRepo{secrets: make(map[versionKey]*kvDomain.Secret)}
}

func (f *fakeSecretRepo) Create(ctx context.Context, s *kvDomain.Secret) error {
	copied := *s
	f.secrets[versionKey{s.Path, s.Version}] = &copied
	return nil
}

func (f *fakeSecretRepo) GetLatest(ctx context.Context, path string) (*kvDomain.Secret, error) {
	var latest *kvDomain.Secret
	for key, s := range f.secrets {
		if key.path == path && (latest == nil || s.Version > latest.Version) {
			latest = s
		}
	}
	if latest == nil {
		return nil, kvDomain.ErrSecretNotFound
	}
	copied := *latest
	return &copied, nil
}

func (f *fakeSecretRepo) GetByVersion(ctx context.Context, path string, version uint) (*kvDomain.Secret, error) {
	s, ok := f.secrets[versionKey{path, version}]
	if !ok {
		return nil, kvDomain.ErrSecretNotFound
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSecretRepo) SetDeleted(ctx context.Context, path string, version uint, deletedAt *time.Time) error {
	s, ok := f.secrets[versionKey{path, version}]
	if !ok {
		return kvDomain.ErrSecretNotFound
	}
	s.DeletedAt = deletedAt
	return nil
}

func (f *fakeSecretRepo) Destroy(ctx context.Context, path string, version uint, destroyedAt time.Time) error {
	s, ok := f.secrets[versionKey{path, version}]
	if !ok {
		return kvDomain.ErrSecretNotFound
	}
	s.DestroyedAt = &destroyedAt
	s.Ciphertext = nil
	return nil
}

func (f *fakeSecretRepo) ListByPrefix(ctx context.Context, prefix string, offset, limit int) ([]*kvDomain.Secret, error) {
	latest := make(map[string]*kvDomain.Secret)
	for key, s := range f.secrets {
		if !strings.HasPrefix(key.path, prefix) {
			continue
		}
		if existing, ok := latest[key.path]; !ok || s.Version > existing.Version {
			latest[key.path] = s
		}
	}
	out := make([]*kvDomain.Secret, 0, len(latest))
	for _, s := range latest {
		copied := *s
		copied.Ciphertext = nil
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (f *fakeSecretRepo) DeleteByPathPrefix(ctx context.Context, prefix string) (int64, error) {
	var deleted int64
	for key := range f.secrets {
		if strings.HasPrefix(key.path, prefix) {
			delete(f.secrets, key)
			deleted++
		}
	}
	return deleted, nil
}

func alphaRules() policyDomain.RuleSet {
	return policyDomain.RuleSet{
		{Path: "secret/alpha", Capabilities: []policyDomain.Capability{
			policyDomain.CreateCapability, policyDomain.ReadCapability,
			policyDomain.UpdateCapability, policyDomain.DeleteCapability,
			policyDomain.ListCapability,
		}},
		{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{
			policyDomain.CreateCapability, policyDomain.ReadCapability,
			policyDomain.UpdateCapability, policyDomain.DeleteCapability,
			policyDomain.ListCapability,
		}},
	}
}

func readOnlyRules() policyDomain.RuleSet {
	return policyDomain.RuleSet{
		{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.ReadCapability}},
	}
}

func createOnlyRules() policyDomain.RuleSet {
	return policyDomain.RuleSet{
		{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.CreateCapability}},
	}
}

func updateOnlyRules() policyDomain.RuleSet {
	return policyDomain.RuleSet{
		{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.UpdateCapability}},
	}
}

func newKVUseCaseForTest(t *testing.T) (KVUseCase, *fakeSecretRepo) {
	t.Helper()
	keeper, err := kvService.OpenKeeper(context.Background(), &config.Config{
		KVKeeperPassphrase: "test-passphrase",
		KVKeeperSalt:       "test-salt",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = keeper.Close() })

	repo := newFakeSecretRepo()
	return NewKVUseCase(fakeTxManager{}, repo, keeper), repo
}

func TestKVUseCase_CreateOrUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("first write creates version 1", func(t *testing.T) {
		uc, repo := newKVUseCaseForTest(t)

		secret, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("hunter2"))
		require.NoError(t, err)
		assert.Equal(t, uint(1), secret.Version)
		assert.NotEqual(t, []byte("hunter2"), secret.Ciphertext)

		stored := repo.secrets[versionKey{"secret/alpha/db", 1}]
		require.NotNil(t, stored)
		assert.Nil(t, stored.Plaintext)
	})

	t.Run("subsequent writes append versions", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("v1"))
		require.NoError(t, err)
		second, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("v2"))
		require.NoError(t, err)

		assert.Equal(t, uint(2), second.Version)
	})

	t.Run("write denied outside granted capabilities", func(t *testing.T) {
		uc, repo := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, readOnlyRules(), "secret/alpha/db", []byte("x"))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.Empty(t, repo.secrets)
	})

	t.Run("update-only rules cannot mint the first version", func(t *testing.T) {
		uc, repo := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, updateOnlyRules(), "secret/alpha/db", []byte("x"))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.Empty(t, repo.secrets)
	})

	t.Run("create-only rules cannot overwrite an existing path", func(t *testing.T) {
		uc, repo := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("v1"))
		require.NoError(t, err)

		_, err = uc.CreateOrUpdate(ctx, createOnlyRules(), "secret/alpha/db", []byte("v2"))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.NotContains(t, repo.secrets, versionKey{"secret/alpha/db", 2})
	})

	t.Run("write denied outside declared prefixes", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/beta/db", []byte("x"))
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})
}

func TestKVUseCase_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips the value", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("hunter2"))
		require.NoError(t, err)

		secret, err := uc.Get(ctx, alphaRules(), "secret/alpha/db", 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("hunter2"), secret.Plaintext)
	})

	t.Run("defaults to latest and supports pinned versions", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("old"))
		require.NoError(t, err)
		_, err = uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("new"))
		require.NoError(t, err)

		latest, err := uc.Get(ctx, alphaRules(), "secret/alpha/db", 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("new"), latest.Plaintext)

		pinned, err := uc.Get(ctx, alphaRules(), "secret/alpha/db", 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("old"), pinned.Plaintext)
	})

	t.Run("denied read conceals existence", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		_, err := uc.Get(ctx, readOnlyRules(), "secret/beta/db", 0)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.NotErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("missing path", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		_, err := uc.Get(ctx, alphaRules(), "secret/alpha/missing", 0)
		assert.ErrorIs(t, err, kvDomain.ErrSecretNotFound)
	})
}

func TestKVUseCase_DeleteUndeleteDestroy(t *testing.T) {
	ctx := context.Background()

	t.Run("soft delete hides reads and undelete restores", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("hunter2"))
		require.NoError(t, err)

		require.NoError(t, uc.Delete(ctx, alphaRules(), "secret/alpha/db", 0))
		_, err = uc.Get(ctx, alphaRules(), "secret/alpha/db", 0)
		assert.ErrorIs(t, err, kvDomain.ErrSecretNotFound)

		require.NoError(t, uc.Undelete(ctx, alphaRules(), "secret/alpha/db", 1))
		secret, err := uc.Get(ctx, alphaRules(), "secret/alpha/db", 0)
		require.NoError(t, err)
		assert.Equal(t, []byte("hunter2"), secret.Plaintext)
	})

	t.Run("destroy is irreversible", func(t *testing.T) {
		uc, repo := newKVUseCaseForTest(t)

		_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("hunter2"))
		require.NoError(t, err)

		require.NoError(t, uc.Destroy(ctx, alphaRules(), "secret/alpha/db", 1))
		assert.Nil(t, repo.secrets[versionKey{"secret/alpha/db", 1}].Ciphertext)

		_, err = uc.Get(ctx, alphaRules(), "secret/alpha/db", 1)
		assert.ErrorIs(t, err, kvDomain.ErrSecretNotFound)

		err = uc.Undelete(ctx, alphaRules(), "secret/alpha/db", 1)
		assert.ErrorIs(t, err, kvDomain.ErrSecretDestroyed)

		// Destroying again is a no-op.
		require.NoError(t, uc.Destroy(ctx, alphaRules(), "secret/alpha/db", 1))
	})

	t.Run("delete requires delete capability", func(t *testing.T) {
		uc, _ := newKVUseCaseForTest(t)

		err := uc.Delete(ctx, readOnlyRules(), "secret/alpha/db", 0)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
	})
}

func TestKVUseCase_List(t *testing.T) {
	ctx := context.Background()
	uc, _ := newKVUseCaseForTest(t)

	_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("a"))
	require.NoError(t, err)
	_, err = uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/api", []byte("b"))
	require.NoError(t, err)

	secrets, err := uc.List(ctx, alphaRules(), "secret/alpha", 0, 10)
	require.NoError(t, err)
	require.Len(t, secrets, 2)
	assert.Equal(t, "secret/alpha/api", secrets[0].Path)
	assert.Nil(t, secrets[0].Ciphertext)
	assert.Nil(t, secrets[0].Plaintext)

	_, err = uc.List(ctx, readOnlyRules(), "secret/alpha", 0, 10)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
}

func TestKVUseCase_Purge(t *testing.T) {
	ctx := context.Background()
	uc, repo := newKVUseCaseForTest(t)

	_, err := uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("a"))
	require.NoError(t, err)
	_, err = uc.CreateOrUpdate(ctx, alphaRules(), "secret/alpha/db", []byte("b"))
	require.NoError(t, err)

	deleted, err := uc.Purge(ctx, "secret/alpha")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Empty(t, repo.secrets)
}
