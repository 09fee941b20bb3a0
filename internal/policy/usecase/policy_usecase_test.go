package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// fakeTxManager runs the function directly without a real transaction.
type fakeTxManager struct{}

func (fakeTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeDomainRepo is an in-memory DomainRepository.
type fakeDomainRepo struct {
	domains map[string]*policyDomain.Domain
}

func newFakeDomainRepo() *fakeDomainRepo {
	return &fakeDomainRepo{domains: make(map[string]*policyDomain.Domain)}
}

func (f *fakeDomainRepo) Create(ctx context.Context, d *policyDomain.Domain) error {
	if _, exists := f.domains[d.ID]; exists {
		return policyDomain.ErrDomainExists
	}
	f.domains[d.ID] = d
	return nil
}

func (f *fakeDomainRepo) Get(ctx context.Context, domainID string) (*policyDomain.Domain, error) {
	d, ok := f.domains[domainID]
	if !ok {
		return nil, policyDomain.ErrUnknownDomain
	}
	copied := *d
	return &copied, nil
}

func (f *fakeDomainRepo) Update(ctx context.Context, d *policyDomain.Domain) error {
	if _, ok := f.domains[d.ID]; !ok {
		return policyDomain.ErrUnknownDomain
	}
	f.domains[d.ID] = d
	return nil
}

func (f *fakeDomainRepo) Delete(ctx context.Context, domainID string) error {
	if _, ok := f.domains[domainID]; !ok {
		return policyDomain.ErrUnknownDomain
	}
	delete(f.domains, domainID)
	return nil
}

func (f *fakeDomainRepo) List(ctx context.Context, offset, limit int) ([]*policyDomain.Domain, error) {
	out := make([]*policyDomain.Domain, 0, len(f.domains))
	for _, d := range f.domains {
		out = append(out, d)
	}
	return out, nil
}

// fakeRoleLister returns fixed role names per domain.
type fakeRoleLister struct {
	roles map[string][]string
}

func (f *fakeRoleLister) ListRoleNames(ctx context.Context, domainID string) ([]string, error) {
	return f.roles[domainID], nil
}

func newPolicyUseCaseForTest(t *testing.T) (PolicyUseCase, *fakeDomainRepo, *fakeRoleLister) {
	t.Helper()
	repo := newFakeDomainRepo()
	lister := &fakeRoleLister{roles: make(map[string][]string)}
	return NewPolicyUseCase(fakeTxManager{}, repo, lister), repo, lister
}

func TestPolicyUseCase_RegisterDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		uc, _, _ := newPolicyUseCaseForTest(t)

		d, err := uc.RegisterDomain(ctx, RegisterDomainInput{
			ID:                 "alpha",
			Description:        "alpha tenant",
			Namespace:          "alpha",
			SecretPathPrefixes: []string{"/secret/alpha/"},
		})

		require.NoError(t, err)
		assert.Equal(t, "alpha", d.ID)
		assert.Equal(t, []string{"secret/alpha"}, d.SecretPathPrefixes)
		assert.False(t, d.CreatedAt.IsZero())
	})

	t.Run("rejects empty id", func(t *testing.T) {
		uc, _, _ := newPolicyUseCaseForTest(t)

		_, err := uc.RegisterDomain(ctx, RegisterDomainInput{
			Namespace:          "alpha",
			SecretPathPrefixes: []string{"secret/alpha"},
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects wildcard in prefix", func(t *testing.T) {
		uc, _, _ := newPolicyUseCaseForTest(t)

		_, err := uc.RegisterDomain(ctx, RegisterDomainInput{
			ID:                 "alpha",
			Namespace:          "alpha",
			SecretPathPrefixes: []string{"secret/alpha/*"},
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects missing namespace", func(t *testing.T) {
		uc, _, _ := newPolicyUseCaseForTest(t)

		_, err := uc.RegisterDomain(ctx, RegisterDomainInput{
			ID:                 "alpha",
			SecretPathPrefixes: []string{"secret/alpha"},
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		uc, _, _ := newPolicyUseCaseForTest(t)

		input := RegisterDomainInput{
			ID:                 "alpha",
			Namespace:          "alpha",
			SecretPathPrefixes: []string{"secret/alpha"},
		}
		_, err := uc.RegisterDomain(ctx, input)
		require.NoError(t, err)

		_, err = uc.RegisterDomain(ctx, input)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestPolicyUseCase_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown domain", func(t *testing.T) {
		uc, _, _ := newPolicyUseCaseForTest(t)

		_, err := uc.Resolve(ctx, "ghost")

		assert.ErrorIs(t, err, policyDomain.ErrUnknownDomain)
	})

	t.Run("composes fragments including credential roles", func(t *testing.T) {
		uc, _, lister := newPolicyUseCaseForTest(t)
		lister.roles["alpha"] = []string{"readonly-db"}

		_, err := uc.RegisterDomain(ctx, RegisterDomainInput{
			ID:                 "alpha",
			Namespace:          "alpha",
			SecretPathPrefixes: []string{"secret/alpha"},
		})
		require.NoError(t, err)

		rules, err := uc.Resolve(ctx, "alpha")
		require.NoError(t, err)

		assert.True(t, rules.Allows("secret/alpha/app-config", policyDomain.ReadCapability))
		assert.True(t, rules.Allows(policyDomain.CredentialPath("alpha", "readonly-db"), policyDomain.ReadCapability))
		assert.True(t, rules.Allows(policyDomain.SessionRenewPath, policyDomain.UpdateCapability))
		assert.False(t, rules.Allows("secret/beta/app-config", policyDomain.ReadCapability))
	})

	t.Run("deterministic for same domain state", func(t *testing.T) {
		uc, _, lister := newPolicyUseCaseForTest(t)
		lister.roles["alpha"] = []string{"readonly-db", "writer-db"}

		_, err := uc.RegisterDomain(ctx, RegisterDomainInput{
			ID:                 "alpha",
			Namespace:          "alpha",
			SecretPathPrefixes: []string{"secret/alpha", "shared/alpha"},
			DenyPatterns:       []string{"secret/alpha/reserved/*"},
		})
		require.NoError(t, err)

		first, err := uc.Resolve(ctx, "alpha")
		require.NoError(t, err)
		second, err := uc.Resolve(ctx, "alpha")
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})
}

func TestPolicyUseCase_UpdateDomain(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newPolicyUseCaseForTest(t)

	_, err := uc.RegisterDomain(ctx, RegisterDomainInput{
		ID:                 "alpha",
		Namespace:          "alpha",
		SecretPathPrefixes: []string{"secret/alpha"},
	})
	require.NoError(t, err)

	updated, err := uc.UpdateDomain(ctx, "alpha", UpdateDomainInput{
		Description:        "updated",
		SecretPathPrefixes: []string{"secret/alpha", "shared/alpha"},
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", updated.Description)
	assert.Equal(t, []string{"secret/alpha", "shared/alpha"}, updated.SecretPathPrefixes)

	rules, err := uc.Resolve(ctx, "alpha")
	require.NoError(t, err)
	assert.True(t, rules.Allows("shared/alpha/config", policyDomain.ReadCapability))
}

func TestPolicyUseCase_RemoveDomain(t *testing.T) {
	ctx := context.Background()
	uc, _, _ := newPolicyUseCaseForTest(t)

	_, err := uc.RegisterDomain(ctx, RegisterDomainInput{
		ID:                 "alpha",
		Namespace:          "alpha",
		SecretPathPrefixes: []string{"secret/alpha"},
	})
	require.NoError(t, err)

	require.NoError(t, uc.RemoveDomain(ctx, "alpha"))

	_, err = uc.Resolve(ctx, "alpha")
	assert.ErrorIs(t, err, policyDomain.ErrUnknownDomain)
}
