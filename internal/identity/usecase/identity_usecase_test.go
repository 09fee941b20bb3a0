package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

const testIssuer = "https://issuer.example.com"

type fakeTrustDomainRepo struct {
	byIssuer map[string]*identityDomain.TrustDomain
}

func newFakeTrustDomainRepo() *fakeTrustDomainRepo {
	return &fakeTrustDomainRepo{byIssuer: make(map[string]*identityDomain.TrustDomain)}
}

func (f *fakeTrustDomainRepo) Create(ctx context.Context, td *identityDomain.TrustDomain) error {
	if _, exists := f.byIssuer[td.Issuer]; exists {
		return identityDomain.ErrTrustDomainExists
	}
	f.byIssuer[td.Issuer] = td
	return nil
}

func (f *fakeTrustDomainRepo) GetByIssuer(ctx context.Context, issuer string) (*identityDomain.TrustDomain, error) {
	td, ok := f.byIssuer[issuer]
	if !ok {
		return nil, identityDomain.ErrTrustDomainNotFound
	}
	return td, nil
}

func (f *fakeTrustDomainRepo) ListTrustDomains(ctx context.Context) ([]*identityDomain.TrustDomain, error) {
	out := make([]*identityDomain.TrustDomain, 0, len(f.byIssuer))
	for _, td := range f.byIssuer {
		out = append(out, td)
	}
	return out, nil
}

func (f *fakeTrustDomainRepo) Delete(ctx context.Context, issuer string) error {
	if _, ok := f.byIssuer[issuer]; !ok {
		return identityDomain.ErrTrustDomainNotFound
	}
	delete(f.byIssuer, issuer)
	return nil
}

type fakeBindingRepo struct {
	bindings []*identityDomain.Binding
}

func (f *fakeBindingRepo) Create(ctx context.Context, b *identityDomain.Binding) error {
	f.bindings = append(f.bindings, b)
	return nil
}

func (f *fakeBindingRepo) ListByIssuer(ctx context.Context, issuer string) ([]*identityDomain.Binding, error) {
	var out []*identityDomain.Binding
	for _, b := range f.bindings {
		if b.Issuer == issuer {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeBindingRepo) List(ctx context.Context, offset, limit int) ([]*identityDomain.Binding, error) {
	return f.bindings, nil
}

func (f *fakeBindingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	for idx, b := range f.bindings {
		if b.ID == id {
			f.bindings = append(f.bindings[:idx], f.bindings[idx+1:]...)
			return nil
		}
	}
	return identityDomain.ErrBindingNotFound
}

// fakeVerifier returns canned claims or a canned error.
type fakeVerifier struct {
	claims *identityDomain.Claims
	err    error
}

func (f *fakeVerifier) Verify(
	ctx context.Context,
	assertion string,
	td *identityDomain.TrustDomain,
) (*identityDomain.Claims, error) {
	return f.claims, f.err
}

type fakePolicyResolver struct {
	rules map[string]policyDomain.RuleSet
}

func (f *fakePolicyResolver) Resolve(ctx context.Context, domainID string) (policyDomain.RuleSet, error) {
	rules, ok := f.rules[domainID]
	if !ok {
		return nil, policyDomain.ErrUnknownDomain
	}
	return rules, nil
}

type fakeDomainGetter struct {
	domains map[string]*policyDomain.Domain
}

func (f *fakeDomainGetter) GetDomain(ctx context.Context, domainID string) (*policyDomain.Domain, error) {
	d, ok := f.domains[domainID]
	if !ok {
		return nil, policyDomain.ErrUnknownDomain
	}
	return d, nil
}

type fakeSessionIssuer struct {
	issuedDomainID string
	issuedRules    policyDomain.RuleSet
}

func (f *fakeSessionIssuer) Issue(
	ctx context.Context,
	domainID string,
	rules policyDomain.RuleSet,
) (string, time.Time, error) {
	f.issuedDomainID = domainID
	f.issuedRules = rules
	return "plain-token", time.Now().UTC().Add(time.Hour), nil
}

type identityFixture struct {
	uc            IdentityUseCase
	trustDomains  *fakeTrustDomainRepo
	bindings      *fakeBindingRepo
	verifier      *fakeVerifier
	resolver      *fakePolicyResolver
	domains       *fakeDomainGetter
	sessionIssuer *fakeSessionIssuer
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()

	f := &identityFixture{
		trustDomains: newFakeTrustDomainRepo(),
		bindings:     &fakeBindingRepo{},
		verifier: &fakeVerifier{
			claims: &identityDomain.Claims{
				Issuer:    testIssuer,
				Subject:   "workload:alpha:api-server",
				Audiences: []string{"tenantvault"},
				Namespace: "alpha",
				ExpiresAt: time.Now().UTC().Add(time.Hour),
				Extra:     map[string]string{},
			},
		},
		resolver: &fakePolicyResolver{rules: map[string]policyDomain.RuleSet{
			"alpha": {{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.ReadCapability}}},
		}},
		domains: &fakeDomainGetter{domains: map[string]*policyDomain.Domain{
			"alpha": {ID: "alpha", Namespace: "alpha", SecretPathPrefixes: []string{"secret/alpha"}},
		}},
		sessionIssuer: &fakeSessionIssuer{},
	}

	f.trustDomains.byIssuer[testIssuer] = &identityDomain.TrustDomain{
		Issuer:    testIssuer,
		Mode:      identityDomain.OfflineVerification,
		Audiences: []string{"tenantvault"},
	}
	f.bindings.bindings = []*identityDomain.Binding{{
		ID:                  uuid.Must(uuid.NewV7()),
		Issuer:              testIssuer,
		DomainID:            "alpha",
		BoundAudiences:      []string{"tenantvault"},
		BoundSubjectPattern: "workload:alpha:*",
	}}

	f.uc = NewIdentityUseCase(
		f.trustDomains, f.bindings, f.verifier, f.resolver, f.domains, f.sessionIssuer,
	)
	return f
}

// testAssertion mints a parseable token carrying the given issuer. The fake
// verifier never checks the signature.
func testAssertion(t *testing.T, issuer string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss": issuer,
		"sub": "workload:alpha:api-server",
		"exp": time.Now().UTC().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return signed
}

func TestIdentityUseCase_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("success issues session for bound domain", func(t *testing.T) {
		f := newIdentityFixture(t)

		out, err := f.uc.Login(ctx, LoginInput{Assertion: testAssertion(t, testIssuer)})

		require.NoError(t, err)
		assert.Equal(t, "plain-token", out.Token)
		assert.Equal(t, "alpha", out.DomainID)
		assert.Equal(t, "workload:alpha:api-server", out.Subject)
		assert.Equal(t, "alpha", f.sessionIssuer.issuedDomainID)
		assert.NotEmpty(t, f.sessionIssuer.issuedRules)
	})

	t.Run("unparseable assertion", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.Login(ctx, LoginInput{Assertion: "garbage"})
		assert.ErrorIs(t, err, identityDomain.ErrInvalidSignature)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("unregistered issuer", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.Login(ctx, LoginInput{Assertion: testAssertion(t, "https://rogue.example.com")})
		assert.ErrorIs(t, err, identityDomain.ErrUnknownIssuer)
	})

	t.Run("verifier failure propagates", func(t *testing.T) {
		f := newIdentityFixture(t)
		f.verifier.claims = nil
		f.verifier.err = identityDomain.ErrExpiredAssertion

		_, err := f.uc.Login(ctx, LoginInput{Assertion: testAssertion(t, testIssuer)})
		assert.ErrorIs(t, err, identityDomain.ErrExpiredAssertion)
	})

	t.Run("no matching binding", func(t *testing.T) {
		f := newIdentityFixture(t)
		f.verifier.claims.Subject = "workload:beta:api-server"

		_, err := f.uc.Login(ctx, LoginInput{Assertion: testAssertion(t, testIssuer)})
		assert.ErrorIs(t, err, identityDomain.ErrNoMatchingBinding)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("ambiguous binding surfaces as conflict", func(t *testing.T) {
		f := newIdentityFixture(t)
		f.bindings.bindings = append(f.bindings.bindings, &identityDomain.Binding{
			ID:                  uuid.Must(uuid.NewV7()),
			Issuer:              testIssuer,
			DomainID:            "beta",
			BoundAudiences:      []string{"tenantvault"},
			BoundSubjectPattern: "workload:alpha:api-*",
		})

		_, err := f.uc.Login(ctx, LoginInput{Assertion: testAssertion(t, testIssuer)})
		assert.ErrorIs(t, err, identityDomain.ErrAmbiguousBinding)
		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.NotErrorIs(t, err, apperrors.ErrUnauthorized)
	})
}

func TestIdentityUseCase_RegisterTrustDomain(t *testing.T) {
	ctx := context.Background()

	t.Run("offline requires keys", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.RegisterTrustDomain(ctx, RegisterTrustDomainInput{
			Issuer: "https://new.example.com",
			Mode:   identityDomain.OfflineVerification,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("live requires review url", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.RegisterTrustDomain(ctx, RegisterTrustDomainInput{
			Issuer:    "https://new.example.com",
			Mode:      identityDomain.LiveVerification,
			ReviewURL: "not a url",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("success", func(t *testing.T) {
		f := newIdentityFixture(t)

		td, err := f.uc.RegisterTrustDomain(ctx, RegisterTrustDomainInput{
			Issuer:    "https://new.example.com",
			Mode:      identityDomain.LiveVerification,
			ReviewURL: "https://new.example.com/review",
			Audiences: []string{"tenantvault"},
		})
		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, td.ID)
	})

	t.Run("duplicate issuer conflicts", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.RegisterTrustDomain(ctx, RegisterTrustDomainInput{
			Issuer:    testIssuer,
			Mode:      identityDomain.LiveVerification,
			ReviewURL: "https://issuer.example.com/review",
		})
		assert.ErrorIs(t, err, apperrors.ErrConflict)
	})
}

func TestIdentityUseCase_RegisterBinding(t *testing.T) {
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		f := newIdentityFixture(t)

		binding, err := f.uc.RegisterBinding(ctx, RegisterBindingInput{
			Issuer:              testIssuer,
			DomainID:            "alpha",
			BoundAudiences:      []string{"tenantvault"},
			BoundSubjectPattern: "workload:alpha:worker-*",
		})
		require.NoError(t, err)
		assert.Equal(t, "alpha", binding.DomainID)
	})

	t.Run("namespace segment must match domain namespace", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.RegisterBinding(ctx, RegisterBindingInput{
			Issuer:              testIssuer,
			DomainID:            "alpha",
			BoundAudiences:      []string{"tenantvault"},
			BoundSubjectPattern: "workload:beta:*",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("unknown trust domain", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.RegisterBinding(ctx, RegisterBindingInput{
			Issuer:              "https://rogue.example.com",
			DomainID:            "alpha",
			BoundAudiences:      []string{"tenantvault"},
			BoundSubjectPattern: "workload:alpha:*",
		})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("unknown domain", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.RegisterBinding(ctx, RegisterBindingInput{
			Issuer:              testIssuer,
			DomainID:            "ghost",
			BoundAudiences:      []string{"tenantvault"},
			BoundSubjectPattern: "workload:alpha:*",
		})
		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("requires bound audiences", func(t *testing.T) {
		f := newIdentityFixture(t)

		_, err := f.uc.RegisterBinding(ctx, RegisterBindingInput{
			Issuer:              testIssuer,
			DomainID:            "alpha",
			BoundSubjectPattern: "workload:alpha:*",
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}
