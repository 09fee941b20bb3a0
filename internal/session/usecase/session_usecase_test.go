package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbarbosa/tenantvault/internal/config"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
	sessionService "github.com/pbarbosa/tenantvault/internal/session/service"
)

// fakeSessionRepo is an in-memory SessionRepository.
type fakeSessionRepo struct {
	byID   map[uuid.UUID]*sessionDomain.Session
	byHash map[string]uuid.UUID
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{
		byID:   make(map[uuid.UUID]*sessionDomain.Session),
		byHash: make(map[string]uuid.UUID),
	}
}

func (f *fakeSessionRepo) Create(ctx context.Context, s *sessionDomain.Session) error {
	copied := *s
	f.byID[s.ID] = &copied
	f.byHash[s.TokenHash] = s.ID
	return nil
}

func (f *fakeSessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*sessionDomain.Session, error) {
	id, ok := f.byHash[tokenHash]
	if !ok {
		return nil, sessionDomain.ErrSessionNotFound
	}
	copied := *f.byID[id]
	return &copied, nil
}

func (f *fakeSessionRepo) Renew(ctx context.Context, id uuid.UUID, expiresAt time.Time, renewCount int) (bool, error) {
	s, ok := f.byID[id]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	s.ExpiresAt = expiresAt
	s.RenewCount = renewCount
	return true, nil
}

func (f *fakeSessionRepo) Revoke(ctx context.Context, id uuid.UUID, revokedAt time.Time) (bool, error) {
	s, ok := f.byID[id]
	if !ok || s.RevokedAt != nil {
		return false, nil
	}
	s.RevokedAt = &revokedAt
	return true, nil
}

func (f *fakeSessionRepo) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var deleted int64
	for id, s := range f.byID {
		if s.ExpiresAt.Before(cutoff) {
			delete(f.byHash, s.TokenHash)
			delete(f.byID, id)
			deleted++
		}
	}
	return deleted, nil
}

func testRules() policyDomain.RuleSet {
	return policyDomain.RuleSet{
		{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.ReadCapability}},
	}
}

func newSessionUseCaseForTest(t *testing.T) (SessionUseCase, *fakeSessionRepo, *config.Config) {
	t.Helper()
	cfg := &config.Config{
		SessionTTL:    time.Hour,
		SessionMaxTTL: 24 * time.Hour,
	}
	repo := newFakeSessionRepo()
	return NewSessionUseCase(cfg, repo, sessionService.NewTokenService()), repo, cfg
}

func TestSessionUseCase_Issue(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newSessionUseCaseForTest(t)

	out, err := uc.Issue(ctx, "alpha", testRules())
	require.NoError(t, err)

	assert.NotEmpty(t, out.PlainToken)
	assert.NotEqual(t, out.PlainToken, out.Session.TokenHash)
	assert.Equal(t, "alpha", out.Session.DomainID)
	assert.Equal(t, testRules(), out.Session.Rules)
	assert.True(t, out.Session.MaxExpiresAt.After(out.Session.ExpiresAt))

	stored, ok := repo.byID[out.Session.ID]
	require.True(t, ok)
	assert.Equal(t, out.Session.TokenHash, stored.TokenHash)
}

func TestSessionUseCase_Authenticate(t *testing.T) {
	ctx := context.Background()

	t.Run("valid token resolves session with frozen rules", func(t *testing.T) {
		uc, _, _ := newSessionUseCaseForTest(t)
		out, err := uc.Issue(ctx, "alpha", testRules())
		require.NoError(t, err)

		session, err := uc.Authenticate(ctx, out.PlainToken)
		require.NoError(t, err)
		assert.Equal(t, out.Session.ID, session.ID)
		assert.True(t, session.Allows("secret/alpha/db", policyDomain.ReadCapability))
	})

	t.Run("unknown token", func(t *testing.T) {
		uc, _, _ := newSessionUseCaseForTest(t)

		_, err := uc.Authenticate(ctx, "never-issued")
		assert.ErrorIs(t, err, sessionDomain.ErrAuthenticationFailed)
		assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	})

	t.Run("revoked token fails the same way", func(t *testing.T) {
		uc, _, _ := newSessionUseCaseForTest(t)
		out, err := uc.Issue(ctx, "alpha", testRules())
		require.NoError(t, err)
		require.NoError(t, uc.Revoke(ctx, out.Session.ID))

		_, err = uc.Authenticate(ctx, out.PlainToken)
		assert.ErrorIs(t, err, sessionDomain.ErrAuthenticationFailed)
	})

	t.Run("expired token fails the same way", func(t *testing.T) {
		uc, repo, _ := newSessionUseCaseForTest(t)
		out, err := uc.Issue(ctx, "alpha", testRules())
		require.NoError(t, err)
		repo.byID[out.Session.ID].ExpiresAt = time.Now().UTC().Add(-time.Minute)

		_, err = uc.Authenticate(ctx, out.PlainToken)
		assert.ErrorIs(t, err, sessionDomain.ErrAuthenticationFailed)
	})
}

func TestSessionUseCase_Renew(t *testing.T) {
	ctx := context.Background()

	t.Run("extends expiry and bumps renew count", func(t *testing.T) {
		uc, _, _ := newSessionUseCaseForTest(t)
		out, err := uc.Issue(ctx, "alpha", testRules())
		require.NoError(t, err)

		renewed, err := uc.Renew(ctx, out.Session)
		require.NoError(t, err)
		assert.Equal(t, 1, renewed.RenewCount)
		assert.True(t, renewed.ExpiresAt.After(out.Session.IssuedAt))
	})

	t.Run("refuses past maximum lifetime", func(t *testing.T) {
		uc, _, _ := newSessionUseCaseForTest(t)
		out, err := uc.Issue(ctx, "alpha", testRules())
		require.NoError(t, err)
		out.Session.MaxExpiresAt = time.Now().UTC().Add(time.Minute)

		_, err = uc.Renew(ctx, out.Session)
		assert.ErrorIs(t, err, sessionDomain.ErrSessionMaxTTLExceeded)
		assert.ErrorIs(t, err, apperrors.ErrMaxTTLExceeded)
	})

	t.Run("revoked session cannot renew", func(t *testing.T) {
		uc, _, _ := newSessionUseCaseForTest(t)
		out, err := uc.Issue(ctx, "alpha", testRules())
		require.NoError(t, err)
		require.NoError(t, uc.Revoke(ctx, out.Session.ID))

		_, err = uc.Renew(ctx, out.Session)
		assert.ErrorIs(t, err, sessionDomain.ErrAuthenticationFailed)
	})
}

func TestSessionUseCase_Revoke(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newSessionUseCaseForTest(t)

	out, err := uc.Issue(ctx, "alpha", testRules())
	require.NoError(t, err)

	require.NoError(t, uc.Revoke(ctx, out.Session.ID))
	assert.NotNil(t, repo.byID[out.Session.ID].RevokedAt)

	// Idempotent: revoking again, or revoking a missing session, succeeds.
	require.NoError(t, uc.Revoke(ctx, out.Session.ID))
	require.NoError(t, uc.Revoke(ctx, uuid.Must(uuid.NewV7())))
}

func TestSessionUseCase_CleanExpired(t *testing.T) {
	ctx := context.Background()
	uc, repo, _ := newSessionUseCaseForTest(t)

	out, err := uc.Issue(ctx, "alpha", testRules())
	require.NoError(t, err)
	fresh, err := uc.Issue(ctx, "alpha", testRules())
	require.NoError(t, err)

	repo.byID[out.Session.ID].ExpiresAt = time.Now().UTC().Add(-48 * time.Hour)

	deleted, err := uc.CleanExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, ok := repo.byID[out.Session.ID]
	assert.False(t, ok)
	_, ok = repo.byID[fresh.Session.ID]
	assert.True(t, ok)
}
