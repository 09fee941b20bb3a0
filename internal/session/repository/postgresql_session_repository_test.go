package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
)

func testSession() *sessionDomain.Session {
	now := time.Now().UTC().Truncate(time.Second)
	return &sessionDomain.Session{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: "aabbcc",
		DomainID:  "alpha",
		Rules: policyDomain.RuleSet{
			{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.ReadCapability}},
		},
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
		MaxExpiresAt: now.Add(24 * time.Hour),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func sessionColumns() []string {
	return []string{
		"id", "token_hash", "domain_id", "rules", "issued_at", "expires_at",
		"max_expires_at", "renew_count", "revoked_at", "created_at", "updated_at",
	}
}

func TestPostgreSQLSessionRepository_Create(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	s := testSession()
	mock.ExpectExec("INSERT INTO sessions").
		WithArgs(
			s.ID, s.TokenHash, s.DomainID, sqlmock.AnyArg(),
			s.IssuedAt, s.ExpiresAt, s.MaxExpiresAt, s.RenewCount,
			nil, s.CreatedAt, s.UpdatedAt,
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgreSQLSessionRepository(db)
	require.NoError(t, repo.Create(ctx, s))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLSessionRepository_GetByTokenHash(t *testing.T) {
	ctx := context.Background()

	t.Run("success round-trips rules", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		s := testSession()
		rows := sqlmock.NewRows(sessionColumns()).AddRow(
			s.ID.String(), s.TokenHash, s.DomainID,
			[]byte(`[{"path":"secret/alpha/*","capabilities":["read"]}]`),
			s.IssuedAt, s.ExpiresAt, s.MaxExpiresAt, 0, nil, s.CreatedAt, s.UpdatedAt,
		)
		mock.ExpectQuery("SELECT (.+) FROM sessions").
			WithArgs(s.TokenHash).
			WillReturnRows(rows)

		repo := NewPostgreSQLSessionRepository(db)
		got, err := repo.GetByTokenHash(ctx, s.TokenHash)
		require.NoError(t, err)
		assert.Equal(t, s.ID, got.ID)
		assert.True(t, got.Allows("secret/alpha/db", policyDomain.ReadCapability))
		assert.Nil(t, got.RevokedAt)
	})

	t.Run("missing row maps to not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM sessions").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(sessionColumns()))

		repo := NewPostgreSQLSessionRepository(db)
		_, err = repo.GetByTokenHash(ctx, "missing")
		assert.ErrorIs(t, err, sessionDomain.ErrSessionNotFound)
	})
}

func TestPostgreSQLSessionRepository_Renew(t *testing.T) {
	ctx := context.Background()

	t.Run("renews unrevoked session", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		id := uuid.Must(uuid.NewV7())
		mock.ExpectExec("UPDATE sessions").
			WithArgs(sqlmock.AnyArg(), 1, sqlmock.AnyArg(), id).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLSessionRepository(db)
		renewed, err := repo.Renew(ctx, id, time.Now().UTC().Add(time.Hour), 1)
		require.NoError(t, err)
		assert.True(t, renewed)
	})

	t.Run("revoked session is not renewed", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE sessions").
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPostgreSQLSessionRepository(db)
		renewed, err := repo.Renew(ctx, uuid.Must(uuid.NewV7()), time.Now().UTC(), 1)
		require.NoError(t, err)
		assert.False(t, renewed)
	})
}

func TestPostgreSQLSessionRepository_Revoke(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	id := uuid.Must(uuid.NewV7())
	revokedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE sessions").
		WithArgs(revokedAt, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgreSQLSessionRepository(db)
	revoked, err := repo.Revoke(ctx, id, revokedAt)
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestPostgreSQLSessionRepository_DeleteExpiredBefore(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	cutoff := time.Now().UTC()
	mock.ExpectExec("DELETE FROM sessions").
		WithArgs(cutoff).
		WillReturnResult(sqlmock.NewResult(0, 3))

	repo := NewPostgreSQLSessionRepository(db)
	deleted, err := repo.DeleteExpiredBefore(ctx, cutoff)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)
}
