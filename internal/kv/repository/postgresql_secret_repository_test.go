package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
)

func secretColumns() []string {
	return []string{
		"id", "path", "version", "ciphertext", "deleted_at", "destroyed_at", "created_at", "updated_at",
	}
}

func TestPostgreSQLSecretRepository_Create(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	secret := &kvDomain.Secret{
		ID:         uuid.Must(uuid.NewV7()),
		Path:       "secret/alpha/db",
		Version:    1,
		Ciphertext: []byte{0x01, 0x02},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	mock.ExpectExec("INSERT INTO secrets").
		WithArgs(secret.ID, secret.Path, secret.Version, secret.Ciphertext, nil, nil, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgreSQLSecretRepository(db)
	require.NoError(t, repo.Create(ctx, secret))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgreSQLSecretRepository_GetLatest(t *testing.T) {
	ctx := context.Background()

	t.Run("returns highest version", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now().UTC()
		id := uuid.Must(uuid.NewV7())
		rows := sqlmock.NewRows(secretColumns()).
			AddRow(id.String(), "secret/alpha/db", 3, []byte{0x01}, nil, nil, now, now)
		mock.ExpectQuery("SELECT (.+) FROM secrets").
			WithArgs("secret/alpha/db").
			WillReturnRows(rows)

		repo := NewPostgreSQLSecretRepository(db)
		secret, err := repo.GetLatest(ctx, "secret/alpha/db")
		require.NoError(t, err)
		assert.Equal(t, uint(3), secret.Version)
		assert.True(t, secret.Readable())
	})

	t.Run("missing path maps to not found", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery("SELECT (.+) FROM secrets").
			WithArgs("secret/alpha/missing").
			WillReturnRows(sqlmock.NewRows(secretColumns()))

		repo := NewPostgreSQLSecretRepository(db)
		_, err = repo.GetLatest(ctx, "secret/alpha/missing")
		assert.ErrorIs(t, err, kvDomain.ErrSecretNotFound)
	})
}

func TestPostgreSQLSecretRepository_SetDeleted(t *testing.T) {
	ctx := context.Background()

	t.Run("marks version deleted", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		deletedAt := time.Now().UTC()
		mock.ExpectExec("UPDATE secrets").
			WithArgs(&deletedAt, sqlmock.AnyArg(), "secret/alpha/db", 1).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewPostgreSQLSecretRepository(db)
		require.NoError(t, repo.SetDeleted(ctx, "secret/alpha/db", 1, &deletedAt))
	})

	t.Run("destroyed version cannot change deletion state", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec("UPDATE secrets").
			WillReturnResult(sqlmock.NewResult(0, 0))

		repo := NewPostgreSQLSecretRepository(db)
		err = repo.SetDeleted(ctx, "secret/alpha/db", 1, nil)
		assert.ErrorIs(t, err, kvDomain.ErrSecretNotFound)
	})
}

func TestPostgreSQLSecretRepository_Destroy(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	destroyedAt := time.Now().UTC()
	mock.ExpectExec("UPDATE secrets").
		WithArgs(destroyedAt, "secret/alpha/db", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewPostgreSQLSecretRepository(db)
	require.NoError(t, repo.Destroy(ctx, "secret/alpha/db", 2, destroyedAt))
}

func TestPostgreSQLSecretRepository_ListByPrefix(t *testing.T) {
	ctx := context.Background()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "path", "version", "deleted_at", "destroyed_at", "created_at", "updated_at",
	}).
		AddRow(uuid.Must(uuid.NewV7()).String(), "secret/alpha/api", 1, nil, nil, now, now).
		AddRow(uuid.Must(uuid.NewV7()).String(), "secret/alpha/db", 4, nil, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM secrets").
		WithArgs("secret/alpha", 0, 10).
		WillReturnRows(rows)

	repo := NewPostgreSQLSecretRepository(db)
	secrets, err := repo.ListByPrefix(ctx, "secret/alpha", 0, 10)
	require.NoError(t, err)
	require.Len(t, secrets, 2)
	assert.Equal(t, uint(4), secrets[1].Version)
	assert.Nil(t, secrets[1].Ciphertext)
}
