package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbarbosa/tenantvault/internal/config"
)

func TestOpenKeeper_PassphraseDerivation(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		KVKeeperPassphrase: "correct horse battery staple",
		KVKeeperSalt:       "tenantvault-test",
	}

	k1, err := OpenKeeper(ctx, cfg)
	require.NoError(t, err)
	defer k1.Close()

	ciphertext, err := k1.Encrypt(ctx, []byte("db-password"))
	require.NoError(t, err)
	assert.NotEqual(t, []byte("db-password"), ciphertext)

	// Same passphrase and salt derive the same key, so a restart can still
	// decrypt previously written values.
	k2, err := OpenKeeper(ctx, cfg)
	require.NoError(t, err)
	defer k2.Close()

	plaintext, err := k2.Decrypt(ctx, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("db-password"), plaintext)
}

func TestOpenKeeper_URIFallback(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{KVKeeperURI: "base64key://"}

	k, err := OpenKeeper(ctx, cfg)
	require.NoError(t, err)
	defer k.Close()

	ciphertext, err := k.Encrypt(ctx, []byte("value"))
	require.NoError(t, err)

	plaintext, err := k.Decrypt(ctx, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, []byte("value"), plaintext)
}

func TestOpenKeeper_DifferentPassphrasesCannotDecrypt(t *testing.T) {
	ctx := context.Background()

	k1, err := OpenKeeper(ctx, &config.Config{KVKeeperPassphrase: "one", KVKeeperSalt: "s"})
	require.NoError(t, err)
	defer k1.Close()
	k2, err := OpenKeeper(ctx, &config.Config{KVKeeperPassphrase: "two", KVKeeperSalt: "s"})
	require.NoError(t, err)
	defer k2.Close()

	ciphertext, err := k1.Encrypt(ctx, []byte("value"))
	require.NoError(t, err)

	_, err = k2.Decrypt(ctx, ciphertext)
	assert.Error(t, err)
}
