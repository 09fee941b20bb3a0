// Package service provides the encryption keeper protecting secret values
// at rest, built on gocloud.dev/secrets so the key backend is selected by
// URI (local key, HashiCorp Vault transit, cloud KMS).
package service

import (
	"context"
	"crypto/sha256"
	"encoding/base64"

	"gocloud.dev/secrets"
	"gocloud.dev/secrets/localsecrets"
	"golang.org/x/crypto/pbkdf2"

	"github.com/pbarbosa/tenantvault/internal/config"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"

	// Registered keeper drivers selectable through KV_KEEPER_URI.
	_ "gocloud.dev/secrets/hashivault"
)

// Keeper encrypts and decrypts secret values at rest.
type Keeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

// keeper wraps a gocloud secrets.Keeper.
type keeper struct {
	inner *secrets.Keeper
}

func (k *keeper) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	ciphertext, err := k.inner.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encrypt secret value")
	}
	return ciphertext, nil
}

func (k *keeper) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	plaintext, err := k.inner.Decrypt(ctx, ciphertext)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to decrypt secret value")
	}
	return plaintext, nil
}

func (k *keeper) Close() error {
	return k.inner.Close()
}

// OpenKeeper opens the configured encryption keeper. A passphrase takes
// precedence over the URI: the key is derived locally with PBKDF2 so
// restarts reproduce it. Otherwise the URI selects the driver
// (base64key://, hashivault://, cloud KMS schemes).
func OpenKeeper(ctx context.Context, cfg *config.Config) (Keeper, error) {
	if cfg.KVKeeperPassphrase != "" {
		derived := pbkdf2.Key(
			[]byte(cfg.KVKeeperPassphrase),
			[]byte(cfg.KVKeeperSalt),
			4096,
			32,
			sha256.New,
		)
		key, err := localsecrets.Base64Key(base64.StdEncoding.EncodeToString(derived))
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to derive keeper key")
		}
		return &keeper{inner: localsecrets.NewKeeper(key)}, nil
	}

	inner, err := secrets.OpenKeeper(ctx, cfg.KVKeeperURI)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to open keeper")
	}
	return &keeper{inner: inner}, nil
}
