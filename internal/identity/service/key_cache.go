package service

import (
	"context"
	"crypto"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// KeyCache holds the public verification keys for offline trust domains,
// indexed by issuer and key ID. The request path only reads the cache; keys
// are loaded at startup and replaced wholesale by Refresh on the configured
// cadence. A key ID missing from the cache fails closed, it never triggers
// a fetch.
type KeyCache struct {
	lister TrustDomainLister

	mu   sync.RWMutex
	keys map[string]map[string]crypto.PublicKey
}

// NewKeyCache creates an empty key cache backed by the given trust domain source.
func NewKeyCache(lister TrustDomainLister) *KeyCache {
	return &KeyCache{
		lister: lister,
		keys:   make(map[string]map[string]crypto.PublicKey),
	}
}

// Lookup returns the public key registered for the issuer and key ID.
func (k *KeyCache) Lookup(issuer, keyID string) (crypto.PublicKey, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	issuerKeys, ok := k.keys[issuer]
	if !ok {
		return nil, false
	}
	key, ok := issuerKeys[keyID]
	return key, ok
}

// Refresh reloads every registered trust domain's key material and swaps it
// in atomically. A key that fails to parse is skipped and logged; the rest
// of the set still loads.
func (k *KeyCache) Refresh(ctx context.Context) error {
	trustDomains, err := k.lister.ListTrustDomains(ctx)
	if err != nil {
		return apperrors.Wrap(err, "failed to load trust domains for key refresh")
	}

	fresh := make(map[string]map[string]crypto.PublicKey)
	for _, td := range trustDomains {
		if len(td.PublicKeysPEM) == 0 {
			continue
		}
		issuerKeys := make(map[string]crypto.PublicKey, len(td.PublicKeysPEM))
		for keyID, pemData := range td.PublicKeysPEM {
			key, err := parsePublicKeyPEM([]byte(pemData))
			if err != nil {
				slog.Warn(
					"skipping unparseable verification key",
					"issuer", td.Issuer,
					"key_id", keyID,
					"error", err,
				)
				continue
			}
			issuerKeys[keyID] = key
		}
		fresh[td.Issuer] = issuerKeys
	}

	k.mu.Lock()
	k.keys = fresh
	k.mu.Unlock()

	return nil
}

// Run refreshes the cache on the given interval until the context is
// cancelled. A failed refresh keeps the previous key set.
func (k *KeyCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := k.Refresh(ctx); err != nil {
				slog.Error("verification key refresh failed", "error", err)
			}
		}
	}
}

// parsePublicKeyPEM parses a PEM-encoded RSA, ECDSA or Ed25519 public key.
func parsePublicKeyPEM(pemData []byte) (crypto.PublicKey, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pemData); err == nil {
		return key, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pemData); err == nil {
		return key, nil
	}
	key, err := jwt.ParseEdPublicKeyFromPEM(pemData)
	if err != nil {
		return nil, apperrors.Wrap(err, "unsupported public key format")
	}
	return key, nil
}
