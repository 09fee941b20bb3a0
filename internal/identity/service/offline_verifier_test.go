package service

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

const testIssuer = "https://issuer.example.com"

// fakeTrustDomainLister serves a fixed trust domain set to the key cache.
type fakeTrustDomainLister struct {
	trustDomains []*identityDomain.TrustDomain
	err          error
}

func (f *fakeTrustDomainLister) ListTrustDomains(ctx context.Context) ([]*identityDomain.TrustDomain, error) {
	return f.trustDomains, f.err
}

type signer struct {
	privateKey ed25519.PrivateKey
	keyID      string
}

// newSigner generates an Ed25519 key pair and returns the signer plus the
// trust domain registered with its public key.
func newSigner(t *testing.T) (*signer, *identityDomain.TrustDomain) {
	t.Helper()

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	der, err := x509.MarshalPKIXPublicKey(publicKey)
	require.NoError(t, err)
	pemData := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})

	trustDomain := &identityDomain.TrustDomain{
		Issuer:        testIssuer,
		Mode:          identityDomain.OfflineVerification,
		PublicKeysPEM: map[string]string{"key-1": string(pemData)},
		Audiences:     []string{"tenantvault"},
	}

	return &signer{privateKey: privateKey, keyID: "key-1"}, trustDomain
}

func (s *signer) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = s.keyID
	signed, err := token.SignedString(s.privateKey)
	require.NoError(t, err)
	return signed
}

func validAssertionClaims() jwt.MapClaims {
	now := time.Now().UTC()
	return jwt.MapClaims{
		"iss":       testIssuer,
		"sub":       "workload:alpha:api-server",
		"aud":       "tenantvault",
		"exp":       now.Add(time.Hour).Unix(),
		"iat":       now.Unix(),
		"namespace": "alpha",
	}
}

func newOfflineVerifierForTest(t *testing.T, trustDomain *identityDomain.TrustDomain) AssertionVerifier {
	t.Helper()
	cache := NewKeyCache(&fakeTrustDomainLister{
		trustDomains: []*identityDomain.TrustDomain{trustDomain},
	})
	require.NoError(t, cache.Refresh(context.Background()))
	return NewOfflineVerifier(cache, "namespace")
}

func TestOfflineVerifier_Verify(t *testing.T) {
	ctx := context.Background()

	t.Run("valid assertion yields claims", func(t *testing.T) {
		signer, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)

		claims, err := verifier.Verify(ctx, signer.sign(t, validAssertionClaims()), trustDomain)

		require.NoError(t, err)
		assert.Equal(t, testIssuer, claims.Issuer)
		assert.Equal(t, "workload:alpha:api-server", claims.Subject)
		assert.Equal(t, []string{"tenantvault"}, claims.Audiences)
		assert.Equal(t, "alpha", claims.Namespace)
	})

	t.Run("expired assertion", func(t *testing.T) {
		signer, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)

		mapClaims := validAssertionClaims()
		mapClaims["exp"] = time.Now().UTC().Add(-time.Minute).Unix()

		_, err := verifier.Verify(ctx, signer.sign(t, mapClaims), trustDomain)
		assert.ErrorIs(t, err, identityDomain.ErrExpiredAssertion)
	})

	t.Run("unknown key id fails closed", func(t *testing.T) {
		signer, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)
		signer.keyID = "rotated-away"

		_, err := verifier.Verify(ctx, signer.sign(t, validAssertionClaims()), trustDomain)
		assert.ErrorIs(t, err, identityDomain.ErrUnknownIssuer)
	})

	t.Run("issuer claim mismatch", func(t *testing.T) {
		signer, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)

		mapClaims := validAssertionClaims()
		mapClaims["iss"] = "https://other.example.com"

		_, err := verifier.Verify(ctx, signer.sign(t, mapClaims), trustDomain)
		assert.ErrorIs(t, err, identityDomain.ErrUnknownIssuer)
	})

	t.Run("audience mismatch", func(t *testing.T) {
		signer, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)

		mapClaims := validAssertionClaims()
		mapClaims["aud"] = "some-other-service"

		_, err := verifier.Verify(ctx, signer.sign(t, mapClaims), trustDomain)
		assert.ErrorIs(t, err, identityDomain.ErrAudienceMismatch)
	})

	t.Run("tampered assertion", func(t *testing.T) {
		signer, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)

		assertion := signer.sign(t, validAssertionClaims())
		tampered := assertion[:len(assertion)-4] + "AAAA"

		_, err := verifier.Verify(ctx, tampered, trustDomain)
		assert.ErrorIs(t, err, identityDomain.ErrInvalidSignature)
	})

	t.Run("garbage input", func(t *testing.T) {
		_, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)

		_, err := verifier.Verify(ctx, "not-a-jwt", trustDomain)
		assert.ErrorIs(t, err, identityDomain.ErrInvalidSignature)
	})

	t.Run("unsigned algorithm rejected", func(t *testing.T) {
		_, trustDomain := newSigner(t)
		verifier := newOfflineVerifierForTest(t, trustDomain)

		token := jwt.NewWithClaims(jwt.SigningMethodNone, validAssertionClaims())
		token.Header["kid"] = "key-1"
		assertion, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = verifier.Verify(ctx, assertion, trustDomain)
		assert.ErrorIs(t, err, identityDomain.ErrInvalidSignature)
	})
}

func TestKeyCache_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("skips unparseable keys", func(t *testing.T) {
		_, trustDomain := newSigner(t)
		trustDomain.PublicKeysPEM["broken"] = "not pem at all"

		cache := NewKeyCache(&fakeTrustDomainLister{
			trustDomains: []*identityDomain.TrustDomain{trustDomain},
		})
		require.NoError(t, cache.Refresh(ctx))

		_, ok := cache.Lookup(testIssuer, "key-1")
		assert.True(t, ok)
		_, ok = cache.Lookup(testIssuer, "broken")
		assert.False(t, ok)
	})

	t.Run("failed refresh keeps previous keys", func(t *testing.T) {
		_, trustDomain := newSigner(t)
		lister := &fakeTrustDomainLister{
			trustDomains: []*identityDomain.TrustDomain{trustDomain},
		}
		cache := NewKeyCache(lister)
		require.NoError(t, cache.Refresh(ctx))

		lister.err = assert.AnError
		require.Error(t, cache.Refresh(ctx))

		_, ok := cache.Lookup(testIssuer, "key-1")
		assert.True(t, ok)
	})
}
