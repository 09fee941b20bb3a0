package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// offlineVerifier checks assertion signatures against the local key cache.
// It performs no network calls; an unknown key ID fails closed.
type offlineVerifier struct {
	keys           *KeyCache
	namespaceClaim string
}

// NewOfflineVerifier creates an AssertionVerifier backed by a key cache.
func NewOfflineVerifier(keys *KeyCache, namespaceClaim string) AssertionVerifier {
	return &offlineVerifier{keys: keys, namespaceClaim: namespaceClaim}
}

// Verify parses and validates the assertion signature, expiry and audience.
func (o *offlineVerifier) Verify(
	ctx context.Context,
	assertion string,
	trustDomain *identityDomain.TrustDomain,
) (*identityDomain.Claims, error) {
	parser := jwt.NewParser(
		jwt.WithExpirationRequired(),
		jwt.WithValidMethods([]string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "EdDSA"}),
	)

	token, err := parser.Parse(assertion, func(t *jwt.Token) (any, error) {
		keyID, _ := t.Header["kid"].(string)
		key, ok := o.keys.Lookup(trustDomain.Issuer, keyID)
		if !ok {
			return nil, identityDomain.ErrUnknownIssuer
		}
		return key, nil
	})
	if err != nil {
		return nil, mapParseError(err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, identityDomain.ErrInvalidSignature
	}

	claims, err := claimsFromMap(mapClaims, o.namespaceClaim)
	if err != nil {
		return nil, err
	}

	if claims.Issuer != trustDomain.Issuer {
		return nil, identityDomain.ErrUnknownIssuer
	}
	if err := checkAudience(claims, trustDomain); err != nil {
		return nil, err
	}

	return claims, nil
}

// mapParseError translates golang-jwt parse failures into the verifier's
// error vocabulary.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, identityDomain.ErrUnknownIssuer):
		return identityDomain.ErrUnknownIssuer
	case errors.Is(err, jwt.ErrTokenExpired), errors.Is(err, jwt.ErrTokenNotValidYet):
		return identityDomain.ErrExpiredAssertion
	default:
		return identityDomain.ErrInvalidSignature
	}
}

// claimsFromMap extracts the verified claim set from raw JWT claims.
func claimsFromMap(mapClaims jwt.MapClaims, namespaceClaim string) (*identityDomain.Claims, error) {
	issuer, err := mapClaims.GetIssuer()
	if err != nil || issuer == "" {
		return nil, identityDomain.ErrInvalidSignature
	}
	subject, err := mapClaims.GetSubject()
	if err != nil || subject == "" {
		return nil, identityDomain.ErrInvalidSignature
	}
	audiences, err := mapClaims.GetAudience()
	if err != nil {
		return nil, identityDomain.ErrAudienceMismatch
	}
	expiresAt, err := mapClaims.GetExpirationTime()
	if err != nil || expiresAt == nil {
		return nil, identityDomain.ErrExpiredAssertion
	}

	claims := &identityDomain.Claims{
		Issuer:    issuer,
		Subject:   subject,
		Audiences: audiences,
		ExpiresAt: expiresAt.Time,
		Extra:     make(map[string]string),
	}

	for name, value := range mapClaims {
		switch name {
		case "iss", "sub", "aud", "exp", "iat", "nbf", "jti":
			continue
		}
		if s, ok := value.(string); ok {
			claims.Extra[name] = s
		}
	}
	claims.Namespace = claims.Extra[namespaceClaim]

	return claims, nil
}

// checkAudience requires the assertion to carry at least one of the trust
// domain's accepted audiences.
func checkAudience(claims *identityDomain.Claims, trustDomain *identityDomain.TrustDomain) error {
	if len(trustDomain.Audiences) == 0 {
		return nil
	}
	for _, audience := range trustDomain.Audiences {
		if claims.HasAudience(audience) {
			return nil
		}
	}
	return identityDomain.ErrAudienceMismatch
}

// expiryCheck rejects claims outside their validity window. The offline
// path relies on the JWT parser for this; the live path calls it directly.
func expiryCheck(claims *identityDomain.Claims, now time.Time) error {
	if claims.ExpiresAt.IsZero() || claims.ExpiresAt.Before(now) {
		return identityDomain.ErrExpiredAssertion
	}
	return nil
}
