package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// liveVerifier submits assertions to the trust domain's review endpoint for
// synchronous validation. Transport failures and timeouts surface as
// ErrValidationUnreachable and are never retried.
type liveVerifier struct {
	client         *http.Client
	timeout        time.Duration
	namespaceClaim string
}

// NewLiveVerifier creates an AssertionVerifier that calls review endpoints
// with the given per-request timeout.
func NewLiveVerifier(timeout time.Duration, namespaceClaim string) AssertionVerifier {
	return &liveVerifier{
		client:         &http.Client{},
		timeout:        timeout,
		namespaceClaim: namespaceClaim,
	}
}

// reviewRequest is the payload sent to a trust domain's review endpoint.
type reviewRequest struct {
	Assertion string   `json:"assertion"`
	Audiences []string `json:"audiences,omitempty"`
}

// reviewResponse is the payload a review endpoint answers with.
type reviewResponse struct {
	Authenticated bool              `json:"authenticated"`
	Subject       string            `json:"subject"`
	Audiences     []string          `json:"audiences"`
	ExpiresAt     time.Time         `json:"expires_at"`
	Claims        map[string]string `json:"claims"`
}

// Verify submits the assertion for review and maps the outcome to the
// verifier's error vocabulary.
func (l *liveVerifier) Verify(
	ctx context.Context,
	assertion string,
	trustDomain *identityDomain.TrustDomain,
) (*identityDomain.Claims, error) {
	body, err := json.Marshal(reviewRequest{
		Assertion: assertion,
		Audiences: trustDomain.Audiences,
	})
	if err != nil {
		return nil, identityDomain.ErrValidationUnreachable
	}

	reqCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		reqCtx,
		http.MethodPost,
		trustDomain.ReviewURL,
		bytes.NewReader(body),
	)
	if err != nil {
		return nil, identityDomain.ErrValidationUnreachable
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, identityDomain.ErrValidationUnreachable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, identityDomain.ErrInvalidSignature
	default:
		return nil, identityDomain.ErrValidationUnreachable
	}

	var review reviewResponse
	if err := json.NewDecoder(resp.Body).Decode(&review); err != nil {
		return nil, identityDomain.ErrValidationUnreachable
	}
	if !review.Authenticated || review.Subject == "" {
		return nil, identityDomain.ErrInvalidSignature
	}

	claims := &identityDomain.Claims{
		Issuer:    trustDomain.Issuer,
		Subject:   review.Subject,
		Audiences: review.Audiences,
		ExpiresAt: review.ExpiresAt,
		Extra:     review.Claims,
	}
	if claims.Extra == nil {
		claims.Extra = make(map[string]string)
	}
	claims.Namespace = claims.Extra[l.namespaceClaim]

	if err := expiryCheck(claims, time.Now().UTC()); err != nil {
		return nil, err
	}
	if err := checkAudience(claims, trustDomain); err != nil {
		return nil, err
	}

	return claims, nil
}
