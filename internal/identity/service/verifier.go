package service

import (
	"context"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// verifier dispatches to the offline or live implementation based on the
// trust domain's configured verification mode.
type verifier struct {
	offline AssertionVerifier
	live    AssertionVerifier
}

// NewVerifier creates the mode-dispatching AssertionVerifier.
func NewVerifier(offline, live AssertionVerifier) AssertionVerifier {
	return &verifier{offline: offline, live: live}
}

// Verify routes the assertion to the verifier matching the trust domain's mode.
func (v *verifier) Verify(
	ctx context.Context,
	assertion string,
	trustDomain *identityDomain.TrustDomain,
) (*identityDomain.Claims, error) {
	switch trustDomain.Mode {
	case identityDomain.OfflineVerification:
		return v.offline.Verify(ctx, assertion, trustDomain)
	case identityDomain.LiveVerification:
		return v.live.Verify(ctx, assertion, trustDomain)
	default:
		return nil, apperrors.Wrapf(
			apperrors.ErrInvalidInput,
			"unknown verification mode %q", trustDomain.Mode,
		)
	}
}
