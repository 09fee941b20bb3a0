// Package service implements assertion verification for registered trust
// domains: offline signature checks against a cached key set and live
// review callbacks.
package service

import (
	"context"

	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

// AssertionVerifier validates a serialized identity assertion against a
// trust domain and returns the verified claim set. Verification never
// mutates domain or session state.
type AssertionVerifier interface {
	Verify(
		ctx context.Context,
		assertion string,
		trustDomain *identityDomain.TrustDomain,
	) (*identityDomain.Claims, error)
}

// TrustDomainLister provides the registered trust domains for key cache
// refresh. Implemented by the trust domain repository.
type TrustDomainLister interface {
	ListTrustDomains(ctx context.Context) ([]*identityDomain.TrustDomain, error)
}
