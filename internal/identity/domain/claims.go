package domain

import "time"

// Claims is the verified claim set extracted from an identity assertion.
// It is the only thing later stages (binding, policy resolution) see; the
// raw assertion never travels past the verifier.
type Claims struct {
	Issuer    string
	Subject   string
	Audiences []string
	Namespace string
	ExpiresAt time.Time

	// Extra holds the remaining string-valued claims for bound-claim
	// equality checks during binding.
	Extra map[string]string
}

// Claim returns the named claim value, checking the well-known fields
// before the extra claims.
func (c *Claims) Claim(name string) (string, bool) {
	switch name {
	case "iss":
		return c.Issuer, c.Issuer != ""
	case "sub":
		return c.Subject, c.Subject != ""
	}
	value, ok := c.Extra[name]
	return value, ok
}

// HasAudience reports whether the claim set carries the given audience.
func (c *Claims) HasAudience(audience string) bool {
	for _, a := range c.Audiences {
		if a == audience {
			return true
		}
	}
	return false
}
