package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

// Binding connects verified claim shapes to a tenant domain. Authentication
// succeeds only when exactly one binding matches the presented claims.
type Binding struct {
	ID       uuid.UUID
	Issuer   string
	DomainID string

	// BoundAudiences lists acceptable audiences. The assertion must carry
	// at least one of them.
	BoundAudiences []string

	// BoundSubjectPattern matches the assertion subject. Exact match, or a
	// literal prefix with a single trailing '*'. No other wildcard forms.
	BoundSubjectPattern string

	// BoundClaims are additional claim equality requirements. Every entry
	// must hold for the binding to match.
	BoundClaims map[string]string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Matches reports whether the verified claims satisfy every condition of
// this binding. All conditions are conjunctive; there is no priority or
// partial match.
func (b *Binding) Matches(claims *Claims) bool {
	if b.Issuer != claims.Issuer {
		return false
	}

	audienceOK := false
	for _, audience := range b.BoundAudiences {
		if claims.HasAudience(audience) {
			audienceOK = true
			break
		}
	}
	if !audienceOK {
		return false
	}

	if !matchSubject(b.BoundSubjectPattern, claims.Subject) {
		return false
	}

	for name, want := range b.BoundClaims {
		got, ok := claims.Claim(name)
		if !ok || got != want {
			return false
		}
	}

	return true
}

// matchSubject matches a subject against an exact value or a literal prefix
// ending in '*'.
func matchSubject(pattern, subject string) bool {
	if pattern == "" || subject == "" {
		return false
	}
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(subject, prefix)
	}
	return pattern == subject
}

// SubjectPatternNamespace extracts the namespace segment from a subject
// pattern of the form "class:namespace:name". The namespace segment must be
// literal; registration uses this to enforce that a binding's pattern stays
// inside the bound domain's declared namespace.
func SubjectPatternNamespace(pattern string) (string, error) {
	segments := strings.Split(pattern, ":")
	if len(segments) < 3 {
		return "", apperrors.Wrap(
			apperrors.ErrInvalidInput,
			"subject pattern must have the form class:namespace:name",
		)
	}
	namespace := segments[1]
	if namespace == "" || strings.Contains(namespace, "*") {
		return "", apperrors.Wrap(
			apperrors.ErrInvalidInput,
			"subject pattern namespace segment must be literal",
		)
	}
	return namespace, nil
}
