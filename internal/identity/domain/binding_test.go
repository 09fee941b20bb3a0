package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

func verifiedClaims() *Claims {
	return &Claims{
		Issuer:    "https://issuer.example.com",
		Subject:   "workload:alpha:api-server",
		Audiences: []string{"tenantvault"},
		Namespace: "alpha",
		Extra:     map[string]string{"environment": "production"},
	}
}

func matchingBinding() *Binding {
	return &Binding{
		Issuer:              "https://issuer.example.com",
		DomainID:            "alpha",
		BoundAudiences:      []string{"tenantvault"},
		BoundSubjectPattern: "workload:alpha:*",
	}
}

func TestBinding_Matches(t *testing.T) {
	t.Run("all conditions hold", func(t *testing.T) {
		assert.True(t, matchingBinding().Matches(verifiedClaims()))
	})

	t.Run("issuer mismatch", func(t *testing.T) {
		b := matchingBinding()
		b.Issuer = "https://other.example.com"
		assert.False(t, b.Matches(verifiedClaims()))
	})

	t.Run("audience mismatch", func(t *testing.T) {
		b := matchingBinding()
		b.BoundAudiences = []string{"other-service"}
		assert.False(t, b.Matches(verifiedClaims()))
	})

	t.Run("no bound audiences never matches", func(t *testing.T) {
		b := matchingBinding()
		b.BoundAudiences = nil
		assert.False(t, b.Matches(verifiedClaims()))
	})

	t.Run("subject outside pattern", func(t *testing.T) {
		b := matchingBinding()
		b.BoundSubjectPattern = "workload:beta:*"
		assert.False(t, b.Matches(verifiedClaims()))
	})

	t.Run("exact subject pattern", func(t *testing.T) {
		b := matchingBinding()
		b.BoundSubjectPattern = "workload:alpha:api-server"
		assert.True(t, b.Matches(verifiedClaims()))

		b.BoundSubjectPattern = "workload:alpha:api"
		assert.False(t, b.Matches(verifiedClaims()))
	})

	t.Run("bound claim equality", func(t *testing.T) {
		b := matchingBinding()
		b.BoundClaims = map[string]string{"environment": "production"}
		assert.True(t, b.Matches(verifiedClaims()))

		b.BoundClaims = map[string]string{"environment": "staging"}
		assert.False(t, b.Matches(verifiedClaims()))

		b.BoundClaims = map[string]string{"region": "us-east-1"}
		assert.False(t, b.Matches(verifiedClaims()))
	})
}

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		subject string
		want    bool
	}{
		{"exact match", "workload:alpha:api", "workload:alpha:api", true},
		{"exact mismatch", "workload:alpha:api", "workload:alpha:api2", false},
		{"prefix wildcard", "workload:alpha:*", "workload:alpha:anything", true},
		{"prefix wildcard empty suffix", "workload:alpha:*", "workload:alpha:", true},
		{"wildcard does not cross prefix", "workload:alpha:*", "workload:alphabet:x", false},
		{"empty pattern", "", "workload:alpha:api", false},
		{"empty subject", "workload:alpha:*", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchSubject(tt.pattern, tt.subject))
		})
	}
}

func TestSubjectPatternNamespace(t *testing.T) {
	t.Run("extracts namespace segment", func(t *testing.T) {
		ns, err := SubjectPatternNamespace("workload:alpha:*")
		assert.NoError(t, err)
		assert.Equal(t, "alpha", ns)
	})

	t.Run("rejects short patterns", func(t *testing.T) {
		_, err := SubjectPatternNamespace("alpha")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects wildcard namespace segment", func(t *testing.T) {
		_, err := SubjectPatternNamespace("workload:*:api")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("rejects empty namespace segment", func(t *testing.T) {
		_, err := SubjectPatternNamespace("workload::api")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestClaims_Claim(t *testing.T) {
	claims := verifiedClaims()

	value, ok := claims.Claim("iss")
	assert.True(t, ok)
	assert.Equal(t, "https://issuer.example.com", value)

	value, ok = claims.Claim("sub")
	assert.True(t, ok)
	assert.Equal(t, "workload:alpha:api-server", value)

	value, ok = claims.Claim("environment")
	assert.True(t, ok)
	assert.Equal(t, "production", value)

	_, ok = claims.Claim("missing")
	assert.False(t, ok)
}
