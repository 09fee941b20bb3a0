package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

func TestSecretPath(t *testing.T) {
	tests := []struct {
		path  string
		valid bool
	}{
		{"secret/alpha/db", true},
		{"secret/alpha/db-primary.v2", true},
		{"secret", true},
		{"", false},
		{"secret//db", false},
		{"/secret/alpha", false},
		{"secret/alpha/", false},
		{"secret/alpha/*", false},
		{"secret/alpha/db password", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := SecretPath.Validate(tt.path)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestDomainID(t *testing.T) {
	assert.NoError(t, DomainID.Validate("alpha"))
	assert.NoError(t, DomainID.Validate("team-payments-2"))
	assert.Error(t, DomainID.Validate("Alpha"))
	assert.Error(t, DomainID.Validate("-alpha"))
	assert.Error(t, DomainID.Validate("alpha/beta"))
	assert.Error(t, DomainID.Validate(""))
}

func TestSubjectPattern(t *testing.T) {
	tests := []struct {
		pattern string
		valid   bool
	}{
		{"spiffe://corp/ns/alpha/sa/api", true},
		{"spiffe://corp/ns/alpha/sa/*", true},
		{"*", false},
		{"", false},
		{"spiffe://corp/*/sa/*", false},
		{"spiffe://corp/ns/*/sa/api", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			err := SubjectPattern.Validate(tt.pattern)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestWrapValidationError(t *testing.T) {
	assert.NoError(t, WrapValidationError(nil))

	err := WrapValidationError(assert.AnError)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
