// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/base64"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

var (
	// secretPathRegex accepts slash-separated segments of URL-safe characters.
	secretPathRegex = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+(/[a-zA-Z0-9_\-.]+)*$`)

	// domainIDRegex keeps domain identifiers usable inside rule paths.
	domainIDRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]*$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// SecretPath validates a literal secret path: slash-separated segments, no
// wildcards, no empty segments.
var SecretPath = validation.NewStringRuleWithError(
	func(s string) bool {
		return secretPathRegex.MatchString(s)
	},
	validation.NewError("validation_secret_path", "must be a slash-separated path without wildcards"),
)

// DomainID validates a domain identifier: lowercase alphanumerics and
// hyphens, starting with an alphanumeric.
var DomainID = validation.NewStringRuleWithError(
	func(s string) bool {
		return domainIDRegex.MatchString(s)
	},
	validation.NewError("validation_domain_id", "must be lowercase alphanumerics and hyphens"),
)

// SubjectPattern validates a binding subject pattern: an exact subject or a
// literal prefix followed by a single trailing "*".
var SubjectPattern = validation.NewStringRuleWithError(
	func(s string) bool {
		if s == "" || s == "*" {
			return false
		}
		if trimmed, ok := strings.CutSuffix(s, "*"); ok {
			return trimmed != "" && !strings.Contains(trimmed, "*")
		}
		return !strings.Contains(s, "*")
	},
	validation.NewError(
		"validation_subject_pattern",
		"must be an exact subject or a literal prefix with one trailing wildcard",
	),
)

// Base64 validates that a string is valid base64-encoded data.
var Base64 = validation.By(func(value interface{}) error {
	s, ok := value.(string)
	if !ok {
		return validation.NewError("validation_base64_type", "must be a string")
	}
	if s == "" {
		return nil // Let Required handle empty strings
	}
	_, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return validation.NewError("validation_base64", "must be valid base64-encoded data")
	}
	return nil
})
