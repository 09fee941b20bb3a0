package service

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
)

const (
	principalPrefix  = "tv_"
	principalRoleMax = 16
	passwordBytes    = 24
)

// credentialService implements CredentialService with crypto/rand material.
type credentialService struct{}

// GeneratePrincipal builds a unique principal name from the role name plus a
// random suffix. The result uses only [a-z0-9_] and stays under the 32
// character MySQL username limit.
func (c *credentialService) GeneratePrincipal(roleName string) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", apperrors.Wrap(err, "failed to generate principal suffix")
	}

	return principalPrefix + sanitizeRoleName(roleName) + "_" + hex.EncodeToString(suffix), nil
}

// GeneratePassword returns a URL-safe random password.
func (c *credentialService) GeneratePassword() (string, error) {
	raw := make([]byte, passwordBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", apperrors.Wrap(err, "failed to generate password")
	}

	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// sanitizeRoleName lowercases the role name, replaces unsupported characters
// with underscores, and truncates it so the full principal name fits backend
// username limits.
func sanitizeRoleName(roleName string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(roleName) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		if b.Len() >= principalRoleMax {
			break
		}
	}
	return b.String()
}

// NewCredentialService creates a new CredentialService instance.
func NewCredentialService() CredentialService {
	return &credentialService{}
}
