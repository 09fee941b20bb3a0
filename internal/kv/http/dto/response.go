package dto

import (
	"time"

	kvDomain "github.com/pbarbosa/tenantvault/internal/kv/domain"
)

// SecretResponse represents a secret version in API responses.
// SECURITY: The Value field contains plaintext and is only included in GET
// responses. Must be transmitted over HTTPS in production.
type SecretResponse struct {
	ID        string     `json:"id"`
	Path      string     `json:"path"`
	Version   uint       `json:"version"`
	Value     []byte     `json:"value,omitempty"` // Only included in GET responses
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// MapSecretToWriteResponse converts a domain secret to an API response for
// write operations. The value is excluded; only metadata is returned.
func MapSecretToWriteResponse(secret *kvDomain.Secret) SecretResponse {
	return SecretResponse{
		ID:        secret.ID.String(),
		Path:      secret.Path,
		Version:   secret.Version,
		CreatedAt: secret.CreatedAt,
	}
}

// MapSecretToGetResponse converts a domain secret to an API response for
// read operations. The decrypted value is included.
func MapSecretToGetResponse(secret *kvDomain.Secret) SecretResponse {
	return SecretResponse{
		ID:        secret.ID.String(),
		Path:      secret.Path,
		Version:   secret.Version,
		Value:     secret.Plaintext,
		CreatedAt: secret.CreatedAt,
	}
}

// ListSecretsResponse contains paginated secret metadata.
type ListSecretsResponse struct {
	Secrets []SecretResponse `json:"secrets"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

// MapSecretsToListResponse converts domain secrets to a paginated metadata
// response. Values are never included in listings.
func MapSecretsToListResponse(secrets []*kvDomain.Secret, offset, limit int) ListSecretsResponse {
	responses := make([]SecretResponse, 0, len(secrets))
	for _, secret := range secrets {
		responses = append(responses, SecretResponse{
			ID:        secret.ID.String(),
			Path:      secret.Path,
			Version:   secret.Version,
			DeletedAt: secret.DeletedAt,
			CreatedAt: secret.CreatedAt,
		})
	}

	return ListSecretsResponse{
		Secrets: responses,
		Offset:  offset,
		Limit:   limit,
	}
}
