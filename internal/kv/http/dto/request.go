// Package dto provides data transfer objects for HTTP request and response handling.
package dto

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/pbarbosa/tenantvault/internal/validation"
)

// CreateOrUpdateSecretRequest contains the parameters for writing a secret
// version. The path is extracted from the URL parameter, not the request
// body. The value is base64-encoded on the wire.
type CreateOrUpdateSecretRequest struct {
	Value string `json:"value"`
}

// Validate checks if the create or update secret request is valid.
func (r *CreateOrUpdateSecretRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Value,
			validation.Required,
			customValidation.Base64,
		),
	)
}
