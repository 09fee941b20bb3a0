package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	"github.com/pbarbosa/tenantvault/internal/httputil"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
	customValidation "github.com/pbarbosa/tenantvault/internal/validation"
)

// TrustDomainHandler handles HTTP requests for trust domain administration.
type TrustDomainHandler struct {
	identityUseCase identityUseCase.IdentityUseCase
	logger          *slog.Logger
}

// NewTrustDomainHandler creates a new trust domain handler with required
// dependencies.
func NewTrustDomainHandler(
	useCase identityUseCase.IdentityUseCase,
	logger *slog.Logger,
) *TrustDomainHandler {
	return &TrustDomainHandler{
		identityUseCase: useCase,
		logger:          logger,
	}
}

// RegisterTrustDomainRequest contains the parameters for registering an
// external identity provider.
type RegisterTrustDomainRequest struct {
	Issuer        string            `json:"issuer"`
	Mode          string            `json:"mode"`
	PublicKeysPEM map[string]string `json:"public_keys_pem,omitempty"`
	ReviewURL     string            `json:"review_url,omitempty"`
	Audiences     []string          `json:"audiences"`
}

// Validate checks if the register trust domain request is valid. Offline
// mode requires at least one public key; live mode requires a review URL.
func (r *RegisterTrustDomainRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.Issuer,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 500),
		),
		validation.Field(&r.Mode,
			validation.Required,
			validation.In(
				string(identityDomain.OfflineVerification),
				string(identityDomain.LiveVerification),
			),
		),
		validation.Field(&r.Audiences,
			validation.Required,
			validation.Length(1, 0),
		),
	)
	if err != nil {
		return err
	}

	switch identityDomain.VerificationMode(r.Mode) {
	case identityDomain.OfflineVerification:
		if len(r.PublicKeysPEM) == 0 {
			return fmt.Errorf("offline mode requires at least one public key")
		}
	case identityDomain.LiveVerification:
		if r.ReviewURL == "" {
			return fmt.Errorf("live mode requires a review url")
		}
	}

	return nil
}

// TrustDomainResponse represents a trust domain in API responses. Public key
// material is reduced to its key IDs.
type TrustDomainResponse struct {
	ID        string    `json:"id"`
	Issuer    string    `json:"issuer"`
	Mode      string    `json:"mode"`
	KeyIDs    []string  `json:"key_ids,omitempty"`
	ReviewURL string    `json:"review_url,omitempty"`
	Audiences []string  `json:"audiences"`
	CreatedAt time.Time `json:"created_at"`
}

// mapTrustDomainToResponse converts a domain trust domain to an API response.
func mapTrustDomainToResponse(trustDomain *identityDomain.TrustDomain) TrustDomainResponse {
	keyIDs := make([]string, 0, len(trustDomain.PublicKeysPEM))
	for keyID := range trustDomain.PublicKeysPEM {
		keyIDs = append(keyIDs, keyID)
	}

	return TrustDomainResponse{
		ID:        trustDomain.ID.String(),
		Issuer:    trustDomain.Issuer,
		Mode:      string(trustDomain.Mode),
		KeyIDs:    keyIDs,
		ReviewURL: trustDomain.ReviewURL,
		Audiences: trustDomain.Audiences,
		CreatedAt: trustDomain.CreatedAt,
	}
}

// CreateHandler registers a new trust domain.
// POST /v1/admin/trust-domains - Requires create capability on sys/trust-domains.
// Returns 201 Created.
func (h *TrustDomainHandler) CreateHandler(c *gin.Context) {
	var req RegisterTrustDomainRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	trustDomain, err := h.identityUseCase.RegisterTrustDomain(
		c.Request.Context(),
		identityUseCase.RegisterTrustDomainInput{
			Issuer:        req.Issuer,
			Mode:          identityDomain.VerificationMode(req.Mode),
			PublicKeysPEM: req.PublicKeysPEM,
			ReviewURL:     req.ReviewURL,
			Audiences:     req.Audiences,
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, mapTrustDomainToResponse(trustDomain))
}

// ListHandler retrieves all registered trust domains.
// GET /v1/admin/trust-domains - Requires read capability on sys/trust-domains.
// Returns 200 OK.
func (h *TrustDomainHandler) ListHandler(c *gin.Context) {
	trustDomains, err := h.identityUseCase.ListTrustDomains(c.Request.Context())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]TrustDomainResponse, 0, len(trustDomains))
	for _, trustDomain := range trustDomains {
		responses = append(responses, mapTrustDomainToResponse(trustDomain))
	}

	c.JSON(http.StatusOK, gin.H{"trust_domains": responses})
}

// DeleteHandler removes a trust domain by issuer. Issuers are URLs, so the
// issuer arrives as a query parameter rather than a path segment.
// DELETE /v1/admin/trust-domains?issuer=... - Requires delete capability on
// sys/trust-domains.
// Returns 204 No Content.
func (h *TrustDomainHandler) DeleteHandler(c *gin.Context) {
	issuer := c.Query("issuer")
	if issuer == "" {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("issuer query parameter is required"),
			h.logger)
		return
	}

	if err := h.identityUseCase.RemoveTrustDomain(c.Request.Context(), issuer); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
