// Package http provides HTTP handlers for tenant domain administration.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	brokerUseCase "github.com/pbarbosa/tenantvault/internal/broker/usecase"
	"github.com/pbarbosa/tenantvault/internal/httputil"
	kvUseCase "github.com/pbarbosa/tenantvault/internal/kv/usecase"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	policyUseCase "github.com/pbarbosa/tenantvault/internal/policy/usecase"
	customValidation "github.com/pbarbosa/tenantvault/internal/validation"
)

// DomainHandler handles HTTP requests for tenant domain administration.
// Offboarding coordinates the broker and the secret store so a removed
// domain leaves no live leases or stored secrets behind.
type DomainHandler struct {
	policyUseCase policyUseCase.PolicyUseCase
	brokerUseCase brokerUseCase.BrokerUseCase
	kvUseCase     kvUseCase.KVUseCase
	logger        *slog.Logger
}

// NewDomainHandler creates a new domain handler with required dependencies.
func NewDomainHandler(
	policy policyUseCase.PolicyUseCase,
	broker brokerUseCase.BrokerUseCase,
	kv kvUseCase.KVUseCase,
	logger *slog.Logger,
) *DomainHandler {
	return &DomainHandler{
		policyUseCase: policy,
		brokerUseCase: broker,
		kvUseCase:     kv,
		logger:        logger,
	}
}

// RegisterDomainRequest contains the parameters for onboarding a new domain.
type RegisterDomainRequest struct {
	ID                 string   `json:"id"`
	Description        string   `json:"description,omitempty"`
	Namespace          string   `json:"namespace"`
	SecretPathPrefixes []string `json:"secret_path_prefixes"`
	DenyPatterns       []string `json:"deny_patterns,omitempty"`
}

// Validate checks if the register domain request is valid.
func (r *RegisterDomainRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.ID,
			validation.Required,
			customValidation.DomainID,
		),
		validation.Field(&r.Namespace,
			validation.Required,
			customValidation.NoWhitespace,
			validation.Length(1, 255),
		),
		validation.Field(&r.SecretPathPrefixes,
			validation.Required,
			validation.Length(1, 0),
		),
	)
}

// UpdateDomainRequest contains the mutable fields of a registered domain.
// The domain ID and namespace are immutable after onboarding.
type UpdateDomainRequest struct {
	Description        string   `json:"description,omitempty"`
	SecretPathPrefixes []string `json:"secret_path_prefixes"`
	DenyPatterns       []string `json:"deny_patterns,omitempty"`
}

// Validate checks if the update domain request is valid.
func (r *UpdateDomainRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SecretPathPrefixes,
			validation.Required,
			validation.Length(1, 0),
		),
	)
}

// DomainResponse represents a tenant domain in API responses.
type DomainResponse struct {
	ID                 string    `json:"id"`
	Description        string    `json:"description,omitempty"`
	Namespace          string    `json:"namespace"`
	SecretPathPrefixes []string  `json:"secret_path_prefixes"`
	DenyPatterns       []string  `json:"deny_patterns,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// mapDomainToResponse converts a tenant domain to an API response.
func mapDomainToResponse(d *policyDomain.Domain) DomainResponse {
	return DomainResponse{
		ID:                 d.ID,
		Description:        d.Description,
		Namespace:          d.Namespace,
		SecretPathPrefixes: d.SecretPathPrefixes,
		DenyPatterns:       d.DenyPatterns,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
}

// CreateHandler onboards a new tenant domain.
// POST /v1/admin/domains - Requires create capability on sys/domains.
// Returns 201 Created.
func (h *DomainHandler) CreateHandler(c *gin.Context) {
	var req RegisterDomainRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	domain, err := h.policyUseCase.RegisterDomain(
		c.Request.Context(),
		policyUseCase.RegisterDomainInput{
			ID:                 req.ID,
			Description:        req.Description,
			Namespace:          req.Namespace,
			SecretPathPrefixes: req.SecretPathPrefixes,
			DenyPatterns:       req.DenyPatterns,
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, mapDomainToResponse(domain))
}

// GetHandler retrieves a domain by ID.
// GET /v1/admin/domains/:id - Requires read capability on sys/domains.
// Returns 200 OK.
func (h *DomainHandler) GetHandler(c *gin.Context) {
	domain, err := h.policyUseCase.GetDomain(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapDomainToResponse(domain))
}

// UpdateHandler updates a domain's mutable rule material. The change
// applies to sessions issued afterwards, never retroactively.
// PUT /v1/admin/domains/:id - Requires update capability on sys/domains.
// Returns 200 OK with the updated domain.
func (h *DomainHandler) UpdateHandler(c *gin.Context) {
	var req UpdateDomainRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	domain, err := h.policyUseCase.UpdateDomain(
		c.Request.Context(),
		c.Param("id"),
		policyUseCase.UpdateDomainInput{
			Description:        req.Description,
			SecretPathPrefixes: req.SecretPathPrefixes,
			DenyPatterns:       req.DenyPatterns,
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapDomainToResponse(domain))
}

// ListHandler retrieves domains with pagination support.
// GET /v1/admin/domains?offset=0&limit=50 - Requires read capability on
// sys/domains.
// Returns 200 OK.
func (h *DomainHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	domains, err := h.policyUseCase.ListDomains(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]DomainResponse, 0, len(domains))
	for _, domain := range domains {
		responses = append(responses, mapDomainToResponse(domain))
	}

	c.JSON(http.StatusOK, gin.H{
		"domains": responses,
		"offset":  offset,
		"limit":   limit,
	})
}

// DeleteHandler offboards a domain: queues every active lease for
// revocation, purges the domain's stored secrets under each declared
// prefix, then removes the registry entry. The sweeper finishes the backend
// drops after the registry entry is gone.
// DELETE /v1/admin/domains/:id - Requires delete capability on sys/domains.
// Returns 204 No Content.
func (h *DomainHandler) DeleteHandler(c *gin.Context) {
	domainID := c.Param("id")

	domain, err := h.policyUseCase.GetDomain(c.Request.Context(), domainID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	revoked, err := h.brokerUseCase.RevokeDomainLeases(c.Request.Context(), domainID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var purged int64
	for _, prefix := range domain.SecretPathPrefixes {
		count, err := h.kvUseCase.Purge(c.Request.Context(), prefix)
		if err != nil {
			httputil.HandleErrorGin(c, err, h.logger)
			return
		}
		purged += count
	}

	if err := h.policyUseCase.RemoveDomain(c.Request.Context(), domainID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.logger.Info("domain offboarded",
		slog.String("domain_id", domainID),
		slog.Int64("leases_revoked", revoked),
		slog.Int64("secret_versions_purged", purged))

	c.Data(http.StatusNoContent, "application/json", nil)
}
