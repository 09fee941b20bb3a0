package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	"github.com/pbarbosa/tenantvault/internal/httputil"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
	customValidation "github.com/pbarbosa/tenantvault/internal/validation"
)

// BindingHandler handles HTTP requests for identity binding administration.
type BindingHandler struct {
	identityUseCase identityUseCase.IdentityUseCase
	logger          *slog.Logger
}

// NewBindingHandler creates a new binding handler with required dependencies.
func NewBindingHandler(
	useCase identityUseCase.IdentityUseCase,
	logger *slog.Logger,
) *BindingHandler {
	return &BindingHandler{
		identityUseCase: useCase,
		logger:          logger,
	}
}

// RegisterBindingRequest contains the parameters for binding claim shapes to
// a tenant domain.
type RegisterBindingRequest struct {
	Issuer              string            `json:"issuer"`
	DomainID            string            `json:"domain_id"`
	BoundAudiences      []string          `json:"bound_audiences"`
	BoundSubjectPattern string            `json:"bound_subject_pattern"`
	BoundClaims         map[string]string `json:"bound_claims,omitempty"`
}

// Validate checks if the register binding request is valid.
func (r *RegisterBindingRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Issuer,
			validation.Required,
			customValidation.NotBlank,
			validation.Length(1, 500),
		),
		validation.Field(&r.DomainID,
			validation.Required,
			customValidation.DomainID,
		),
		validation.Field(&r.BoundAudiences,
			validation.Required,
			validation.Length(1, 0),
		),
		validation.Field(&r.BoundSubjectPattern,
			validation.Required,
			customValidation.SubjectPattern,
		),
	)
}

// BindingResponse represents an identity binding in API responses.
type BindingResponse struct {
	ID                  string            `json:"id"`
	Issuer              string            `json:"issuer"`
	DomainID            string            `json:"domain_id"`
	BoundAudiences      []string          `json:"bound_audiences"`
	BoundSubjectPattern string            `json:"bound_subject_pattern"`
	BoundClaims         map[string]string `json:"bound_claims,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
}

// mapBindingToResponse converts a domain binding to an API response.
func mapBindingToResponse(binding *identityDomain.Binding) BindingResponse {
	return BindingResponse{
		ID:                  binding.ID.String(),
		Issuer:              binding.Issuer,
		DomainID:            binding.DomainID,
		BoundAudiences:      binding.BoundAudiences,
		BoundSubjectPattern: binding.BoundSubjectPattern,
		BoundClaims:         binding.BoundClaims,
		CreatedAt:           binding.CreatedAt,
	}
}

// CreateHandler registers a new identity binding.
// POST /v1/admin/bindings - Requires create capability on sys/bindings.
// Returns 201 Created.
func (h *BindingHandler) CreateHandler(c *gin.Context) {
	var req RegisterBindingRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	binding, err := h.identityUseCase.RegisterBinding(
		c.Request.Context(),
		identityUseCase.RegisterBindingInput{
			Issuer:              req.Issuer,
			DomainID:            req.DomainID,
			BoundAudiences:      req.BoundAudiences,
			BoundSubjectPattern: req.BoundSubjectPattern,
			BoundClaims:         req.BoundClaims,
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, mapBindingToResponse(binding))
}

// ListHandler retrieves bindings with pagination support.
// GET /v1/admin/bindings?offset=0&limit=50 - Requires read capability on
// sys/bindings.
// Returns 200 OK.
func (h *BindingHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	bindings, err := h.identityUseCase.ListBindings(c.Request.Context(), offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]BindingResponse, 0, len(bindings))
	for _, binding := range bindings {
		responses = append(responses, mapBindingToResponse(binding))
	}

	c.JSON(http.StatusOK, gin.H{
		"bindings": responses,
		"offset":   offset,
		"limit":    limit,
	})
}

// DeleteHandler removes a binding by ID.
// DELETE /v1/admin/bindings/:id - Requires delete capability on sys/bindings.
// Returns 204 No Content.
func (h *BindingHandler) DeleteHandler(c *gin.Context) {
	bindingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid binding ID format: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.identityUseCase.RemoveBinding(c.Request.Context(), bindingID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
