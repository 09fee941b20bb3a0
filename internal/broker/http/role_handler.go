package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	brokerUseCase "github.com/pbarbosa/tenantvault/internal/broker/usecase"
	"github.com/pbarbosa/tenantvault/internal/httputil"
	customValidation "github.com/pbarbosa/tenantvault/internal/validation"
)

// RoleHandler handles HTTP requests for credential role administration.
type RoleHandler struct {
	brokerUseCase brokerUseCase.BrokerUseCase
	logger        *slog.Logger
}

// NewRoleHandler creates a new role handler with required dependencies.
func NewRoleHandler(
	useCase brokerUseCase.BrokerUseCase,
	logger *slog.Logger,
) *RoleHandler {
	return &RoleHandler{
		brokerUseCase: useCase,
		logger:        logger,
	}
}

// RegisterRoleRequest contains the parameters for registering a credential
// role. TTLs are expressed in seconds; zero values inherit the configured
// defaults.
type RegisterRoleRequest struct {
	DomainID          string `json:"domain_id"`
	Name              string `json:"name"`
	Backend           string `json:"backend"`
	ConnectionString  string `json:"connection_string"`
	DefaultTTLSeconds int64  `json:"default_ttl_seconds,omitempty"`
	MaxTTLSeconds     int64  `json:"max_ttl_seconds,omitempty"`
}

// Validate checks if the register role request is valid.
func (r *RegisterRoleRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.DomainID,
			validation.Required,
			customValidation.DomainID,
		),
		validation.Field(&r.Name,
			validation.Required,
			customValidation.NoWhitespace,
			validation.Length(1, 255),
		),
		validation.Field(&r.Backend,
			validation.Required,
			validation.In(
				string(brokerDomain.PostgresBackend),
				string(brokerDomain.MySQLBackend),
			),
		),
		validation.Field(&r.ConnectionString,
			validation.Required,
			customValidation.NotBlank,
		),
		validation.Field(&r.DefaultTTLSeconds,
			validation.Min(int64(0)),
		),
		validation.Field(&r.MaxTTLSeconds,
			validation.Min(int64(0)),
		),
	)
}

// RoleResponse represents a credential role in API responses. The backend
// connection string is never echoed back.
type RoleResponse struct {
	ID                string    `json:"id"`
	DomainID          string    `json:"domain_id"`
	Name              string    `json:"name"`
	Backend           string    `json:"backend"`
	DefaultTTLSeconds int64     `json:"default_ttl_seconds"`
	MaxTTLSeconds     int64     `json:"max_ttl_seconds"`
	CreatedAt         time.Time `json:"created_at"`
}

// mapRoleToResponse converts a domain role to an API response.
func mapRoleToResponse(role *brokerDomain.Role) RoleResponse {
	return RoleResponse{
		ID:                role.ID.String(),
		DomainID:          role.DomainID,
		Name:              role.Name,
		Backend:           string(role.Backend),
		DefaultTTLSeconds: int64(role.DefaultTTL / time.Second),
		MaxTTLSeconds:     int64(role.MaxTTL / time.Second),
		CreatedAt:         role.CreatedAt,
	}
}

// CreateHandler registers a new credential role.
// POST /v1/admin/roles - Requires create capability on sys/roles.
// Returns 201 Created.
func (h *RoleHandler) CreateHandler(c *gin.Context) {
	var req RegisterRoleRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	role, err := h.brokerUseCase.RegisterRole(
		c.Request.Context(),
		brokerUseCase.RegisterRoleInput{
			DomainID:         req.DomainID,
			Name:             req.Name,
			Backend:          brokerDomain.Backend(req.Backend),
			ConnectionString: req.ConnectionString,
			DefaultTTL:       time.Duration(req.DefaultTTLSeconds) * time.Second,
			MaxTTL:           time.Duration(req.MaxTTLSeconds) * time.Second,
		},
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, mapRoleToResponse(role))
}

// GetHandler retrieves a role by domain and name.
// GET /v1/admin/roles/:domain_id/:name - Requires read capability on sys/roles.
// Returns 200 OK.
func (h *RoleHandler) GetHandler(c *gin.Context) {
	role, err := h.brokerUseCase.GetRole(
		c.Request.Context(),
		c.Param("domain_id"),
		c.Param("name"),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapRoleToResponse(role))
}

// ListHandler retrieves a domain's roles with pagination support.
// GET /v1/admin/roles?domain_id=...&offset=0&limit=50 - Requires read
// capability on sys/roles.
// Returns 200 OK.
func (h *RoleHandler) ListHandler(c *gin.Context) {
	domainID := c.Query("domain_id")
	if err := customValidation.DomainID.Validate(domainID); err != nil {
		httputil.HandleValidationErrorGin(
			c,
			customValidation.WrapValidationError(err),
			h.logger,
		)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	roles, err := h.brokerUseCase.ListRoles(c.Request.Context(), domainID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]RoleResponse, 0, len(roles))
	for _, role := range roles {
		responses = append(responses, mapRoleToResponse(role))
	}

	c.JSON(http.StatusOK, gin.H{
		"roles":  responses,
		"offset": offset,
		"limit":  limit,
	})
}

// DeleteHandler removes a role. Refused while the role still has live
// leases; their revocations need the role's backend connection.
// DELETE /v1/admin/roles/:domain_id/:name - Requires delete capability on
// sys/roles.
// Returns 204 No Content.
func (h *RoleHandler) DeleteHandler(c *gin.Context) {
	err := h.brokerUseCase.RemoveRole(
		c.Request.Context(),
		c.Param("domain_id"),
		c.Param("name"),
	)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}
