// Package http provides HTTP handlers for workload authentication and
// identity administration.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
	"github.com/pbarbosa/tenantvault/internal/httputil"
	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	customValidation "github.com/pbarbosa/tenantvault/internal/validation"
)

// loginAuditPath is the decision-log path for authentication attempts.
const loginAuditPath = "login"

// LoginHandler handles HTTP requests for workload authentication. Every
// login outcome is recorded in the decision log.
type LoginHandler struct {
	identityUseCase identityUseCase.IdentityUseCase
	auditUseCase    auditUseCase.AuditUseCase
	logger          *slog.Logger
}

// NewLoginHandler creates a new login handler with required dependencies.
func NewLoginHandler(
	useCase identityUseCase.IdentityUseCase,
	audit auditUseCase.AuditUseCase,
	logger *slog.Logger,
) *LoginHandler {
	return &LoginHandler{
		identityUseCase: useCase,
		auditUseCase:    audit,
		logger:          logger,
	}
}

// LoginRequest contains the identity assertion presented by a workload.
type LoginRequest struct {
	Assertion string `json:"assertion"`
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Assertion,
			validation.Required,
			customValidation.NotBlank,
		),
	)
}

// LoginResponse contains the session token issued for a verified assertion.
// SECURITY: The token is only returned once and must be saved securely.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	DomainID  string    `json:"domain_id"`
}

// recordDecision writes the outcome of a login attempt to the decision log.
// A rejected login carries no domain or subject. Recording failures are
// logged, never surfaced.
func (h *LoginHandler) recordDecision(
	c *gin.Context,
	output *identityUseCase.LoginOutput,
	opErr error,
) {
	outcome := auditDomain.AllowOutcome
	var domainID, subject string
	if opErr != nil {
		outcome = auditDomain.DenyOutcome
	} else {
		domainID = output.DomainID
		subject = output.Subject
	}

	requestID, err := uuid.Parse(requestid.Get(c))
	if err != nil {
		requestID = uuid.Nil
	}

	input := auditUseCase.RecordDecisionInput{
		RequestID:  requestID,
		DomainID:   domainID,
		Subject:    subject,
		Path:       loginAuditPath,
		Capability: policyDomain.CreateCapability,
		Outcome:    outcome,
	}

	if err := h.auditUseCase.Record(c.Request.Context(), input); err != nil {
		h.logger.Warn("failed to record decision",
			slog.String("path", loginAuditPath),
			slog.String("error", err.Error()))
	}
}

// LoginHandler verifies the assertion, binds it to a tenant domain and
// issues a session token.
// POST /v1/login - Unauthenticated; rate limited per client IP.
// Returns 201 Created with the session token.
func (h *LoginHandler) LoginHandler(c *gin.Context) {
	var req LoginRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.identityUseCase.Login(c.Request.Context(), identityUseCase.LoginInput{
		Assertion: req.Assertion,
	})
	h.recordDecision(c, output, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, LoginResponse{
		Token:     output.Token,
		ExpiresAt: output.ExpiresAt,
		DomainID:  output.DomainID,
	})
}
