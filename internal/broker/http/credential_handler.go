// Package http provides HTTP handlers for dynamic credential issuance and
// lease lifecycle.
package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
	brokerDomain "github.com/pbarbosa/tenantvault/internal/broker/domain"
	brokerUseCase "github.com/pbarbosa/tenantvault/internal/broker/usecase"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	"github.com/pbarbosa/tenantvault/internal/httputil"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
	sessionHTTP "github.com/pbarbosa/tenantvault/internal/session/http"
)

// CredentialHandler handles HTTP requests for credential issuance and lease
// lifecycle. Every issuance decision is recorded in the decision log.
type CredentialHandler struct {
	brokerUseCase brokerUseCase.BrokerUseCase
	auditUseCase  auditUseCase.AuditUseCase
	logger        *slog.Logger
}

// NewCredentialHandler creates a new credential handler with required
// dependencies.
func NewCredentialHandler(
	useCase brokerUseCase.BrokerUseCase,
	audit auditUseCase.AuditUseCase,
	logger *slog.Logger,
) *CredentialHandler {
	return &CredentialHandler{
		brokerUseCase: useCase,
		auditUseCase:  audit,
		logger:        logger,
	}
}

// IssueCredentialResponse contains the one-time credential material.
// SECURITY: The password is only returned once and is never persisted.
type IssueCredentialResponse struct {
	LeaseID      string    `json:"lease_id"`
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	MaxExpiresAt time.Time `json:"max_expires_at"`
}

// LeaseResponse represents a lease in API responses.
type LeaseResponse struct {
	ID           string    `json:"id"`
	DomainID     string    `json:"domain_id"`
	RoleName     string    `json:"role_name"`
	Principal    string    `json:"principal"`
	State        string    `json:"state"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	MaxExpiresAt time.Time `json:"max_expires_at"`
	RenewCount   int       `json:"renew_count"`
}

// mapLeaseToResponse converts a domain lease to an API response.
func mapLeaseToResponse(lease *brokerDomain.Lease) LeaseResponse {
	return LeaseResponse{
		ID:           lease.ID.String(),
		DomainID:     lease.DomainID,
		RoleName:     lease.RoleName,
		Principal:    lease.Principal,
		State:        string(lease.State),
		IssuedAt:     lease.IssuedAt,
		ExpiresAt:    lease.ExpiresAt,
		MaxExpiresAt: lease.MaxExpiresAt,
		RenewCount:   lease.RenewCount,
	}
}

// session retrieves the authenticated session placed by the authentication
// middleware.
func (h *CredentialHandler) session(c *gin.Context) (*sessionDomain.Session, bool) {
	session, ok := sessionHTTP.GetSession(c.Request.Context())
	if !ok || session == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}
	return session, true
}

// recordDecision writes the authorization outcome of a credential operation
// to the decision log. Recording failures are logged, never surfaced.
func (h *CredentialHandler) recordDecision(
	c *gin.Context,
	session *sessionDomain.Session,
	path string,
	opErr error,
) {
	outcome := auditDomain.AllowOutcome
	if errors.Is(opErr, apperrors.ErrPermissionDenied) {
		outcome = auditDomain.DenyOutcome
	}

	requestID, err := uuid.Parse(requestid.Get(c))
	if err != nil {
		requestID = uuid.Nil
	}

	input := auditUseCase.RecordDecisionInput{
		RequestID:  requestID,
		DomainID:   session.DomainID,
		Subject:    "session:" + session.ID.String(),
		Path:       path,
		Capability: policyDomain.ReadCapability,
		Outcome:    outcome,
	}

	if err := h.auditUseCase.Record(c.Request.Context(), input); err != nil {
		h.logger.Warn("failed to record decision",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// IssueHandler mints a fresh database principal for the role and returns
// its credentials with a lease.
// POST /v1/creds/:domain_id/:role - Requires read capability on the role's
// credential path.
// Returns 201 Created with the one-time credential material.
func (h *CredentialHandler) IssueHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	domainID := c.Param("domain_id")
	roleName := c.Param("role")

	output, err := h.brokerUseCase.Issue(c.Request.Context(), session.Rules, domainID, roleName)
	h.recordDecision(c, session, policyDomain.CredentialPath(domainID, roleName), err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, IssueCredentialResponse{
		LeaseID:      output.Lease.ID.String(),
		Username:     output.Username,
		Password:     output.Password,
		IssuedAt:     output.Lease.IssuedAt,
		ExpiresAt:    output.Lease.ExpiresAt,
		MaxExpiresAt: output.Lease.MaxExpiresAt,
	})
}

// RenewHandler extends an active lease up to its maximum lifetime.
// POST /v1/leases/:id/renew - Requires read capability on the lease's
// credential path.
// Returns 200 OK with the updated lease.
func (h *CredentialHandler) RenewHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid lease ID format: must be a valid UUID"),
			h.logger)
		return
	}

	lease, err := h.brokerUseCase.Renew(c.Request.Context(), session.Rules, leaseID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapLeaseToResponse(lease))
}

// RevokeHandler queues the lease for revocation and attempts the backend
// drop immediately. Revoking an already queued lease is a no-op.
// DELETE /v1/leases/:id - Requires read capability on the lease's
// credential path.
// Returns 204 No Content.
func (h *CredentialHandler) RevokeHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("invalid lease ID format: must be a valid UUID"),
			h.logger)
		return
	}

	if err := h.brokerUseCase.Revoke(c.Request.Context(), session.Rules, leaseID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListLeasesHandler retrieves a domain's leases with pagination support.
// GET /v1/admin/leases?domain_id=...&offset=0&limit=50 - Requires read
// capability on sys/leases.
// Returns 200 OK.
func (h *CredentialHandler) ListLeasesHandler(c *gin.Context) {
	domainID := c.Query("domain_id")
	if domainID == "" {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("domain_id query parameter is required"),
			h.logger)
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	leases, err := h.brokerUseCase.ListLeases(c.Request.Context(), domainID, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	responses := make([]LeaseResponse, 0, len(leases))
	for _, lease := range leases {
		responses = append(responses, mapLeaseToResponse(lease))
	}

	c.JSON(http.StatusOK, gin.H{
		"leases": responses,
		"offset": offset,
		"limit":  limit,
	})
}
