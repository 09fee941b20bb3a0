// Package http provides HTTP handlers for the versioned secret store.
// Secrets are encrypted at rest and every authorization decision is
// recorded in the decision log.
package http

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	"github.com/pbarbosa/tenantvault/internal/httputil"
	"github.com/pbarbosa/tenantvault/internal/kv/http/dto"
	kvUseCase "github.com/pbarbosa/tenantvault/internal/kv/usecase"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
	sessionHTTP "github.com/pbarbosa/tenantvault/internal/session/http"
	customValidation "github.com/pbarbosa/tenantvault/internal/validation"
)

// SecretHandler handles HTTP requests for secret store operations.
// It coordinates authorization via the session's frozen rule set and records
// every decision with the AuditUseCase.
type SecretHandler struct {
	kvUseCase    kvUseCase.KVUseCase
	auditUseCase auditUseCase.AuditUseCase
	logger       *slog.Logger
}

// NewSecretHandler creates a new secret handler with required dependencies.
func NewSecretHandler(
	useCase kvUseCase.KVUseCase,
	audit auditUseCase.AuditUseCase,
	logger *slog.Logger,
) *SecretHandler {
	return &SecretHandler{
		kvUseCase:    useCase,
		auditUseCase: audit,
		logger:       logger,
	}
}

// extractPath pulls the secret path from the wildcard URL parameter and
// validates its shape.
func (h *SecretHandler) extractPath(c *gin.Context) (string, bool) {
	path := strings.TrimPrefix(c.Param("path"), "/")
	if err := customValidation.SecretPath.Validate(path); err != nil {
		httputil.HandleValidationErrorGin(
			c,
			customValidation.WrapValidationError(err),
			h.logger,
		)
		return "", false
	}
	return path, true
}

// extractVersion parses the optional version query parameter. Zero means
// the latest version.
func (h *SecretHandler) extractVersion(c *gin.Context) (uint, bool) {
	versionStr := c.Query("version")
	if versionStr == "" {
		return 0, true
	}

	version, err := strconv.ParseUint(versionStr, 10, 32)
	if err != nil || version == 0 {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid version parameter: must be a positive integer"),
			h.logger,
		)
		return 0, false
	}
	return uint(version), true
}

// session retrieves the authenticated session placed by the authentication
// middleware.
func (h *SecretHandler) session(c *gin.Context) (*sessionDomain.Session, bool) {
	session, ok := sessionHTTP.GetSession(c.Request.Context())
	if !ok || session == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return nil, false
	}
	return session, true
}

// recordDecision writes the authorization outcome of an operation to the
// decision log. Recording failures are logged, never surfaced to the caller.
func (h *SecretHandler) recordDecision(
	c *gin.Context,
	session *sessionDomain.Session,
	path string,
	capability policyDomain.Capability,
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
		Capability: capability,
		Outcome:    outcome,
	}

	if err := h.auditUseCase.Record(c.Request.Context(), input); err != nil {
		h.logger.Warn("failed to record decision",
			slog.String("path", path),
			slog.String("error", err.Error()))
	}
}

// CreateOrUpdateHandler writes a value at the path, appending a new version.
// POST /v1/kv/*path - Requires create or update capability on the path.
// Returns 201 Created with version metadata (no value).
func (h *SecretHandler) CreateOrUpdateHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	path, ok := h.extractPath(c)
	if !ok {
		return
	}

	var req dto.CreateOrUpdateSecretRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	value, err := base64.StdEncoding.DecodeString(req.Value)
	if err != nil {
		httputil.HandleValidationErrorGin(
			c,
			fmt.Errorf("invalid base64 value: %w", err),
			h.logger,
		)
		return
	}

	secret, err := h.kvUseCase.CreateOrUpdate(c.Request.Context(), session.Rules, path, value)
	h.recordDecision(c, session, path, policyDomain.CreateCapability, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.MapSecretToWriteResponse(secret))
}

// GetHandler reads a secret version by path.
// GET /v1/kv/*path?version=N - Requires read capability on the path.
// Returns 200 OK with the decrypted value.
func (h *SecretHandler) GetHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	path, ok := h.extractPath(c)
	if !ok {
		return
	}

	version, ok := h.extractVersion(c)
	if !ok {
		return
	}

	secret, err := h.kvUseCase.Get(c.Request.Context(), session.Rules, path, version)
	h.recordDecision(c, session, path, policyDomain.ReadCapability, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretToGetResponse(secret))
}

// DeleteHandler soft deletes a secret version. Reversible via undelete.
// DELETE /v1/kv/*path?version=N - Requires delete capability on the path.
// Returns 204 No Content.
func (h *SecretHandler) DeleteHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	path, ok := h.extractPath(c)
	if !ok {
		return
	}

	version, ok := h.extractVersion(c)
	if !ok {
		return
	}

	err := h.kvUseCase.Delete(c.Request.Context(), session.Rules, path, version)
	h.recordDecision(c, session, path, policyDomain.DeleteCapability, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// UndeleteHandler restores a soft-deleted secret version.
// POST /v1/kv-undelete/*path?version=N - Requires update capability on the path.
// Returns 204 No Content.
func (h *SecretHandler) UndeleteHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	path, ok := h.extractPath(c)
	if !ok {
		return
	}

	version, ok := h.extractVersion(c)
	if !ok {
		return
	}

	err := h.kvUseCase.Undelete(c.Request.Context(), session.Rules, path, version)
	h.recordDecision(c, session, path, policyDomain.UpdateCapability, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// DestroyHandler irreversibly removes a secret version's ciphertext.
// POST /v1/kv-destroy/*path?version=N - Requires delete capability on the path.
// Returns 204 No Content.
func (h *SecretHandler) DestroyHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	path, ok := h.extractPath(c)
	if !ok {
		return
	}

	version, ok := h.extractVersion(c)
	if !ok {
		return
	}

	err := h.kvUseCase.Destroy(c.Request.Context(), session.Rules, path, version)
	h.recordDecision(c, session, path, policyDomain.DeleteCapability, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListHandler returns metadata for the latest version of each path under the
// prefix.
// GET /v1/kv-list?prefix=...&offset=0&limit=50 - Requires list capability on
// the prefix.
// Returns 200 OK with paginated metadata (no values).
func (h *SecretHandler) ListHandler(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	prefix := c.Query("prefix")
	if err := customValidation.SecretPath.Validate(prefix); err != nil {
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

	secrets, err := h.kvUseCase.List(c.Request.Context(), session.Rules, prefix, offset, limit)
	h.recordDecision(c, session, prefix, policyDomain.ListCapability, err)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.MapSecretsToListResponse(secrets, offset, limit))
}
