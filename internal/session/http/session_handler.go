package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	"github.com/pbarbosa/tenantvault/internal/httputil"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
	sessionUseCase "github.com/pbarbosa/tenantvault/internal/session/usecase"
)

// SessionHandler handles HTTP requests for session lifecycle operations on
// the caller's own session.
type SessionHandler struct {
	sessionUseCase sessionUseCase.SessionUseCase
	logger         *slog.Logger
}

// NewSessionHandler creates a new session handler with required dependencies.
func NewSessionHandler(
	useCase sessionUseCase.SessionUseCase,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		sessionUseCase: useCase,
		logger:         logger,
	}
}

// SessionResponse represents a session in API responses. The token itself is
// never echoed back.
type SessionResponse struct {
	ID           string    `json:"id"`
	DomainID     string    `json:"domain_id"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	MaxExpiresAt time.Time `json:"max_expires_at"`
	RenewCount   int       `json:"renew_count"`
}

// mapSessionToResponse converts a domain session to an API response.
func mapSessionToResponse(session *sessionDomain.Session) SessionResponse {
	return SessionResponse{
		ID:           session.ID.String(),
		DomainID:     session.DomainID,
		IssuedAt:     session.IssuedAt,
		ExpiresAt:    session.ExpiresAt,
		MaxExpiresAt: session.MaxExpiresAt,
		RenewCount:   session.RenewCount,
	}
}

// RenewHandler extends the caller's session by the configured ttl, bounded
// by the session's maximum lifetime.
// POST /v1/session/renew
// Returns 200 OK with the updated session metadata.
func (h *SessionHandler) RenewHandler(c *gin.Context) {
	session, ok := GetSession(c.Request.Context())
	if !ok || session == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	renewed, err := h.sessionUseCase.Renew(c.Request.Context(), session)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapSessionToResponse(renewed))
}

// RevokeHandler invalidates the caller's session immediately. Idempotent.
// POST /v1/session/revoke
// Returns 204 No Content.
func (h *SessionHandler) RevokeHandler(c *gin.Context) {
	session, ok := GetSession(c.Request.Context())
	if !ok || session == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	if err := h.sessionUseCase.Revoke(c.Request.Context(), session.ID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.Data(http.StatusNoContent, "application/json", nil)
}

// GetHandler returns the caller's own session metadata.
// GET /v1/session
// Returns 200 OK.
func (h *SessionHandler) GetHandler(c *gin.Context) {
	session, ok := GetSession(c.Request.Context())
	if !ok || session == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	c.JSON(http.StatusOK, mapSessionToResponse(session))
}
