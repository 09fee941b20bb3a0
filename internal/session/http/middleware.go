package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/pbarbosa/tenantvault/internal/errors"
	"github.com/pbarbosa/tenantvault/internal/httputil"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionUseCase "github.com/pbarbosa/tenantvault/internal/session/usecase"
)

// AuthenticationMiddleware resolves the Bearer token in the Authorization
// header to a session and stores it in the request context.
//
// Authorization header format: "Bearer <token>" (case-insensitive "bearer").
//
// Error handling:
//   - Missing or malformed Authorization header -> 401 Unauthorized
//   - Unknown, expired or revoked token -> 401 Unauthorized
//   - Other errors -> 500 Internal Server Error
func AuthenticationMiddleware(
	useCase sessionUseCase.SessionUseCase,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainToken := authHeader[len(bearerPrefix):]
		if plainToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		session, err := useCase.Authenticate(c.Request.Context(), plainToken)
		if err != nil {
			logger.Debug("authentication failed",
				slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithSession(c.Request.Context(), session)
		c.Request = c.Request.WithContext(ctx)

		logger.Debug("authentication successful",
			slog.String("session_id", session.ID.String()),
			slog.String("domain_id", session.DomainID))

		c.Next()
	}
}

// AuthorizationMiddleware gates a route on a capability for a fixed resource
// path. Used for administrative endpoints whose resource is known at route
// registration time, e.g. "sys/domains". Data-plane endpoints skip this
// middleware; their use cases check the literal secret or credential path
// themselves.
//
// MUST be used after AuthenticationMiddleware.
func AuthorizationMiddleware(
	resource string,
	capability policyDomain.Capability,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, ok := GetSession(c.Request.Context())
		if !ok || session == nil {
			logger.Debug("authorization failed: no authenticated session in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !session.Allows(resource, capability) {
			logger.Debug("authorization failed: insufficient permissions",
				slog.String("session_id", session.ID.String()),
				slog.String("domain_id", session.DomainID),
				slog.String("resource", resource),
				slog.String("capability", string(capability)))
			httputil.HandleErrorGin(c, apperrors.ErrPermissionDenied, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
