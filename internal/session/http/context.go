// Package http provides HTTP middleware and handlers for session
// authentication and lifecycle.
package http

import (
	"context"

	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
)

// sessionKey is a context key type for storing authenticated sessions.
type sessionKey struct{}

// WithSession stores an authenticated session in the context.
// This is typically called by the authentication middleware after successful
// token validation.
func WithSession(ctx context.Context, session *sessionDomain.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, session)
}

// GetSession retrieves the authenticated session from the context.
// Returns (session, true) if a session is present, or (nil, false) if no
// session was set. Handlers use the session's frozen rule set for
// authorization and its domain for audit records.
func GetSession(ctx context.Context) (*sessionDomain.Session, bool) {
	session, ok := ctx.Value(sessionKey{}).(*sessionDomain.Session)
	return session, ok
}
