package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
	sessionDomain "github.com/pbarbosa/tenantvault/internal/session/domain"
	sessionUseCase "github.com/pbarbosa/tenantvault/internal/session/usecase"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// discardLogger returns a logger that drops everything.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSessionUseCase is a hand-rolled fake for middleware and handler tests.
type fakeSessionUseCase struct {
	session  *sessionDomain.Session
	authErr  error
	renewErr error
	revoked  []uuid.UUID
}

func (f *fakeSessionUseCase) Issue(
	ctx context.Context,
	domainID string,
	rules policyDomain.RuleSet,
) (*sessionUseCase.IssueSessionOutput, error) {
	return nil, nil
}

func (f *fakeSessionUseCase) Authenticate(
	ctx context.Context,
	plainToken string,
) (*sessionDomain.Session, error) {
	if f.authErr != nil {
		return nil, f.authErr
	}
	return f.session, nil
}

func (f *fakeSessionUseCase) Renew(
	ctx context.Context,
	session *sessionDomain.Session,
) (*sessionDomain.Session, error) {
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	renewed := *session
	renewed.ExpiresAt = renewed.ExpiresAt.Add(time.Hour)
	renewed.RenewCount++
	return &renewed, nil
}

func (f *fakeSessionUseCase) Revoke(ctx context.Context, id uuid.UUID) error {
	f.revoked = append(f.revoked, id)
	return nil
}

func (f *fakeSessionUseCase) CleanExpired(
	ctx context.Context,
	retention time.Duration,
) (int64, error) {
	return 0, nil
}

// testSession builds a valid session for the alpha domain.
func testSession(rules policyDomain.RuleSet) *sessionDomain.Session {
	now := time.Now().UTC()
	return &sessionDomain.Session{
		ID:           uuid.Must(uuid.NewV7()),
		TokenHash:    "hash",
		DomainID:     "alpha",
		Rules:        rules,
		IssuedAt:     now,
		ExpiresAt:    now.Add(time.Hour),
		MaxExpiresAt: now.Add(24 * time.Hour),
	}
}

func TestAuthenticationMiddleware_MissingHeader(t *testing.T) {
	useCase := &fakeSessionUseCase{}
	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationMiddleware_MalformedHeader(t *testing.T) {
	useCase := &fakeSessionUseCase{}
	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationMiddleware_InvalidToken(t *testing.T) {
	useCase := &fakeSessionUseCase{authErr: sessionDomain.ErrAuthenticationFailed}
	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer bad-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticationMiddleware_StoresSession(t *testing.T) {
	session := testSession(policyDomain.RuleSet{
		{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.ReadCapability}},
	})
	useCase := &fakeSessionUseCase{session: session}

	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		got, ok := GetSession(c.Request.Context())
		require.True(t, ok)
		assert.Equal(t, session.ID, got.ID)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthenticationMiddleware_CaseInsensitiveBearer(t *testing.T) {
	session := testSession(nil)
	useCase := &fakeSessionUseCase{session: session}

	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "bearer good-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizationMiddleware_Allowed(t *testing.T) {
	session := testSession(policyDomain.RuleSet{
		{Path: "sys/domains", Capabilities: []policyDomain.Capability{policyDomain.ReadCapability}},
	})
	useCase := &fakeSessionUseCase{session: session}

	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.GET("/test",
		AuthorizationMiddleware("sys/domains", policyDomain.ReadCapability, discardLogger()),
		func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuthorizationMiddleware_Denied(t *testing.T) {
	session := testSession(policyDomain.RuleSet{
		{Path: "secret/alpha/*", Capabilities: []policyDomain.Capability{policyDomain.ReadCapability}},
	})
	useCase := &fakeSessionUseCase{session: session}

	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.GET("/test",
		AuthorizationMiddleware("sys/domains", policyDomain.ReadCapability, discardLogger()),
		func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRateLimitMiddleware_ExceedsLimit(t *testing.T) {
	session := testSession(nil)
	useCase := &fakeSessionUseCase{session: session}

	router := gin.New()
	router.Use(AuthenticationMiddleware(useCase, discardLogger()))
	router.Use(RateLimitMiddleware(1, 1, discardLogger()))
	router.GET("/test", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusOK, first.Code)

	second := httptest.NewRecorder()
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}
