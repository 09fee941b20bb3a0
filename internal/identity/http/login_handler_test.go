package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
	identityUseCase "github.com/pbarbosa/tenantvault/internal/identity/usecase"
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

// fakeIdentityUseCase is a hand-rolled fake for handler tests.
type fakeIdentityUseCase struct {
	loginOutput  *identityUseCase.LoginOutput
	loginErr     error
	trustDomain  *identityDomain.TrustDomain
	trustDomains []*identityDomain.TrustDomain
	binding      *identityDomain.Binding
	bindings     []*identityDomain.Binding
	err          error

	removedIssuers  []string
	removedBindings []uuid.UUID
}

func (f *fakeIdentityUseCase) Login(
	ctx context.Context,
	input identityUseCase.LoginInput,
) (*identityUseCase.LoginOutput, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return f.loginOutput, nil
}

func (f *fakeIdentityUseCase) RegisterTrustDomain(
	ctx context.Context,
	input identityUseCase.RegisterTrustDomainInput,
) (*identityDomain.TrustDomain, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.trustDomain, nil
}

func (f *fakeIdentityUseCase) RemoveTrustDomain(ctx context.Context, issuer string) error {
	f.removedIssuers = append(f.removedIssuers, issuer)
	return f.err
}

func (f *fakeIdentityUseCase) ListTrustDomains(
	ctx context.Context,
) ([]*identityDomain.TrustDomain, error) {
	return f.trustDomains, f.err
}

func (f *fakeIdentityUseCase) RegisterBinding(
	ctx context.Context,
	input identityUseCase.RegisterBindingInput,
) (*identityDomain.Binding, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.binding, nil
}

func (f *fakeIdentityUseCase) RemoveBinding(ctx context.Context, id uuid.UUID) error {
	f.removedBindings = append(f.removedBindings, id)
	return f.err
}

func (f *fakeIdentityUseCase) ListBindings(
	ctx context.Context,
	offset, limit int,
) ([]*identityDomain.Binding, error) {
	return f.bindings, f.err
}

// fakeAuditUseCase captures recorded decisions.
type fakeAuditUseCase struct {
	records []auditUseCase.RecordDecisionInput
}

func (f *fakeAuditUseCase) Record(
	ctx context.Context,
	input auditUseCase.RecordDecisionInput,
) error {
	f.records = append(f.records, input)
	return nil
}

func (f *fakeAuditUseCase) List(
	ctx context.Context,
	domainID string,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.DecisionLog, error) {
	return nil, nil
}

func setupLoginRouter(useCase *fakeIdentityUseCase, audit *fakeAuditUseCase) *gin.Engine {
	handler := NewLoginHandler(useCase, audit, discardLogger())

	router := gin.New()
	router.POST("/v1/login", handler.LoginHandler)
	return router
}

func TestLoginHandler_Success(t *testing.T) {
	expiresAt := time.Now().UTC().Add(time.Hour)
	useCase := &fakeIdentityUseCase{
		loginOutput: &identityUseCase.LoginOutput{
			Token:     "tv_token",
			ExpiresAt: expiresAt,
			DomainID:  "alpha",
			Subject:   "system:serviceaccount:alpha:api",
		},
	}
	audit := &fakeAuditUseCase{}
	router := setupLoginRouter(useCase, audit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/login",
		strings.NewReader(`{"assertion":"header.payload.signature"}`),
	)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "tv_token", response.Token)
	assert.Equal(t, "alpha", response.DomainID)

	require.Len(t, audit.records, 1)
	assert.Equal(t, "allow", string(audit.records[0].Outcome))
	assert.Equal(t, "alpha", audit.records[0].DomainID)
	assert.Equal(t, "system:serviceaccount:alpha:api", audit.records[0].Subject)
}

func TestLoginHandler_MissingAssertion(t *testing.T) {
	audit := &fakeAuditUseCase{}
	router := setupLoginRouter(&fakeIdentityUseCase{}, audit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(`{}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, audit.records)
}

func TestLoginHandler_VerificationFailure(t *testing.T) {
	useCase := &fakeIdentityUseCase{loginErr: identityDomain.ErrInvalidSignature}
	router := setupLoginRouter(useCase, &fakeAuditUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/login",
		strings.NewReader(`{"assertion":"bad"}`),
	)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginHandler_RejectedLoginRecordsDecision(t *testing.T) {
	useCase := &fakeIdentityUseCase{loginErr: identityDomain.ErrNoMatchingBinding}
	audit := &fakeAuditUseCase{}
	router := setupLoginRouter(useCase, audit)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodPost,
		"/v1/login",
		strings.NewReader(`{"assertion":"header.payload.signature"}`),
	)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)

	require.Len(t, audit.records, 1)
	assert.Equal(t, "deny", string(audit.records[0].Outcome))
	assert.Equal(t, "login", audit.records[0].Path)
	assert.Empty(t, audit.records[0].DomainID)
}

func TestLoginRateLimitMiddleware_ExceedsLimit(t *testing.T) {
	useCase := &fakeIdentityUseCase{
		loginOutput: &identityUseCase.LoginOutput{Token: "tv_token", DomainID: "alpha"},
	}
	handler := NewLoginHandler(useCase, &fakeAuditUseCase{}, discardLogger())

	router := gin.New()
	router.POST("/v1/login",
		LoginRateLimitMiddleware(1, 1, discardLogger()),
		handler.LoginHandler)

	body := `{"assertion":"header.payload.signature"}`

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(body))
	router.ServeHTTP(first, req)
	assert.Equal(t, http.StatusCreated, first.Code)

	second := httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/login", strings.NewReader(body))
	router.ServeHTTP(second, req)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}
