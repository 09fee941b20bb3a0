package http

import (
	"context"
	"encoding/json"
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

	auditDomain "github.com/pbarbosa/tenantvault/internal/audit/domain"
	auditUseCase "github.com/pbarbosa/tenantvault/internal/audit/usecase"
	policyDomain "github.com/pbarbosa/tenantvault/internal/policy/domain"
)

// TestMain sets Gin to test mode for all tests in this package.
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

// fakeAuditUseCase returns canned decision logs and captures list filters.
type fakeAuditUseCase struct {
	entries []*auditDomain.DecisionLog

	lastDomainID string
	lastFrom     *time.Time
	lastTo       *time.Time
}

func (f *fakeAuditUseCase) Record(
	ctx context.Context,
	input auditUseCase.RecordDecisionInput,
) error {
	return nil
}

func (f *fakeAuditUseCase) List(
	ctx context.Context,
	domainID string,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.DecisionLog, error) {
	f.lastDomainID = domainID
	f.lastFrom = createdAtFrom
	f.lastTo = createdAtTo
	return f.entries, nil
}

func setupDecisionLogRouter(useCase *fakeAuditUseCase) *gin.Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewDecisionLogHandler(useCase, logger)

	router := gin.New()
	router.GET("/v1/admin/decision-logs", handler.ListHandler)
	return router
}

func testDecisionLog() *auditDomain.DecisionLog {
	return &auditDomain.DecisionLog{
		ID:         uuid.Must(uuid.NewV7()),
		RequestID:  uuid.Must(uuid.NewV7()),
		DomainID:   "alpha",
		Subject:    "session:0198b2c0-0000-7000-8000-000000000000",
		Path:       "secret/alpha/db",
		Capability: policyDomain.ReadCapability,
		Outcome:    auditDomain.AllowOutcome,
		CreatedAt:  time.Now().UTC(),
	}
}

func TestDecisionLogHandler_List(t *testing.T) {
	useCase := &fakeAuditUseCase{entries: []*auditDomain.DecisionLog{testDecisionLog()}}
	router := setupDecisionLogRouter(useCase)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/decision-logs?domain_id=alpha", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "alpha", useCase.lastDomainID)

	var response struct {
		DecisionLogs []DecisionLogResponse `json:"decision_logs"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.DecisionLogs, 1)
	assert.Equal(t, "allow", response.DecisionLogs[0].Outcome)
	assert.Equal(t, "read", response.DecisionLogs[0].Capability)
}

func TestDecisionLogHandler_List_TimeFilters(t *testing.T) {
	useCase := &fakeAuditUseCase{}
	router := setupDecisionLogRouter(useCase)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/admin/decision-logs?created_at_from=2026-08-01T00:00:00Z&created_at_to=2026-08-14T23:59:59Z",
		nil,
	)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, useCase.lastFrom)
	require.NotNil(t, useCase.lastTo)
	assert.Equal(t, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC), *useCase.lastFrom)
}

func TestDecisionLogHandler_List_InvalidTimeFormat(t *testing.T) {
	router := setupDecisionLogRouter(&fakeAuditUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/admin/decision-logs?created_at_from=yesterday",
		nil,
	)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestDecisionLogHandler_List_FromAfterTo(t *testing.T) {
	router := setupDecisionLogRouter(&fakeAuditUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(
		http.MethodGet,
		"/v1/admin/decision-logs?created_at_from=2026-08-14T00:00:00Z&created_at_to=2026-08-01T00:00:00Z",
		nil,
	)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
