package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	identityDomain "github.com/pbarbosa/tenantvault/internal/identity/domain"
)

func setupBindingRouter(useCase *fakeIdentityUseCase) *gin.Engine {
	handler := NewBindingHandler(useCase, discardLogger())

	router := gin.New()
	router.POST("/v1/admin/bindings", handler.CreateHandler)
	router.GET("/v1/admin/bindings", handler.ListHandler)
	router.DELETE("/v1/admin/bindings/:id", handler.DeleteHandler)
	return router
}

func TestBindingHandler_Create(t *testing.T) {
	useCase := &fakeIdentityUseCase{
		binding: &identityDomain.Binding{
			ID:                  uuid.Must(uuid.NewV7()),
			Issuer:              "https://issuer.corp.example.com",
			DomainID:            "alpha",
			BoundAudiences:      []string{"tenantvault"},
			BoundSubjectPattern: "workload:alpha:api-*",
			CreatedAt:           time.Now().UTC(),
		},
	}
	router := setupBindingRouter(useCase)

	body := `{
		"issuer": "https://issuer.corp.example.com",
		"domain_id": "alpha",
		"bound_audiences": ["tenantvault"],
		"bound_subject_pattern": "workload:alpha:api-*"
	}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/bindings", strings.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response BindingResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "alpha", response.DomainID)
	assert.Equal(t, "workload:alpha:api-*", response.BoundSubjectPattern)
}

func TestBindingHandler_Create_InteriorWildcard(t *testing.T) {
	router := setupBindingRouter(&fakeIdentityUseCase{})

	body := `{
		"issuer": "https://issuer.corp.example.com",
		"domain_id": "alpha",
		"bound_audiences": ["tenantvault"],
		"bound_subject_pattern": "workload:*:api"
	}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/bindings", strings.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBindingHandler_Create_InvalidDomainID(t *testing.T) {
	router := setupBindingRouter(&fakeIdentityUseCase{})

	body := `{
		"issuer": "https://issuer.corp.example.com",
		"domain_id": "Alpha Team",
		"bound_audiences": ["tenantvault"],
		"bound_subject_pattern": "workload:alpha:api"
	}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/bindings", strings.NewReader(body))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBindingHandler_List(t *testing.T) {
	useCase := &fakeIdentityUseCase{
		bindings: []*identityDomain.Binding{
			{
				ID:                  uuid.Must(uuid.NewV7()),
				Issuer:              "https://issuer.corp.example.com",
				DomainID:            "alpha",
				BoundAudiences:      []string{"tenantvault"},
				BoundSubjectPattern: "workload:alpha:api",
			},
		},
	}
	router := setupBindingRouter(useCase)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/bindings?offset=0&limit=10", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Bindings []BindingResponse `json:"bindings"`
		Offset   int               `json:"offset"`
		Limit    int               `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Bindings, 1)
	assert.Equal(t, 10, response.Limit)
}

func TestBindingHandler_Delete(t *testing.T) {
	useCase := &fakeIdentityUseCase{}
	router := setupBindingRouter(useCase)

	bindingID := uuid.Must(uuid.NewV7())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/bindings/"+bindingID.String(), nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	require.Len(t, useCase.removedBindings, 1)
	assert.Equal(t, bindingID, useCase.removedBindings[0])
}

func TestBindingHandler_Delete_InvalidID(t *testing.T) {
	router := setupBindingRouter(&fakeIdentityUseCase{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/v1/admin/bindings/not-a-uuid", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
