package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func associateViaAPI(t *testing.T, router chi.Router, entityType string, entityID uuid.UUID, path, resourceID string) AssociationResponse {
	t.Helper()

	body, err := json.Marshal(AssociateRequest{ResourceID: resourceID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut,
		"/entities/"+entityType+"/"+entityID.String()+"/"+path, bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp AssociationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestAssociateAndResolve(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	entityID := uuid.New()
	assoc := associateViaAPI(t, router, "book", entityID, "cover", created.ID)

	assert.Equal(t, "book", assoc.EntityType)
	assert.Equal(t, entityID.String(), assoc.EntityID)
	assert.Equal(t, "cover", assoc.PropertyPath)
	assert.Equal(t, created.ID, assoc.ResourceID)

	req := httptest.NewRequest(http.MethodGet,
		"/entities/book/"+entityID.String()+"/cover", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resolved ResourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resolved))
	assert.Equal(t, created.ID, resolved.ID)
}

func TestAssociate_InvalidResourceID(t *testing.T) {
	router, _ := setupRouter(t)

	body := []byte(`{"resource_id":"not-a-uuid"}`)
	req := httptest.NewRequest(http.MethodPut,
		"/entities/book/"+uuid.New().String()+"/cover", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAssociate_ResourceNotFound(t *testing.T) {
	router, _ := setupRouter(t)

	body, err := json.Marshal(AssociateRequest{ResourceID: uuid.New().String()})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut,
		"/entities/book/"+uuid.New().String()+"/cover", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAssociate_InvalidEntityID(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	body, err := json.Marshal(AssociateRequest{ResourceID: created.ID})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPut,
		"/entities/book/not-a-uuid/cover", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestResolve_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet,
		"/entities/book/"+uuid.New().String()+"/cover", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUnassociate(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	entityID := uuid.New()
	associateViaAPI(t, router, "book", entityID, "cover", created.ID)

	req := httptest.NewRequest(http.MethodDelete,
		"/entities/book/"+entityID.String()+"/cover", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet,
		"/entities/book/"+entityID.String()+"/cover", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// The resource itself survives.
	req = httptest.NewRequest(http.MethodGet, "/resources/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListAssociations(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	entityID := uuid.New()
	associateViaAPI(t, router, "book", entityID, "cover", created.ID)
	associateViaAPI(t, router, "book", entityID, "attachment", created.ID)

	req := httptest.NewRequest(http.MethodGet, "/entities/book/"+entityID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp []AssociationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestAssociate_DottedPropertyPath(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	entityID := uuid.New()
	assoc := associateViaAPI(t, router, "book", entityID, "cover.image", created.ID)
	assert.Equal(t, "cover.image", assoc.PropertyPath)
}
