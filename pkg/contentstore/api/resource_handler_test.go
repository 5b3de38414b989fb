package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attachkit/content-store/pkg/contentstore"
	"github.com/attachkit/content-store/pkg/contentstore/rendition"
	"github.com/attachkit/content-store/pkg/contentstore/repo/memory"
	searchmemory "github.com/attachkit/content-store/pkg/contentstore/search/memory"
	memorystorage "github.com/attachkit/content-store/pkg/contentstore/storage/memory"
)

// setupRouter builds the full API router on an in-memory service
func setupRouter(t *testing.T) (chi.Router, contentstore.Service) {
	t.Helper()

	service, err := contentstore.New(
		contentstore.WithRepository(memory.New()),
		contentstore.WithBlobStore("memory", memorystorage.New()),
		contentstore.WithSearchIndex(searchmemory.New()),
		contentstore.WithRenderers(rendition.Defaults()...),
	)
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Mount("/resources", NewResourceHandler(service).Routes())
	router.Mount("/entities", NewEntityHandler(service).Routes())
	router.Mount("/search", NewSearchHandler(service).Routes())
	return router, service
}

func createResourceViaAPI(t *testing.T, router chi.Router) ResourceResponse {
	t.Helper()

	reqBody := CreateResourceRequest{
		TenantID: uuid.New().String(),
		OwnerID:  uuid.New().String(),
		Name:     "test.txt",
		MimeType: "text/plain",
	}
	body, err := json.Marshal(reqBody)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/resources/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp ResourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCreateResource_Success(t *testing.T) {
	router, _ := setupRouter(t)

	resp := createResourceViaAPI(t, router)

	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "test.txt", resp.Name)
	assert.Equal(t, "text/plain", resp.MimeType)
	assert.Equal(t, "created", resp.Status)
	assert.Equal(t, "memory", resp.StorageBackendName)
}

func TestCreateResource_InvalidTenantID(t *testing.T) {
	router, _ := setupRouter(t)

	body := []byte(`{"tenant_id":"not-a-uuid","owner_id":"` + uuid.New().String() + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/resources/", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetResource_Success(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodGet, "/resources/"+created.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp ResourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, created.ID, resp.ID)
}

func TestGetResource_NotFound(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/resources/"+uuid.New().String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetResource_InvalidID(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/resources/not-a-uuid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteResource(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodDelete, "/resources/"+created.ID, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/resources/"+created.ID, nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListResources(t *testing.T) {
	router, svc := setupRouter(t)

	tenantID := uuid.New()
	for i := 0; i < 2; i++ {
		_, err := svc.CreateResource(context.Background(), contentstore.CreateResourceRequest{
			TenantID:           tenantID,
			OwnerID:            uuid.New(),
			StorageBackendName: "memory",
		})
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodGet, "/resources/?tenant_id="+tenantID.String(), nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []ResourceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 2)
}

func TestListResources_MissingTenantID(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/resources/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestContentRoundTrip(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	body := "uploaded through the api"
	req := httptest.NewRequest(http.MethodPut, "/resources/"+created.ID+"/content", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var setResp SetContentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &setResp))
	assert.Equal(t, int64(len(body)), setResp.BytesWritten)

	req = httptest.NewRequest(http.MethodGet, "/resources/"+created.ID+"/content", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, body, w.Body.String())
	assert.Equal(t, "text/plain", w.Header().Get("Content-Type"))
}

func TestGetContent_NotSet(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodGet, "/resources/"+created.ID+"/content", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestUnsetContent(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPut, "/resources/"+created.ID+"/content", strings.NewReader("bytes"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodDelete, "/resources/"+created.ID+"/content", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/resources/"+created.ID+"/content", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestSetResourceMetadata(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	body := []byte(`{"file_name":"renamed.txt","file_size":99,"tags":["a","b"]}`)
	req := httptest.NewRequest(http.MethodPut, "/resources/"+created.ID+"/metadata", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/resources/"+created.ID+"/metadata", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var meta contentstore.ResourceMetadata
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &meta))
	assert.Equal(t, "renamed.txt", meta.FileName)
	assert.Equal(t, int64(99), meta.SizeBytes)
	assert.Equal(t, []string{"a", "b"}, meta.Tags)
}

func TestGetRendition(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPut, "/resources/"+created.ID+"/content", strings.NewReader("a < b"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/resources/"+created.ID+"/renditions?mime="+"text%2Fhtml", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "a &lt; b")
}

func TestGetRendition_MissingMime(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodGet, "/resources/"+created.ID+"/renditions", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRendition_NoRenderer(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPut, "/resources/"+created.ID+"/content", strings.NewReader("bytes"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/resources/"+created.ID+"/renditions?mime=image%2Fpng", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotAcceptable, w.Code)
}

func TestSearchEndpoint(t *testing.T) {
	router, _ := setupRouter(t)
	created := createResourceViaAPI(t, router)

	req := httptest.NewRequest(http.MethodPut, "/resources/"+created.ID+"/content",
		strings.NewReader("findable body text"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/search/?q=findable", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp SearchResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.ResourceIDs, 1)
	assert.Equal(t, created.ID, resp.ResourceIDs[0])
}

func TestSearchEndpoint_MissingQuery(t *testing.T) {
	router, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/search/", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrStatusMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{contentstore.ErrResourceNotFound, http.StatusNotFound},
		{contentstore.ErrAssociationNotFound, http.StatusNotFound},
		{contentstore.ErrContentNotSet, http.StatusConflict},
		{contentstore.ErrNoRenderer, http.StatusNotAcceptable},
		{contentstore.ErrInvalidEntityRef, http.StatusBadRequest},
		{contentstore.ErrSearchNotConfigured, http.StatusNotImplemented},
		{fmt.Errorf("anything else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errStatus(tt.err), "error: %v", tt.err)
	}
}
