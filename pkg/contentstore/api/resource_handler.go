package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// DefaultStorageBackend is used when a create request does not name one.
const DefaultStorageBackend = "memory"

// ResourceHandler handles HTTP requests for resources and their content
type ResourceHandler struct {
	service contentstore.Service
}

// NewResourceHandler creates a new resource handler
func NewResourceHandler(service contentstore.Service) *ResourceHandler {
	return &ResourceHandler{service: service}
}

// Routes returns the routes for resources
func (h *ResourceHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateResource)
	r.Get("/", h.ListResources)
	r.Get("/{id}", h.GetResource)
	r.Delete("/{id}", h.DeleteResource)

	r.Put("/{id}/metadata", h.SetResourceMetadata)
	r.Get("/{id}/metadata", h.GetResourceMetadata)

	r.Put("/{id}/content", h.SetContent)
	r.Get("/{id}/content", h.GetContent)
	r.Delete("/{id}/content", h.UnsetContent)

	r.Get("/{id}/renditions", h.GetRendition)

	return r
}

// CreateResourceRequest is the request body for creating a resource
type CreateResourceRequest struct {
	TenantID           string `json:"tenant_id"`
	OwnerID            string `json:"owner_id"`
	Name               string `json:"name"`
	MimeType           string `json:"mime_type"`
	StorageBackendName string `json:"storage_backend_name"`
}

// ResourceResponse is the response body for a resource
type ResourceResponse struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenant_id"`
	OwnerID            string    `json:"owner_id"`
	Name               string    `json:"name,omitempty"`
	MimeType           string    `json:"mime_type,omitempty"`
	StorageBackendName string    `json:"storage_backend_name"`
	ObjectKey          string    `json:"object_key"`
	Status             string    `json:"status"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func toResourceResponse(res *contentstore.Resource) ResourceResponse {
	return ResourceResponse{
		ID:                 res.ID.String(),
		TenantID:           res.TenantID.String(),
		OwnerID:            res.OwnerID.String(),
		Name:               res.Name,
		MimeType:           res.MimeType,
		StorageBackendName: res.StorageBackendName,
		ObjectKey:          res.ObjectKey,
		Status:             res.Status,
		CreatedAt:          res.CreatedAt,
		UpdatedAt:          res.UpdatedAt,
	}
}

// errStatus maps service errors to HTTP status codes
func errStatus(err error) int {
	switch {
	case errors.Is(err, contentstore.ErrResourceNotFound),
		errors.Is(err, contentstore.ErrAssociationNotFound),
		errors.Is(err, contentstore.ErrRenditionNotFound):
		return http.StatusNotFound
	case errors.Is(err, contentstore.ErrContentNotSet):
		return http.StatusConflict
	case errors.Is(err, contentstore.ErrNoRenderer):
		return http.StatusNotAcceptable
	case errors.Is(err, contentstore.ErrInvalidEntityRef):
		return http.StatusBadRequest
	case errors.Is(err, contentstore.ErrSearchNotConfigured):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// CreateResource creates a new resource handle. No content bytes are
// written; the resource starts in status "created".
func (h *ResourceHandler) CreateResource(w http.ResponseWriter, r *http.Request) {
	var req CreateResourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tenantID, err := uuid.Parse(req.TenantID)
	if err != nil {
		slog.Error("Invalid tenant ID", "tenant_id", req.TenantID, "error", err)
		http.Error(w, "Invalid tenant ID", http.StatusBadRequest)
		return
	}

	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		slog.Error("Invalid owner ID", "owner_id", req.OwnerID, "error", err)
		http.Error(w, "Invalid owner ID", http.StatusBadRequest)
		return
	}

	backend := req.StorageBackendName
	if backend == "" {
		backend = DefaultStorageBackend
	}

	resource, err := h.service.CreateResource(r.Context(), contentstore.CreateResourceRequest{
		TenantID:           tenantID,
		OwnerID:            ownerID,
		Name:               req.Name,
		MimeType:           req.MimeType,
		StorageBackendName: backend,
	})
	if err != nil {
		slog.Error("Failed to create resource", "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	slog.Info("Resource created", "resource_id", resource.ID.String())
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, toResourceResponse(resource))
}

// GetResource retrieves a resource by ID
func (h *ResourceHandler) GetResource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	resource, err := h.service.GetResource(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get resource", "resource_id", id.String(), "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	render.JSON(w, r, toResourceResponse(resource))
}

// ListResources lists resources for a tenant, optionally filtered by owner
func (h *ResourceHandler) ListResources(w http.ResponseWriter, r *http.Request) {
	tenantStr := r.URL.Query().Get("tenant_id")
	tenantID, err := uuid.Parse(tenantStr)
	if err != nil {
		http.Error(w, "Invalid or missing tenant_id", http.StatusBadRequest)
		return
	}

	var ownerID uuid.UUID
	if ownerStr := r.URL.Query().Get("owner_id"); ownerStr != "" {
		ownerID, err = uuid.Parse(ownerStr)
		if err != nil {
			http.Error(w, "Invalid owner_id", http.StatusBadRequest)
			return
		}
	}

	resources, err := h.service.ListResources(r.Context(), contentstore.ListResourcesRequest{
		TenantID: tenantID,
		OwnerID:  ownerID,
	})
	if err != nil {
		slog.Error("Failed to list resources", "tenant_id", tenantStr, "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	resp := make([]ResourceResponse, 0, len(resources))
	for _, res := range resources {
		resp = append(resp, toResourceResponse(res))
	}
	render.JSON(w, r, resp)
}

// DeleteResource deletes a resource, its content and its renditions
func (h *ResourceHandler) DeleteResource(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteResource(r.Context(), id); err != nil {
		slog.Error("Failed to delete resource", "resource_id", id.String(), "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	slog.Info("Resource deleted", "resource_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// SetResourceMetadataRequest is the request body for setting resource metadata
type SetResourceMetadataRequest struct {
	FileName       string                 `json:"file_name,omitempty"`
	FileSize       int64                  `json:"file_size,omitempty"`
	MimeType       string                 `json:"mime_type,omitempty"`
	Checksum       string                 `json:"checksum,omitempty"`
	Tags           []string               `json:"tags,omitempty"`
	CustomMetadata map[string]interface{} `json:"metadata,omitempty"`
}

// SetResourceMetadata sets metadata for a resource
func (h *ResourceHandler) SetResourceMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req SetResourceMetadataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	err := h.service.SetResourceMetadata(r.Context(), contentstore.SetResourceMetadataRequest{
		ResourceID:     id,
		FileName:       req.FileName,
		FileSize:       req.FileSize,
		MimeType:       req.MimeType,
		Checksum:       req.Checksum,
		Tags:           req.Tags,
		CustomMetadata: req.CustomMetadata,
	})
	if err != nil {
		slog.Error("Failed to set resource metadata", "resource_id", id.String(), "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetResourceMetadata retrieves metadata for a resource
func (h *ResourceHandler) GetResourceMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	meta, err := h.service.GetResourceMetadata(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get resource metadata", "resource_id", id.String(), "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	render.JSON(w, r, meta)
}

// SetContentResponse is the response body after uploading content
type SetContentResponse struct {
	ResourceID   string `json:"resource_id"`
	BytesWritten int64  `json:"bytes_written"`
}

// SetContent uploads content bytes for a resource from the request body
func (h *ResourceHandler) SetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	written, err := h.service.SetContent(r.Context(), id, r.Body)
	if err != nil {
		slog.Error("Failed to set content", "resource_id", id.String(), "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	slog.Info("Content set", "resource_id", id.String(), "bytes", written)
	render.JSON(w, r, SetContentResponse{
		ResourceID:   id.String(),
		BytesWritten: written,
	})
}

// GetContent streams the resource's content bytes to the client
func (h *ResourceHandler) GetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	resource, err := h.service.GetResource(r.Context(), id)
	if err != nil {
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	rc, err := h.service.GetContent(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get content", "resource_id", id.String(), "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}
	defer rc.Close()

	if resource.MimeType != "" {
		w.Header().Set("Content-Type", resource.MimeType)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}

	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Failed to stream content", "resource_id", id.String(), "error", err)
	}
}

// UnsetContent removes content bytes but keeps the resource handle
func (h *ResourceHandler) UnsetContent(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.service.UnsetContent(r.Context(), id); err != nil {
		slog.Error("Failed to unset content", "resource_id", id.String(), "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	slog.Info("Content unset", "resource_id", id.String())
	w.WriteHeader(http.StatusNoContent)
}

// GetRendition returns the resource's content transformed to the mime type
// given in the "mime" query parameter.
func (h *ResourceHandler) GetRendition(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	targetMime := r.URL.Query().Get("mime")
	if targetMime == "" {
		http.Error(w, "Missing required 'mime' parameter", http.StatusBadRequest)
		return
	}

	rc, err := h.service.GetRendition(r.Context(), id, targetMime)
	if err != nil {
		slog.Error("Failed to get rendition", "resource_id", id.String(), "mime", targetMime, "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", targetMime)
	if _, err := io.Copy(w, rc); err != nil {
		slog.Error("Failed to stream rendition", "resource_id", id.String(), "error", err)
	}
}

// parseID parses the {id} URL parameter and writes a 400 on failure
func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		slog.Error("Invalid resource ID", "resource_id", idStr, "error", err)
		http.Error(w, "Invalid resource ID", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// parseLimit parses an optional integer query parameter
func parseLimit(r *http.Request, key string, defaultValue int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return defaultValue
	}
	if v, err := strconv.Atoi(raw); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
