package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// EntityHandler handles HTTP requests for entity-to-resource associations
type EntityHandler struct {
	service contentstore.Service
}

// NewEntityHandler creates a new entity handler
func NewEntityHandler(service contentstore.Service) *EntityHandler {
	return &EntityHandler{service: service}
}

// Routes returns the routes for entity associations. The property path is a
// single URL segment; dotted paths (e.g. "cover.image") fit in one segment.
func (h *EntityHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/{entityType}/{entityID}", h.ListAssociations)
	r.Put("/{entityType}/{entityID}/{propertyPath}", h.Associate)
	r.Get("/{entityType}/{entityID}/{propertyPath}", h.ResolveResource)
	r.Delete("/{entityType}/{entityID}/{propertyPath}", h.Unassociate)

	return r
}

// AssociateRequest is the request body for associating a resource
type AssociateRequest struct {
	ResourceID string `json:"resource_id"`
}

// AssociationResponse is the response body for an association
type AssociationResponse struct {
	ID           string    `json:"id"`
	EntityType   string    `json:"entity_type"`
	EntityID     string    `json:"entity_id"`
	PropertyPath string    `json:"property_path"`
	ResourceID   string    `json:"resource_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func toAssociationResponse(assoc *contentstore.Association) AssociationResponse {
	return AssociationResponse{
		ID:           assoc.ID.String(),
		EntityType:   assoc.EntityType,
		EntityID:     assoc.EntityID.String(),
		PropertyPath: assoc.PropertyPath,
		ResourceID:   assoc.ResourceID.String(),
		CreatedAt:    assoc.CreatedAt,
		UpdatedAt:    assoc.UpdatedAt,
	}
}

// Associate links the resource named in the body to the entity property
// path in the URL. An existing association for the same path is replaced.
func (h *EntityHandler) Associate(w http.ResponseWriter, r *http.Request) {
	ref, ok := parseEntityRef(w, r)
	if !ok {
		return
	}

	var req AssociateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	resourceID, err := uuid.Parse(req.ResourceID)
	if err != nil {
		slog.Error("Invalid resource ID", "resource_id", req.ResourceID, "error", err)
		http.Error(w, "Invalid resource ID", http.StatusBadRequest)
		return
	}

	assoc, err := h.service.Associate(r.Context(), contentstore.AssociateRequest{
		Ref:        ref,
		ResourceID: resourceID,
	})
	if err != nil {
		slog.Error("Failed to associate resource", "resource_id", req.ResourceID, "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	slog.Info("Resource associated",
		"entity_type", ref.EntityType, "entity_id", ref.EntityID.String(),
		"property_path", ref.PropertyPath, "resource_id", req.ResourceID)
	render.JSON(w, r, toAssociationResponse(assoc))
}

// ResolveResource returns the resource associated with the entity property
// path in the URL.
func (h *EntityHandler) ResolveResource(w http.ResponseWriter, r *http.Request) {
	ref, ok := parseEntityRef(w, r)
	if !ok {
		return
	}

	resource, err := h.service.ResourceForEntity(r.Context(), ref)
	if err != nil {
		slog.Error("Failed to resolve resource for entity",
			"entity_type", ref.EntityType, "entity_id", ref.EntityID.String(),
			"property_path", ref.PropertyPath, "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	render.JSON(w, r, toResourceResponse(resource))
}

// Unassociate removes the association for the entity property path. The
// resource itself is not deleted.
func (h *EntityHandler) Unassociate(w http.ResponseWriter, r *http.Request) {
	ref, ok := parseEntityRef(w, r)
	if !ok {
		return
	}

	if err := h.service.Unassociate(r.Context(), ref); err != nil {
		slog.Error("Failed to unassociate resource",
			"entity_type", ref.EntityType, "entity_id", ref.EntityID.String(),
			"property_path", ref.PropertyPath, "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	slog.Info("Resource unassociated",
		"entity_type", ref.EntityType, "entity_id", ref.EntityID.String(),
		"property_path", ref.PropertyPath)
	w.WriteHeader(http.StatusNoContent)
}

// ListAssociations lists all associations for an entity
func (h *EntityHandler) ListAssociations(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")
	entityIDStr := chi.URLParam(r, "entityID")
	entityID, err := uuid.Parse(entityIDStr)
	if err != nil {
		http.Error(w, "Invalid entity ID", http.StatusBadRequest)
		return
	}

	assocs, err := h.service.ListAssociations(r.Context(), entityType, entityID)
	if err != nil {
		slog.Error("Failed to list associations", "entity_type", entityType, "entity_id", entityIDStr, "error", err)
		http.Error(w, err.Error(), errStatus(err))
		return
	}

	resp := make([]AssociationResponse, 0, len(assocs))
	for _, assoc := range assocs {
		resp = append(resp, toAssociationResponse(assoc))
	}
	render.JSON(w, r, resp)
}

// parseEntityRef extracts an EntityRef from the URL and writes a 400 on
// failure
func parseEntityRef(w http.ResponseWriter, r *http.Request) (contentstore.EntityRef, bool) {
	entityType := chi.URLParam(r, "entityType")
	entityIDStr := chi.URLParam(r, "entityID")
	propertyPath := chi.URLParam(r, "propertyPath")

	entityID, err := uuid.Parse(entityIDStr)
	if err != nil {
		slog.Error("Invalid entity ID", "entity_id", entityIDStr, "error", err)
		http.Error(w, "Invalid entity ID", http.StatusBadRequest)
		return contentstore.EntityRef{}, false
	}

	return contentstore.EntityRef{
		EntityType:   entityType,
		EntityID:     entityID,
		PropertyPath: propertyPath,
	}, true
}
