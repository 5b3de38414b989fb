package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// Repository implements contentstore.Repository using in-memory storage
type Repository struct {
	mu               sync.RWMutex
	resources        map[uuid.UUID]*contentstore.Resource
	resourceMetadata map[uuid.UUID]*contentstore.ResourceMetadata
	associations     map[string]*contentstore.Association  // entity key -> association
	renditions       map[uuid.UUID][]*contentstore.Rendition
}

// New creates a new in-memory repository
func New() contentstore.Repository {
	return &Repository{
		resources:        make(map[uuid.UUID]*contentstore.Resource),
		resourceMetadata: make(map[uuid.UUID]*contentstore.ResourceMetadata),
		associations:     make(map[string]*contentstore.Association),
		renditions:       make(map[uuid.UUID][]*contentstore.Rendition),
	}
}

func entityKey(entityType string, entityID uuid.UUID, propertyPath string) string {
	return fmt.Sprintf("%s:%s:%s", entityType, entityID, propertyPath)
}

// Resource operations

func (r *Repository) CreateResource(ctx context.Context, resource *contentstore.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Store a copy to avoid external modifications
	resourceCopy := *resource
	r.resources[resource.ID] = &resourceCopy

	return nil
}

func (r *Repository) GetResource(ctx context.Context, id uuid.UUID) (*contentstore.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	resource, exists := r.resources[id]
	if !exists {
		return nil, contentstore.ErrResourceNotFound
	}
	if resource.DeletedAt != nil {
		return nil, contentstore.ErrResourceNotFound
	}

	resourceCopy := *resource
	return &resourceCopy, nil
}

func (r *Repository) UpdateResource(ctx context.Context, resource *contentstore.Resource) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[resource.ID]; !exists {
		return contentstore.ErrResourceNotFound
	}

	resourceCopy := *resource
	r.resources[resource.ID] = &resourceCopy

	return nil
}

func (r *Repository) DeleteResource(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	resource, exists := r.resources[id]
	if !exists {
		return contentstore.ErrResourceNotFound
	}

	now := time.Now()
	resource.Status = string(contentstore.ResourceStatusDeleted)
	resource.DeletedAt = &now
	resource.UpdatedAt = now
	return nil
}

func (r *Repository) ListResources(ctx context.Context, filters contentstore.ResourceListFilters) ([]*contentstore.Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentstore.Resource
	for _, resource := range r.resources {
		if resource.DeletedAt != nil && !filters.IncludeDeleted {
			continue
		}
		if filters.TenantID != nil && resource.TenantID != *filters.TenantID {
			continue
		}
		if filters.OwnerID != nil && resource.OwnerID != *filters.OwnerID {
			continue
		}
		if filters.Status != nil && resource.Status != *filters.Status {
			continue
		}
		if filters.MimeType != nil && resource.MimeType != *filters.MimeType {
			continue
		}
		resourceCopy := *resource
		result = append(result, &resourceCopy)
	}

	// Sort by created_at descending
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	if filters.Offset != nil && *filters.Offset > 0 {
		if *filters.Offset >= len(result) {
			return []*contentstore.Resource{}, nil
		}
		result = result[*filters.Offset:]
	}
	if filters.Limit != nil && *filters.Limit > 0 && *filters.Limit < len(result) {
		result = result[:*filters.Limit]
	}

	return result, nil
}

// Resource metadata operations

func (r *Repository) SetResourceMetadata(ctx context.Context, metadata *contentstore.ResourceMetadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[metadata.ResourceID]; !exists {
		return contentstore.ErrResourceNotFound
	}

	metadataCopy := *metadata
	if metadataCopy.CreatedAt.IsZero() {
		metadataCopy.CreatedAt = time.Now()
	}
	metadataCopy.UpdatedAt = time.Now()

	r.resourceMetadata[metadata.ResourceID] = &metadataCopy

	return nil
}

func (r *Repository) GetResourceMetadata(ctx context.Context, resourceID uuid.UUID) (*contentstore.ResourceMetadata, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata, exists := r.resourceMetadata[resourceID]
	if !exists {
		return nil, fmt.Errorf("resource metadata not found for resource %s", resourceID)
	}

	metadataCopy := *metadata
	return &metadataCopy, nil
}

// Association operations

func (r *Repository) CreateAssociation(ctx context.Context, assoc *contentstore.Association) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[assoc.ResourceID]; !exists {
		return contentstore.ErrResourceNotFound
	}

	// Upsert on the entity property path: the previous association for the
	// path, if any, is replaced.
	key := entityKey(assoc.EntityType, assoc.EntityID, assoc.PropertyPath)
	assocCopy := *assoc
	if existing, exists := r.associations[key]; exists {
		assocCopy.ID = existing.ID
		assocCopy.CreatedAt = existing.CreatedAt
	}
	r.associations[key] = &assocCopy

	// Reflect the upsert back to the caller.
	*assoc = assocCopy

	return nil
}

func (r *Repository) GetAssociationByEntity(ctx context.Context, ref contentstore.EntityRef) (*contentstore.Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	assoc, exists := r.associations[entityKey(ref.EntityType, ref.EntityID, ref.PropertyPath)]
	if !exists {
		return nil, contentstore.ErrAssociationNotFound
	}

	assocCopy := *assoc
	return &assocCopy, nil
}

func (r *Repository) ListAssociationsByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*contentstore.Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentstore.Association
	for _, assoc := range r.associations {
		if assoc.EntityType == entityType && assoc.EntityID == entityID {
			assocCopy := *assoc
			result = append(result, &assocCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PropertyPath < result[j].PropertyPath
	})

	return result, nil
}

func (r *Repository) ListAssociationsByResource(ctx context.Context, resourceID uuid.UUID) ([]*contentstore.Association, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentstore.Association
	for _, assoc := range r.associations {
		if assoc.ResourceID == resourceID {
			assocCopy := *assoc
			result = append(result, &assocCopy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].PropertyPath < result[j].PropertyPath
	})

	return result, nil
}

func (r *Repository) DeleteAssociation(ctx context.Context, ref contentstore.EntityRef) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := entityKey(ref.EntityType, ref.EntityID, ref.PropertyPath)
	if _, exists := r.associations[key]; !exists {
		return contentstore.ErrAssociationNotFound
	}

	delete(r.associations, key)
	return nil
}

func (r *Repository) DeleteAssociationsByResource(ctx context.Context, resourceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for key, assoc := range r.associations {
		if assoc.ResourceID == resourceID {
			delete(r.associations, key)
		}
	}
	return nil
}

// Rendition operations

func (r *Repository) CreateRendition(ctx context.Context, rendition *contentstore.Rendition) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.resources[rendition.ResourceID]; !exists {
		return contentstore.ErrResourceNotFound
	}

	// Upsert on the target mime type: re-rendering replaces the stale record
	// instead of accumulating duplicates.
	renditionCopy := *rendition
	list := r.renditions[rendition.ResourceID]
	for i, existing := range list {
		if existing.TargetMime == rendition.TargetMime {
			renditionCopy.ID = existing.ID
			renditionCopy.CreatedAt = existing.CreatedAt
			list[i] = &renditionCopy
			*rendition = renditionCopy
			return nil
		}
	}
	r.renditions[rendition.ResourceID] = append(list, &renditionCopy)

	return nil
}

func (r *Repository) GetRendition(ctx context.Context, resourceID uuid.UUID, targetMime string) (*contentstore.Rendition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rendition := range r.renditions[resourceID] {
		if rendition.TargetMime == targetMime {
			renditionCopy := *rendition
			return &renditionCopy, nil
		}
	}

	return nil, contentstore.ErrRenditionNotFound
}

func (r *Repository) ListRenditions(ctx context.Context, resourceID uuid.UUID) ([]*contentstore.Rendition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*contentstore.Rendition
	for _, rendition := range r.renditions[resourceID] {
		renditionCopy := *rendition
		result = append(result, &renditionCopy)
	}
	return result, nil
}

func (r *Repository) DeleteRenditions(ctx context.Context, resourceID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.renditions, resourceID)
	return nil
}
