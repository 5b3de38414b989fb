package contentstore

import (
	"time"

	"github.com/google/uuid"
)

// ResourceStatus is the domain type for resource lifecycle states.
type ResourceStatus string

// Resource status constants (typed).
const (
	ResourceStatusCreated  ResourceStatus = "created"
	ResourceStatusUploaded ResourceStatus = "uploaded"
	ResourceStatusDeleted  ResourceStatus = "deleted"
)

// Resource is the handle a Store deals in: a logical piece of content that
// may or may not have bytes set yet. A resource with status "created" has a
// reserved identity and object key but no content.
type Resource struct {
	ID                 uuid.UUID  `json:"id"`
	TenantID           uuid.UUID  `json:"tenant_id"`
	OwnerID            uuid.UUID  `json:"owner_id"`
	Name               string     `json:"name,omitempty"`
	MimeType           string     `json:"mime_type,omitempty"`
	StorageBackendName string     `json:"storage_backend_name"`
	ObjectKey          string     `json:"object_key"`
	Status             string     `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
	DeletedAt          *time.Time `json:"deleted_at,omitempty"`
}

// ResourceMetadata holds extensible metadata for a resource. First-class
// fields are authoritative; the Metadata map carries free-form attributes.
type ResourceMetadata struct {
	ResourceID        uuid.UUID              `json:"resource_id"`
	FileName          string                 `json:"file_name,omitempty"`
	SizeBytes         int64                  `json:"size_bytes,omitempty"`
	MimeType          string                 `json:"mime_type"`
	ETag              string                 `json:"etag,omitempty"`
	Checksum          string                 `json:"checksum,omitempty"`
	ChecksumAlgorithm string                 `json:"checksum_algorithm,omitempty"`
	Tags              []string               `json:"tags,omitempty"`
	Metadata          map[string]interface{} `json:"metadata"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}

// EntityRef identifies a content property on a host entity: the entity's
// type and ID plus a dotted property path (e.g. "cover.image"). It is the
// explicit stand-in for what the host application would model as a field on
// its own domain type.
type EntityRef struct {
	EntityType   string    `json:"entity_type"`
	EntityID     uuid.UUID `json:"entity_id"`
	PropertyPath string    `json:"property_path"`
}

// Association links an entity property path to a resource. At most one
// association exists per (entity_type, entity_id, property_path).
type Association struct {
	ID           uuid.UUID `json:"id"`
	EntityType   string    `json:"entity_type"`
	EntityID     uuid.UUID `json:"entity_id"`
	PropertyPath string    `json:"property_path"`
	ResourceID   uuid.UUID `json:"resource_id"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Rendition records a transformed representation of a resource's content in
// a different mime type. The rendered bytes are cached under ObjectKey on the
// same backend as the source resource.
type Rendition struct {
	ID         uuid.UUID `json:"id"`
	ResourceID uuid.UUID `json:"resource_id"`
	SourceMime string    `json:"source_mime"`
	TargetMime string    `json:"target_mime"`
	ObjectKey  string    `json:"object_key"`
	SizeBytes  int64     `json:"size_bytes,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// ResourceListFilters defines filtering options for listing resources.
type ResourceListFilters struct {
	TenantID  *uuid.UUID
	OwnerID   *uuid.UUID
	Status    *string
	MimeType  *string
	Limit     *int
	Offset    *int
	IncludeDeleted bool
}
