package contentstore

import "github.com/google/uuid"

// Request/Response DTOs

// CreateResourceRequest contains parameters for creating a new resource
type CreateResourceRequest struct {
	TenantID           uuid.UUID
	OwnerID            uuid.UUID
	Name               string
	MimeType           string
	StorageBackendName string
	ObjectKey          string
}

// ListResourcesRequest contains parameters for listing resources
type ListResourcesRequest struct {
	TenantID uuid.UUID
	OwnerID  uuid.UUID
}

// SetResourceMetadataRequest contains parameters for setting resource metadata
type SetResourceMetadataRequest struct {
	ResourceID     uuid.UUID
	FileName       string
	FileSize       int64
	MimeType       string
	Checksum       string
	Tags           []string
	CustomMetadata map[string]interface{}
}

// AssociateRequest contains parameters for associating a resource with an
// entity property path
type AssociateRequest struct {
	Ref        EntityRef
	ResourceID uuid.UUID
}

// SearchRequest contains parameters for a search query. Query is matched
// against indexed text and resource names; KeyPattern is a glob (doublestar
// syntax, e.g. "reports/**/*.txt") matched against object keys.
type SearchRequest struct {
	Query      string
	KeyPattern string
	Limit      int
}
