package contentstore

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// BlobStore defines the interface for storage backends
type BlobStore interface {
	// Upload uploads content directly
	Upload(ctx context.Context, objectKey string, reader io.Reader) error

	// UploadWithParams uploads content with additional parameters
	UploadWithParams(ctx context.Context, reader io.Reader, params UploadParams) error

	// Download downloads content directly
	Download(ctx context.Context, objectKey string) (io.ReadCloser, error)

	// Delete deletes content
	Delete(ctx context.Context, objectKey string) error

	// GetObjectMeta retrieves metadata for a stored object
	GetObjectMeta(ctx context.Context, objectKey string) (*ObjectMeta, error)

	// GetDownloadURL returns a URL for downloading content, where the
	// backend supports URL access
	GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error)

	// GetUploadURL returns a URL for uploading content, where the backend
	// supports URL access
	GetUploadURL(ctx context.Context, objectKey string) (string, error)
}

// ObjectMeta contains metadata about an object in storage
type ObjectMeta struct {
	Key         string
	Size        int64
	ContentType string
	UpdatedAt   time.Time
	ETag        string
	Metadata    map[string]string
}

// UploadParams contains parameters for uploading an object
type UploadParams struct {
	ObjectKey string
	MimeType  string
}

// Repository defines the interface for resource, association and rendition
// persistence
type Repository interface {
	// Resource operations
	CreateResource(ctx context.Context, resource *Resource) error
	GetResource(ctx context.Context, id uuid.UUID) (*Resource, error)
	UpdateResource(ctx context.Context, resource *Resource) error
	DeleteResource(ctx context.Context, id uuid.UUID) error
	ListResources(ctx context.Context, filters ResourceListFilters) ([]*Resource, error)

	// Resource metadata operations
	SetResourceMetadata(ctx context.Context, metadata *ResourceMetadata) error
	GetResourceMetadata(ctx context.Context, resourceID uuid.UUID) (*ResourceMetadata, error)

	// Association operations
	CreateAssociation(ctx context.Context, assoc *Association) error
	GetAssociationByEntity(ctx context.Context, ref EntityRef) (*Association, error)
	ListAssociationsByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*Association, error)
	ListAssociationsByResource(ctx context.Context, resourceID uuid.UUID) ([]*Association, error)
	DeleteAssociation(ctx context.Context, ref EntityRef) error
	DeleteAssociationsByResource(ctx context.Context, resourceID uuid.UUID) error

	// Rendition operations
	CreateRendition(ctx context.Context, rendition *Rendition) error
	GetRendition(ctx context.Context, resourceID uuid.UUID, targetMime string) (*Rendition, error)
	ListRenditions(ctx context.Context, resourceID uuid.UUID) ([]*Rendition, error)
	DeleteRenditions(ctx context.Context, resourceID uuid.UUID) error
}

// SearchIndex defines the interface for full-text search over resource
// content and names
type SearchIndex interface {
	// Index adds or replaces the indexed document for a resource
	Index(ctx context.Context, entry IndexEntry) error

	// Remove drops a resource from the index
	Remove(ctx context.Context, resourceID uuid.UUID) error

	// Search returns IDs of resources matching the request
	Search(ctx context.Context, req SearchRequest) ([]uuid.UUID, error)
}

// IndexEntry is the unit handed to a SearchIndex
type IndexEntry struct {
	ResourceID uuid.UUID
	Name       string
	ObjectKey  string
	MimeType   string
	Text       string
}

// Renderer converts content from one mime type to another. Implementations
// are registered with the rendition registry keyed by source pattern and
// target mime type.
type Renderer interface {
	// Render transforms the input stream. The returned reader carries the
	// rendition bytes in the target mime type.
	Render(ctx context.Context, source io.Reader) (io.Reader, error)

	// Consumes reports whether the renderer accepts the given source mime type
	Consumes(mimeType string) bool

	// Produces returns the mime type of the rendered output
	Produces() string
}
