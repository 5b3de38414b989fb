package contentstore

import (
	"context"
	"io"

	"github.com/google/uuid"
)

// Store exposes resource-handle operations: a resource can exist before any
// content bytes are set for it.
type Store interface {
	CreateResource(ctx context.Context, req CreateResourceRequest) (*Resource, error)
	GetResource(ctx context.Context, id uuid.UUID) (*Resource, error)
	DeleteResource(ctx context.Context, id uuid.UUID) error
	ListResources(ctx context.Context, req ListResourcesRequest) ([]*Resource, error)

	SetResourceMetadata(ctx context.Context, req SetResourceMetadataRequest) error
	GetResourceMetadata(ctx context.Context, resourceID uuid.UUID) (*ResourceMetadata, error)
}

// AssociativeStore links resources to entity property paths
type AssociativeStore interface {
	Store

	Associate(ctx context.Context, req AssociateRequest) (*Association, error)
	Unassociate(ctx context.Context, ref EntityRef) error
	ResourceForEntity(ctx context.Context, ref EntityRef) (*Resource, error)
	ListAssociations(ctx context.Context, entityType string, entityID uuid.UUID) ([]*Association, error)
}

// ContentStore reads and writes content bytes through io streams
type ContentStore interface {
	SetContent(ctx context.Context, resourceID uuid.UUID, reader io.Reader) (int64, error)
	GetContent(ctx context.Context, resourceID uuid.UUID) (io.ReadCloser, error)
	UnsetContent(ctx context.Context, resourceID uuid.UUID) error
}

// Chunk is one element of a streamed content transfer. Err, when non-nil,
// terminates the stream.
type Chunk struct {
	Data []byte
	Err  error
}

// ReactiveContentStore reads and writes content as asynchronous chunk
// sequences
type ReactiveContentStore interface {
	SetContentStream(ctx context.Context, resourceID uuid.UUID, chunks <-chan Chunk) (int64, error)
	GetContentStream(ctx context.Context, resourceID uuid.UUID, chunkSize int) (<-chan Chunk, error)
}

// Searchable finds resources matching a query
type Searchable interface {
	Search(ctx context.Context, req SearchRequest) ([]uuid.UUID, error)
}

// Renderable produces transformed representations of stored content
type Renderable interface {
	GetRendition(ctx context.Context, resourceID uuid.UUID, targetMime string) (io.ReadCloser, error)
}

// Service is the main interface of the content-store library. It combines
// the individual store contracts and backend management.
type Service interface {
	AssociativeStore
	ContentStore
	ReactiveContentStore
	Searchable
	Renderable

	// Storage backend operations
	RegisterBackend(name string, backend BlobStore)
	GetBackend(name string) (BlobStore, error)
}
