package contentstore

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Error types
var (
	// ErrResourceNotFound indicates a resource was not found
	ErrResourceNotFound = errors.New("resource not found")

	// ErrAssociationNotFound indicates no association exists for an entity property path
	ErrAssociationNotFound = errors.New("association not found")

	// ErrRenditionNotFound indicates a rendition record was not found
	ErrRenditionNotFound = errors.New("rendition not found")

	// ErrStorageBackendNotFound indicates a storage backend was not found
	ErrStorageBackendNotFound = errors.New("storage backend not found")

	// ErrContentNotSet indicates a resource has no content bytes yet
	ErrContentNotSet = errors.New("content not set")

	// ErrNoRenderer indicates no renderer can produce the requested mime type
	ErrNoRenderer = errors.New("no renderer for requested mime type")

	// ErrSearchNotConfigured indicates the service was built without a search index
	ErrSearchNotConfigured = errors.New("search index not configured")

	// ErrInvalidEntityRef indicates an entity reference is missing required fields
	ErrInvalidEntityRef = errors.New("invalid entity reference")
)

// StoreError represents an error related to resource operations
type StoreError struct {
	ResourceID uuid.UUID
	Op         string
	Err        error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed for resource %s: %v", e.Op, e.ResourceID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// AssociationError represents an error related to association operations
type AssociationError struct {
	Ref EntityRef
	Op  string
	Err error
}

func (e *AssociationError) Error() string {
	return fmt.Sprintf("association operation %s failed for %s/%s path %q: %v",
		e.Op, e.Ref.EntityType, e.Ref.EntityID, e.Ref.PropertyPath, e.Err)
}

func (e *AssociationError) Unwrap() error {
	return e.Err
}

// StorageError represents an error related to storage operations
type StorageError struct {
	Backend string
	Key     string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage operation %s failed for key %s on backend %s: %v", e.Op, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// RenditionError represents an error while producing a rendition
type RenditionError struct {
	ResourceID uuid.UUID
	TargetMime string
	Err        error
}

func (e *RenditionError) Error() string {
	return fmt.Sprintf("rendition to %s failed for resource %s: %v", e.TargetMime, e.ResourceID, e.Err)
}

func (e *RenditionError) Unwrap() error {
	return e.Err
}
