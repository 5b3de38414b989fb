package contentstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxIndexBytes caps how much of an uploaded object is read back for
// full-text indexing.
const maxIndexBytes = 1 << 20

// service implements the Service interface
type service struct {
	repository Repository
	blobStores map[string]BlobStore
	sink       EventSink
	index      SearchIndex
	renderers  []Renderer
	logger     Logger
}

// Option represents a functional option for configuring the service
type Option func(*service)

// WithRepository sets the repository for the service
func WithRepository(repo Repository) Option {
	return func(s *service) {
		s.repository = repo
	}
}

// WithBlobStore adds a blob storage backend
func WithBlobStore(name string, store BlobStore) Option {
	return func(s *service) {
		if s.blobStores == nil {
			s.blobStores = make(map[string]BlobStore)
		}
		s.blobStores[name] = store
	}
}

// WithEventSink sets the event sink for the service
func WithEventSink(sink EventSink) Option {
	return func(s *service) {
		s.sink = sink
	}
}

// WithSearchIndex sets the search index for the service
func WithSearchIndex(index SearchIndex) Option {
	return func(s *service) {
		s.index = index
	}
}

// WithRenderers registers renderers for rendition production
func WithRenderers(renderers ...Renderer) Option {
	return func(s *service) {
		s.renderers = append(s.renderers, renderers...)
	}
}

// WithLogger sets the logger used for non-fatal diagnostics, such as errors
// returned by event sinks on after-events
func WithLogger(logger Logger) Option {
	return func(s *service) {
		s.logger = logger
	}
}

// New creates a new service instance with the given options
func New(options ...Option) (Service, error) {
	s := &service{
		blobStores: make(map[string]BlobStore),
	}

	for _, option := range options {
		option(s)
	}

	if s.repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if s.sink == nil {
		s.sink = NewNoopSink()
	}
	if s.logger == nil {
		s.logger = noopLogger{}
	}

	return s, nil
}

// Resource operations

func (s *service) CreateResource(ctx context.Context, req CreateResourceRequest) (*Resource, error) {
	if _, err := s.GetBackend(req.StorageBackendName); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	resourceID := uuid.New()

	objectKey := req.ObjectKey
	if objectKey == "" {
		objectKey = generateObjectKey(resourceID, req.Name)
	}

	resource := &Resource{
		ID:                 resourceID,
		TenantID:           req.TenantID,
		OwnerID:            req.OwnerID,
		Name:               req.Name,
		MimeType:           req.MimeType,
		StorageBackendName: req.StorageBackendName,
		ObjectKey:          objectKey,
		Status:             string(ResourceStatusCreated),
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := s.repository.CreateResource(ctx, resource); err != nil {
		return nil, &StoreError{ResourceID: resourceID, Op: "create", Err: err}
	}

	metadata := &ResourceMetadata{
		ResourceID: resourceID,
		MimeType:   req.MimeType,
		FileName:   req.Name,
		Metadata:   map[string]interface{}{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repository.SetResourceMetadata(ctx, metadata); err != nil {
		return nil, &StoreError{ResourceID: resourceID, Op: "create_metadata", Err: err}
	}

	return resource, nil
}

func (s *service) GetResource(ctx context.Context, id uuid.UUID) (*Resource, error) {
	return s.repository.GetResource(ctx, id)
}

func (s *service) DeleteResource(ctx context.Context, id uuid.UUID) error {
	resource, err := s.repository.GetResource(ctx, id)
	if err != nil {
		return &StoreError{ResourceID: id, Op: "delete", Err: err}
	}

	// Content bytes go first so a failed delete leaves the record intact.
	if resource.Status == string(ResourceStatusUploaded) {
		backend, err := s.GetBackend(resource.StorageBackendName)
		if err != nil {
			return &StoreError{ResourceID: id, Op: "delete", Err: err}
		}
		if err := backend.Delete(ctx, resource.ObjectKey); err != nil {
			return &StorageError{Backend: resource.StorageBackendName, Key: resource.ObjectKey, Op: "delete", Err: err}
		}
	}

	if err := s.removeRenditions(ctx, resource); err != nil {
		return err
	}

	if err := s.repository.DeleteAssociationsByResource(ctx, id); err != nil {
		return &StoreError{ResourceID: id, Op: "delete_associations", Err: err}
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, id); err != nil {
			return &StoreError{ResourceID: id, Op: "deindex", Err: err}
		}
	}

	if err := s.repository.DeleteResource(ctx, id); err != nil {
		return &StoreError{ResourceID: id, Op: "delete", Err: err}
	}

	return nil
}

func (s *service) ListResources(ctx context.Context, req ListResourcesRequest) ([]*Resource, error) {
	filters := ResourceListFilters{}
	if req.TenantID != uuid.Nil {
		tenantID := req.TenantID
		filters.TenantID = &tenantID
	}
	if req.OwnerID != uuid.Nil {
		ownerID := req.OwnerID
		filters.OwnerID = &ownerID
	}
	return s.repository.ListResources(ctx, filters)
}

// Resource metadata operations

func (s *service) SetResourceMetadata(ctx context.Context, req SetResourceMetadataRequest) error {
	if _, err := s.repository.GetResource(ctx, req.ResourceID); err != nil {
		return &StoreError{ResourceID: req.ResourceID, Op: "set_metadata", Err: err}
	}

	now := time.Now().UTC()
	metadata := &ResourceMetadata{
		ResourceID: req.ResourceID,
		FileName:   req.FileName,
		SizeBytes:  req.FileSize,
		MimeType:   req.MimeType,
		Checksum:   req.Checksum,
		Tags:       req.Tags,
		Metadata:   make(map[string]interface{}),
		UpdatedAt:  now,
	}

	if existing, err := s.repository.GetResourceMetadata(ctx, req.ResourceID); err == nil {
		metadata.CreatedAt = existing.CreatedAt
		metadata.ETag = existing.ETag
		for k, v := range existing.Metadata {
			metadata.Metadata[k] = v
		}
	} else {
		metadata.CreatedAt = now
	}

	for k, v := range req.CustomMetadata {
		metadata.Metadata[k] = v
	}

	return s.repository.SetResourceMetadata(ctx, metadata)
}

func (s *service) GetResourceMetadata(ctx context.Context, resourceID uuid.UUID) (*ResourceMetadata, error) {
	return s.repository.GetResourceMetadata(ctx, resourceID)
}

// Association operations

func (s *service) Associate(ctx context.Context, req AssociateRequest) (*Association, error) {
	if err := validateEntityRef(req.Ref); err != nil {
		return nil, err
	}

	resource, err := s.repository.GetResource(ctx, req.ResourceID)
	if err != nil {
		return nil, &AssociationError{Ref: req.Ref, Op: "associate", Err: err}
	}

	if err := s.sink.BeforeAssociate(ctx, BeforeAssociateEvent{
		StoreEvent: NewStoreEvent(resource, s),
		Ref:        req.Ref,
		ResourceID: req.ResourceID,
	}); err != nil {
		return nil, &AssociationError{Ref: req.Ref, Op: "associate", Err: err}
	}

	now := time.Now().UTC()
	assoc := &Association{
		ID:           uuid.New(),
		EntityType:   req.Ref.EntityType,
		EntityID:     req.Ref.EntityID,
		PropertyPath: req.Ref.PropertyPath,
		ResourceID:   req.ResourceID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// CreateAssociation upserts: associating over an existing property path
	// replaces the previous association.
	if err := s.repository.CreateAssociation(ctx, assoc); err != nil {
		return nil, &AssociationError{Ref: req.Ref, Op: "associate", Err: err}
	}

	// Sink errors on after-events are logged but do not fail the operation.
	if err := s.sink.AfterAssociate(ctx, AfterAssociateEvent{
		StoreEvent:  NewStoreEvent(resource, s),
		Association: assoc,
	}); err != nil {
		s.logger.Errorf("after-associate sink: %v", err)
	}

	return assoc, nil
}

func (s *service) Unassociate(ctx context.Context, ref EntityRef) error {
	if err := validateEntityRef(ref); err != nil {
		return err
	}

	if err := s.sink.BeforeUnassociate(ctx, BeforeUnassociateEvent{
		StoreEvent: NewStoreEvent(ref, s),
		Ref:        ref,
	}); err != nil {
		return &AssociationError{Ref: ref, Op: "unassociate", Err: err}
	}

	if err := s.repository.DeleteAssociation(ctx, ref); err != nil {
		return &AssociationError{Ref: ref, Op: "unassociate", Err: err}
	}

	if err := s.sink.AfterUnassociate(ctx, AfterUnassociateEvent{
		StoreEvent: NewStoreEvent(ref, s),
		Ref:        ref,
	}); err != nil {
		s.logger.Errorf("after-unassociate sink: %v", err)
	}

	return nil
}

func (s *service) ResourceForEntity(ctx context.Context, ref EntityRef) (*Resource, error) {
	if err := validateEntityRef(ref); err != nil {
		return nil, err
	}

	assoc, err := s.repository.GetAssociationByEntity(ctx, ref)
	if err != nil {
		return nil, &AssociationError{Ref: ref, Op: "resolve", Err: err}
	}

	return s.repository.GetResource(ctx, assoc.ResourceID)
}

func (s *service) ListAssociations(ctx context.Context, entityType string, entityID uuid.UUID) ([]*Association, error) {
	return s.repository.ListAssociationsByEntity(ctx, entityType, entityID)
}

// Content operations

func (s *service) SetContent(ctx context.Context, resourceID uuid.UUID, reader io.Reader) (int64, error) {
	resource, err := s.repository.GetResource(ctx, resourceID)
	if err != nil {
		return 0, &StoreError{ResourceID: resourceID, Op: "set_content", Err: err}
	}

	backend, err := s.GetBackend(resource.StorageBackendName)
	if err != nil {
		return 0, &StoreError{ResourceID: resourceID, Op: "set_content", Err: err}
	}

	if err := s.sink.BeforeSetContent(ctx, BeforeSetContentEvent{
		StoreEvent: NewStoreEvent(resource, s),
		ResourceID: resourceID,
	}); err != nil {
		return 0, &StoreError{ResourceID: resourceID, Op: "set_content", Err: err}
	}

	counting := &countingReader{r: reader}
	if err := backend.UploadWithParams(ctx, counting, UploadParams{
		ObjectKey: resource.ObjectKey,
		MimeType:  resource.MimeType,
	}); err != nil {
		return 0, &StorageError{Backend: resource.StorageBackendName, Key: resource.ObjectKey, Op: "upload", Err: err}
	}

	if err := s.refreshMetadataFromStorage(ctx, resource, backend); err != nil {
		return counting.n, err
	}

	resource.Status = string(ResourceStatusUploaded)
	resource.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateResource(ctx, resource); err != nil {
		return counting.n, &StoreError{ResourceID: resourceID, Op: "set_content", Err: err}
	}

	// Replacing content invalidates any cached renditions.
	if err := s.removeRenditions(ctx, resource); err != nil {
		return counting.n, err
	}

	if err := s.indexContent(ctx, resource, backend); err != nil {
		return counting.n, err
	}

	if err := s.sink.AfterSetContent(ctx, AfterSetContentEvent{
		StoreEvent:   NewStoreEvent(resource, s),
		ResourceID:   resourceID,
		BytesWritten: counting.n,
	}); err != nil {
		s.logger.Errorf("after-set-content sink: %v", err)
	}

	return counting.n, nil
}

func (s *service) GetContent(ctx context.Context, resourceID uuid.UUID) (io.ReadCloser, error) {
	resource, err := s.repository.GetResource(ctx, resourceID)
	if err != nil {
		return nil, &StoreError{ResourceID: resourceID, Op: "get_content", Err: err}
	}

	if resource.Status != string(ResourceStatusUploaded) {
		return nil, &StoreError{ResourceID: resourceID, Op: "get_content", Err: ErrContentNotSet}
	}

	backend, err := s.GetBackend(resource.StorageBackendName)
	if err != nil {
		return nil, &StoreError{ResourceID: resourceID, Op: "get_content", Err: err}
	}

	if err := s.sink.BeforeGetContent(ctx, BeforeGetContentEvent{
		StoreEvent: NewStoreEvent(resource, s),
		ResourceID: resourceID,
	}); err != nil {
		return nil, &StoreError{ResourceID: resourceID, Op: "get_content", Err: err}
	}

	reader, err := backend.Download(ctx, resource.ObjectKey)
	if err != nil {
		return nil, &StorageError{Backend: resource.StorageBackendName, Key: resource.ObjectKey, Op: "download", Err: err}
	}

	if err := s.sink.AfterGetContent(ctx, AfterGetContentEvent{
		StoreEvent: NewStoreEvent(resource, s),
		ResourceID: resourceID,
	}); err != nil {
		s.logger.Errorf("after-get-content sink: %v", err)
	}

	return reader, nil
}

func (s *service) UnsetContent(ctx context.Context, resourceID uuid.UUID) error {
	resource, err := s.repository.GetResource(ctx, resourceID)
	if err != nil {
		return &StoreError{ResourceID: resourceID, Op: "unset_content", Err: err}
	}

	if resource.Status != string(ResourceStatusUploaded) {
		return &StoreError{ResourceID: resourceID, Op: "unset_content", Err: ErrContentNotSet}
	}

	backend, err := s.GetBackend(resource.StorageBackendName)
	if err != nil {
		return &StoreError{ResourceID: resourceID, Op: "unset_content", Err: err}
	}

	if err := s.sink.BeforeUnsetContent(ctx, BeforeUnsetContentEvent{
		StoreEvent: NewStoreEvent(resource, s),
		ResourceID: resourceID,
	}); err != nil {
		return &StoreError{ResourceID: resourceID, Op: "unset_content", Err: err}
	}

	if err := backend.Delete(ctx, resource.ObjectKey); err != nil {
		return &StorageError{Backend: resource.StorageBackendName, Key: resource.ObjectKey, Op: "delete", Err: err}
	}

	if err := s.removeRenditions(ctx, resource); err != nil {
		return err
	}

	if s.index != nil {
		if err := s.index.Remove(ctx, resourceID); err != nil {
			return &StoreError{ResourceID: resourceID, Op: "deindex", Err: err}
		}
	}

	resource.Status = string(ResourceStatusCreated)
	resource.UpdatedAt = time.Now().UTC()
	if err := s.repository.UpdateResource(ctx, resource); err != nil {
		return &StoreError{ResourceID: resourceID, Op: "unset_content", Err: err}
	}

	if err := s.sink.AfterUnsetContent(ctx, AfterUnsetContentEvent{
		StoreEvent: NewStoreEvent(resource, s),
		ResourceID: resourceID,
	}); err != nil {
		s.logger.Errorf("after-unset-content sink: %v", err)
	}

	return nil
}

// Search operations

func (s *service) Search(ctx context.Context, req SearchRequest) ([]uuid.UUID, error) {
	if s.index == nil {
		return nil, ErrSearchNotConfigured
	}
	return s.index.Search(ctx, req)
}

// Rendition operations

func (s *service) GetRendition(ctx context.Context, resourceID uuid.UUID, targetMime string) (io.ReadCloser, error) {
	resource, err := s.repository.GetResource(ctx, resourceID)
	if err != nil {
		return nil, &RenditionError{ResourceID: resourceID, TargetMime: targetMime, Err: err}
	}

	if resource.MimeType == targetMime {
		return s.GetContent(ctx, resourceID)
	}

	if resource.Status != string(ResourceStatusUploaded) {
		return nil, &RenditionError{ResourceID: resourceID, TargetMime: targetMime, Err: ErrContentNotSet}
	}

	backend, err := s.GetBackend(resource.StorageBackendName)
	if err != nil {
		return nil, &RenditionError{ResourceID: resourceID, TargetMime: targetMime, Err: err}
	}

	// Serve from the rendition cache when possible.
	if cached, err := s.repository.GetRendition(ctx, resourceID, targetMime); err == nil {
		reader, err := backend.Download(ctx, cached.ObjectKey)
		if err == nil {
			return reader, nil
		}
		// Cached blob is gone; fall through and re-render.
	}

	renderer := s.findRenderer(resource.MimeType, targetMime)
	if renderer == nil {
		return nil, &RenditionError{ResourceID: resourceID, TargetMime: targetMime, Err: ErrNoRenderer}
	}

	source, err := s.GetContent(ctx, resourceID)
	if err != nil {
		return nil, err
	}
	defer source.Close()

	rendered, err := renderer.Render(ctx, source)
	if err != nil {
		return nil, &RenditionError{ResourceID: resourceID, TargetMime: targetMime, Err: err}
	}

	data, err := io.ReadAll(rendered)
	if err != nil {
		return nil, &RenditionError{ResourceID: resourceID, TargetMime: targetMime, Err: err}
	}

	renditionKey := renditionObjectKey(resource, targetMime)
	if err := backend.UploadWithParams(ctx, bytes.NewReader(data), UploadParams{
		ObjectKey: renditionKey,
		MimeType:  targetMime,
	}); err != nil {
		return nil, &StorageError{Backend: resource.StorageBackendName, Key: renditionKey, Op: "upload", Err: err}
	}

	rendition := &Rendition{
		ID:         uuid.New(),
		ResourceID: resourceID,
		SourceMime: resource.MimeType,
		TargetMime: targetMime,
		ObjectKey:  renditionKey,
		SizeBytes:  int64(len(data)),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repository.CreateRendition(ctx, rendition); err != nil {
		return nil, &RenditionError{ResourceID: resourceID, TargetMime: targetMime, Err: err}
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Storage backend operations

func (s *service) RegisterBackend(name string, backend BlobStore) {
	s.blobStores[name] = backend
}

func (s *service) GetBackend(name string) (BlobStore, error) {
	backend, exists := s.blobStores[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrStorageBackendNotFound, name)
	}
	return backend, nil
}

// Helper methods

func validateEntityRef(ref EntityRef) error {
	if ref.EntityType == "" || ref.PropertyPath == "" || ref.EntityID == uuid.Nil {
		return ErrInvalidEntityRef
	}
	return nil
}

func generateObjectKey(resourceID uuid.UUID, name string) string {
	if name != "" {
		return fmt.Sprintf("R/%s/%s", resourceID, name)
	}
	return fmt.Sprintf("R/%s", resourceID)
}

func renditionObjectKey(resource *Resource, targetMime string) string {
	return fmt.Sprintf("renditions/%s/%s", resource.ID, strings.ReplaceAll(targetMime, "/", "_"))
}

func (s *service) findRenderer(sourceMime, targetMime string) Renderer {
	for _, r := range s.renderers {
		if r.Produces() == targetMime && r.Consumes(sourceMime) {
			return r
		}
	}
	return nil
}

func (s *service) removeRenditions(ctx context.Context, resource *Resource) error {
	renditions, err := s.repository.ListRenditions(ctx, resource.ID)
	if err != nil {
		return &StoreError{ResourceID: resource.ID, Op: "list_renditions", Err: err}
	}

	backend, err := s.GetBackend(resource.StorageBackendName)
	if err != nil {
		return &StoreError{ResourceID: resource.ID, Op: "remove_renditions", Err: err}
	}

	for _, rendition := range renditions {
		if err := backend.Delete(ctx, rendition.ObjectKey); err != nil {
			return &StorageError{Backend: resource.StorageBackendName, Key: rendition.ObjectKey, Op: "delete", Err: err}
		}
	}

	if err := s.repository.DeleteRenditions(ctx, resource.ID); err != nil {
		return &StoreError{ResourceID: resource.ID, Op: "remove_renditions", Err: err}
	}

	return nil
}

func (s *service) refreshMetadataFromStorage(ctx context.Context, resource *Resource, backend BlobStore) error {
	objectMeta, err := backend.GetObjectMeta(ctx, resource.ObjectKey)
	if err != nil {
		return &StorageError{Backend: resource.StorageBackendName, Key: resource.ObjectKey, Op: "get_object_meta", Err: err}
	}

	now := time.Now().UTC()
	metadata := &ResourceMetadata{
		ResourceID: resource.ID,
		FileName:   resource.Name,
		SizeBytes:  objectMeta.Size,
		MimeType:   objectMeta.ContentType,
		ETag:       objectMeta.ETag,
		Metadata:   make(map[string]interface{}),
		CreatedAt:  resource.CreatedAt,
		UpdatedAt:  now,
	}
	for k, v := range objectMeta.Metadata {
		metadata.Metadata[k] = v
	}

	if existing, err := s.repository.GetResourceMetadata(ctx, resource.ID); err == nil {
		metadata.CreatedAt = existing.CreatedAt
		metadata.Tags = existing.Tags
		metadata.Checksum = existing.Checksum
		metadata.ChecksumAlgorithm = existing.ChecksumAlgorithm
	}

	if err := s.repository.SetResourceMetadata(ctx, metadata); err != nil {
		return &StoreError{ResourceID: resource.ID, Op: "set_metadata", Err: err}
	}

	return nil
}

func (s *service) indexContent(ctx context.Context, resource *Resource, backend BlobStore) error {
	if s.index == nil {
		return nil
	}

	entry := IndexEntry{
		ResourceID: resource.ID,
		Name:       resource.Name,
		ObjectKey:  resource.ObjectKey,
		MimeType:   resource.MimeType,
	}

	if isIndexableMime(resource.MimeType) {
		reader, err := backend.Download(ctx, resource.ObjectKey)
		if err != nil {
			return &StorageError{Backend: resource.StorageBackendName, Key: resource.ObjectKey, Op: "download", Err: err}
		}
		defer reader.Close()

		data, err := io.ReadAll(io.LimitReader(reader, maxIndexBytes))
		if err != nil {
			return &StoreError{ResourceID: resource.ID, Op: "index", Err: err}
		}
		entry.Text = string(data)
	}

	if err := s.index.Index(ctx, entry); err != nil {
		return &StoreError{ResourceID: resource.ID, Op: "index", Err: err}
	}

	return nil
}

func isIndexableMime(mimeType string) bool {
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	switch mimeType {
	case "application/json", "application/xml", "application/x-ndjson":
		return true
	}
	return false
}

// countingReader counts bytes read through it
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
