package memory

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// Backend is an in-memory implementation of the contentstore.BlobStore
// interface
type Backend struct {
	mu        sync.RWMutex
	objects   map[string][]byte
	mimeTypes map[string]string
	updatedAt map[string]time.Time
}

// New creates a new in-memory storage backend
func New() contentstore.BlobStore {
	return &Backend{
		objects:   make(map[string][]byte),
		mimeTypes: make(map[string]string),
		updatedAt: make(map[string]time.Time),
	}
}

// Upload uploads content directly
func (b *Backend) Upload(ctx context.Context, objectKey string, reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.objects[objectKey] = data
	b.updatedAt[objectKey] = time.Now().UTC()
	if _, exists := b.mimeTypes[objectKey]; !exists {
		b.mimeTypes[objectKey] = "application/octet-stream"
	}
	return nil
}

// UploadWithParams uploads content with parameters
func (b *Backend) UploadWithParams(ctx context.Context, reader io.Reader, params contentstore.UploadParams) error {
	if err := b.Upload(ctx, params.ObjectKey, reader); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if params.MimeType != "" {
		b.mimeTypes[params.ObjectKey] = params.MimeType
	}
	return nil
}

// Download downloads content directly
func (b *Backend) Download(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

// Delete deletes content
func (b *Backend) Delete(ctx context.Context, objectKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.objects[objectKey]; !exists {
		return errors.New("object not found")
	}

	delete(b.objects, objectKey)
	delete(b.mimeTypes, objectKey)
	delete(b.updatedAt, objectKey)
	return nil
}

// GetObjectMeta retrieves metadata for an object in memory
func (b *Backend) GetObjectMeta(ctx context.Context, objectKey string) (*contentstore.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	data, exists := b.objects[objectKey]
	if !exists {
		return nil, errors.New("object not found")
	}

	mimeType := b.mimeTypes[objectKey]
	meta := &contentstore.ObjectMeta{
		Key:         objectKey,
		Size:        int64(len(data)),
		ContentType: mimeType,
		UpdatedAt:   b.updatedAt[objectKey],
		Metadata:    map[string]string{"mime_type": mimeType},
	}

	return meta, nil
}

// GetUploadURL returns a URL for uploading content.
// The in-memory implementation doesn't use URLs.
func (b *Backend) GetUploadURL(ctx context.Context, objectKey string) (string, error) {
	return "", errors.New("direct upload required for memory backend")
}

// GetDownloadURL returns a URL for downloading content.
// The in-memory implementation doesn't use URLs.
func (b *Backend) GetDownloadURL(ctx context.Context, objectKey string, downloadFilename string) (string, error) {
	return "", errors.New("direct download required for memory backend")
}
