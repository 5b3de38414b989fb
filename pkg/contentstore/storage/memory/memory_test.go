package memory_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attachkit/content-store/pkg/contentstore"
	"github.com/attachkit/content-store/pkg/contentstore/storage/memory"
)

func TestUploadDownload(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	err := backend.Upload(ctx, "test/object", strings.NewReader("hello"))
	require.NoError(t, err)

	rc, err := backend.Download(ctx, "test/object")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestDownloadNotFound(t *testing.T) {
	backend := memory.New()

	_, err := backend.Download(context.Background(), "missing")
	assert.Error(t, err)
}

func TestUploadWithParams(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	err := backend.UploadWithParams(ctx, strings.NewReader("content"), contentstore.UploadParams{
		ObjectKey: "key",
		MimeType:  "text/plain",
	})
	require.NoError(t, err)

	meta, err := backend.GetObjectMeta(ctx, "key")
	require.NoError(t, err)
	assert.Equal(t, int64(len("content")), meta.Size)
	assert.Equal(t, "text/plain", meta.ContentType)
}

func TestDelete(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("data")))
	require.NoError(t, backend.Delete(ctx, "key"))

	_, err := backend.Download(ctx, "key")
	assert.Error(t, err)

	err = backend.Delete(ctx, "key")
	assert.Error(t, err)
}

func TestUploadOverwrite(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("first")))
	require.NoError(t, backend.Upload(ctx, "key", strings.NewReader("second")))

	rc, err := backend.Download(ctx, "key")
	require.NoError(t, err)
	defer rc.Close()

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestURLsNotSupported(t *testing.T) {
	backend := memory.New()
	ctx := context.Background()

	_, err := backend.GetUploadURL(ctx, "key")
	assert.Error(t, err)

	_, err = backend.GetDownloadURL(ctx, "key", "file.txt")
	assert.Error(t, err)
}
