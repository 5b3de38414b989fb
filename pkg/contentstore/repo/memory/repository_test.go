package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attachkit/content-store/pkg/contentstore"
	"github.com/attachkit/content-store/pkg/contentstore/repo/memory"
)

func newTestResource() *contentstore.Resource {
	now := time.Now().UTC()
	return &contentstore.Resource{
		ID:                 uuid.New(),
		TenantID:           uuid.New(),
		OwnerID:            uuid.New(),
		Name:               "file.txt",
		MimeType:           "text/plain",
		StorageBackendName: "memory",
		ObjectKey:          "R/key",
		Status:             string(contentstore.ResourceStatusCreated),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
}

func TestResourceCRUD(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()

	require.NoError(t, repo.CreateResource(ctx, resource))

	got, err := repo.GetResource(ctx, resource.ID)
	require.NoError(t, err)
	assert.Equal(t, resource.ID, got.ID)
	assert.Equal(t, resource.Name, got.Name)

	got.Status = string(contentstore.ResourceStatusUploaded)
	require.NoError(t, repo.UpdateResource(ctx, got))

	updated, err := repo.GetResource(ctx, resource.ID)
	require.NoError(t, err)
	assert.Equal(t, string(contentstore.ResourceStatusUploaded), updated.Status)

	require.NoError(t, repo.DeleteResource(ctx, resource.ID))

	_, err = repo.GetResource(ctx, resource.ID)
	assert.ErrorIs(t, err, contentstore.ErrResourceNotFound)
}

func TestGetResourceReturnsCopy(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	first, err := repo.GetResource(ctx, resource.ID)
	require.NoError(t, err)
	first.Name = "mutated"

	second, err := repo.GetResource(ctx, resource.ID)
	require.NoError(t, err)
	assert.Equal(t, "file.txt", second.Name)
}

func TestUpdateResourceNotFound(t *testing.T) {
	repo := memory.New()

	err := repo.UpdateResource(context.Background(), newTestResource())
	assert.ErrorIs(t, err, contentstore.ErrResourceNotFound)
}

func TestListResourcesFilters(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	tenantID := uuid.New()
	uploaded := string(contentstore.ResourceStatusUploaded)

	a := newTestResource()
	a.TenantID = tenantID
	a.Status = uploaded
	b := newTestResource()
	b.TenantID = tenantID
	c := newTestResource()

	for _, res := range []*contentstore.Resource{a, b, c} {
		require.NoError(t, repo.CreateResource(ctx, res))
	}

	byTenant, err := repo.ListResources(ctx, contentstore.ResourceListFilters{TenantID: &tenantID})
	require.NoError(t, err)
	assert.Len(t, byTenant, 2)

	byStatus, err := repo.ListResources(ctx, contentstore.ResourceListFilters{
		TenantID: &tenantID,
		Status:   &uploaded,
	})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, a.ID, byStatus[0].ID)
}

func TestListResourcesExcludesSoftDeleted(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	tenantID := uuid.New()
	res := newTestResource()
	res.TenantID = tenantID
	require.NoError(t, repo.CreateResource(ctx, res))
	require.NoError(t, repo.DeleteResource(ctx, res.ID))

	visible, err := repo.ListResources(ctx, contentstore.ResourceListFilters{TenantID: &tenantID})
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err := repo.ListResources(ctx, contentstore.ResourceListFilters{
		TenantID:       &tenantID,
		IncludeDeleted: true,
	})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestListResourcesPagination(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	tenantID := uuid.New()
	for i := 0; i < 5; i++ {
		res := newTestResource()
		res.TenantID = tenantID
		res.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		require.NoError(t, repo.CreateResource(ctx, res))
	}

	limit := 2
	offset := 1
	page, err := repo.ListResources(ctx, contentstore.ResourceListFilters{
		TenantID: &tenantID,
		Limit:    &limit,
		Offset:   &offset,
	})
	require.NoError(t, err)
	assert.Len(t, page, 2)
}

func TestResourceMetadata(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	meta := &contentstore.ResourceMetadata{
		ResourceID: resource.ID,
		FileName:   "file.txt",
		SizeBytes:  100,
		MimeType:   "text/plain",
		Metadata:   map[string]interface{}{"key": "value"},
	}
	require.NoError(t, repo.SetResourceMetadata(ctx, meta))

	got, err := repo.GetResourceMetadata(ctx, resource.ID)
	require.NoError(t, err)
	assert.Equal(t, "file.txt", got.FileName)
	assert.Equal(t, int64(100), got.SizeBytes)
	assert.Equal(t, "value", got.Metadata["key"])
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSetMetadataResourceNotFound(t *testing.T) {
	repo := memory.New()

	err := repo.SetResourceMetadata(context.Background(), &contentstore.ResourceMetadata{
		ResourceID: uuid.New(),
	})
	assert.ErrorIs(t, err, contentstore.ErrResourceNotFound)
}

func TestAssociationUpsert(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()

	first := newTestResource()
	second := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, first))
	require.NoError(t, repo.CreateResource(ctx, second))

	ref := contentstore.EntityRef{
		EntityType:   "book",
		EntityID:     uuid.New(),
		PropertyPath: "cover",
	}

	assocA := &contentstore.Association{
		ID:           uuid.New(),
		EntityType:   ref.EntityType,
		EntityID:     ref.EntityID,
		PropertyPath: ref.PropertyPath,
		ResourceID:   first.ID,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateAssociation(ctx, assocA))

	assocB := &contentstore.Association{
		ID:           uuid.New(),
		EntityType:   ref.EntityType,
		EntityID:     ref.EntityID,
		PropertyPath: ref.PropertyPath,
		ResourceID:   second.ID,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, repo.CreateAssociation(ctx, assocB))

	// Upsert keeps the original identity and creation time.
	assert.Equal(t, assocA.ID, assocB.ID)
	assert.Equal(t, assocA.CreatedAt, assocB.CreatedAt)

	got, err := repo.GetAssociationByEntity(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ResourceID)
}

func TestListAssociationsByEntity(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	entityID := uuid.New()
	for _, path := range []string{"cover", "attachment", "thumbnail"} {
		assoc := &contentstore.Association{
			ID:           uuid.New(),
			EntityType:   "book",
			EntityID:     entityID,
			PropertyPath: path,
			ResourceID:   resource.ID,
		}
		require.NoError(t, repo.CreateAssociation(ctx, assoc))
	}

	assocs, err := repo.ListAssociationsByEntity(ctx, "book", entityID)
	require.NoError(t, err)
	require.Len(t, assocs, 3)
	// Sorted by property path.
	assert.Equal(t, "attachment", assocs[0].PropertyPath)
	assert.Equal(t, "cover", assocs[1].PropertyPath)
	assert.Equal(t, "thumbnail", assocs[2].PropertyPath)
}

func TestDeleteAssociation(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	ref := contentstore.EntityRef{
		EntityType:   "book",
		EntityID:     uuid.New(),
		PropertyPath: "cover",
	}
	require.NoError(t, repo.CreateAssociation(ctx, &contentstore.Association{
		ID:           uuid.New(),
		EntityType:   ref.EntityType,
		EntityID:     ref.EntityID,
		PropertyPath: ref.PropertyPath,
		ResourceID:   resource.ID,
	}))

	require.NoError(t, repo.DeleteAssociation(ctx, ref))

	_, err := repo.GetAssociationByEntity(ctx, ref)
	assert.ErrorIs(t, err, contentstore.ErrAssociationNotFound)

	err = repo.DeleteAssociation(ctx, ref)
	assert.ErrorIs(t, err, contentstore.ErrAssociationNotFound)
}

func TestDeleteAssociationsByResource(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.CreateAssociation(ctx, &contentstore.Association{
			ID:           uuid.New(),
			EntityType:   "book",
			EntityID:     uuid.New(),
			PropertyPath: "cover",
			ResourceID:   resource.ID,
		}))
	}

	require.NoError(t, repo.DeleteAssociationsByResource(ctx, resource.ID))

	remaining, err := repo.ListAssociationsByResource(ctx, resource.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRenditions(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	rendition := &contentstore.Rendition{
		ID:         uuid.New(),
		ResourceID: resource.ID,
		SourceMime: "text/plain",
		TargetMime: "text/html",
		ObjectKey:  "renditions/key",
		SizeBytes:  10,
	}
	require.NoError(t, repo.CreateRendition(ctx, rendition))

	got, err := repo.GetRendition(ctx, resource.ID, "text/html")
	require.NoError(t, err)
	assert.Equal(t, rendition.ObjectKey, got.ObjectKey)

	_, err = repo.GetRendition(ctx, resource.ID, "image/png")
	assert.ErrorIs(t, err, contentstore.ErrRenditionNotFound)

	list, err := repo.ListRenditions(ctx, resource.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, repo.DeleteRenditions(ctx, resource.ID))

	list, err = repo.ListRenditions(ctx, resource.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateRenditionUpsert(t *testing.T) {
	repo := memory.New()
	ctx := context.Background()
	resource := newTestResource()
	require.NoError(t, repo.CreateResource(ctx, resource))

	first := &contentstore.Rendition{
		ID:         uuid.New(),
		ResourceID: resource.ID,
		SourceMime: "text/plain",
		TargetMime: "text/html",
		ObjectKey:  "renditions/key",
		SizeBytes:  10,
	}
	require.NoError(t, repo.CreateRendition(ctx, first))

	second := &contentstore.Rendition{
		ID:         uuid.New(),
		ResourceID: resource.ID,
		SourceMime: "text/plain",
		TargetMime: "text/html",
		ObjectKey:  "renditions/key",
		SizeBytes:  22,
	}
	require.NoError(t, repo.CreateRendition(ctx, second))

	// Re-creating for the same target mime replaces the record and keeps the
	// original identity.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	list, err := repo.ListRenditions(ctx, resource.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(22), list[0].SizeBytes)
}
