package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// DBTX is an interface that allows us to use either a database connection or
// a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements contentstore.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) contentstore.Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with a connection pool
func NewWithPool(pool *pgxpool.Pool) contentstore.Repository {
	return &Repository{db: pool}
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			if strings.Contains(pgErr.ConstraintName, "association") {
				return fmt.Errorf("association already exists")
			}
			return fmt.Errorf("duplicate entry")
		case "23503": // foreign_key_violation
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("record not found")
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

// Resource operations

func (r *Repository) CreateResource(ctx context.Context, resource *contentstore.Resource) error {
	query := `
		INSERT INTO resource (
			id, tenant_id, owner_id, name, mime_type,
			storage_backend_name, object_key, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.db.Exec(ctx, query,
		resource.ID, resource.TenantID, resource.OwnerID, resource.Name,
		resource.MimeType, resource.StorageBackendName, resource.ObjectKey,
		resource.Status, resource.CreatedAt, resource.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("create resource", err)
	}

	return nil
}

func (r *Repository) GetResource(ctx context.Context, id uuid.UUID) (*contentstore.Resource, error) {
	query := `
		SELECT id, tenant_id, owner_id, name, mime_type,
		       storage_backend_name, object_key, status, created_at, updated_at
		FROM resource WHERE id = $1 AND deleted_at IS NULL`

	var resource contentstore.Resource
	err := r.db.QueryRow(ctx, query, id).Scan(
		&resource.ID, &resource.TenantID, &resource.OwnerID, &resource.Name,
		&resource.MimeType, &resource.StorageBackendName, &resource.ObjectKey,
		&resource.Status, &resource.CreatedAt, &resource.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentstore.ErrResourceNotFound
		}
		return nil, r.handlePostgresError("get resource", err)
	}

	return &resource, nil
}

func (r *Repository) UpdateResource(ctx context.Context, resource *contentstore.Resource) error {
	query := `
		UPDATE resource SET
			tenant_id = $2, owner_id = $3, name = $4, mime_type = $5,
			storage_backend_name = $6, object_key = $7, status = $8, updated_at = $9
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.db.Exec(ctx, query,
		resource.ID, resource.TenantID, resource.OwnerID, resource.Name,
		resource.MimeType, resource.StorageBackendName, resource.ObjectKey,
		resource.Status, resource.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("update resource", err)
	}
	if tag.RowsAffected() == 0 {
		return contentstore.ErrResourceNotFound
	}

	return nil
}

func (r *Repository) DeleteResource(ctx context.Context, id uuid.UUID) error {
	// Soft delete: set deleted_at, keep the row for audit
	query := `UPDATE resource SET status = $2, deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, id, string(contentstore.ResourceStatusDeleted))
	if err != nil {
		return r.handlePostgresError("delete resource", err)
	}
	if tag.RowsAffected() == 0 {
		return contentstore.ErrResourceNotFound
	}
	return nil
}

func (r *Repository) ListResources(ctx context.Context, filters contentstore.ResourceListFilters) ([]*contentstore.Resource, error) {
	query := `
		SELECT id, tenant_id, owner_id, name, mime_type,
		       storage_backend_name, object_key, status, created_at, updated_at
		FROM resource`

	var conditions []string
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if !filters.IncludeDeleted {
		conditions = append(conditions, "deleted_at IS NULL")
	}
	if filters.TenantID != nil {
		conditions = append(conditions, "tenant_id = "+arg(*filters.TenantID))
	}
	if filters.OwnerID != nil {
		conditions = append(conditions, "owner_id = "+arg(*filters.OwnerID))
	}
	if filters.Status != nil {
		conditions = append(conditions, "status = "+arg(*filters.Status))
	}
	if filters.MimeType != nil {
		conditions = append(conditions, "mime_type = "+arg(*filters.MimeType))
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	if filters.Limit != nil && *filters.Limit > 0 {
		query += " LIMIT " + arg(*filters.Limit)
	}
	if filters.Offset != nil && *filters.Offset > 0 {
		query += " OFFSET " + arg(*filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list resources", err)
	}
	defer rows.Close()

	var resources []*contentstore.Resource
	for rows.Next() {
		var resource contentstore.Resource
		if err := rows.Scan(
			&resource.ID, &resource.TenantID, &resource.OwnerID, &resource.Name,
			&resource.MimeType, &resource.StorageBackendName, &resource.ObjectKey,
			&resource.Status, &resource.CreatedAt, &resource.UpdatedAt); err != nil {
			return nil, err
		}
		resources = append(resources, &resource)
	}

	return resources, rows.Err()
}

// Resource metadata operations

func (r *Repository) SetResourceMetadata(ctx context.Context, metadata *contentstore.ResourceMetadata) error {
	query := `
		INSERT INTO resource_metadata (
			resource_id, file_name, size_bytes, mime_type, etag,
			checksum, checksum_algorithm, tags, metadata, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (resource_id) DO UPDATE SET
			file_name = EXCLUDED.file_name,
			size_bytes = EXCLUDED.size_bytes,
			mime_type = EXCLUDED.mime_type,
			etag = EXCLUDED.etag,
			checksum = EXCLUDED.checksum,
			checksum_algorithm = EXCLUDED.checksum_algorithm,
			tags = EXCLUDED.tags,
			metadata = EXCLUDED.metadata,
			updated_at = EXCLUDED.updated_at`

	_, err := r.db.Exec(ctx, query,
		metadata.ResourceID, metadata.FileName, metadata.SizeBytes, metadata.MimeType,
		metadata.ETag, metadata.Checksum, metadata.ChecksumAlgorithm,
		metadata.Tags, metadata.Metadata, metadata.CreatedAt, metadata.UpdatedAt)

	if err != nil {
		return r.handlePostgresError("set resource metadata", err)
	}

	return nil
}

func (r *Repository) GetResourceMetadata(ctx context.Context, resourceID uuid.UUID) (*contentstore.ResourceMetadata, error) {
	query := `
		SELECT resource_id, file_name, size_bytes, mime_type, etag,
		       checksum, checksum_algorithm, tags, metadata, created_at, updated_at
		FROM resource_metadata WHERE resource_id = $1`

	var metadata contentstore.ResourceMetadata
	err := r.db.QueryRow(ctx, query, resourceID).Scan(
		&metadata.ResourceID, &metadata.FileName, &metadata.SizeBytes, &metadata.MimeType,
		&metadata.ETag, &metadata.Checksum, &metadata.ChecksumAlgorithm,
		&metadata.Tags, &metadata.Metadata, &metadata.CreatedAt, &metadata.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("resource metadata not found for resource %s", resourceID)
		}
		return nil, r.handlePostgresError("get resource metadata", err)
	}

	return &metadata, nil
}

// Association operations

func (r *Repository) CreateAssociation(ctx context.Context, assoc *contentstore.Association) error {
	// Upsert on the entity property path
	query := `
		INSERT INTO association (
			id, entity_type, entity_id, property_path, resource_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_type, entity_id, property_path) DO UPDATE SET
			resource_id = EXCLUDED.resource_id,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		assoc.ID, assoc.EntityType, assoc.EntityID, assoc.PropertyPath,
		assoc.ResourceID, assoc.CreatedAt, assoc.UpdatedAt).Scan(&assoc.ID, &assoc.CreatedAt)

	if err != nil {
		return r.handlePostgresError("create association", err)
	}

	return nil
}

func (r *Repository) GetAssociationByEntity(ctx context.Context, ref contentstore.EntityRef) (*contentstore.Association, error) {
	query := `
		SELECT id, entity_type, entity_id, property_path, resource_id, created_at, updated_at
		FROM association
		WHERE entity_type = $1 AND entity_id = $2 AND property_path = $3`

	var assoc contentstore.Association
	err := r.db.QueryRow(ctx, query, ref.EntityType, ref.EntityID, ref.PropertyPath).Scan(
		&assoc.ID, &assoc.EntityType, &assoc.EntityID, &assoc.PropertyPath,
		&assoc.ResourceID, &assoc.CreatedAt, &assoc.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentstore.ErrAssociationNotFound
		}
		return nil, r.handlePostgresError("get association", err)
	}

	return &assoc, nil
}

func (r *Repository) ListAssociationsByEntity(ctx context.Context, entityType string, entityID uuid.UUID) ([]*contentstore.Association, error) {
	query := `
		SELECT id, entity_type, entity_id, property_path, resource_id, created_at, updated_at
		FROM association
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY property_path`

	return r.queryAssociations(ctx, query, entityType, entityID)
}

func (r *Repository) ListAssociationsByResource(ctx context.Context, resourceID uuid.UUID) ([]*contentstore.Association, error) {
	query := `
		SELECT id, entity_type, entity_id, property_path, resource_id, created_at, updated_at
		FROM association
		WHERE resource_id = $1
		ORDER BY property_path`

	return r.queryAssociations(ctx, query, resourceID)
}

func (r *Repository) queryAssociations(ctx context.Context, query string, args ...interface{}) ([]*contentstore.Association, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("list associations", err)
	}
	defer rows.Close()

	var associations []*contentstore.Association
	for rows.Next() {
		var assoc contentstore.Association
		if err := rows.Scan(
			&assoc.ID, &assoc.EntityType, &assoc.EntityID, &assoc.PropertyPath,
			&assoc.ResourceID, &assoc.CreatedAt, &assoc.UpdatedAt); err != nil {
			return nil, err
		}
		associations = append(associations, &assoc)
	}

	return associations, rows.Err()
}

func (r *Repository) DeleteAssociation(ctx context.Context, ref contentstore.EntityRef) error {
	query := `
		DELETE FROM association
		WHERE entity_type = $1 AND entity_id = $2 AND property_path = $3`

	tag, err := r.db.Exec(ctx, query, ref.EntityType, ref.EntityID, ref.PropertyPath)
	if err != nil {
		return r.handlePostgresError("delete association", err)
	}
	if tag.RowsAffected() == 0 {
		return contentstore.ErrAssociationNotFound
	}

	return nil
}

func (r *Repository) DeleteAssociationsByResource(ctx context.Context, resourceID uuid.UUID) error {
	query := `DELETE FROM association WHERE resource_id = $1`
	if _, err := r.db.Exec(ctx, query, resourceID); err != nil {
		return r.handlePostgresError("delete associations by resource", err)
	}
	return nil
}

// Rendition operations

func (r *Repository) CreateRendition(ctx context.Context, rendition *contentstore.Rendition) error {
	// Upsert on the target mime type so a re-render replaces the stale record
	query := `
		INSERT INTO rendition (
			id, resource_id, source_mime, target_mime, object_key, size_bytes, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (resource_id, target_mime) DO UPDATE SET
			source_mime = EXCLUDED.source_mime,
			object_key = EXCLUDED.object_key,
			size_bytes = EXCLUDED.size_bytes
		RETURNING id, created_at`

	err := r.db.QueryRow(ctx, query,
		rendition.ID, rendition.ResourceID, rendition.SourceMime,
		rendition.TargetMime, rendition.ObjectKey, rendition.SizeBytes,
		rendition.CreatedAt).Scan(&rendition.ID, &rendition.CreatedAt)

	if err != nil {
		return r.handlePostgresError("create rendition", err)
	}

	return nil
}

func (r *Repository) GetRendition(ctx context.Context, resourceID uuid.UUID, targetMime string) (*contentstore.Rendition, error) {
	query := `
		SELECT id, resource_id, source_mime, target_mime, object_key, size_bytes, created_at
		FROM rendition WHERE resource_id = $1 AND target_mime = $2`

	var rendition contentstore.Rendition
	err := r.db.QueryRow(ctx, query, resourceID, targetMime).Scan(
		&rendition.ID, &rendition.ResourceID, &rendition.SourceMime,
		&rendition.TargetMime, &rendition.ObjectKey, &rendition.SizeBytes, &rendition.CreatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, contentstore.ErrRenditionNotFound
		}
		return nil, r.handlePostgresError("get rendition", err)
	}

	return &rendition, nil
}

func (r *Repository) ListRenditions(ctx context.Context, resourceID uuid.UUID) ([]*contentstore.Rendition, error) {
	query := `
		SELECT id, resource_id, source_mime, target_mime, object_key, size_bytes, created_at
		FROM rendition WHERE resource_id = $1
		ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, resourceID)
	if err != nil {
		return nil, r.handlePostgresError("list renditions", err)
	}
	defer rows.Close()

	var renditions []*contentstore.Rendition
	for rows.Next() {
		var rendition contentstore.Rendition
		if err := rows.Scan(
			&rendition.ID, &rendition.ResourceID, &rendition.SourceMime,
			&rendition.TargetMime, &rendition.ObjectKey, &rendition.SizeBytes, &rendition.CreatedAt); err != nil {
			return nil, err
		}
		renditions = append(renditions, &rendition)
	}

	return renditions, rows.Err()
}

func (r *Repository) DeleteRenditions(ctx context.Context, resourceID uuid.UUID) error {
	query := `DELETE FROM rendition WHERE resource_id = $1`
	if _, err := r.db.Exec(ctx, query, resourceID); err != nil {
		return r.handlePostgresError("delete renditions", err)
	}
	return nil
}
