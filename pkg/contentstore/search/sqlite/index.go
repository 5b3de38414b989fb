package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"

	"github.com/attachkit/content-store/pkg/contentstore"
)

// Index is a SQLite-backed implementation of contentstore.SearchIndex using
// an FTS5 virtual table. It persists across restarts, unlike the in-memory
// index.
type Index struct {
	db   *sql.DB
	path string
}

// New creates a SQLite search index stored in dataDir. An empty dataDir
// keeps the index in memory only.
func New(dataDir string) (*Index, error) {
	var dsn string
	var dbPath string

	if dataDir == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dbPath = filepath.Join(dataDir, "search.db")
		// WAL mode for better concurrency
		dsn = dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	schema := `
		CREATE VIRTUAL TABLE IF NOT EXISTS search_index USING fts5(
			resource_id UNINDEXED,
			object_key UNINDEXED,
			name,
			body
		)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating search schema: %w", err)
	}

	return &Index{db: db, path: dbPath}, nil
}

// Close closes the database connection
func (i *Index) Close() error {
	return i.db.Close()
}

// Path returns the database file path; empty for an in-memory index
func (i *Index) Path() string {
	return i.path
}

// Index adds or replaces the indexed document for a resource
func (i *Index) Index(ctx context.Context, entry contentstore.IndexEntry) error {
	tx, err := i.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM search_index WHERE resource_id = ?`, entry.ResourceID.String()); err != nil {
		return fmt.Errorf("removing stale entry: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO search_index (resource_id, object_key, name, body) VALUES (?, ?, ?, ?)`,
		entry.ResourceID.String(), entry.ObjectKey, entry.Name, entry.Text); err != nil {
		return fmt.Errorf("indexing resource %s: %w", entry.ResourceID, err)
	}

	return tx.Commit()
}

// Remove drops a resource from the index
func (i *Index) Remove(ctx context.Context, resourceID uuid.UUID) error {
	if _, err := i.db.ExecContext(ctx,
		`DELETE FROM search_index WHERE resource_id = ?`, resourceID.String()); err != nil {
		return fmt.Errorf("removing resource %s: %w", resourceID, err)
	}
	return nil
}

// Search returns IDs of resources matching the request, best match first.
// KeyPattern filtering happens in Go since glob matching is not expressible
// in FTS queries.
func (i *Index) Search(ctx context.Context, req contentstore.SearchRequest) ([]uuid.UUID, error) {
	var rows *sql.Rows
	var err error

	if strings.TrimSpace(req.Query) == "" {
		rows, err = i.db.QueryContext(ctx,
			`SELECT resource_id, object_key, name FROM search_index ORDER BY object_key`)
	} else {
		rows, err = i.db.QueryContext(ctx,
			`SELECT resource_id, object_key, name FROM search_index
			 WHERE search_index MATCH ? ORDER BY rank`,
			ftsQuery(req.Query))
	}
	if err != nil {
		return nil, fmt.Errorf("querying search index: %w", err)
	}
	defer rows.Close()

	var result []uuid.UUID
	for rows.Next() {
		var idStr, objectKey, name string
		if err := rows.Scan(&idStr, &objectKey, &name); err != nil {
			return nil, err
		}

		if req.KeyPattern != "" {
			keyOK, _ := doublestar.Match(req.KeyPattern, objectKey)
			nameOK, _ := doublestar.Match(req.KeyPattern, name)
			if !keyOK && !nameOK {
				continue
			}
		}

		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		result = append(result, id)

		if req.Limit > 0 && len(result) >= req.Limit {
			break
		}
	}

	return result, rows.Err()
}

// ftsQuery turns a free-form query into an FTS5 AND query of quoted terms,
// so user input cannot inject FTS syntax.
func ftsQuery(query string) string {
	terms := strings.Fields(query)
	quoted := make([]string, 0, len(terms))
	for _, term := range terms {
		quoted = append(quoted, `"`+strings.ReplaceAll(term, `"`, `""`)+`"`)
	}
	return strings.Join(quoted, " AND ")
}
