package sqlite_test

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attachkit/content-store/pkg/contentstore"
	"github.com/attachkit/content-store/pkg/contentstore/search/sqlite"
)

func newTestIndex(t *testing.T) *sqlite.Index {
	t.Helper()

	idx, err := sqlite.New("")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func indexEntry(objectKey, name, text string) contentstore.IndexEntry {
	return contentstore.IndexEntry{
		ResourceID: uuid.New(),
		ObjectKey:  objectKey,
		Name:       name,
		Text:       text,
	}
}

func TestInMemoryIndexHasNoPath(t *testing.T) {
	idx := newTestIndex(t)
	assert.Empty(t, idx.Path())
}

func TestPersistentIndexCreatesFile(t *testing.T) {
	dir := t.TempDir()

	idx, err := sqlite.New(dir)
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.Index(context.Background(), indexEntry("a.txt", "a", "words")))

	_, err = os.Stat(idx.Path())
	assert.NoError(t, err)
}

func TestIndexAndSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	revenue := indexEntry("reports/q1.txt", "q1.txt", "quarterly revenue summary")
	notes := indexEntry("notes/meeting.txt", "meeting.txt", "meeting notes")
	require.NoError(t, idx.Index(ctx, revenue))
	require.NoError(t, idx.Index(ctx, notes))

	ids, err := idx.Search(ctx, contentstore.SearchRequest{Query: "revenue"})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, revenue.ResourceID, ids[0])
}

func TestSearchAllTermsMustMatch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	both := indexEntry("a.txt", "a", "alpha beta gamma")
	onlyAlpha := indexEntry("b.txt", "b", "alpha delta")
	require.NoError(t, idx.Index(ctx, both))
	require.NoError(t, idx.Index(ctx, onlyAlpha))

	ids, err := idx.Search(ctx, contentstore.SearchRequest{Query: "alpha beta"})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, both.ResourceID, ids[0])
}

func TestSearchQuotedTermsAreSafe(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := indexEntry("a.txt", "a", "plain words")
	require.NoError(t, idx.Index(ctx, entry))

	// FTS operators in user input are treated as literal terms.
	ids, err := idx.Search(ctx, contentstore.SearchRequest{Query: `words OR`})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSearchEmptyQueryReturnsAll(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	a := indexEntry("a.txt", "a", "one")
	b := indexEntry("b.txt", "b", "two")
	require.NoError(t, idx.Index(ctx, a))
	require.NoError(t, idx.Index(ctx, b))

	ids, err := idx.Search(ctx, contentstore.SearchRequest{})
	require.NoError(t, err)
	require.Len(t, ids, 2)
	assert.Equal(t, []uuid.UUID{a.ResourceID, b.ResourceID}, ids)
}

func TestSearchKeyPattern(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	inReports := indexEntry("reports/2026/q1.txt", "q1.txt", "status report")
	inNotes := indexEntry("notes/status.txt", "status.txt", "status report")
	require.NoError(t, idx.Index(ctx, inReports))
	require.NoError(t, idx.Index(ctx, inNotes))

	ids, err := idx.Search(ctx, contentstore.SearchRequest{
		Query:      "status",
		KeyPattern: "reports/**/*.txt",
	})
	require.NoError(t, err)
	require.Len(t, ids, 1)
	assert.Equal(t, inReports.ResourceID, ids[0])
}

func TestSearchLimit(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, idx.Index(ctx, indexEntry(
			string(rune('a'+i))+".txt", "file", "common words")))
	}

	ids, err := idx.Search(ctx, contentstore.SearchRequest{Query: "common", Limit: 3})
	require.NoError(t, err)
	assert.Len(t, ids, 3)
}

func TestReindexReplacesDocument(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := indexEntry("a.txt", "a", "original words")
	require.NoError(t, idx.Index(ctx, entry))

	entry.Text = "replacement words"
	require.NoError(t, idx.Index(ctx, entry))

	ids, err := idx.Search(ctx, contentstore.SearchRequest{Query: "original"})
	require.NoError(t, err)
	assert.Empty(t, ids)

	ids, err = idx.Search(ctx, contentstore.SearchRequest{Query: "replacement"})
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestRemove(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	entry := indexEntry("a.txt", "a", "findable")
	require.NoError(t, idx.Index(ctx, entry))
	require.NoError(t, idx.Remove(ctx, entry.ResourceID))

	ids, err := idx.Search(ctx, contentstore.SearchRequest{Query: "findable"})
	require.NoError(t, err)
	assert.Empty(t, ids)
}
