package blobstore

import (
	"context"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "wiki.db")
	s, err := Open(ctx, "sqlite3", dsn, DefaultTablePrefix)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.EnsureTextTable(ctx))
	return s
}

func TestSQLStoreBlobs(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	blob := []byte("VALUES (17,_binary 'x',_binary ''),(7,_binary 'it''s',_binary 'utf-8')")
	require.NoError(t, s.PutBlob(ctx, 3, []byte("other")))
	require.NoError(t, s.PutBlob(ctx, 1, blob))

	n, err := s.CountBlobs(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	ids, err := s.BlobIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3}, ids)

	off, err := s.Index(ctx, 1, []byte("(7,"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(35), off)

	off, err = s.Index(ctx, 1, []byte("(7,"), 36)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), off)

	off, err = s.Index(ctx, 3, []byte("(7,"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), off)

	off, err = s.Index(ctx, 99, []byte("(7,"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), off)

	w, err := s.Window(ctx, 1, 35, 3)
	require.NoError(t, err)
	assert.Equal(t, "(7,", string(w))

	size, err := s.Size(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(len(blob)), size)

	_, err = s.Size(ctx, 99)
	assert.Error(t, err)

	// Upsert replaces.
	require.NoError(t, s.PutBlob(ctx, 3, []byte("(7,_binary '',_binary '')")))
	off, err = s.Index(ctx, 3, []byte("(7,"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), off)
}

func TestSQLStorePages(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	for _, stmt := range []string{
		"CREATE TABLE zweig_page (page_id INTEGER PRIMARY KEY, page_namespace INTEGER, page_title BLOB, page_latest INTEGER)",
		"CREATE TABLE zweig_revision (rev_id INTEGER PRIMARY KEY)",
		"CREATE TABLE zweig_slots (slot_revision_id INTEGER, slot_content_id INTEGER)",
		"CREATE TABLE zweig_content (content_id INTEGER PRIMARY KEY, content_address BLOB)",
		"INSERT INTO zweig_revision VALUES (100), (101), (102)",
		"INSERT INTO zweig_slots VALUES (100, 1000), (101, 1001), (102, 1002)",
		"INSERT INTO zweig_content VALUES (1000, 'tt:7'), (1001, 'tt:8'), (1002, 'tt:9')",
	} {
		_, err := s.db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	_, err := s.db.ExecContext(ctx, "INSERT INTO zweig_page VALUES (2, 0, ?, 101), (1, 0, ?, 100), (3, 1, ?, 102)",
		[]byte("0x"+hex.EncodeToString([]byte("Sternstunden"))), []byte("Amok"), []byte("Talk"))
	require.NoError(t, err)

	pages, err := s.Pages(ctx, PageQuery{})
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, int64(1), pages[0].ID)
	assert.Equal(t, "Amok", pages[0].Title)
	assert.Equal(t, "tt:7", pages[0].Address)
	assert.Equal(t, "Sternstunden", pages[1].Title)

	pages, err = s.Pages(ctx, PageQuery{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, pages, 1)

	pages, err = s.Pages(ctx, PageQuery{Sample: 1})
	require.NoError(t, err)
	assert.Len(t, pages, 2)

	pages, err = s.Pages(ctx, PageQuery{Namespace: 1})
	require.NoError(t, err)
	require.Len(t, pages, 1)
	id, ok := pages[0].RecordID()
	assert.True(t, ok)
	assert.Equal(t, int64(9), id)
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), "postgres", "", DefaultTablePrefix)
	assert.Error(t, err)
}

func TestNewSQLStoreRejectsBadPrefix(t *testing.T) {
	_, err := NewSQLStore(nil, "sqlite3", "x; DROP TABLE y")
	assert.Error(t, err)
}
