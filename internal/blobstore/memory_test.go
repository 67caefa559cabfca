package blobstore

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	s.Put(2, []byte("(5,_binary 'b',_binary '')"))
	s.Put(1, []byte("xx(5,_binary 'a',_binary '')(5,"))

	ids, err := s.BlobIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)

	off, err := s.Index(ctx, 1, []byte("(5,"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), off)

	off, err = s.Index(ctx, 1, []byte("(5,"), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(28), off)

	off, err = s.Index(ctx, 1, []byte("(6,"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), off)

	off, err = s.Index(ctx, 9, []byte("(5,"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), off)

	w, err := s.Window(ctx, 2, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, "(5,", string(w))

	w, err = s.Window(ctx, 2, -4, 1000)
	require.NoError(t, err)
	assert.Len(t, w, 26)

	w, err = s.Window(ctx, 2, 1000, 10)
	require.NoError(t, err)
	assert.Empty(t, w)

	_, err = s.Window(ctx, 9, 0, 10)
	assert.True(t, errors.Is(err, ErrStore))

	size, err := s.Size(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(26), size)
	_, err = s.Size(ctx, 9)
	assert.True(t, errors.Is(err, ErrStore))

	_, ok := s.Get(9)
	assert.False(t, ok)
	assert.NoError(t, s.Close())
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	s := NewMemoryStore()
	s.Put(1, []byte("(1,"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Index(ctx, 1, []byte("(1,"), 0)
	assert.True(t, errors.Is(err, ErrStore))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	payload := []byte("INSERT INTO `text` VALUES (1,_binary 'plain',_binary '');")

	plain := filepath.Join(dir, "zt_00")
	require.NoError(t, os.WriteFile(plain, payload, 0644))

	var gz bytes.Buffer
	gw := pgzip.NewWriter(&gz)
	_, err := gw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, gw.Close())
	gzPath := filepath.Join(dir, "zt_01.gz")
	require.NoError(t, os.WriteFile(gzPath, gz.Bytes(), 0644))

	var zs bytes.Buffer
	zw, err := zstd.NewWriter(&zs)
	require.NoError(t, err)
	_, err = zw.Write(payload)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	zstPath := filepath.Join(dir, "zt_02.zst")
	require.NoError(t, os.WriteFile(zstPath, zs.Bytes(), 0644))

	s, err := LoadFiles([]string{plain, gzPath, zstPath})
	require.NoError(t, err)

	ids, err := s.BlobIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, ids)
	for _, id := range ids {
		data, ok := s.Get(id)
		require.True(t, ok)
		assert.Equal(t, payload, data)
	}

	_, err = LoadFiles([]string{filepath.Join(dir, "missing")})
	assert.Error(t, err)
}
