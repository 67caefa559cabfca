package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
)

// MemoryStore keeps blobs in process memory. It backs extraction straight
// from dump segments when no database is available, and tests.
type MemoryStore struct {
	blobs map[int64][]byte
	mu    sync.RWMutex
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		blobs: make(map[int64][]byte),
	}
}

// LoadFiles reads dump segments into a new store. Blob ids are assigned
// 1..N in argument order, matching how segments are imported into the text
// table.
func LoadFiles(paths []string) (*MemoryStore, error) {
	s := NewMemoryStore()
	for i, path := range paths {
		data, err := ReadDumpFile(path)
		if err != nil {
			return nil, err
		}
		s.Put(int64(i+1), data)
		slog.Debug("Loaded dump segment", "path", path, "blob_id", i+1, "size_bytes", len(data))
	}
	return s, nil
}

// ReadDumpFile reads a dump segment, decompressing .gz and .zst files.
func ReadDumpFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	case ".zst":
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open zstd stream %s: %w", path, err)
		}
		defer zr.Close()
		r = zr
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump file %s: %w", path, err)
	}
	return data, nil
}

func (s *MemoryStore) Get(blobID int64) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, exists := s.blobs[blobID]
	return data, exists
}

func (s *MemoryStore) Put(blobID int64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[blobID] = data
}

func (s *MemoryStore) BlobIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.blobs))
	for id := range s.blobs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *MemoryStore) Index(ctx context.Context, blobID int64, needle []byte, from int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return -1, storeError(err, "index blob %d", blobID)
	}
	data, ok := s.Get(blobID)
	if !ok || from < 0 || from > int64(len(data)) {
		return -1, nil
	}
	i := bytes.Index(data[from:], needle)
	if i < 0 {
		return -1, nil
	}
	return from + int64(i), nil
}

func (s *MemoryStore) Window(ctx context.Context, blobID int64, offset, n int64) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeError(err, "read blob %d", blobID)
	}
	data, ok := s.Get(blobID)
	if !ok {
		return nil, storeError(fmt.Errorf("blob %d not found", blobID), "read blob %d", blobID)
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= int64(len(data)) || n <= 0 {
		return nil, nil
	}
	end := offset + n
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[offset:end], nil
}

func (s *MemoryStore) Size(ctx context.Context, blobID int64) (int64, error) {
	data, ok := s.Get(blobID)
	if !ok {
		return 0, storeError(fmt.Errorf("blob %d not found", blobID), "size of blob %d", blobID)
	}
	return int64(len(data)), nil
}

func (s *MemoryStore) Close() error {
	return nil
}
