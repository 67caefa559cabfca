package extract

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
	"github.com/lehigh-university-libraries/wikiblob/internal/metadata"
	"github.com/lehigh-university-libraries/wikiblob/internal/output"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tuple(id int64, content, flags string) string {
	return fmt.Sprintf("(%d,_binary '%s',_binary '%s')", id, blob.Escape([]byte(content)), blob.Escape([]byte(flags)))
}

func insert(tuples ...string) []byte {
	return []byte("INSERT INTO `zweig_text` VALUES " + strings.Join(tuples, ",") + ";\n")
}

func newStore(blobs map[int64][]byte) *blobstore.MemoryStore {
	s := blobstore.NewMemoryStore()
	for id, data := range blobs {
		s.Put(id, data)
	}
	return s
}

func TestFindEndToEnd(t *testing.T) {
	store := newStore(map[int64][]byte{
		1: []byte("...(40,_binary 'x',_binary ''),(41,_binary 'Hello ''World''',_binary '0x01'),(42,_binary 'y',_binary '')..."),
	})
	f := NewFinder(store, DefaultOptions(), nil)

	out, err := f.Find(context.Background(), 41, []int64{1})
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, int64(1), out.BlobID)
	assert.Equal(t, int64(41), out.Record.ID)
	assert.Equal(t, "Hello 'World'", string(out.Record.Content))
	assert.Equal(t, "0x01", string(out.Record.Flags))
	assert.Equal(t, int64(31), out.Offset)
}

func TestFindSecondBlob(t *testing.T) {
	const a, b = 10, 20
	store := newStore(map[int64][]byte{
		a: insert(tuple(98, "nope", ""), tuple(100, "nope", "")),
		b: insert(tuple(97, "nope", ""), tuple(99, "found in B", "utf-8")),
	})
	f := NewFinder(store, DefaultOptions(), nil)

	out, err := f.Find(context.Background(), 99, []int64{a, b})
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, int64(b), out.BlobID)
	assert.Equal(t, "found in B", string(out.Record.Content))
	assert.Equal(t, 0, f.Stats().BlobHits[a])
	assert.Equal(t, 1, f.Stats().BlobHits[b])
}

func TestFindFirstMatchWins(t *testing.T) {
	store := newStore(map[int64][]byte{
		1: insert(tuple(5, "first", "")),
		2: insert(tuple(5, "second", "")),
	})
	f := NewFinder(store, DefaultOptions(), nil)

	out, err := f.Find(context.Background(), 5, []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, "first", string(out.Record.Content))
	assert.Equal(t, []int64{1}, f.Stats().HitBlobs())
}

func TestFindDigitBoundary(t *testing.T) {
	store := newStore(map[int64][]byte{
		1: insert(tuple(1230, "long id", "")),
		2: insert(tuple(17, "a", ""), tuple(70, "b", ""), tuple(700, "c", "")),
	})
	f := NewFinder(store, DefaultOptions(), nil)

	out, err := f.Find(context.Background(), 123, []int64{1})
	require.NoError(t, err)
	assert.False(t, out.Found)

	out, err = f.Find(context.Background(), 7, []int64{1, 2})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Empty(t, f.Stats().BlobHits)
}

func TestFindDeterministic(t *testing.T) {
	store := newStore(map[int64][]byte{
		1: insert(tuple(3, "three", "")),
		2: insert(tuple(3, "other three", ""), tuple(4, "four", "")),
	})
	f := NewFinder(store, DefaultOptions(), nil)
	ctx := context.Background()

	for _, id := range []int64{3, 4, 5} {
		first, err := f.Find(ctx, id, []int64{1, 2})
		require.NoError(t, err)
		second, err := f.Find(ctx, id, []int64{1, 2})
		require.NoError(t, err)
		assert.Equal(t, first, second, "id %d", id)
	}
}

func TestFindSkipsPayloadCandidate(t *testing.T) {
	store := newStore(map[int64][]byte{
		1: insert(tuple(4, "mentions (5, here", ""), tuple(5, "real", "f")),
	})
	f := NewFinder(store, DefaultOptions(), nil)

	out, err := f.Find(context.Background(), 5, []int64{1})
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, "real", string(out.Record.Content))
	assert.Equal(t, 1, f.Stats().Mismatches)
}

func TestFindGrowsWindow(t *testing.T) {
	long := strings.Repeat("Lorem ipsum 'dolor' sit amet. ", 200)
	store := newStore(map[int64][]byte{1: insert(tuple(8, long, "gzip"))})

	opts := DefaultOptions()
	opts.Window = 64
	f := NewFinder(store, opts, nil)

	out, err := f.Find(context.Background(), 8, []int64{1})
	require.NoError(t, err)
	require.True(t, out.Found)
	assert.Equal(t, long, string(out.Record.Content))
	assert.Equal(t, "gzip", string(out.Record.Flags))
	assert.Positive(t, f.Stats().WindowRetries)
	assert.Equal(t, f.Stats().WindowRetries+1, f.Stats().Attempts)
}

func TestFindWindowSmallerThanNeedle(t *testing.T) {
	data := []byte("...(40,_binary 'x',_binary ''),(41,_binary 'Hello ''World''',_binary '0x01'),(42,_binary 'y',_binary '')...")
	for _, window := range []int64{5, 12, 14} {
		store := newStore(map[int64][]byte{1: data})
		f := NewFinder(store, Options{Window: window, Lead: 10}, nil)

		out, err := f.Find(context.Background(), 41, []int64{1})
		require.NoError(t, err)
		require.True(t, out.Found, "window %d", window)
		assert.Equal(t, "Hello 'World'", string(out.Record.Content), "window %d", window)
		assert.Positive(t, f.Stats().WindowRetries, "window %d", window)
		assert.Zero(t, f.Stats().Mismatches, "window %d", window)
	}
}

func TestFindWindowCap(t *testing.T) {
	long := strings.Repeat("x", 5000)
	store := newStore(map[int64][]byte{1: insert(tuple(8, long, ""))})

	opts := DefaultOptions()
	opts.Window = 100
	opts.MaxWindow = 1000
	f := NewFinder(store, opts, nil)

	out, err := f.Find(context.Background(), 8, []int64{1})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, 1, f.Stats().Mismatches)
}

func TestFindTruncatedBlob(t *testing.T) {
	store := newStore(map[int64][]byte{1: []byte("INSERT INTO t VALUES (8,_binary 'cut off")})
	f := NewFinder(store, DefaultOptions(), nil)

	out, err := f.Find(context.Background(), 8, []int64{1})
	require.NoError(t, err)
	assert.False(t, out.Found)
	assert.Equal(t, 0, f.Stats().WindowRetries)
}

func TestFindStoreFailure(t *testing.T) {
	store := &faultyStore{Store: newStore(map[int64][]byte{1: insert(tuple(1, "a", ""))}), failAfter: 0}
	f := NewFinder(store, DefaultOptions(), nil)

	_, err := f.Find(context.Background(), 1, []int64{1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, blobstore.ErrStore))
	assert.Contains(t, err.Error(), "record 1 in blob 1")
}

func TestOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultOptions().Validate())

	bad := []func(*Options){
		func(o *Options) { o.Window = 0 },
		func(o *Options) { o.Lead = -1 },
		func(o *Options) { o.MaxWindow = 10 },
		func(o *Options) { o.MaxCandidates = 0 },
		func(o *Options) { o.Window, o.Lead = 10, 10 },
	}
	for i, mutate := range bad {
		o := DefaultOptions()
		mutate(&o)
		assert.Error(t, o.Validate(), "case %d", i)
	}
}

type faultyStore struct {
	blobstore.Store
	failAfter int
	calls     int
	closed    int
}

func (s *faultyStore) Index(ctx context.Context, blobID int64, needle []byte, from int64) (int64, error) {
	s.calls++
	if s.calls > s.failAfter {
		return -1, errors.Mark(errors.New("connection lost"), blobstore.ErrStore)
	}
	return s.Store.Index(ctx, blobID, needle, from)
}

func (s *faultyStore) Close() error {
	s.closed++
	return s.Store.Close()
}

type recordingSink struct {
	checkpoints [][]output.Row
	complete    []output.Row
}

func (s *recordingSink) Checkpoint(rows []output.Row) error {
	s.checkpoints = append(s.checkpoints, append([]output.Row(nil), rows...))
	return nil
}

func (s *recordingSink) Complete(rows []output.Row) error {
	s.complete = append([]output.Row(nil), rows...)
	return nil
}

func pagesFor(ids ...int64) []metadata.Page {
	pages := make([]metadata.Page, len(ids))
	for i, id := range ids {
		pages[i] = metadata.Page{
			ID:      1000 + id,
			Title:   fmt.Sprintf("Page_%d", id),
			Address: fmt.Sprintf("tt:%d", id),
		}
	}
	return pages
}

func opener(s blobstore.Store) func(context.Context) (blobstore.Store, error) {
	return func(context.Context) (blobstore.Store, error) { return s, nil }
}
