package extract

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
	"github.com/lehigh-university-libraries/wikiblob/internal/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriverRun(t *testing.T) {
	store := &faultyStore{failAfter: 1 << 30, Store: newStore(map[int64][]byte{
		1: insert(tuple(1, "eins", ""), tuple(2, "zwei", "")),
		2: insert(tuple(3, "drei", "utf-8"), tuple(5, "fünf", "")),
	})}
	sink := &recordingSink{}
	pages := append(pagesFor(1, 2, 3, 4, 5), metadata.Page{ID: 9, Title: "Broken", Address: "es:123"})

	d := &Driver{Open: opener(store), Sink: sink, BatchSize: 2}
	report, err := d.Run(context.Background(), pages)
	require.NoError(t, err)

	stats := report.Stats
	assert.Equal(t, 6, stats.Targets)
	assert.Equal(t, 4, stats.Extracted)
	assert.Equal(t, 1, stats.NotFound)
	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, stats.Targets, len(report.Rows)+len(report.NotFound))
	assert.Equal(t, map[int64]int{1: 2, 2: 2}, stats.BlobHits)
	assert.Equal(t, int64(5), stats.Latency().Count)
	assert.False(t, report.Stopped)

	require.Len(t, report.Rows, 4)
	assert.Equal(t, int64(1003), report.Rows[2].PageID)
	assert.Equal(t, "drei", report.Rows[2].Content)
	assert.Equal(t, "utf-8", report.Rows[2].Flags)
	assert.Equal(t, int64(2), report.Rows[2].BlobID)

	require.Len(t, report.NotFound, 2)
	assert.Equal(t, int64(4), report.NotFound[0].RecordID)
	assert.Equal(t, int64(9), report.NotFound[1].PageID)

	require.Len(t, sink.checkpoints, 3)
	assert.Len(t, sink.checkpoints[0], 2)
	assert.Len(t, sink.checkpoints[1], 3)
	assert.Len(t, sink.checkpoints[2], 4)
	assert.Equal(t, report.Rows, sink.complete)
	assert.Equal(t, 1, store.closed)
}

func TestDriverLatin1(t *testing.T) {
	store := newStore(map[int64][]byte{1: insert(tuple(1, "caf\xe9", ""))})
	d := &Driver{Open: opener(store)}

	report, err := d.Run(context.Background(), pagesFor(1))
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "café", report.Rows[0].Content)
}

func TestDriverLimit(t *testing.T) {
	store := newStore(map[int64][]byte{
		1: insert(tuple(1, "a", ""), tuple(2, "b", ""), tuple(3, "c", ""), tuple(4, "d", "")),
	})
	sink := &recordingSink{}
	d := &Driver{Open: opener(store), Sink: sink, BatchSize: 10, Limit: 2}

	report, err := d.Run(context.Background(), pagesFor(1, 2, 3, 4))
	require.NoError(t, err)
	assert.True(t, report.Stopped)
	assert.Len(t, report.Rows, 2)
	assert.Equal(t, 2, report.Stats.Targets)
	assert.Len(t, sink.complete, 2)
}

func TestDriverBlobFilter(t *testing.T) {
	store := newStore(map[int64][]byte{
		1: insert(tuple(1, "in one", "")),
		2: insert(tuple(1, "in two", "")),
	})
	d := &Driver{Open: opener(store), BlobIDs: []int64{2}}

	report, err := d.Run(context.Background(), pagesFor(1))
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, "in two", report.Rows[0].Content)
	assert.Equal(t, int64(2), report.Rows[0].BlobID)
}

func TestDriverStoreFailureKeepsCompletedBatches(t *testing.T) {
	store := &faultyStore{failAfter: 3, Store: newStore(map[int64][]byte{
		1: insert(tuple(1, "a", ""), tuple(2, "b", ""), tuple(3, "c", ""), tuple(4, "d", ""), tuple(5, "e", "")),
	})}
	sink := &recordingSink{}
	d := &Driver{Open: opener(store), Sink: sink, BatchSize: 2}

	report, err := d.Run(context.Background(), pagesFor(1, 2, 3, 4, 5))
	require.Error(t, err)
	assert.True(t, errors.Is(err, blobstore.ErrStore))
	assert.Contains(t, err.Error(), "page 1004")
	assert.Contains(t, err.Error(), "record 4 in blob 1")

	require.NotEmpty(t, sink.checkpoints)
	assert.Len(t, sink.checkpoints[0], 2)
	last := sink.checkpoints[len(sink.checkpoints)-1]
	assert.Len(t, last, 3)
	assert.Nil(t, sink.complete)
	assert.Len(t, report.Rows, 3)
	assert.Equal(t, 1, store.closed)
}

func TestDriverCancelled(t *testing.T) {
	store := &faultyStore{failAfter: 1 << 30, Store: newStore(map[int64][]byte{1: insert(tuple(1, "a", ""))})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &Driver{Open: opener(store)}
	_, err := d.Run(ctx, pagesFor(1))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, store.closed)
}

func TestDriverOpenFailure(t *testing.T) {
	d := &Driver{Open: func(context.Context) (blobstore.Store, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}
	_, err := d.Run(context.Background(), pagesFor(1))
	assert.ErrorContains(t, err, "opening blob store")
}
