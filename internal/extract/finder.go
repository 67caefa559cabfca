package extract

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
)

// Outcome is the result of looking up one record id. When Found is false the
// id was not present in any searched blob.
type Outcome struct {
	Found  bool
	Record blob.Record
	BlobID int64
	// Offset is the 0-based position of the tuple opening in the blob.
	Offset int64
}

// Finder searches blobs for record tuples through a Store. It never loads a
// whole blob: the store does the byte search and returns bounded windows.
type Finder struct {
	store     blobstore.Store
	opts      Options
	extractor blob.Extractor
	stats     *Stats
}

// NewFinder creates a finder. Lookup counters go to stats, which may be nil.
func NewFinder(store blobstore.Store, opts Options, stats *Stats) *Finder {
	opts = opts.withDefaults()
	if stats == nil {
		stats = NewStats()
	}
	return &Finder{
		store:     store,
		opts:      opts,
		extractor: blob.Extractor{Mode: opts.Mode},
		stats:     stats,
	}
}

// Stats returns the counters this finder updates.
func (f *Finder) Stats() *Stats {
	return f.stats
}

// Find returns the tuple for id from the first blob in blobIDs that holds
// one. blobIDs are searched in the order given; callers pass them ascending
// so a given id always resolves to the same blob. Only store failures are
// returned as errors.
func (f *Finder) Find(ctx context.Context, id int64, blobIDs []int64) (Outcome, error) {
	for _, blobID := range blobIDs {
		out, err := f.findInBlob(ctx, id, blobID)
		if err != nil {
			return Outcome{}, errors.Wrapf(err, "record %d in blob %d", id, blobID)
		}
		if out.Found {
			f.stats.hit(blobID)
			return out, nil
		}
	}
	return Outcome{}, nil
}

func (f *Finder) findInBlob(ctx context.Context, id, blobID int64) (Outcome, error) {
	needle := blob.Needle(id)
	var from int64
	for range f.opts.MaxCandidates {
		off, err := f.store.Index(ctx, blobID, needle, from)
		if err != nil {
			return Outcome{}, err
		}
		if off < 0 {
			return Outcome{}, nil
		}

		rec, err := f.extractAt(ctx, id, blobID, off)
		switch {
		case err == nil:
			return Outcome{Found: true, Record: rec, BlobID: blobID, Offset: off}, nil
		case errors.Is(err, blob.ErrNoMatch):
			f.stats.Mismatches++
			slog.Debug("Candidate did not parse", "record_id", id, "blob_id", blobID, "offset", off)
		default:
			return Outcome{}, err
		}
		from = off + 1
	}
	slog.Debug("Candidate limit reached", "record_id", id, "blob_id", blobID, "max_candidates", f.opts.MaxCandidates)
	return Outcome{}, nil
}

// extractAt reads a window around off and parses the tuple there, doubling
// the window while the tuple runs past its end. A tuple still truncated at
// MaxWindow, or at the end of the blob, counts as a mismatch.
func (f *Finder) extractAt(ctx context.Context, id, blobID, off int64) (blob.Record, error) {
	start := max(off-f.opts.Lead, 0)
	needleLen := int64(len(blob.Needle(id)))
	size := f.opts.Window
	limit := f.opts.MaxWindow
	for {
		window, err := f.store.Window(ctx, blobID, start, size)
		if err != nil {
			return blob.Record{}, err
		}
		f.stats.Attempts++

		var rec blob.Record
		if int64(len(window)) < off-start+needleLen {
			// The window ends inside "(id," itself.
			err = blob.ErrIncomplete
		} else {
			rec, err = f.extractor.ExtractAt(window, int(off-start), id)
		}
		if !errors.Is(err, blob.ErrIncomplete) {
			return rec, err
		}
		if int64(len(window)) < size || size >= limit {
			return blob.Record{}, blob.ErrNoMatch
		}
		size = min(size*2, limit)
		f.stats.WindowRetries++
	}
}
