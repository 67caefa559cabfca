package extract

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
	"github.com/lehigh-university-libraries/wikiblob/internal/metadata"
	"github.com/lehigh-university-libraries/wikiblob/internal/output"
)

// Sink persists extracted rows. Checkpoint receives every row extracted so
// far after each batch; Complete receives the final set.
type Sink interface {
	Checkpoint(rows []output.Row) error
	Complete(rows []output.Row) error
}

// Driver runs a batch extraction over a list of pages.
type Driver struct {
	// Open acquires the store for one run. The driver closes it on every
	// exit path.
	Open func(ctx context.Context) (blobstore.Store, error)
	Sink Sink

	Options Options
	Codec   blob.Codec

	BatchSize     int
	ProgressEvery int
	// Limit stops the run once this many records were extracted. Zero
	// means no limit.
	Limit int
	// BlobIDs restricts the search. When empty, every blob in the store is
	// searched in ascending order.
	BlobIDs []int64
}

// Report is the result of a run. It is returned alongside an error when a
// run aborts, holding what was extracted up to that point.
type Report struct {
	Rows     []output.Row
	NotFound []output.NotFound
	Stats    *Stats
	// Stopped is set when the run ended because Limit was reached.
	Stopped bool
}

// Run extracts the record of every page, in order.
func (d *Driver) Run(ctx context.Context, pages []metadata.Page) (report *Report, err error) {
	if d.Open == nil {
		return nil, errors.New("extract: driver has no store")
	}
	batchSize := d.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	progressEvery := d.ProgressEvery
	if progressEvery <= 0 {
		progressEvery = DefaultProgressEvery
	}

	stats := NewStats()
	stats.Started = time.Now()
	report = &Report{Stats: stats}
	defer func() {
		stats.Elapsed = time.Since(stats.Started)
	}()

	store, err := d.Open(ctx)
	if err != nil {
		return report, errors.Wrap(err, "opening blob store")
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			slog.Warn("Failed to close blob store", "err", cerr)
		}
	}()

	blobIDs := d.BlobIDs
	if len(blobIDs) == 0 {
		blobIDs, err = store.BlobIDs(ctx)
		if err != nil {
			return report, err
		}
	}
	slog.Info("Starting extraction", "pages", len(pages), "blobs", len(blobIDs), "batch_size", batchSize, "limit", d.Limit)

	finder := NewFinder(store, d.Options, stats)
	abort := func(cause error) (*Report, error) {
		if d.Sink != nil && len(report.Rows) > 0 {
			if cerr := d.Sink.Checkpoint(report.Rows); cerr != nil {
				slog.Error("Failed to save partial results", "err", cerr)
			}
		}
		return report, cause
	}

	for start := 0; start < len(pages) && !report.Stopped; start += batchSize {
		end := min(start+batchSize, len(pages))
		for _, page := range pages[start:end] {
			if err := ctx.Err(); err != nil {
				slog.Warn("Extraction cancelled", "processed", stats.Targets, "extracted", stats.Extracted)
				return abort(err)
			}
			if d.Limit > 0 && stats.Extracted >= d.Limit {
				report.Stopped = true
				break
			}

			if err := d.process(ctx, finder, page, blobIDs, report); err != nil {
				slog.Error("Extraction failed, aborting run", "page_id", page.ID, "address", page.Address, "err", err)
				return abort(errors.Wrapf(err, "page %d", page.ID))
			}

			if stats.Targets%progressEvery == 0 {
				elapsed := time.Since(stats.Started)
				slog.Info("Progress",
					"processed", stats.Targets,
					"total", len(pages),
					"extracted", stats.Extracted,
					"elapsed", elapsed.Round(time.Second),
					"rate", perSecond(stats.Targets, elapsed))
			}
		}

		if d.Limit > 0 && stats.Extracted >= d.Limit {
			report.Stopped = true
		}
		if d.Sink != nil {
			if err := d.Sink.Checkpoint(report.Rows); err != nil {
				return report, errors.Wrap(err, "saving batch progress")
			}
		}
		slog.Debug("Batch complete", "batch_end", end, "extracted", stats.Extracted)
	}

	if d.Sink != nil {
		if err := d.Sink.Complete(report.Rows); err != nil {
			return report, errors.Wrap(err, "saving extraction")
		}
	}

	slog.Info("Extraction complete",
		"processed", stats.Targets,
		"extracted", stats.Extracted,
		"not_found", stats.NotFound,
		"skipped", stats.Skipped,
		"elapsed", time.Since(stats.Started).Round(time.Millisecond))
	return report, nil
}

func (d *Driver) process(ctx context.Context, finder *Finder, page metadata.Page, blobIDs []int64, report *Report) error {
	stats := report.Stats
	id, ok := page.RecordID()
	if !ok {
		stats.Targets++
		stats.Skipped++
		report.NotFound = append(report.NotFound, output.NotFound{
			PageID:    page.ID,
			PageTitle: page.Title,
			Address:   page.Address,
			Reason:    "no record id in content address",
		})
		return nil
	}

	t0 := time.Now()
	out, err := finder.Find(ctx, id, blobIDs)
	stats.ObserveLookup(time.Since(t0))
	if err != nil {
		return err
	}
	stats.Targets++

	if !out.Found {
		stats.NotFound++
		report.NotFound = append(report.NotFound, output.NotFound{
			PageID:    page.ID,
			PageTitle: page.Title,
			RecordID:  id,
			Address:   page.Address,
			Reason:    "not found",
		})
		return nil
	}

	content, err := d.Codec.Decode(out.Record.Content)
	if err != nil {
		return errors.Wrapf(err, "record %d content", id)
	}
	flags, err := d.Codec.Decode(out.Record.Flags)
	if err != nil {
		return errors.Wrapf(err, "record %d flags", id)
	}
	stats.Extracted++
	report.Rows = append(report.Rows, output.Row{
		PageID:    page.ID,
		PageTitle: page.Title,
		RecordID:  id,
		Content:   content,
		Flags:     flags,
		BlobID:    out.BlobID,
	})
	return nil
}

func perSecond(n int, d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(n) / d.Seconds()
}
