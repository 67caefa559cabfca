// Package commands implements the wikiblob subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
	"github.com/lehigh-university-libraries/wikiblob/internal/config"
	"github.com/lehigh-university-libraries/wikiblob/internal/extract"
	"github.com/lehigh-university-libraries/wikiblob/internal/metadata"
)

// openStore opens the dump files when any are configured, the database
// otherwise.
func openStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	if len(cfg.Store.Dumps) > 0 {
		slog.Info("Loading dump files", "files", len(cfg.Store.Dumps))
		return blobstore.LoadFiles(cfg.Store.Dumps)
	}
	if cfg.Store.DSN == "" {
		return nil, fmt.Errorf("no blob store configured: set --dsn (or %s) or pass --dump", config.EnvDSN)
	}
	return blobstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.TablePrefix)
}

// loadPages returns the pages to extract, from the pages CSV when set and
// from the store's metadata tables otherwise. Limit caps the page list in
// page order unless a sample is requested.
func loadPages(ctx context.Context, cfg *config.Config, store blobstore.Store) ([]metadata.Page, error) {
	q := blobstore.PageQuery{Namespace: cfg.Extract.Namespace, Sample: cfg.Extract.Sample}
	if q.Sample <= 0 {
		q.Limit = cfg.Extract.Limit
	}

	if cfg.Store.Pages != "" {
		f, err := os.Open(cfg.Store.Pages)
		if err != nil {
			return nil, fmt.Errorf("failed to open pages file: %w", err)
		}
		defer f.Close()
		pages, err := metadata.ReadPagesCSV(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read pages file %s: %w", cfg.Store.Pages, err)
		}
		if q.Sample > 0 {
			return samplePages(pages, q.Sample), nil
		}
		if q.Limit > 0 && len(pages) > q.Limit {
			pages = pages[:q.Limit]
		}
		return pages, nil
	}

	source, ok := store.(blobstore.PageSource)
	if !ok {
		return nil, fmt.Errorf("dump files carry no page table: pass --pages with a page_id,page_title,content_address CSV")
	}
	return source.Pages(ctx, q)
}

// samplePages mirrors the database sample: 2*n pages in random order.
func samplePages(pages []metadata.Page, n int) []metadata.Page {
	if n <= 0 {
		return pages
	}
	rand.Shuffle(len(pages), func(i, j int) { pages[i], pages[j] = pages[j], pages[i] })
	return pages[:min(len(pages), 2*n)]
}

func lookupOptions(cfg *config.Config) (extract.Options, error) {
	mode, err := blob.ParseUnescapeMode(cfg.Extract.Unescape)
	if err != nil {
		return extract.Options{}, err
	}
	opts := extract.Options{
		Window:        cfg.Extract.Window,
		Lead:          cfg.Extract.Lead,
		MaxWindow:     cfg.Extract.MaxWindow,
		MaxCandidates: cfg.Extract.MaxCandidates,
		Mode:          mode,
	}
	return opts, opts.Validate()
}
