package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
	"github.com/lehigh-university-libraries/wikiblob/internal/config"
	"github.com/lehigh-university-libraries/wikiblob/internal/extract"
	"github.com/lehigh-university-libraries/wikiblob/internal/output"
	"github.com/spf13/cobra"
)

// NewExtractCmd creates the extract command
func NewExtractCmd(cfg *config.Config) *cobra.Command {
	var (
		blobIDs   []int64
		limit     int
		sample    int
		batchSize int
		outputDir string
		format    string
		analyze   bool
	)

	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract page content from text-table blobs",
		Long: `Extract the content of every page in a namespace from the text table blobs.

Each page's content address (tt:<id>) names a record tuple inside one of the
blobs. The blobs are searched in ascending id order and the first tuple found
wins. Progress is saved after every batch, so an interrupted run keeps what it
extracted.`,
		Example: `  # Extract all main-namespace pages from MySQL
  wikiblob extract --dsn 'root:secret@tcp(localhost:3306)/zweig'

  # Extract 100 random pages, search only blob 3, write Parquet
  wikiblob extract --sample 100 --blob-id 3 --format parquet

  # Extract from dump segments using a page list
  wikiblob extract --dump zt_00.sql.gz --dump zt_01.sql.gz --pages pages.csv --analyze`,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			if flags.Changed("blob-id") {
				cfg.Extract.BlobIDs = blobIDs
			}
			if flags.Changed("limit") {
				cfg.Extract.Limit = limit
			}
			if flags.Changed("sample") {
				cfg.Extract.Sample = sample
			}
			if flags.Changed("batch-size") {
				cfg.Extract.BatchSize = batchSize
			}
			if flags.Changed("output") {
				cfg.Output.Dir = outputDir
			}
			if flags.Changed("format") {
				cfg.Output.Format = format
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return executeExtract(cmd.Context(), cfg, analyze, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64SliceVar(&blobIDs, "blob-id", nil, "Only search these blob ids (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "Stop after this many records are extracted (0 for all)")
	cmd.Flags().IntVar(&sample, "sample", 0, "Extract this many records from randomly chosen pages")
	cmd.Flags().IntVar(&batchSize, "batch-size", extract.DefaultBatchSize, "Pages per batch; progress is saved after each batch")
	cmd.Flags().StringVar(&outputDir, "output", "output", "Output directory")
	cmd.Flags().StringVar(&format, "format", "csv", "Output format (csv, jsonl, parquet)")
	cmd.Flags().BoolVar(&analyze, "analyze", false, "Run the bibliography analysis on the extracted records")

	return cmd
}

func executeExtract(ctx context.Context, cfg *config.Config, analyze bool, w io.Writer) error {
	opts, err := lookupOptions(cfg)
	if err != nil {
		return fmt.Errorf("invalid lookup options: %w", err)
	}
	codec, err := blob.NewCodec(cfg.Extract.Encoding)
	if err != nil {
		return err
	}
	format, err := output.ParseFormat(cfg.Output.Format)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	pages, err := loadPages(ctx, cfg, store)
	if err != nil {
		store.Close()
		return fmt.Errorf("failed to load pages: %w", err)
	}
	slog.Info("Pages loaded", "pages", len(pages), "namespace", cfg.Extract.Namespace)

	limit := cfg.Extract.Limit
	if cfg.Extract.Sample > 0 {
		limit = cfg.Extract.Sample
	}
	sink := output.NewFileSink(cfg.Output.Dir, format)
	driver := &extract.Driver{
		Open: func(context.Context) (blobstore.Store, error) {
			return store, nil
		},
		Sink:          sink,
		Options:       opts,
		Codec:         codec,
		BatchSize:     cfg.Extract.BatchSize,
		ProgressEvery: cfg.Extract.ProgressEvery,
		Limit:         limit,
		BlobIDs:       cfg.Extract.BlobIDs,
	}

	report, runErr := driver.Run(ctx, pages)

	summary := newRunSummary(cfg, len(pages), report, runErr)
	if report != nil {
		if len(report.NotFound) > 0 {
			if err := sink.WriteNotFound(report.NotFound); err != nil {
				slog.Error("Failed to write not-found report", "err", err)
			} else {
				summary.Outputs.NotFound = sink.NotFoundPath()
			}
		}
		if runErr == nil {
			summary.Outputs.Rows = sink.CompletePath()
		} else if len(report.Rows) > 0 {
			summary.Outputs.Rows = sink.ProgressPath()
		}
		printStats(w, report)
	}
	if path, err := writeRunSummary(cfg.Output.Dir, summary); err != nil {
		slog.Error("Failed to write run summary", "err", err)
	} else {
		slog.Info("Run summary saved", "path", path, "run_id", summary.RunID)
	}

	if runErr != nil {
		return fmt.Errorf("extraction failed: %w", runErr)
	}

	if analyze {
		if _, err := writeAnalysis(cfg.Output.Dir, sink.CompletePath(), report.Rows); err != nil {
			return err
		}
	}
	return nil
}
