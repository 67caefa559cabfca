package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
	"github.com/lehigh-university-libraries/wikiblob/internal/config"
	"github.com/spf13/cobra"
)

// NewImportCmd creates the import command
func NewImportCmd(cfg *config.Config) *cobra.Command {
	var startID int64

	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "Load dump segments into the text table",
		Long: `Store each dump segment as one blob row in the text table.

Segments get consecutive blob ids in argument order, starting at --start-id.
Existing rows with the same id are replaced. Files ending in .gz or .zst are
decompressed first.`,
		Example: `  # Import eight segments as blobs 1-8 into SQLite
  wikiblob import --driver sqlite3 --dsn wiki.db zt_0{0..7}.sql.gz`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(cfg.Store.Dumps) > 0 {
				return fmt.Errorf("import writes to a database; --dump cannot be used here")
			}
			if startID < 1 {
				return fmt.Errorf("--start-id must be positive")
			}
			return executeImport(cmd.Context(), cfg, args, startID)
		},
	}

	cmd.Flags().Int64Var(&startID, "start-id", 1, "Blob id of the first file")

	return cmd
}

func executeImport(ctx context.Context, cfg *config.Config, paths []string, startID int64) error {
	if cfg.Store.DSN == "" {
		return fmt.Errorf("no database configured: set --dsn (or %s)", config.EnvDSN)
	}
	store, err := blobstore.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, cfg.Store.TablePrefix)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	return importFiles(ctx, store, paths, startID)
}

func importFiles(ctx context.Context, store *blobstore.SQLStore, paths []string, startID int64) error {
	if err := store.EnsureTextTable(ctx); err != nil {
		return err
	}
	for i, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := blobstore.ReadDumpFile(path)
		if err != nil {
			return err
		}
		id := startID + int64(i)
		if err := store.PutBlob(ctx, id, data); err != nil {
			return err
		}
		slog.Info("Imported dump segment", "path", path, "blob_id", id, "size_mb", len(data)/1024/1024)
	}

	n, err := store.CountBlobs(ctx)
	if err != nil {
		return err
	}
	slog.Info("Import complete", "files", len(paths), "blobs_in_table", n)
	return nil
}
