package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
	"github.com/lehigh-university-libraries/wikiblob/internal/config"
	"github.com/lehigh-university-libraries/wikiblob/internal/extract"
	"github.com/spf13/cobra"
)

// NewLocateCmd creates the locate command
func NewLocateCmd(cfg *config.Config) *cobra.Command {
	var id int64
	var blobIDs []int64

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Look up a single record by id",
		Example: `  # Find record 4711 in any blob
  wikiblob locate --id 4711

  # Only search blob 2
  wikiblob locate --id 4711 --blob-id 2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if id < 0 {
				return fmt.Errorf("--id must not be negative")
			}
			if cmd.Flags().Changed("blob-id") {
				cfg.Extract.BlobIDs = blobIDs
			}
			return executeLocate(cmd.Context(), cfg, id, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64Var(&id, "id", 0, "Record id from the content address (tt:<id>) (required)")
	cmd.Flags().Int64SliceVar(&blobIDs, "blob-id", nil, "Only search these blob ids (repeatable)")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}

func executeLocate(ctx context.Context, cfg *config.Config, id int64, w io.Writer) error {
	opts, err := lookupOptions(cfg)
	if err != nil {
		return fmt.Errorf("invalid lookup options: %w", err)
	}
	codec, err := blob.NewCodec(cfg.Extract.Encoding)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	defer store.Close()

	blobIDs := cfg.Extract.BlobIDs
	if len(blobIDs) == 0 {
		if blobIDs, err = store.BlobIDs(ctx); err != nil {
			return err
		}
	}

	finder := extract.NewFinder(store, opts, nil)
	out, err := finder.Find(ctx, id, blobIDs)
	if err != nil {
		return err
	}
	if !out.Found {
		return fmt.Errorf("record %d not found in %d blob(s)", id, len(blobIDs))
	}

	content, err := codec.Decode(out.Record.Content)
	if err != nil {
		return err
	}
	flags, err := codec.Decode(out.Record.Flags)
	if err != nil {
		return err
	}
	st := finder.Stats()
	fmt.Fprintf(w, "Record:  %d\n", id)
	fmt.Fprintf(w, "Blob:    %d\n", out.BlobID)
	fmt.Fprintf(w, "Offset:  %d\n", out.Offset)
	fmt.Fprintf(w, "Flags:   %s\n", flags)
	fmt.Fprintf(w, "Length:  %d bytes\n", len(out.Record.Content))
	fmt.Fprintf(w, "Windows: %d read, %d retries, %d mismatched candidates\n", st.Attempts, st.WindowRetries, st.Mismatches)
	fmt.Fprintln(w)
	fmt.Fprintln(w, content)
	return nil
}
