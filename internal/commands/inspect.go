package commands

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/wikiblob/internal/blob"
	"github.com/lehigh-university-libraries/wikiblob/internal/blobstore"
	"github.com/lehigh-university-libraries/wikiblob/internal/config"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

const (
	headerBytes = 1000
	sampleBytes = 10000
)

// NewInspectCmd creates the inspect command
func NewInspectCmd(cfg *config.Config) *cobra.Command {
	var blobIDs []int64
	var preview int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Inspect the structure of text-table blobs",
		Long: `Inspect the blobs of the text table.

Useful when pages come back not found: shows each blob's size, whether it
holds SQL dump statements, how many tuples the first INSERT carries and the
first record id, so a blob with an unexpected layout stands out.`,
		Example: `  # Inspect every blob in the database
  wikiblob inspect

  # Show a longer header preview of blob 2
  wikiblob inspect --blob-id 2 --preview 400

  # Inspect dump segments before importing them
  wikiblob inspect --dump zt_00.sql.gz --dump zt_01.sql.zst`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if preview < 0 || preview > headerBytes {
				return fmt.Errorf("--preview must be between 0 and %d", headerBytes)
			}
			return executeInspect(cmd.Context(), cfg, blobIDs, preview, cmd.OutOrStdout())
		},
	}

	cmd.Flags().Int64SliceVar(&blobIDs, "blob-id", nil, "Only inspect these blob ids (repeatable)")
	cmd.Flags().IntVar(&preview, "preview", 100, "Header characters to show per blob (0 to hide)")

	return cmd
}

// BlobInfo describes the layout of one blob.
type BlobInfo struct {
	BlobID    int64
	Size      int64
	Header    string
	HasCreate bool
	HasInsert bool
	// MultiValue is set when the first INSERT carries more than one tuple.
	MultiValue bool
	// Tuples is the number of tuples seen in the first INSERT. When
	// Truncated is set the statement runs past the sample and Tuples is a
	// lower bound.
	Tuples       int
	Truncated    bool
	FirstID      int64
	FirstFlags   string
	FirstContent string
}

func executeInspect(ctx context.Context, cfg *config.Config, blobIDs []int64, preview int, w io.Writer) error {
	codec, err := blob.NewCodec(cfg.Extract.Encoding)
	if err != nil {
		return err
	}
	mode, err := blob.ParseUnescapeMode(cfg.Extract.Unescape)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to open blob store: %w", err)
	}
	defer store.Close()

	if len(blobIDs) == 0 {
		blobIDs, err = store.BlobIDs(ctx)
		if err != nil {
			return err
		}
	}

	infos := make([]BlobInfo, 0, len(blobIDs))
	for _, id := range blobIDs {
		info, err := inspectBlob(ctx, store, codec, mode, id)
		if err != nil {
			return err
		}
		infos = append(infos, info)
	}
	printBlobInfos(w, infos, preview)
	return nil
}

func inspectBlob(ctx context.Context, store blobstore.Store, codec blob.Codec, mode blob.UnescapeMode, blobID int64) (BlobInfo, error) {
	info := BlobInfo{BlobID: blobID, Size: -1, FirstID: -1}
	if sizer, ok := store.(blobstore.Sizer); ok {
		size, err := sizer.Size(ctx, blobID)
		if err != nil {
			return info, err
		}
		info.Size = size
	}

	sample, err := store.Window(ctx, blobID, 0, sampleBytes)
	if err != nil {
		return info, err
	}
	header := sample[:min(len(sample), headerBytes)]
	info.Header, _ = codec.Decode(header)
	info.HasCreate = bytes.Contains(header, []byte("CREATE TABLE"))
	info.HasInsert = bytes.Contains(header, []byte("INSERT INTO"))

	insert := bytes.Index(sample, []byte("INSERT INTO"))
	if insert < 0 {
		return info, nil
	}
	values := bytes.Index(sample[insert:], []byte("VALUES"))
	if values < 0 {
		return info, nil
	}
	open := insert + values + len("VALUES")
	for open < len(sample) && sample[open] != '(' {
		open++
	}
	stmt := sample[open:]
	if end := bytes.Index(stmt, []byte(");")); end >= 0 {
		stmt = stmt[:end+1]
	} else {
		info.Truncated = true
	}
	if len(stmt) > 0 {
		info.Tuples = bytes.Count(stmt, []byte("),(")) + 1
		info.MultiValue = info.Tuples > 1
	}

	digits := open + 1
	for digits < len(sample) && '0' <= sample[digits] && sample[digits] <= '9' {
		digits++
	}
	id, err := strconv.ParseInt(string(sample[open+1:digits]), 10, 64)
	if err != nil {
		return info, nil
	}
	info.FirstID = id
	if rec, err := (blob.Extractor{Mode: mode}).ExtractAt(sample, open, id); err == nil {
		info.FirstFlags, _ = codec.Decode(rec.Flags)
		info.FirstContent, _ = codec.Decode(rec.Content)
	}
	return info, nil
}

func printBlobInfos(w io.Writer, infos []BlobInfo, preview int) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Blob", "Size", "CREATE TABLE", "INSERT INTO", "Tuples in first INSERT", "First id", "First flags"})
	for _, info := range infos {
		size := "?"
		if info.Size >= 0 {
			size = strconv.FormatInt(info.Size, 10)
		}
		tuples := "-"
		if info.Tuples > 0 {
			tuples = strconv.Itoa(info.Tuples)
			if info.Truncated {
				tuples = ">= " + tuples
			}
		}
		first := "-"
		if info.FirstID >= 0 {
			first = strconv.FormatInt(info.FirstID, 10)
		}
		table.Append([]string{
			strconv.FormatInt(info.BlobID, 10),
			size,
			yesNo(info.HasCreate),
			yesNo(info.HasInsert),
			tuples,
			first,
			info.FirstFlags,
		})
	}
	table.Render()

	if preview == 0 {
		return
	}
	for _, info := range infos {
		fmt.Fprintf(w, "\nBLOB %d header:\n%s\n", info.BlobID, strings.Repeat("-", 70))
		fmt.Fprintln(w, truncateRunes(info.Header, preview))
		if info.FirstContent != "" {
			fmt.Fprintf(w, "First record content: %s\n", truncateRunes(info.FirstContent, preview))
		}
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
