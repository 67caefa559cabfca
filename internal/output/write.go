package output

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/segmentio/encoding/json"
)

// WriteRows encodes rows to w.
func WriteRows(w io.Writer, format Format, rows []Row) error {
	switch format {
	case CSV:
		return writeCSV(w, rows)
	case JSONL:
		return writeJSONL(w, rows)
	case Parquet:
		return writeParquet(w, rows)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func writeCSV(w io.Writer, rows []Row) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, r := range rows {
		record := []string{
			strconv.FormatInt(r.PageID, 10),
			r.PageTitle,
			strconv.FormatInt(r.RecordID, 10),
			r.Content,
			r.Flags,
			strconv.FormatInt(r.BlobID, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSONL(w io.Writer, rows []Row) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for _, r := range rows {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeParquet(w io.Writer, rows []Row) error {
	pw := parquet.NewGenericWriter[Row](w)
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return err
	}
	return pw.Close()
}

// WriteFile replaces path with the encoded rows. The rows go to a temporary
// file in the same directory first, so an interrupted write never leaves a
// truncated file behind.
func WriteFile(path string, format Format, rows []Row) error {
	return writeAtomic(path, func(w io.Writer) error {
		return WriteRows(w, format, rows)
	})
}

func writeAtomic(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if err := fn(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
