// Package output persists extracted records and reads them back.
package output

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Row is one extracted record joined with its page.
type Row struct {
	PageID    int64  `json:"page_id" parquet:"page_id"`
	PageTitle string `json:"page_title" parquet:"page_title"`
	RecordID  int64  `json:"record_id" parquet:"record_id"`
	Content   string `json:"content" parquet:"content"`
	Flags     string `json:"flags" parquet:"flags"`
	BlobID    int64  `json:"blob_id" parquet:"blob_id"`
}

// Columns is the tabular header, in column order.
var Columns = []string{"page_id", "page_title", "record_id", "content", "flags", "blob_id"}

// Format is an on-disk row encoding.
type Format string

const (
	CSV     Format = "csv"
	JSONL   Format = "jsonl"
	Parquet Format = "parquet"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case CSV, JSONL, Parquet:
		return f, nil
	case "":
		return CSV, nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (supported: csv, jsonl, parquet)", s)
	}
}

// FormatFromPath infers the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return CSV, nil
	case ".jsonl", ".json":
		return JSONL, nil
	case ".parquet":
		return Parquet, nil
	default:
		return "", fmt.Errorf("unsupported file format: %s (supported: .csv, .jsonl, .parquet)", ext)
	}
}
