package output

import (
	"io"
	"log/slog"
	"path/filepath"

	"github.com/segmentio/encoding/json"
)

const (
	progressName = "extraction_progress"
	completeName = "extraction_complete"
	notFoundName = "not_found.jsonl"
)

// FileSink writes the accumulated rows of a run into a directory. Each
// checkpoint overwrites the progress file with every row extracted so far.
type FileSink struct {
	Dir    string
	Format Format
}

func NewFileSink(dir string, format Format) *FileSink {
	return &FileSink{Dir: dir, Format: format}
}

// ProgressPath is the file rewritten after every batch.
func (s *FileSink) ProgressPath() string {
	return filepath.Join(s.Dir, progressName+"."+string(s.Format))
}

// CompletePath is the file written once a run finishes.
func (s *FileSink) CompletePath() string {
	return filepath.Join(s.Dir, completeName+"."+string(s.Format))
}

// NotFoundPath is the JSONL report of unresolved pages.
func (s *FileSink) NotFoundPath() string {
	return filepath.Join(s.Dir, notFoundName)
}

func (s *FileSink) Checkpoint(rows []Row) error {
	path := s.ProgressPath()
	if err := WriteFile(path, s.Format, rows); err != nil {
		return err
	}
	slog.Info("Saved batch progress", "path", path, "rows", len(rows))
	return nil
}

func (s *FileSink) Complete(rows []Row) error {
	path := s.CompletePath()
	if err := WriteFile(path, s.Format, rows); err != nil {
		return err
	}
	slog.Info("Saved complete extraction", "path", path, "rows", len(rows))
	return nil
}

// NotFound is one page whose record could not be resolved.
type NotFound struct {
	PageID    int64  `json:"page_id"`
	PageTitle string `json:"page_title"`
	RecordID  int64  `json:"record_id,omitempty"`
	Address   string `json:"content_address"`
	Reason    string `json:"reason"`
}

// WriteNotFound writes the not-found report next to the extraction files.
func (s *FileSink) WriteNotFound(entries []NotFound) error {
	return writeAtomic(s.NotFoundPath(), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		for _, e := range entries {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	})
}
