package output

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/parquet-go/parquet-go"
	"github.com/segmentio/encoding/json"
)

// Loader reads extraction rows back from a CSV, JSONL or Parquet file.
type Loader struct {
	path string
}

// NewLoader creates a loader for path
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Load reads every row in the file.
func (l *Loader) Load() ([]Row, error) {
	return l.LoadSample(0)
}

// LoadSample reads at most limit rows. A limit of zero reads everything.
func (l *Loader) LoadSample(limit int) ([]Row, error) {
	format, err := FormatFromPath(l.path)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rows file: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	slog.Debug("Opening rows file", "path", l.path, "format", format, "size_mb", info.Size()/1024/1024)

	var rows []Row
	switch format {
	case CSV:
		rows, err = loadCSV(file, limit)
	case JSONL:
		rows, err = loadJSONL(file, limit)
	case Parquet:
		rows, err = loadParquet(file, info.Size(), limit)
	}
	if err != nil {
		return nil, err
	}

	slog.Debug("Finished reading rows", "path", l.path, "total_rows", len(rows))
	return rows, nil
}

func full(rows []Row, limit int) bool {
	return limit > 0 && len(rows) >= limit
}

func loadCSV(r io.Reader, limit int) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[h] = i
	}
	for _, c := range []string{"page_id", "page_title", "content"} {
		if _, ok := idx[c]; !ok {
			return nil, fmt.Errorf("CSV is missing column %q", c)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}
	num := func(rec []string, col string) int64 {
		n, _ := strconv.ParseInt(get(rec, col), 10, 64)
		return n
	}

	var rows []Row
	line := 1
	for !full(rows, limit) {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to parse CSV at line %d: %w", line, err)
		}
		rows = append(rows, Row{
			PageID:    num(rec, "page_id"),
			PageTitle: get(rec, "page_title"),
			RecordID:  num(rec, "record_id"),
			Content:   get(rec, "content"),
			Flags:     get(rec, "flags"),
			BlobID:    num(rec, "blob_id"),
		})
	}
	return rows, nil
}

func loadJSONL(r io.Reader, limit int) ([]Row, error) {
	scanner := bufio.NewScanner(r)

	// Record bodies can be large
	const maxCapacity = 10 * 1024 * 1024
	buf := make([]byte, 64*1024)
	scanner.Buffer(buf, maxCapacity)

	var rows []Row
	lineNum := 0
	for !full(rows, limit) && scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var row Row
		if err := json.Unmarshal(line, &row); err != nil {
			return nil, fmt.Errorf("failed to parse JSON at line %d: %w", lineNum, err)
		}
		rows = append(rows, row)

		if lineNum%1000 == 0 {
			slog.Debug("Reading JSONL", "lines_read", lineNum)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading rows: %w", err)
	}
	return rows, nil
}

func loadParquet(r io.ReaderAt, size int64, limit int) ([]Row, error) {
	pf, err := parquet.OpenFile(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	slog.Debug("Parquet file opened successfully", "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[Row](pf)
	defer reader.Close()

	var rows []Row
	batch := make([]Row, 128)
	for !full(rows, limit) {
		n, err := reader.Read(batch)
		if n > 0 {
			if limit > 0 && n > limit-len(rows) {
				n = limit - len(rows)
			}
			rows = append(rows, batch[:n]...)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet rows: %w", err)
		}
	}
	return rows, nil
}
