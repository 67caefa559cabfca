package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/wikiblob/internal/config"
	"github.com/lehigh-university-libraries/wikiblob/internal/extract"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const runSummaryName = "run_summary.yaml"

// RunSummary is the YAML record of one extraction run.
type RunSummary struct {
	RunID     string     `yaml:"run_id"`
	Timestamp string     `yaml:"timestamp"`
	Status    string     `yaml:"status"`
	Error     string     `yaml:"error,omitempty"`
	Config    RunConfig  `yaml:"config"`
	Stats     RunStats   `yaml:"stats"`
	Outputs   RunOutputs `yaml:"outputs"`
}

type RunConfig struct {
	Source        string  `yaml:"source"`
	Encoding      string  `yaml:"encoding"`
	Unescape      string  `yaml:"unescape"`
	Window        int64   `yaml:"window"`
	Lead          int64   `yaml:"lead"`
	MaxWindow     int64   `yaml:"max_window"`
	MaxCandidates int     `yaml:"max_candidates"`
	BatchSize     int     `yaml:"batch_size"`
	Limit         int     `yaml:"limit"`
	Sample        int     `yaml:"sample"`
	Namespace     int     `yaml:"namespace"`
	BlobIDs       []int64 `yaml:"blob_ids,omitempty"`
	Format        string  `yaml:"format"`
}

type RunStats struct {
	Pages          int           `yaml:"pages"`
	Processed      int           `yaml:"processed"`
	Extracted      int           `yaml:"extracted"`
	NotFound       int           `yaml:"not_found"`
	Skipped        int           `yaml:"skipped"`
	Attempts       int           `yaml:"attempts"`
	WindowRetries  int           `yaml:"window_retries"`
	Mismatches     int           `yaml:"mismatches"`
	Stopped        bool          `yaml:"stopped_at_limit"`
	ElapsedSeconds float64       `yaml:"elapsed_seconds"`
	Rate           float64       `yaml:"rate_per_second"`
	Latency        LatencyFields `yaml:"lookup_latency"`
	BlobHits       map[int64]int `yaml:"blob_hits"`
}

type LatencyFields struct {
	Count int64  `yaml:"count"`
	P50   string `yaml:"p50"`
	P95   string `yaml:"p95"`
	P99   string `yaml:"p99"`
	Max   string `yaml:"max"`
}

type RunOutputs struct {
	Rows     string `yaml:"rows,omitempty"`
	NotFound string `yaml:"not_found,omitempty"`
}

func newRunSummary(cfg *config.Config, pages int, report *extract.Report, runErr error) RunSummary {
	source := cfg.Store.Driver
	if len(cfg.Store.Dumps) > 0 {
		source = fmt.Sprintf("%d dump file(s)", len(cfg.Store.Dumps))
	}
	s := RunSummary{
		RunID:     uuid.NewString(),
		Timestamp: time.Now().Format(time.RFC3339),
		Status:    "complete",
		Config: RunConfig{
			Source:        source,
			Encoding:      cfg.Extract.Encoding,
			Unescape:      cfg.Extract.Unescape,
			Window:        cfg.Extract.Window,
			Lead:          cfg.Extract.Lead,
			MaxWindow:     cfg.Extract.MaxWindow,
			MaxCandidates: cfg.Extract.MaxCandidates,
			BatchSize:     cfg.Extract.BatchSize,
			Limit:         cfg.Extract.Limit,
			Sample:        cfg.Extract.Sample,
			Namespace:     cfg.Extract.Namespace,
			BlobIDs:       cfg.Extract.BlobIDs,
			Format:        cfg.Output.Format,
		},
	}
	if runErr != nil {
		s.Status = "failed"
		s.Error = runErr.Error()
	}
	if report == nil || report.Stats == nil {
		return s
	}

	st := report.Stats
	lat := st.Latency()
	s.Stats = RunStats{
		Pages:          pages,
		Processed:      st.Targets,
		Extracted:      st.Extracted,
		NotFound:       st.NotFound,
		Skipped:        st.Skipped,
		Attempts:       st.Attempts,
		WindowRetries:  st.WindowRetries,
		Mismatches:     st.Mismatches,
		Stopped:        report.Stopped,
		ElapsedSeconds: st.Elapsed.Seconds(),
		Rate:           st.Rate(),
		Latency: LatencyFields{
			Count: lat.Count,
			P50:   lat.P50.String(),
			P95:   lat.P95.String(),
			P99:   lat.P99.String(),
			Max:   lat.Max.String(),
		},
		BlobHits: st.BlobHits,
	}
	return s
}

// writeRunSummary saves s as run_summary.yaml in dir.
func writeRunSummary(dir string, s RunSummary) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	data, err := yaml.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("failed to marshal YAML: %w", err)
	}
	path := filepath.Join(dir, runSummaryName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write run summary: %w", err)
	}
	return path, nil
}

// printStats prints the run counters and per-blob hits as tables.
func printStats(w io.Writer, report *extract.Report) {
	st := report.Stats
	lat := st.Latency()

	fmt.Fprintln(w)
	fmt.Fprintln(w, "EXTRACTION SUMMARY")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	for _, row := range [][2]string{
		{"Processed", strconv.Itoa(st.Targets)},
		{"Extracted", strconv.Itoa(st.Extracted)},
		{"Not found", strconv.Itoa(st.NotFound)},
		{"Skipped (no record id)", strconv.Itoa(st.Skipped)},
		{"Windows read", strconv.Itoa(st.Attempts)},
		{"Window retries", strconv.Itoa(st.WindowRetries)},
		{"Mismatched candidates", strconv.Itoa(st.Mismatches)},
		{"Elapsed", st.Elapsed.Round(time.Millisecond).String()},
		{"Rate", fmt.Sprintf("%.1f/s", st.Rate())},
		{"Lookup p50 / p95 / p99", fmt.Sprintf("%s / %s / %s", lat.P50, lat.P95, lat.P99)},
		{"Lookup max", lat.Max.String()},
	} {
		table.Append(row[:])
	}
	table.Render()

	if len(st.BlobHits) == 0 {
		return
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "RECORDS PER BLOB")
	blobs := tablewriter.NewWriter(w)
	blobs.SetHeader([]string{"Blob", "Records"})
	for _, id := range st.HitBlobs() {
		blobs.Append([]string{strconv.FormatInt(id, 10), strconv.Itoa(st.BlobHits[id])})
	}
	blobs.Render()
}
