package commands

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/wikiblob/internal/analysis"
	"github.com/lehigh-university-libraries/wikiblob/internal/output"
	"github.com/spf13/cobra"
)

const (
	enhancedName = "bibliography_enhanced.csv"
	summaryName  = "analysis_summary.json"
	reportName   = "analysis_report.txt"
)

// NewAnalyzeCmd creates the analyze command
func NewAnalyzeCmd() *cobra.Command {
	var inputPath string
	var outputDir string
	var sampleSize int

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Classify extracted records and pull out bibliographic fields",
		Long: `Analyze the records of an extraction run.

Every record is classified (bibliography entry, essay, translation, redirect,
...), its text is repaired and stripped of wiki markup, and bibliographic
fields such as title, year, publisher and language are extracted. Writes an
enhanced CSV, a JSON summary and a text report.`,
		Example: `  # Analyze a finished extraction
  wikiblob analyze --input output/extraction_complete.csv

  # Analyze the first 200 records of a Parquet extraction
  wikiblob analyze --input output/extraction_complete.parquet --sample 200 --output analysis`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(inputPath); err != nil {
				return fmt.Errorf("input file not found: %s", inputPath)
			}
			rows, err := output.NewLoader(inputPath).LoadSample(sampleSize)
			if err != nil {
				return fmt.Errorf("failed to load records: %w", err)
			}
			summary, err := writeAnalysis(outputDir, inputPath, rows)
			if err != nil {
				return err
			}
			return analysis.WriteText(cmd.OutOrStdout(), summary)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Extraction output file (.csv, .jsonl or .parquet) (required)")
	cmd.Flags().StringVar(&outputDir, "output", "analysis", "Output directory")
	cmd.Flags().IntVar(&sampleSize, "sample", 0, "Only analyze the first N records (0 for all)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	var inputPath string
	var format string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print an analysis summary of extracted records",
		Example: `  # Text report with tables and a year chart
  wikiblob report --input output/extraction_complete.csv

  # Machine-readable summary
  wikiblob report --input output/extraction_complete.jsonl --format yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeReport(inputPath, format, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "Extraction output file (.csv, .jsonl or .parquet) (required)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Report format (text, json, yaml)")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func executeReport(inputPath, format string, w io.Writer) error {
	rows, err := output.NewLoader(inputPath).Load()
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	summary := analysis.Aggregate(analysis.Analyze(rows))
	summary.Source = inputPath
	return analysis.WriteSummary(w, summary, format)
}

// writeAnalysis analyzes rows and writes the enhanced CSV, JSON summary and
// text report into dir.
func writeAnalysis(dir, source string, rows []output.Row) (*analysis.Summary, error) {
	slog.Info("Analyzing records", "records", len(rows))
	entries := analysis.Analyze(rows)
	summary := analysis.Aggregate(entries)
	summary.Source = source

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{enhancedName, func(w io.Writer) error { return analysis.WriteEnhancedCSV(w, entries) }},
		{summaryName, func(w io.Writer) error { return analysis.WriteSummary(w, summary, analysis.FormatJSON) }},
		{reportName, func(w io.Writer) error { return analysis.WriteText(w, summary) }},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return nil, err
		}
		slog.Info("Saved analysis output", "path", path)
	}
	return summary, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}
