package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/guptarohit/asciigraph"
	"github.com/olekukonko/tablewriter"
	"github.com/segmentio/encoding/json"
	"gopkg.in/yaml.v3"
)

// Report formats accepted by WriteSummary.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// WriteSummary renders s in the named format.
func WriteSummary(w io.Writer, s *Summary, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		return WriteText(w, s)
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported report format: %s (supported: text, json, yaml)", format)
	}
}

// WriteText prints a human-readable summary with tables and a year chart.
func WriteText(w io.Writer, s *Summary) error {
	line := strings.Repeat("=", 70)
	fmt.Fprintln(w, line)
	fmt.Fprintln(w, "BIBLIOGRAPHY ANALYSIS SUMMARY")
	fmt.Fprintln(w, line)
	if s.Source != "" {
		fmt.Fprintf(w, "Source: %s\n", s.Source)
	}
	fmt.Fprintf(w, "Generated: %s\n\n", s.GeneratedAt.Format("2006-01-02 15:04:05"))

	overview := tablewriter.NewWriter(w)
	overview.SetHeader([]string{"Metric", "Value"})
	overview.Append([]string{"Total entries", strconv.Itoa(s.TotalEntries)})
	overview.Append([]string{"Unique pages", strconv.Itoa(s.UniquePages)})
	overview.Append([]string{"Redirects", strconv.Itoa(s.Redirects)})
	overview.Append([]string{"Entries with mojibake", strconv.Itoa(s.Mojibake)})
	overview.Append([]string{"Content length (min/max)", fmt.Sprintf("%d / %d", s.Length.Min, s.Length.Max)})
	overview.Append([]string{"Content length (mean/median)", fmt.Sprintf("%.1f / %.1f", s.Length.Mean, s.Length.Median)})
	overview.Append([]string{"Average title score", fmt.Sprintf("%.3f", s.AverageTitleScore)})
	overview.Render()

	section(w, "CONTENT TYPES")
	countTable(w, "Type", s.ContentTypes, s.TotalEntries)

	section(w, "FIELD COVERAGE")
	coverage := tablewriter.NewWriter(w)
	coverage.SetHeader([]string{"Field", "Entries", "Percent"})
	for _, field := range slices.Sorted(maps.Keys(s.FieldCoverage)) {
		n := s.FieldCoverage[field]
		coverage.Append([]string{field, strconv.Itoa(n), percent(n, s.TotalEntries)})
	}
	coverage.Render()

	section(w, "LANGUAGES")
	countTable(w, "Language", s.Languages, s.TotalEntries)

	if len(s.TopYears) > 0 {
		section(w, "TOP YEARS")
		countTable(w, "Year", s.TopYears, 0)
	}
	if len(s.TopPublishers) > 0 {
		section(w, "TOP PUBLISHERS")
		countTable(w, "Publisher", s.TopPublishers, 0)
	}
	if len(s.TopLocations) > 0 {
		section(w, "TOP LOCATIONS")
		countTable(w, "Location", s.TopLocations, 0)
	}
	if len(s.TopCategories) > 0 {
		section(w, "TOP CATEGORIES")
		countTable(w, "Category", s.TopCategories, 0)
	}
	if len(s.TimePeriods) > 0 {
		section(w, "TIME PERIODS")
		countTable(w, "Period", s.TimePeriods, s.TotalEntries)
	}

	section(w, "BLOBS")
	countTable(w, "Blob", s.Blobs, s.TotalEntries)

	if chart := YearChart(s.Timeline, 12); chart != "" {
		section(w, "PUBLICATIONS BY YEAR")
		fmt.Fprintln(w, chart)
	}
	fmt.Fprintln(w, line)
	return nil
}

// YearChart plots entries per year from the first to the last year seen.
func YearChart(timeline map[int]int, height int) string {
	if len(timeline) < 2 {
		return ""
	}
	years := slices.Sorted(maps.Keys(timeline))
	first, last := years[0], years[len(years)-1]
	data := make([]float64, last-first+1)
	for y, n := range timeline {
		data[y-first] = float64(n)
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Caption(fmt.Sprintf("entries per year, %d-%d", first, last)))
}

func section(w io.Writer, title string) {
	fmt.Fprintf(w, "\n%s\n%s\n", title, strings.Repeat("-", 70))
}

func countTable(w io.Writer, label string, counts []Count, total int) {
	table := tablewriter.NewWriter(w)
	header := []string{label, "Count"}
	if total > 0 {
		header = append(header, "Percent")
	}
	table.SetHeader(header)
	for _, c := range counts {
		row := []string{c.Name, strconv.Itoa(c.Count)}
		if total > 0 {
			row = append(row, percent(c.Count, total))
		}
		table.Append(row)
	}
	table.Render()
}

func percent(n, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(n)/float64(total)*100)
}

// EnhancedColumns is the header of the enhanced dataset.
var EnhancedColumns = []string{
	"page_id", "page_title", "record_id", "blob_id", "flags", "content_type",
	"title", "year", "years", "publisher", "location", "language",
	"detected_language", "translator", "page_count", "original_title",
	"categories", "main_category", "redirect", "time_period",
	"title_match_score", "content", "clean_text",
}

// WriteEnhancedCSV writes one row per entry with the extracted fields.
func WriteEnhancedCSV(w io.Writer, entries []Entry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(EnhancedColumns); err != nil {
		return err
	}
	for _, e := range entries {
		b := e.Biblio
		years := make([]string, len(b.Years))
		for i, y := range b.Years {
			years[i] = strconv.Itoa(y)
		}
		year, pages := "", ""
		if b.Year() > 0 {
			year = strconv.Itoa(b.Year())
		}
		if b.PageCount > 0 {
			pages = strconv.Itoa(b.PageCount)
		}
		record := []string{
			strconv.FormatInt(e.PageID, 10),
			e.PageTitle,
			strconv.FormatInt(e.RecordID, 10),
			strconv.FormatInt(e.BlobID, 10),
			e.Flags,
			string(e.ContentType),
			b.Title,
			year,
			strings.Join(years, ", "),
			b.Publisher,
			strings.Join(b.Locations, ", "),
			b.Language,
			b.DetectedLanguage,
			b.Translator,
			pages,
			b.OriginalTitle,
			strings.Join(b.Categories, "; "),
			b.MainCategory,
			b.Redirect,
			b.TimePeriod,
			strconv.FormatFloat(b.TitleMatch.Score, 'f', 3, 64),
			e.Content,
			e.CleanText,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
