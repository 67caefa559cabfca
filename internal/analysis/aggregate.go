package analysis

import (
	"cmp"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/lehigh-university-libraries/wikiblob/internal/output"
)

// Entry is an extracted row after cleaning, classification and field
// extraction.
type Entry struct {
	output.Row
	// Mojibake is set when the raw content showed double-encoding marks.
	Mojibake    bool        `json:"mojibake"`
	CleanText   string      `json:"clean_text"`
	ContentType ContentType `json:"content_type"`
	Biblio      Biblio      `json:"biblio"`
}

// Analyze cleans and classifies every row.
func Analyze(rows []output.Row) []Entry {
	entries := make([]Entry, len(rows))
	for i, r := range rows {
		e := Entry{Row: r, Mojibake: HasMojibake(r.Content)}
		e.Content = FixEncoding(r.Content)
		e.PageTitle = FixEncoding(r.PageTitle)
		e.CleanText = RemoveWikiMarkup(e.Content)
		e.ContentType = Classify(e.Content)
		e.Biblio = ExtractBiblio(e.Content, e.PageTitle)
		entries[i] = e

		if (i+1)%1000 == 0 {
			slog.Debug("Analyzing entries", "done", i+1, "total", len(rows))
		}
	}
	return entries
}

// Count is a labelled tally.
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// LengthStats describes content lengths in characters.
type LengthStats struct {
	Min    int     `json:"min" yaml:"min"`
	Max    int     `json:"max" yaml:"max"`
	Mean   float64 `json:"mean" yaml:"mean"`
	Median float64 `json:"median" yaml:"median"`
}

// Summary is the aggregate view over a set of entries.
type Summary struct {
	GeneratedAt time.Time `json:"generated_at" yaml:"generated_at"`
	Source      string    `json:"source,omitempty" yaml:"source,omitempty"`

	TotalEntries int         `json:"total_entries" yaml:"total_entries"`
	UniquePages  int         `json:"unique_pages" yaml:"unique_pages"`
	Redirects    int         `json:"redirects" yaml:"redirects"`
	Mojibake     int         `json:"mojibake" yaml:"mojibake"`
	Length       LengthStats `json:"content_length" yaml:"content_length"`

	ContentTypes  []Count        `json:"content_types" yaml:"content_types"`
	FieldCoverage map[string]int `json:"field_coverage" yaml:"field_coverage"`
	Languages     []Count        `json:"languages" yaml:"languages"`
	TimePeriods   []Count        `json:"time_periods" yaml:"time_periods"`

	TopYears      []Count `json:"top_years" yaml:"top_years"`
	TopPublishers []Count `json:"top_publishers" yaml:"top_publishers"`
	TopLocations  []Count `json:"top_locations" yaml:"top_locations"`
	TopCategories []Count `json:"top_categories" yaml:"top_categories"`

	// Timeline counts entries by first year mentioned.
	Timeline map[int]int `json:"timeline" yaml:"timeline"`

	Blobs []Count `json:"blobs" yaml:"blobs"`
	Flags []Count `json:"flags" yaml:"flags"`

	AverageTitleScore float64 `json:"average_title_score" yaml:"average_title_score"`
}

const topN = 10

// Aggregate summarises entries.
func Aggregate(entries []Entry) *Summary {
	s := &Summary{
		GeneratedAt:   time.Now(),
		TotalEntries:  len(entries),
		FieldCoverage: make(map[string]int),
		Timeline:      make(map[int]int),
	}

	pages := make(map[int64]struct{})
	types := make(map[string]int)
	langs := make(map[string]int)
	periods := make(map[string]int)
	years := make(map[string]int)
	publishers := make(map[string]int)
	locations := make(map[string]int)
	categories := make(map[string]int)
	blobs := make(map[string]int)
	flags := make(map[string]int)
	lengths := make([]int, 0, len(entries))
	totalTitleScore := 0.0

	for _, e := range entries {
		pages[e.PageID] = struct{}{}
		types[string(e.ContentType)]++
		blobs[strconv.FormatInt(e.BlobID, 10)]++
		flags[e.Flags]++
		lengths = append(lengths, len([]rune(e.Content)))
		if e.ContentType == Redirect {
			s.Redirects++
		}
		if e.Mojibake {
			s.Mojibake++
		}

		b := e.Biblio
		langs[b.DetectedLanguage]++
		totalTitleScore += b.TitleMatch.Score
		if b.TimePeriod != "" {
			periods[b.TimePeriod]++
		}
		if y := b.Year(); y > 0 {
			s.Timeline[y]++
		}
		for _, y := range b.Years {
			years[strconv.Itoa(y)]++
		}
		if b.Publisher != "" {
			publishers[b.Publisher]++
		}
		for _, l := range b.Locations {
			locations[l]++
		}
		for _, c := range b.Categories {
			categories[c]++
		}

		cover := map[string]bool{
			"title":          b.Title != "",
			"year":           len(b.Years) > 0,
			"publisher":      b.Publisher != "",
			"location":       len(b.Locations) > 0,
			"language":       b.Language != "",
			"translator":     b.Translator != "",
			"page_count":     b.PageCount > 0,
			"original_title": b.OriginalTitle != "",
		}
		for field, ok := range cover {
			if ok {
				s.FieldCoverage[field]++
			}
		}
	}

	s.UniquePages = len(pages)
	s.Length = lengthStats(lengths)
	s.ContentTypes = sortedCounts(types, 0)
	s.Languages = sortedCounts(langs, 0)
	s.TimePeriods = sortedCounts(periods, 0)
	s.TopYears = sortedCounts(years, topN)
	s.TopPublishers = sortedCounts(publishers, topN)
	s.TopLocations = sortedCounts(locations, topN)
	s.TopCategories = sortedCounts(categories, 15)
	s.Blobs = sortedCounts(blobs, 0)
	s.Flags = sortedCounts(flags, 0)
	if len(entries) > 0 {
		s.AverageTitleScore = totalTitleScore / float64(len(entries))
	}
	return s
}

// sortedCounts orders tallies by count, descending, then name. n caps the
// result; 0 keeps everything.
func sortedCounts(m map[string]int, n int) []Count {
	counts := make([]Count, 0, len(m))
	for _, name := range slices.Sorted(maps.Keys(m)) {
		counts = append(counts, Count{Name: name, Count: m[name]})
	}
	slices.SortStableFunc(counts, func(a, b Count) int {
		return cmp.Compare(b.Count, a.Count)
	})
	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

func lengthStats(lengths []int) LengthStats {
	if len(lengths) == 0 {
		return LengthStats{}
	}
	sorted := slices.Sorted(slices.Values(lengths))
	total := 0
	for _, l := range sorted {
		total += l
	}
	mid := len(sorted) / 2
	median := float64(sorted[mid])
	if len(sorted)%2 == 0 {
		median = float64(sorted[mid-1]+sorted[mid]) / 2
	}
	return LengthStats{
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		Mean:   float64(total) / float64(len(sorted)),
		Median: median,
	}
}
