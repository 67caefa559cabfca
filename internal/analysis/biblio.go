package analysis

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
)

// Biblio holds the bibliographic fields found in one page.
type Biblio struct {
	Title         string   `json:"title" yaml:"title"`
	Years         []int    `json:"years,omitempty" yaml:"years,omitempty"`
	Publisher     string   `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Locations     []string `json:"locations,omitempty" yaml:"locations,omitempty"`
	Language      string   `json:"language,omitempty" yaml:"language,omitempty"`
	Translator    string   `json:"translator,omitempty" yaml:"translator,omitempty"`
	PageCount     int      `json:"page_count,omitempty" yaml:"page_count,omitempty"`
	OriginalTitle string   `json:"original_title,omitempty" yaml:"original_title,omitempty"`
	Categories    []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	MainCategory  string   `json:"main_category,omitempty" yaml:"main_category,omitempty"`
	Redirect      string   `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	TimePeriod    string   `json:"time_period,omitempty" yaml:"time_period,omitempty"`
	// DetectedLanguage is Language when one is stated, otherwise a guess.
	DetectedLanguage string          `json:"detected_language" yaml:"detected_language"`
	TitleMatch       TitleComparison `json:"title_match" yaml:"title_match"`
}

// Year returns the first year mentioned, or 0.
func (b Biblio) Year() int {
	if len(b.Years) == 0 {
		return 0
	}
	return b.Years[0]
}

const maxYears = 3

var (
	tripleQuoted = regexp.MustCompile(`'''(.*?)'''`)
	yearPattern  = regexp.MustCompile(`\b(1[89]\d{2}|20[0-2]\d)\b`)
	redirectLink = regexp.MustCompile(`(?i)^\s*#REDIRECT\s*\[\[([^\]]*)\]\]`)
	categoryName = regexp.MustCompile(`\[\[Category:([^\]|]*)(?:\|[^\]]*)?\]\]`)

	publisherPatterns = compile(
		`(?i)(?:Verlag|Publisher|Press):\s*([\pL\pN &.,\-]+)`,
		`(?i)(?:published by|verlegt bei)\s*([\pL\pN &.,\-]+)`,
		`\b((?:\pL+[ -])?Verlag(?:[ -]\pL+)?)`,
		`(?i)\b((?:Editions?|Edizioni|Publishers?)\s+\pL+)`,
	)
	translatorPatterns = compile(
		`(?i)(?:Translated by|Übersetzt von|Translator|Translation by)[:\s]+([^,\n.]+)`,
		`(?i)(?:Traduction|Traduit par|Traduzione di|Traducción de)[:\s]+([^,\n.]+)`,
	)
	pageCountPatterns = compile(
		`(\d+)\s*p\.`,
		`(?i)(\d+)\s*pages`,
		`(?i)(\d+)\s*Seiten`,
	)
	originalTitlePatterns = compile(
		`(?i)(?:Original title|Originally published as)[:\s]+([^.\n]+)`,
		`(?i)(?:Originaltitel|Ursprünglicher Titel)[:\s]+([^.\n]+)`,
		`(?i)(?:Titre original|Título original)[:\s]+([^.\n]+)`,
	)
	// A title followed by its original in brackets: "Shakhmatnaia novella [Schachnovelle]".
	bracketedOriginal = regexp.MustCompile(`^([^\[]+?)\s*\[([^\]]+)\]`)
)

var knownLocations = []string{
	"Wien", "Berlin", "Frankfurt", "Leipzig", "London", "New York",
	"Paris", "Zürich", "Hamburg", "München", "Salzburg", "Stockholm",
	"Amsterdam", "Bern", "Genf", "Rome", "Madrid", "Barcelona",
	"Milano", "Torino", "Moskva", "Moskau", "Moscow", "Praha", "Prag", "Prague",
	"Budapest", "Tokyo", "Warszawa", "Warsaw", "Buenos Aires", "Rio de Janeiro",
}

var locationPattern = func() *regexp.Regexp {
	quoted := make([]string, len(knownLocations))
	for i, l := range knownLocations {
		quoted[i] = regexp.QuoteMeta(l)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}()

// ExtractBiblio pulls bibliographic fields from a page body. pageTitle is the
// wiki page title, used as a title fallback and for the title comparison.
func ExtractBiblio(content, pageTitle string) Biblio {
	var b Biblio
	if m := redirectLink.FindStringSubmatch(content); m != nil {
		b.Redirect = strings.TrimSpace(m[1])
	}
	b.Categories = extractCategories(content)
	if len(b.Categories) > 0 {
		b.MainCategory = strings.TrimSpace(strings.SplitN(b.Categories[0], "/", 2)[0])
	}

	clean := RemoveWikiMarkup(content)
	b.Title = extractTitle(content, pageTitle)
	b.Years = extractYears(content)
	b.TimePeriod = TimePeriod(b.Year())
	b.Publisher = firstGroup(publisherPatterns, content)
	b.Locations = extractLocations(content)
	b.Translator = firstGroup(translatorPatterns, content)
	if n, err := strconv.Atoi(firstGroup(pageCountPatterns, content)); err == nil {
		b.PageCount = n
	}
	b.OriginalTitle = firstGroup(originalTitlePatterns, content)
	if b.OriginalTitle == "" && b.Redirect == "" {
		if m := bracketedOriginal.FindStringSubmatch(clean); m != nil {
			b.OriginalTitle = strings.TrimSpace(m[2])
		}
	}
	b.Language = explicitLanguage(content)
	b.DetectedLanguage = DetectLanguage(content, clean)
	b.TitleMatch = CompareTitles(strings.ReplaceAll(pageTitle, "_", " "), b.Title)
	return b
}

func extractTitle(content, pageTitle string) string {
	if m := tripleQuoted.FindStringSubmatch(content); m != nil && strings.TrimSpace(m[1]) != "" {
		return strings.TrimSpace(m[1])
	}
	if t := strings.ReplaceAll(pageTitle, "_", " "); t != "" && !strings.HasPrefix(t, "#REDIRECT") {
		return t
	}
	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "#REDIRECT") || strings.HasPrefix(trimmed, "[[Category") {
		return ""
	}
	first, _, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if n := len([]rune(first)); n > 3 && n < 100 {
		return first
	}
	return ""
}

func extractYears(content string) []int {
	var years []int
	for _, m := range yearPattern.FindAllString(content, -1) {
		y, _ := strconv.Atoi(m)
		if slices.Contains(years, y) {
			continue
		}
		years = append(years, y)
		if len(years) == maxYears {
			break
		}
	}
	return years
}

func extractLocations(content string) []string {
	var locs []string
	for _, m := range locationPattern.FindAllString(content, -1) {
		canonical := m
		for _, l := range knownLocations {
			if strings.EqualFold(l, m) {
				canonical = l
				break
			}
		}
		if !slices.Contains(locs, canonical) {
			locs = append(locs, canonical)
		}
	}
	return locs
}

func extractCategories(content string) []string {
	var cats []string
	for _, m := range categoryName.FindAllStringSubmatch(content, -1) {
		c := whitespace.ReplaceAllString(strings.TrimSpace(m[1]), " ")
		if c != "" {
			cats = append(cats, c)
		}
	}
	return cats
}

func firstGroup(patterns []*regexp.Regexp, content string) string {
	for _, re := range patterns {
		if m := re.FindStringSubmatch(content); m != nil {
			if v := strings.Trim(strings.TrimSpace(m[1]), ".,"); v != "" {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}

// TimePeriod buckets a publication year relative to Zweig's lifetime
// (1881-1942).
func TimePeriod(year int) string {
	switch {
	case year <= 0:
		return ""
	case year < 1881:
		return "Pre-Zweig (before 1881)"
	case year <= 1942:
		return "During Lifetime (1881-1942)"
	case year <= 1980:
		return "Post-WWII (1943-1980)"
	case year <= 2000:
		return "Late 20th Century (1981-2000)"
	default:
		return "Contemporary (after 2000)"
	}
}
