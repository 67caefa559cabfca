package analysis

import (
	"fmt"
	"regexp"
	"strings"
)

// TitleComparison scores how close the title found in a page body is to the
// page's own title.
type TitleComparison struct {
	Expected string  `json:"expected" yaml:"expected"`
	Actual   string  `json:"actual" yaml:"actual"`
	Score    float64 `json:"score" yaml:"score"`
	Distance int     `json:"distance" yaml:"distance"`
	Match    string  `json:"match" yaml:"match"`
	Notes    string  `json:"notes,omitempty" yaml:"notes,omitempty"`
}

// CompareTitles compares two titles using Levenshtein distance over
// normalized text.
func CompareTitles(expected, actual string) TitleComparison {
	comp := TitleComparison{
		Expected: expected,
		Actual:   actual,
	}

	expNorm := normalizeText(expected)
	actNorm := normalizeText(actual)

	if expNorm == "" && actNorm == "" {
		comp.Match = "both_empty"
		comp.Notes = "Both titles are empty"
		return comp
	}
	if expNorm == "" {
		comp.Distance = len([]rune(actNorm))
		comp.Match = "no_reference"
		comp.Notes = "Page has no title"
		return comp
	}
	if actNorm == "" {
		comp.Distance = len([]rune(expNorm))
		comp.Match = "missing"
		comp.Notes = "No title found in content"
		return comp
	}

	if expNorm == actNorm {
		comp.Score = 1.0
		comp.Match = "exact"
		return comp
	}

	// One title containing the other is how the page/content titles usually
	// differ: "Schachnovelle" vs "Schachnovelle. Roman".
	if strings.Contains(expNorm, actNorm) || strings.Contains(actNorm, expNorm) {
		comp.Match = "substring"
	}

	distance := levenshteinDistance(expNorm, actNorm)
	comp.Distance = distance
	maxLen := max(len([]rune(expNorm)), len([]rune(actNorm)))
	similarity := 1.0 - float64(distance)/float64(maxLen)
	comp.Score = similarity

	if comp.Match == "substring" {
		comp.Notes = fmt.Sprintf("Substring match (%.1f%%), Levenshtein: %d", similarity*100, distance)
		return comp
	}
	switch {
	case similarity > 0.9:
		comp.Match = "fuzzy_high"
	case similarity > 0.7:
		comp.Match = "fuzzy_medium"
	case similarity > 0.5:
		comp.Match = "fuzzy_low"
	default:
		comp.Match = "no_match"
	}
	comp.Notes = fmt.Sprintf("Similarity %.1f%%, Levenshtein: %d", similarity*100, distance)
	return comp
}

var punctuation = regexp.MustCompile(`[^\pL\pN\s]`)

// normalizeText lowercases, strips punctuation and collapses whitespace.
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = punctuation.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// levenshteinDistance calculates the edit distance between two strings,
// counting runes.
func levenshteinDistance(s1, s2 string) int {
	a, b := []rune(s1), []rune(s2)
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
