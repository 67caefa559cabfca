// Package analysis classifies extracted wiki pages and pulls bibliographic
// fields out of their markup.
package analysis

import (
	"regexp"
	"strings"
)

// ContentType is the coarse kind of a bibliography page.
type ContentType string

const (
	Redirect       ContentType = "Redirect"
	Category       ContentType = "Category"
	Bibliography   ContentType = "Bibliography Entry"
	Essay          ContentType = "Essay"
	Translation    ContentType = "Translation"
	Poetry         ContentType = "Poetry"
	Correspondence ContentType = "Correspondence"
	Review         ContentType = "Review"
	FilmMedia      ContentType = "Film/Media"
	Biography      ContentType = "Biography"
	Other          ContentType = "Other"
)

type rule struct {
	kind     ContentType
	patterns []*regexp.Regexp
}

// Rules are checked in order; the first matching rule wins.
var rules = []rule{
	{Redirect, compile(`(?i)^\s*#REDIRECT`)},
	{Category, compile(`\[\[Category:`)},
	{Bibliography, compile(
		`<lst type=bracket`,
		`'''.*?'''`,
		`\b(?:Volumes?|Band|Tome)\b`,
		`\b(?:Published|Veröffentlicht|Erschienen)\b`,
		`\d+\s*p\.`,
	)},
	{Essay, compile(`\b(?:Essay|Essays|Aufsatz|Aufsätze)\b`)},
	{Translation, compile(`\b(?:Translation|Translated|Translator|Übersetzung)\b`, `Übersetzt|Übersetzung`)},
	{Poetry, compile(`\b(?:Poem|Gedicht|Poetry|Poesie|Lyrik)\b`)},
	{Correspondence, compile(`\b(?:Letter|Brief|Correspondence|Korrespondenz)\b`)},
	{Review, compile(`(?i)\b(?:review|reviews|reviewed by|rezension)\b`)},
	{FilmMedia, compile(`(?i)\b(?:film|movie|adaptation)\b`)},
	{Biography, compile(`(?i)\b(?:biography|biographie|biografie)\b`)},
}

func compile(exprs ...string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		res[i] = regexp.MustCompile(e)
	}
	return res
}

// Classify returns the content type of a page body.
func Classify(content string) ContentType {
	if strings.TrimSpace(content) == "" {
		return Other
	}
	for _, r := range rules {
		for _, re := range r.patterns {
			if re.MatchString(content) {
				return r.kind
			}
		}
	}
	return Other
}
