package analysis

import (
	"regexp"
	"strings"

	"github.com/abadojack/whatlanggo"
)

const languageNames = `German|English|French|Spanish|Italian|Russian|Chinese|Japanese|Arabic|Portuguese`

var (
	statedLanguage = compile(
		`(?i)(?:Language|Sprache|Langue|Idioma)[:\s]+([^.\n]+)`,
		`(?i)\b(?:translated into|translated to|translation into|in|auf|en)\s+(`+languageNames+`)\b`,
		`(?i)\b(`+languageNames+`) (?:edition|translation|version)\b`,
	)
	categoryLanguage = regexp.MustCompile(`\[\[Category:[^\]]*\((` + languageNames + `)\)\]\]`)

	languageHints = []struct {
		name     string
		patterns []*regexp.Regexp
	}{
		{"German", compile(`(?i)\b(?:German|Deutsch)\b`, `(?i)\b(?:Verlag|Band|herausgegeben)\b`, `\b(?:München|Berlin|Frankfurt|Leipzig|Wien)\b`)},
		{"English", compile(`(?i)\b(?:English|translated into English)\b`, `\b(?:London|New York|Oxford|Cambridge)\b`, `(?i)\b(?:Publisher|Press)\b`)},
		{"French", compile(`(?i)\b(?:French|Français|traduit en français)\b`, `\bParis\b|Éditions`, `(?i)\b(?:traduction|traduit)\b`)},
		{"Spanish", compile(`(?i)\b(?:Spanish|Español|traducido al español)\b`, `\b(?:Madrid|Barcelona|Buenos Aires)\b`, `(?i)\b(?:traducción|traducido)\b`)},
		{"Italian", compile(`(?i)\b(?:Italian|Italiano|tradotto in italiano)\b`, `\b(?:Roma|Milano|Torino|Firenze)\b`, `(?i)\b(?:traduzione|tradotto)\b`)},
		{"Russian", compile(`(?i)\bRussian\b|русский`, `\b(?:Moscow|Moskva|Moskau)\b`)},
	}
)

// minDetectRunes is the shortest text handed to statistical detection.
const minDetectRunes = 40

// explicitLanguage returns a language the page states outright.
func explicitLanguage(content string) string {
	if v := firstGroup(statedLanguage, content); v != "" {
		return titleCase(v)
	}
	if m := categoryLanguage.FindStringSubmatch(content); m != nil {
		return m[1]
	}
	return ""
}

// DetectLanguage names the language of a page: a stated language first, then
// keyword hints (two of a language's hint groups must match), then
// statistical detection on the markup-free text. It returns "Unknown" when
// nothing is reliable.
func DetectLanguage(content, clean string) string {
	if l := explicitLanguage(content); l != "" {
		return l
	}
	for _, hint := range languageHints {
		n := 0
		for _, re := range hint.patterns {
			if re.MatchString(content) {
				n++
			}
		}
		if n >= 2 {
			return hint.name
		}
	}
	if len([]rune(clean)) >= minDetectRunes {
		info := whatlanggo.Detect(clean)
		if info.IsReliable() {
			return info.Lang.String()
		}
	}
	return "Unknown"
}

func titleCase(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r := []rune(strings.ToLower(s))
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
