package analysis

import (
	"bytes"
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

var (
	nonSpaceRun    = regexp.MustCompile(`\S+`)
	controlChars   = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]`)
	zeroWidth      = regexp.MustCompile(`[\x{200B}\x{200C}\x{200D}\x{2060}\x{FEFF}]`)
	escapedDQuotes = regexp.MustCompile(`\\+"`)
)

// FixEncoding repairs text that went through a UTF-8 to Latin-1 (or
// Windows-1252) round trip, decodes HTML entities, drops control and
// zero-width characters and returns the result in NFC.
func FixEncoding(text string) string {
	if text == "" {
		return text
	}
	text = nonSpaceRun.ReplaceAllStringFunc(text, repairMojibake)
	text = html.UnescapeString(text)
	text = controlChars.ReplaceAllString(text, "")
	text = zeroWidth.ReplaceAllString(text, "")
	text = escapedDQuotes.ReplaceAllString(text, `"`)
	text = strings.ReplaceAll(text, `""`, `"`)
	return norm.NFC.String(text)
}

// HasMojibake reports whether text shows the usual marks of doubly encoded
// UTF-8.
func HasMojibake(text string) bool {
	return strings.Contains(text, "Ã") || strings.Contains(text, "â€")
}

// repairMojibake re-encodes a token to single bytes and keeps the result if
// those bytes form valid UTF-8 that differs from the input. Tokens that are
// already correct never survive the round trip: a lone "ü" becomes byte 0xFC,
// which is not valid UTF-8.
func repairMojibake(token string) string {
	buf := make([]byte, 0, len(token))
	high := false
	for _, r := range token {
		switch {
		case r < utf8.RuneSelf:
			buf = append(buf, byte(r))
		case r <= 0xFF:
			buf = append(buf, byte(r))
			high = true
		default:
			b, ok := charmap.Windows1252.EncodeRune(r)
			if !ok {
				return token
			}
			buf = append(buf, b)
			high = true
		}
	}
	if !high || !utf8.Valid(buf) || bytes.Equal(buf, []byte(token)) {
		return token
	}
	return string(buf)
}

var (
	categoryLink = regexp.MustCompile(`\[\[Category:[^\]]*\]\]`)
	sortKey      = regexp.MustCompile(`\{\{DEFAULTSORT(?:KEY)?:[^}]*\}\}`)
	wikiLink     = regexp.MustCompile(`\[\[(?:[^\]|]*\|)?([^\]]*)\]\]`)
	lstBlock     = regexp.MustCompile(`(?s)<lst[^>]*>(.*?)</lst>`)
	boldMarkup   = regexp.MustCompile(`'''(.*?)'''`)
	italicMarkup = regexp.MustCompile(`''(.*?)''`)
	redirectWord = regexp.MustCompile(`(?i)#REDIRECT\s*`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// RemoveWikiMarkup strips links, categories, emphasis and list tags and
// collapses whitespace.
func RemoveWikiMarkup(text string) string {
	text = categoryLink.ReplaceAllString(text, "")
	text = sortKey.ReplaceAllString(text, "")
	text = wikiLink.ReplaceAllString(text, "$1")
	text = lstBlock.ReplaceAllString(text, "$1")
	text = boldMarkup.ReplaceAllString(text, "$1")
	text = italicMarkup.ReplaceAllString(text, "$1")
	text = redirectWord.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, `\"`, `"`)
	text = strings.ReplaceAll(text, `\'`, `'`)
	text = whitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
