package blob

import (
	"fmt"
	"strings"
)

// UnescapeMode selects how quoted field text is turned back into payload
// bytes.
type UnescapeMode int

const (
	// UnescapeQuotes only collapses doubled single quotes. Backslash pairs
	// are kept verbatim and left to downstream cleaning.
	UnescapeQuotes UnescapeMode = iota
	// UnescapeMySQL additionally decodes MySQL backslash escapes.
	UnescapeMySQL
)

func (m UnescapeMode) String() string {
	switch m {
	case UnescapeQuotes:
		return "quotes"
	case UnescapeMySQL:
		return "mysql"
	default:
		return fmt.Sprintf("UnescapeMode(%d)", int(m))
	}
}

// ParseUnescapeMode maps a configuration name to a mode.
func ParseUnescapeMode(s string) (UnescapeMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "quotes":
		return UnescapeQuotes, nil
	case "mysql":
		return UnescapeMySQL, nil
	default:
		return 0, fmt.Errorf("unknown unescape mode %q (supported: quotes, mysql)", s)
	}
}

// Unescape decodes the raw text of a quoted field.
func Unescape(field []byte, mode UnescapeMode) []byte {
	out := make([]byte, 0, len(field))
	for i := 0; i < len(field); i++ {
		c := field[i]
		switch {
		case c == '\\' && i+1 < len(field):
			if mode == UnescapeMySQL {
				out = appendMySQLEscape(out, field[i+1])
			} else {
				out = append(out, c, field[i+1])
			}
			i++
		case c == '\'' && i+1 < len(field) && field[i+1] == '\'':
			out = append(out, '\'')
			i++
		default:
			out = append(out, c)
		}
	}
	return out
}

func appendMySQLEscape(out []byte, c byte) []byte {
	switch c {
	case '0':
		return append(out, 0)
	case 'b':
		return append(out, '\b')
	case 'n':
		return append(out, '\n')
	case 'r':
		return append(out, '\r')
	case 't':
		return append(out, '\t')
	case 'Z':
		return append(out, 0x1a)
	case '%', '_':
		// MySQL keeps the backslash for LIKE wildcards.
		return append(out, '\\', c)
	default:
		return append(out, c)
	}
}

// Escape is the inverse of Unescape in UnescapeQuotes mode: single quotes are
// doubled and backslash pairs pass through unchanged.
func Escape(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+8)
	for i := 0; i < len(payload); i++ {
		c := payload[i]
		switch {
		case c == '\\' && i+1 < len(payload):
			out = append(out, c, payload[i+1])
			i++
		case c == '\'':
			out = append(out, '\'', '\'')
		default:
			out = append(out, c)
		}
	}
	return out
}
