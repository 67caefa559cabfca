package blob

import (
	"bytes"
	"strconv"
)

// Needle returns the literal byte sequence that opens the tuple for id.
func Needle(id int64) []byte {
	b := make([]byte, 0, 22)
	b = append(b, '(')
	b = strconv.AppendInt(b, id, 10)
	return append(b, ',')
}

// Locate returns the offset of the '(' that opens the tuple whose first
// field is exactly id.
func Locate(data []byte, id int64) (int, bool) {
	return LocateFrom(data, id, 0)
}

// LocateFrom is like Locate but ignores matches starting before from.
func LocateFrom(data []byte, id int64, from int) (int, bool) {
	if id < 0 || from < 0 {
		return -1, false
	}
	needle := Needle(id)
	for from+len(needle) <= len(data) {
		i := bytes.Index(data[from:], needle)
		if i < 0 {
			return -1, false
		}
		off := from + i
		if OpensTuple(data, off, id) {
			return off, true
		}
		from = off + 1
	}
	return -1, false
}

// OpensTuple reports whether data[off:] starts with '(' followed by the full
// decimal digit run of id and a ','. A longer digit run such as "(123," never
// matches id 12, and "(0012," never matches 12.
func OpensTuple(data []byte, off int, id int64) bool {
	if off < 0 || off >= len(data) || data[off] != '(' {
		return false
	}
	start := off + 1
	end := start
	for end < len(data) && isDigit(data[end]) {
		end++
	}
	if end == start || end >= len(data) || data[end] != ',' {
		return false
	}
	var buf [20]byte
	return bytes.Equal(data[start:end], strconv.AppendInt(buf[:0], id, 10))
}

func isDigit(c byte) bool {
	return '0' <= c && c <= '9'
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r':
		return true
	}
	return false
}
