package blob

import (
	"bytes"
	"strconv"

	"github.com/cockroachdb/errors"
)

var (
	// ErrNoMatch means the window holds no well-formed tuple for the id.
	ErrNoMatch = errors.New("no tuple match in window")
	// ErrIncomplete means a tuple for the id starts in the window but the
	// window ends before the tuple is closed. A larger window may succeed.
	ErrIncomplete = errors.New("tuple truncated by window")
)

var binaryIntroducer = []byte("_binary")

// Record is one tuple recovered from a blob. Content and Flags hold the
// unescaped payload bytes.
type Record struct {
	ID      int64
	Content []byte
	Flags   []byte
}

// Extractor pulls records out of context windows.
type Extractor struct {
	Mode UnescapeMode
}

// Extract returns the record for id from window. Candidates that look like a
// tuple opening but do not parse are skipped, so a payload quoting "(id," does
// not hide the real tuple further on.
func (e Extractor) Extract(window []byte, id int64) (Record, error) {
	off, ok := Locate(window, id)
	for ok {
		rec, err := e.ExtractAt(window, off, id)
		if !errors.Is(err, ErrNoMatch) {
			return rec, err
		}
		off, ok = LocateFrom(window, id, off+1)
	}
	return Record{}, ErrNoMatch
}

// ExtractAt parses the tuple for id that opens at window[off].
func (e Extractor) ExtractAt(window []byte, off int, id int64) (Record, error) {
	if !OpensTuple(window, off, id) {
		return Record{}, ErrNoMatch
	}
	fields, err := scanTuple(window, off, id)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:      id,
		Content: Unescape(fields[0], e.Mode),
		Flags:   Unescape(fields[1], e.Mode),
	}, nil
}

type scanState int

const (
	stateInID scanState = iota
	stateExpectComma
	stateExpectIntroducer
	stateExpectQuote
	stateInField
	stateEscape
	stateSawQuote
	stateExpectSeparator
)

// scanTuple walks the tuple opening at off:
//
//	( id , _binary 'field' , _binary 'field' )
//
// Whitespace is allowed between tokens. Inside a field a backslash escapes
// the next byte and two single quotes stand for one literal quote; the first
// quote not followed by another quote closes the field. The returned fields
// are the raw, still escaped, bytes between the quotes.
func scanTuple(w []byte, off int, id int64) ([2][]byte, error) {
	var fields [2][]byte
	if off >= len(w) || w[off] != '(' {
		return fields, ErrNoMatch
	}
	want := strconv.FormatInt(id, 10)
	state := stateInID
	idStart := off + 1
	field := 0
	fieldStart := 0

	for i := off + 1; i < len(w); i++ {
		c := w[i]
		switch state {
		case stateInID:
			if isDigit(c) {
				continue
			}
			if string(w[idStart:i]) != want {
				return fields, ErrNoMatch
			}
			state = stateExpectComma
			i--
		case stateExpectComma:
			if isSpace(c) {
				continue
			}
			if c != ',' {
				return fields, ErrNoMatch
			}
			state = stateExpectIntroducer
		case stateExpectIntroducer:
			if isSpace(c) {
				continue
			}
			rest := w[i:]
			if !bytes.HasPrefix(rest, binaryIntroducer) {
				if len(rest) < len(binaryIntroducer) && bytes.HasPrefix(binaryIntroducer, rest) {
					return fields, ErrIncomplete
				}
				return fields, ErrNoMatch
			}
			i += len(binaryIntroducer) - 1
			state = stateExpectQuote
		case stateExpectQuote:
			if isSpace(c) {
				continue
			}
			if c != '\'' {
				return fields, ErrNoMatch
			}
			fieldStart = i + 1
			state = stateInField
		case stateInField:
			switch c {
			case '\\':
				state = stateEscape
			case '\'':
				state = stateSawQuote
			}
		case stateEscape:
			state = stateInField
		case stateSawQuote:
			if c == '\'' {
				state = stateInField
				continue
			}
			fields[field] = w[fieldStart : i-1]
			field++
			state = stateExpectSeparator
			i--
		case stateExpectSeparator:
			if isSpace(c) {
				continue
			}
			switch {
			case field == 1 && c == ',':
				state = stateExpectIntroducer
			case field == 2 && c == ')':
				return fields, nil
			default:
				return fields, ErrNoMatch
			}
		}
	}
	return fields, ErrIncomplete
}
