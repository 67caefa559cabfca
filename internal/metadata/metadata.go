// Package metadata holds the page rows produced by the page/revision/slot/
// content join and the helpers that turn them into record ids.
package metadata

import (
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// AddressMarker precedes the text-table record id in a content address,
// e.g. "tt:48213".
const AddressMarker = "tt:"

// Page is one in-scope wiki page and the content address of its latest
// revision.
type Page struct {
	ID      int64  `json:"page_id"`
	Title   string `json:"page_title"`
	Address string `json:"content_address"`
}

// RecordID returns the text-table record id the page's content lives in.
func (p Page) RecordID() (int64, bool) {
	return ParseAddress(p.Address)
}

// ParseAddress extracts the record id from a content address. Addresses are
// either plain ("tt:123") or hex encoded ("0x74743a313233").
func ParseAddress(addr string) (int64, bool) {
	addr = strings.TrimSpace(addr)
	if id, ok := parseMarked(addr); ok {
		return id, true
	}
	if !strings.HasPrefix(addr, "0x") && !strings.HasPrefix(addr, "0X") {
		return 0, false
	}
	raw, err := hex.DecodeString(addr[2:])
	if err != nil {
		return 0, false
	}
	return parseMarked(string(raw))
}

func parseMarked(s string) (int64, bool) {
	_, rest, ok := strings.Cut(s, AddressMarker)
	if !ok {
		return 0, false
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(rest[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// DecodeTitle returns a page title as text. Some exports store titles as a
// hex literal ("0x53746566616e"); those are decoded as UTF-8.
func DecodeTitle(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > 2 && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		if b, err := hex.DecodeString(s[2:]); err == nil {
			if utf8.Valid(b) {
				return string(b)
			}
			return strings.ToValidUTF8(string(b), "�")
		}
	}
	return s
}

// ReadPagesCSV reads pages from a CSV file with a header containing
// page_id, page_title and content_address (or address_str).
func ReadPagesCSV(r io.Reader) ([]Page, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	idCol, ok := cols["page_id"]
	if !ok {
		return nil, fmt.Errorf("missing page_id column")
	}
	addrCol, ok := cols["content_address"]
	if !ok {
		addrCol, ok = cols["address_str"]
	}
	if !ok {
		return nil, fmt.Errorf("missing content_address column")
	}
	titleCol, hasTitle := cols["page_title"]

	var pages []Page
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("failed to read line %d: %w", line, err)
		}
		if idCol >= len(rec) || addrCol >= len(rec) {
			return nil, fmt.Errorf("line %d: too few columns", line)
		}
		id, err := strconv.ParseInt(strings.TrimSpace(rec[idCol]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid page_id %q: %w", line, rec[idCol], err)
		}
		page := Page{ID: id, Address: rec[addrCol]}
		if hasTitle && titleCol < len(rec) {
			page.Title = DecodeTitle([]byte(rec[titleCol]))
		}
		pages = append(pages, page)
	}
	return pages, nil
}
