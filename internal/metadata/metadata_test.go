package metadata

import (
	"encoding/hex"
	"strings"
	"testing"
)

func TestParseAddress(t *testing.T) {
	tests := []struct {
		name   string
		addr   string
		wantID int64
		wantOK bool
	}{
		{"plain", "tt:123", 123, true},
		{"whitespace", "  tt:9 ", 9, true},
		{"trailing text", "tt:77/extra", 77, true},
		{"hex", "0x" + hex.EncodeToString([]byte("tt:4815")), 4815, true},
		{"hex upper prefix", "0X" + hex.EncodeToString([]byte("tt:16")), 16, true},
		{"hex without marker", "0x" + hex.EncodeToString([]byte("es:1")), 0, false},
		{"bad hex", "0xzz", 0, false},
		{"no marker", "es:DB://cluster1/5", 0, false},
		{"marker without id", "tt:", 0, false},
		{"empty", "", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := ParseAddress(tt.addr)
			if ok != tt.wantOK {
				t.Fatalf("Expected ok=%v, got %v", tt.wantOK, ok)
			}
			if id != tt.wantID {
				t.Errorf("Expected id %d, got %d", tt.wantID, id)
			}
		})
	}
}

func TestPageRecordID(t *testing.T) {
	p := Page{ID: 1, Title: "Schachnovelle", Address: "tt:42"}
	id, ok := p.RecordID()
	if !ok || id != 42 {
		t.Errorf("Expected 42, got %d (ok=%v)", id, ok)
	}
}

func TestDecodeTitle(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"plain", "Die_Welt_von_Gestern", "Die_Welt_von_Gestern"},
		{"hex", "0x" + hex.EncodeToString([]byte("Ungeduld_des_Herzens")), "Ungeduld_des_Herzens"},
		{"hex utf8", "0x" + hex.EncodeToString([]byte("Zürich")), "Zürich"},
		{"not hex", "0xnothex", "0xnothex"},
		{"short", "0x", "0x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeTitle([]byte(tt.raw)); got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestReadPagesCSV(t *testing.T) {
	data := "page_id,page_title,content_address\n" +
		"1,Amok,tt:10\n" +
		"2,0x" + hex.EncodeToString([]byte("Angst")) + ",tt:11\n"

	pages, err := ReadPagesCSV(strings.NewReader(data))
	if err != nil {
		t.Fatalf("ReadPagesCSV failed: %v", err)
	}
	if len(pages) != 2 {
		t.Fatalf("Expected 2 pages, got %d", len(pages))
	}
	if pages[1].Title != "Angst" {
		t.Errorf("Expected decoded title Angst, got %s", pages[1].Title)
	}
	if id, _ := pages[0].RecordID(); id != 10 {
		t.Errorf("Expected record id 10, got %d", id)
	}
}

func TestReadPagesCSVErrors(t *testing.T) {
	if _, err := ReadPagesCSV(strings.NewReader("title,address_str\nx,tt:1\n")); err == nil {
		t.Error("Expected error for missing page_id column")
	}
	if _, err := ReadPagesCSV(strings.NewReader("page_id,address_str\nabc,tt:1\n")); err == nil {
		t.Error("Expected error for invalid page_id")
	}
	pages, err := ReadPagesCSV(strings.NewReader(""))
	if err != nil || pages != nil {
		t.Errorf("Expected empty result for empty input, got %v, %v", pages, err)
	}
}
