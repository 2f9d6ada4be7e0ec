package main

import (
	"bytes"
	"database/sql"
	"strings"
	"testing"

	"github.com/matsen/gaiaoffline/internal/catalog"
)

func testResultSet() *catalog.ResultSet {
	rs := &catalog.ResultSet{Columns: []string{"source_id", "ra", "phot_g_mean_flux"}}
	for i, flux := range []sql.NullFloat64{{Float64: 50000, Valid: true}, {}} {
		s := catalog.Source{SourceID: int64(i + 1), RA: 45.5}
		s.Phot[catalog.BandG].Flux = flux
		rs.Rows = append(rs.Rows, s)
	}
	return rs
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, testResultSet()); err != nil {
		t.Fatalf("writeCSV: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), buf.String())
	}
	if lines[0] != "source_id,ra,phot_g_mean_flux" {
		t.Errorf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "1,45.5,") {
		t.Errorf("first row = %q", lines[1])
	}
}

func TestWriteJSONL(t *testing.T) {
	var buf bytes.Buffer
	if err := writeJSONL(&buf, testResultSet()); err != nil {
		t.Fatalf("writeJSONL: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if !strings.Contains(lines[1], `"phot_g_mean_flux":null`) {
		t.Errorf("null flux not encoded as null: %s", lines[1])
	}
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	writeTable(&buf, testResultSet())
	out := buf.String()

	if !strings.Contains(out, "SOURCE_ID") {
		t.Errorf("table missing header:\n%s", out)
	}
	if !strings.HasSuffix(out, "(2 rows)\n") {
		t.Errorf("table missing row count:\n%s", out)
	}

	buf.Reset()
	writeTable(&buf, &catalog.ResultSet{})
	if buf.String() != "(0 rows)\n" {
		t.Errorf("empty table = %q", buf.String())
	}
}

func TestTruncateAndPad(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"abc", 5, "abc  "},
		{"abcdefgh", 6, "abc..."},
		{"abcdef", 2, "ab"},
	}
	for _, tt := range tests {
		if got := padRight(truncate(tt.s, tt.width), tt.width); got != tt.want {
			t.Errorf("padRight(truncate(%q, %d)) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}
