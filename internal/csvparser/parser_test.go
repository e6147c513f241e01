package csvparser

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
)

func defaultSettings() config.CSVSettings {
	return config.CSVSettings{Delimiter: ",", HeaderRows: 1, Encoding: "UTF-8"}
}

func TestParseBasic(t *testing.T) {
	in := "ItemNumber,Title,StandardUnitCost\n" +
		"ST1_BLK_M, Runner ,12.50\n" +
		"\n" +
		"ST2_RED_L,Trail\n"

	data, err := Parse(strings.NewReader(in), defaultSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !reflect.DeepEqual(data.Headers, []string{"ItemNumber", "Title", "StandardUnitCost"}) {
		t.Fatalf("headers = %v", data.Headers)
	}
	if data.RowCount != 2 || data.ColumnCount != 3 {
		t.Fatalf("rows/cols = %d/%d", data.RowCount, data.ColumnCount)
	}
	if got := data.Rows[0]["Title"]; got != "Runner" {
		t.Errorf("Title not trimmed: %q", got)
	}
	if got, ok := data.Rows[1]["StandardUnitCost"]; !ok || got != "" {
		t.Errorf("short row should be padded, got %q (present=%v)", got, ok)
	}
	if got := GetColumnByHeader(data, "ItemNumber"); !reflect.DeepEqual(got, []string{"ST1_BLK_M", "ST2_RED_L"}) {
		t.Errorf("GetColumnByHeader = %v", got)
	}
}

func TestParseStripsUTF8BOM(t *testing.T) {
	in := "\xef\xbb\xbfItemNumber,Title,StandardUnitCost\nA,B,1\n"
	data, err := Parse(strings.NewReader(in), defaultSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if data.Headers[0] != "ItemNumber" {
		t.Fatalf("BOM not stripped: %q", data.Headers[0])
	}
}

func TestParseWindows1252(t *testing.T) {
	// 0xE9 is "é" in windows-1252.
	in := []byte("ItemNumber;Title;StandardUnitCost\nA;Caf\xe9;2\n")
	settings := config.CSVSettings{Delimiter: ";", HeaderRows: 1, Encoding: "windows-1252"}

	data, err := Parse(bytes.NewReader(in), settings)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := data.Rows[0]["Title"]; got != "Café" {
		t.Fatalf("Title = %q, want Café", got)
	}
}

func TestParseMultiLineHeaders(t *testing.T) {
	in := "Item,,Standard\nNumber,Title,UnitCost\nA,B,3\n"
	settings := config.CSVSettings{Delimiter: ",", HeaderRows: 2}

	data, err := Parse(strings.NewReader(in), settings)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	want := []string{"Item Number", "Title", "Standard UnitCost"}
	if !reflect.DeepEqual(data.Headers, want) {
		t.Fatalf("headers = %v, want %v", data.Headers, want)
	}
	if data.Rows[0]["Standard UnitCost"] != "3" {
		t.Errorf("row = %v", data.Rows[0])
	}
}

func TestParseEmptyHeaderNamedByPosition(t *testing.T) {
	data, err := Parse(strings.NewReader("A,,C\n1,2,3\n"), defaultSettings())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if data.Headers[1] != "Column_2" {
		t.Fatalf("headers = %v", data.Headers)
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse(strings.NewReader(""), defaultSettings()); err == nil {
		t.Errorf("empty input should fail")
	}
	if _, err := Parse(strings.NewReader("a\n"), config.CSVSettings{Encoding: "EBCDIC"}); err == nil {
		t.Errorf("unsupported encoding should fail")
	}
	if _, err := Parse(strings.NewReader("a\n"), config.CSVSettings{HeaderRows: 3}); err == nil {
		t.Errorf("too few header rows should fail")
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "xoro.csv")
	if err := os.WriteFile(path, []byte("ItemNumber\tTitle\tStandardUnitCost\nA\tB\t1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	data, err := ParseFile(path, config.CSVSettings{Delimiter: "tab", HeaderRows: 1})
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if data.SourceFile != path || data.Rows[0]["Title"] != "B" {
		t.Fatalf("unexpected data: %+v", data)
	}
	if _, err := ParseFile(filepath.Join(t.TempDir(), "missing.csv"), defaultSettings()); err == nil {
		t.Fatalf("missing file should fail")
	}
}
