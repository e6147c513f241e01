package xlsxparser

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func metadataRows(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{"GPS Report", "generated"}
	}
	return rows
}

func TestReadReportSkipsMetadata(t *testing.T) {
	rows := metadataRows(5)
	rows = append(rows,
		[]any{" PO No. ", "Quantity", "", "Size"},
		[]any{"4500001", 12, "x", "M"},
		[]any{},
		[]any{"4500002", 3.5},
	)

	table, err := ReadReportBytes(mkXLSX(rows), DefaultReportOptions())
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}

	wantHeaders := []string{"PO No.", "Quantity", "Column_3", "Size"}
	if strings.Join(table.Headers, "|") != strings.Join(wantHeaders, "|") {
		t.Fatalf("headers = %v, want %v", table.Headers, wantHeaders)
	}
	if table.Len() != 2 {
		t.Fatalf("rows = %d, want 2 (empty line dropped)", table.Len())
	}
	if got := table.Rows[0].Get("PO No."); got != "4500001" {
		t.Errorf("PO No. = %q", got)
	}
	if got := table.Rows[0].Get("Quantity"); got != "12" {
		t.Errorf("Quantity = %q", got)
	}
	if got := table.Rows[1].Get("Quantity"); got != "3.5" {
		t.Errorf("Quantity = %q", got)
	}
	if got, ok := table.Rows[1]["Size"]; !ok || got != "" {
		t.Errorf("missing trailing cell should be empty, got %q present=%v", got, ok)
	}
	if !table.HasColumn("Size") || table.HasColumn("Color/Width") {
		t.Errorf("HasColumn mismatch")
	}
}

func TestReadReportKeepsRowOrder(t *testing.T) {
	rows := metadataRows(5)
	rows = append(rows, []any{"PO No."})
	for _, po := range []string{"C", "A", "B"} {
		rows = append(rows, []any{po})
	}

	table, err := ReadReportBytes(mkXLSX(rows), DefaultReportOptions())
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	var got []string
	for _, r := range table.Rows {
		got = append(got, r.Get("PO No."))
	}
	if strings.Join(got, "") != "CAB" {
		t.Fatalf("order = %v", got)
	}
}

func TestReadReportDuplicateHeaderFirstWins(t *testing.T) {
	rows := [][]any{
		{"Market", "Market"},
		{"UNITED STATES", "CANADA"},
	}
	table, err := ReadReportBytes(mkXLSX(rows), ReportOptions{SkipRows: 0})
	if err != nil {
		t.Fatalf("ReadReport: %v", err)
	}
	if got := table.Rows[0].Get("Market"); got != "UNITED STATES" {
		t.Fatalf("Market = %q, want first occurrence", got)
	}
}

func TestReadReportErrors(t *testing.T) {
	if _, err := ReadReportBytes([]byte("not a workbook"), DefaultReportOptions()); err == nil {
		t.Errorf("garbage input should fail")
	}

	short := mkXLSX(metadataRows(3))
	if _, err := ReadReportBytes(short, DefaultReportOptions()); err == nil {
		t.Errorf("sheet without header row should fail")
	}

	if _, err := ReadReportBytes(short, ReportOptions{SkipRows: -1}); err == nil {
		t.Errorf("negative skip rows should fail")
	}

	if _, err := ReadReportBytes(short, ReportOptions{Sheet: "Nope"}); err == nil {
		t.Errorf("unknown sheet should fail")
	}
}
