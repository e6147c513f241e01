package converter

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/csvparser"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
	"github.com/xuri/excelize/v2"
)

var reportHeaders = []string{
	"PO No.", "Vendor Short Name", "PO Release Date", "Orig Req XFD", "Curr CFM XFD",
	"Exp or Act XFD", "Reason Remark", "FOB Price", "Quantity", "PO Reference No.",
	"Customer Order No.", "Style/Part No.", "Color/Width", "Size", "Style Description",
	"Brand", "Market", "PO Header Identifier", "Region",
}

// mkReport writes a GPS workbook: five metadata rows, the header, then rows
// keyed by header name.
func mkReport(headers []string, rows []map[string]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	set := func(r, c int, v any) {
		cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
		_ = f.SetCellValue(sheet, cell, v)
	}
	for r := 0; r < 5; r++ {
		set(r, 0, "GPS Order Status Report")
	}
	for c, h := range headers {
		set(5, c, h)
	}
	for r, row := range rows {
		for c, h := range headers {
			if v, ok := row[h]; ok {
				set(6+r, c, v)
			}
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

func usRow() map[string]any {
	return map[string]any{
		"PO No.":               "4500001",
		"Vendor Short Name":    "ABC",
		"PO Release Date":      "2025-05-01",
		"Orig Req XFD":         "2025-07-01",
		"Curr CFM XFD":         "2025-07-20",
		"Exp or Act XFD":       time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		"Reason Remark":        "late fabric",
		"FOB Price":            9.99,
		"Quantity":             12,
		"PO Reference No.":     "R1",
		"Customer Order No.":   "C1",
		"Style/Part No.":       "ST1",
		"Color/Width":          "BLK",
		"Size":                 "M",
		"Style Description":    "Daily Value Pack",
		"Brand":                "ACME",
		"Market":               "United States",
		"PO Header Identifier": "Q123-2",
	}
}

func canadaRow() map[string]any {
	return map[string]any{
		"PO No.":               "4500002",
		"PO Release Date":      "2025-05-02",
		"Curr CFM XFD":         "2025-08-01",
		"Exp or Act XFD":       "2025-08-01",
		"Quantity":             "5.0",
		"PO Reference No.":     "R2",
		"Style/Part No.":       "ZZ",
		"Color/Width":          "RED",
		"Size":                 "L",
		"Style Description":    "Running Shoe",
		"Market":               "CANADA",
		"PO Header Identifier": "S204-OC",
		"Region":               "APAC",
	}
}

func reference() *csvparser.CSVData {
	return &csvparser.CSVData{
		Headers: []string{"ItemNumber", "Title", "StandardUnitCost"},
		Rows: []map[string]string{
			{"ItemNumber": "ST1_BLK_M", "Title": "Old", "StandardUnitCost": "1.00"},
			{"ItemNumber": " ST1_BLK_M ", "Title": "Runner", "StandardUnitCost": "12.50"},
		},
	}
}

func newTestConverter() *Converter {
	frozen := time.Date(2025, 9, 15, 10, 30, 0, 0, time.UTC)
	return New(config.DefaultConversion(), nil, WithClock(func() time.Time { return frozen }))
}

func csvLines(t *testing.T, out []byte) []string {
	t.Helper()
	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	if len(lines) == 0 {
		t.Fatalf("empty output")
	}
	return lines
}

func TestPurchaseOrder(t *testing.T) {
	report := mkReport(reportHeaders, []map[string]any{usRow(), canadaRow()})

	res, err := newTestConverter().PurchaseOrder(report, reference(), 60)
	if err != nil {
		t.Fatalf("PurchaseOrder: %v", err)
	}
	if res.Rows != 2 || res.Unmatched != 1 {
		t.Fatalf("rows=%d unmatched=%d, want 2 and 1", res.Rows, res.Unmatched)
	}
	if res.Document != types.PurchaseOrder || res.RunID == "" {
		t.Fatalf("unexpected result metadata: %+v", res)
	}

	lines := csvLines(t, res.CSV)
	want := []string{
		strings.Join(PurchaseOrderFields, ","),
		`4500001,PORT DROP OFF,USD,"ZHEJIANG JASAN HOLDING GROUP CO., LTD",2025-05-01,2025-07-01,2025-06-02,2025-06-02,1,"ACME, United States, Q123-2, PO REFERENCE #, 4500001, C1, C1",C1,ST1_BLK_M,12.5,12,,"S1 23, BUY2"`,
		`4500002,PORT DROP OFF,USD,"ZHEJIANG FUTURESTITCH SPORTS CO., LTD",2025-05-02,,2025-08-01,2025-08-01,1,"CANADA, S204-OC, PO REFERENCE #, 4500002, R2",R2,ZZ_RED_L,0.0,5,,"S2 04, SPECIAL EVENTS"`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), res.CSV)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got: %s\nwant: %s", i, lines[i], want[i])
		}
	}
}

func TestSalesOrder(t *testing.T) {
	report := mkReport(reportHeaders, []map[string]any{usRow(), canadaRow()})

	res, err := newTestConverter().SalesOrder(report, reference(), 60)
	if err != nil {
		t.Fatalf("SalesOrder: %v", err)
	}
	if res.Unmatched != 1 {
		t.Errorf("unmatched = %d, want 1", res.Unmatched)
	}

	lines := csvLines(t, res.CSV)
	want := []string{
		strings.Join(SalesOrderFields, ","),
		`4500001,PORT DROP OFF,PORT DROP OFF - US,USD,2025-09-15,2025-09-30,,1,C1,"ACME, United States, Q123-2, PO REFERENCE #, 4500001, C1, C1",C1,HOUSE,"S1 23, BUY2",ST1_BLK_M,Runner,0.0,12,,,,,United States,,,,`,
		`4500002,PORT DROP OFF,CANADA,USD,2025-09-15,2025-08-01,,1,,"CANADA, S204-OC, PO REFERENCE #, 4500002, R2",R2,HOUSE,"S2 04, SPECIAL EVENTS",ZZ_RED_L,,0.0,5,,,,,CANADA,,,,`,
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), res.CSV)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d:\n got: %s\nwant: %s", i, lines[i], want[i])
		}
	}
}

func TestSalesOrderSubtractDirection(t *testing.T) {
	cfg := config.DefaultConversion()
	cfg.SalesOrder.USOffsetDirection = "subtract"
	c := New(cfg, nil)

	res, err := c.SalesOrder(mkReport(reportHeaders, []map[string]any{usRow()}), reference(), 60)
	if err != nil {
		t.Fatalf("SalesOrder: %v", err)
	}
	if !strings.Contains(string(res.CSV), ",2025-06-02,") {
		t.Fatalf("expected ship date moved back to 2025-06-02:\n%s", res.CSV)
	}
}

func TestConvertKeepsRowOrder(t *testing.T) {
	var rows []map[string]any
	for _, po := range []string{"30", "10", "20"} {
		r := canadaRow()
		r["PO No."] = po
		rows = append(rows, r)
	}

	res, err := newTestConverter().Convert(types.PurchaseOrder, mkReport(reportHeaders, rows), reference(), 0)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	var got []string
	for _, line := range csvLines(t, res.CSV)[1:] {
		got = append(got, strings.SplitN(line, ",", 2)[0])
	}
	if strings.Join(got, " ") != "30 10 20" {
		t.Fatalf("order = %v", got)
	}
}

func TestConvertIsDeterministic(t *testing.T) {
	report := mkReport(reportHeaders, []map[string]any{usRow(), canadaRow()})
	c := newTestConverter()

	for _, doc := range []types.DocumentType{types.PurchaseOrder, types.SalesOrder} {
		first, err := c.Convert(doc, report, reference(), 60)
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		second, err := c.Convert(doc, report, reference(), 60)
		if err != nil {
			t.Fatalf("%s: %v", doc, err)
		}
		if !bytes.Equal(first.CSV, second.CSV) {
			t.Errorf("%s output differs between runs", doc)
		}
	}
}

func TestConvertMissingSourceColumns(t *testing.T) {
	var headers []string
	for _, h := range reportHeaders {
		if h != "Size" && h != "FOB Price" {
			headers = append(headers, h)
		}
	}
	report := mkReport(headers, []map[string]any{usRow()})

	_, err := newTestConverter().PurchaseOrder(report, reference(), 60)
	schemaErr, ok := validation.IsSchemaError(err)
	if !ok {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Schema != validation.SourceSchema {
		t.Errorf("schema = %s", schemaErr.Schema)
	}
	if strings.Join(schemaErr.Missing, "|") != "FOB Price|Size" {
		t.Errorf("missing = %v", schemaErr.Missing)
	}
}

func TestConvertMissingReferenceColumn(t *testing.T) {
	ref := &csvparser.CSVData{
		Headers: []string{"ItemNumber", "StandardUnitCost"},
		Rows:    []map[string]string{{"ItemNumber": "ST1_BLK_M", "StandardUnitCost": "1"}},
	}
	_, err := newTestConverter().SalesOrder(mkReport(reportHeaders, []map[string]any{usRow()}), ref, 60)
	schemaErr, ok := validation.IsSchemaError(err)
	if !ok {
		t.Fatalf("expected SchemaError, got %v", err)
	}
	if schemaErr.Schema != validation.ReferenceSchema || strings.Join(schemaErr.Missing, "|") != "Title" {
		t.Fatalf("got %s %v, want reference [Title]", schemaErr.Schema, schemaErr.Missing)
	}
}

func TestConvertRejectsNegativeOffset(t *testing.T) {
	_, err := newTestConverter().PurchaseOrder(mkReport(reportHeaders, nil), reference(), -1)
	if !errors.Is(err, validation.ErrNegativeOffset) {
		t.Fatalf("expected ErrNegativeOffset, got %v", err)
	}
}

func TestConvertEmptyReport(t *testing.T) {
	res, err := newTestConverter().PurchaseOrder(mkReport(reportHeaders, nil), reference(), 60)
	if err != nil {
		t.Fatalf("PurchaseOrder: %v", err)
	}
	if res.Rows != 0 || string(res.CSV) != strings.Join(PurchaseOrderFields, ",")+"\n" {
		t.Fatalf("expected header-only output, got %q", res.CSV)
	}
}

func TestConvertUnreadableReport(t *testing.T) {
	_, err := newTestConverter().PurchaseOrder([]byte("not a workbook"), reference(), 60)
	inputErr, ok := validation.IsInputError(err)
	if !ok {
		t.Fatalf("expected InputError, got %v", err)
	}
	if inputErr.Schema != validation.SourceSchema {
		t.Errorf("schema = %s, want source", inputErr.Schema)
	}
	if schema, ok := validation.SchemaOf(err); !ok || schema != validation.SourceSchema {
		t.Errorf("SchemaOf = %q %v", schema, ok)
	}
	if !strings.HasPrefix(err.Error(), "failed to read GPS report: ") {
		t.Errorf("message = %s", err)
	}
}

func TestConvertWithoutMarketColumn(t *testing.T) {
	var headers []string
	for _, h := range reportHeaders {
		if h != "Market" {
			headers = append(headers, h)
		}
	}
	report := mkReport(headers, []map[string]any{usRow()})

	res, err := newTestConverter().PurchaseOrder(report, reference(), 60)
	if err != nil {
		t.Fatalf("PurchaseOrder: %v", err)
	}
	lines := csvLines(t, res.CSV)
	if len(lines) != 2 || !strings.Contains(lines[1], ",2025-08-01,2025-08-01,") {
		t.Fatalf("dates must stay unshifted without a market:\n%s", res.CSV)
	}

	res, err = newTestConverter().SalesOrder(report, reference(), 60)
	if err != nil {
		t.Fatalf("SalesOrder: %v", err)
	}
	if strings.Contains(string(res.CSV), "PORT DROP OFF - US") {
		t.Errorf("row without market treated as US:\n%s", res.CSV)
	}
}

func TestNewAppliesConversionDefaults(t *testing.T) {
	report := mkReport(reportHeaders, []map[string]any{usRow()})

	res, err := New(config.Conversion{}, nil).SalesOrder(report, reference(), 60)
	if err != nil {
		t.Fatalf("SalesOrder: %v", err)
	}
	if res.Rows != 1 {
		t.Fatalf("rows = %d, want 1 (header must be read from row 6)", res.Rows)
	}
	lines := csvLines(t, res.CSV)
	if !strings.Contains(lines[1], ",PORT DROP OFF - US,") || !strings.Contains(lines[1], ",HOUSE,") {
		t.Errorf("defaults not applied: %s", lines[1])
	}
}

func TestConvertUnknownDocument(t *testing.T) {
	if _, err := newTestConverter().Convert("invoice", nil, reference(), 0); err == nil {
		t.Fatalf("expected error for unknown document type")
	}
}

func TestColumnMapOverride(t *testing.T) {
	cfg := config.DefaultConversion()
	for i, m := range cfg.ColumnMap {
		if m.Target == FieldThirdPartyRefNo {
			cfg.ColumnMap[i].Source = "Purchase Order"
		}
	}
	headers := append([]string(nil), reportHeaders...)
	headers[0] = "Purchase Order"
	row := usRow()
	row["Purchase Order"] = row["PO No."]

	res, err := New(cfg, nil).PurchaseOrder(mkReport(headers, []map[string]any{row}), reference(), 60)
	if err != nil {
		t.Fatalf("PurchaseOrder: %v", err)
	}
	if !strings.HasPrefix(csvLines(t, res.CSV)[1], "4500001,") {
		t.Fatalf("renamed source not used:\n%s", res.CSV)
	}
}

func TestReferenceIndexLastRowWins(t *testing.T) {
	idx, err := NewReferenceIndex(reference())
	if err != nil {
		t.Fatalf("NewReferenceIndex: %v", err)
	}
	cost, title, ok := idx.Lookup("ST1_BLK_M")
	if !ok || cost.String() != "12.5" || title != "Runner" {
		t.Fatalf("Lookup = %s %q %v", cost, title, ok)
	}
	if idx.Len() != 1 {
		t.Errorf("Len = %d", idx.Len())
	}
	if _, _, ok := idx.Lookup("nope"); ok {
		t.Errorf("unknown key matched")
	}
}

func TestTransformerReportsStageAndRow(t *testing.T) {
	table := &types.Table{Rows: []types.Row{{"a": "1"}, {"a": "bad"}}}
	tr := NewTransformer(
		Constant("b", "x"),
		Step("check a", func(row types.Row) error {
			if row["a"] == "bad" {
				return errors.New("boom")
			}
			return nil
		}),
	)

	err := tr.Transform(table)
	if err == nil || !strings.Contains(err.Error(), `"check a"`) || !strings.Contains(err.Error(), "row 2") {
		t.Fatalf("unexpected error: %v", err)
	}
	if table.Rows[1]["b"] != "x" {
		t.Errorf("earlier stage should have run on every row")
	}
	if got := strings.Join(tr.Stages(), ","); got != "set b,check a" && !strings.HasSuffix(got, ",check a") {
		t.Errorf("stages = %s", got)
	}
}
