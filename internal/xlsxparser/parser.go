// =============================================================================
// GPS to ERP Converter - GPS Report Parser
// =============================================================================
//
// This module reads the customer's GPS order report (.xlsx) into a working
// table. The report layout is:
//
//   | Row 1..5          | Row 6                         | Row 7..n       |
//   |-------------------|-------------------------------|----------------|
//   | report metadata   | column headers (PO No., ...)  | one order line |
//
// The number of metadata rows is configurable (conversion.skip_rows).
//
// CELL VALUES:
//   Cells are read raw, without number formats applied. Date cells therefore
//   arrive as spreadsheet serial numbers ("45870") and numeric cells keep
//   their full precision. The converter's normalizers interpret both.
//
// =============================================================================

package xlsxparser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/xuri/excelize/v2"
)

// =============================================================================
// OPTIONS
// =============================================================================

// ReportOptions controls how a GPS report is read.
type ReportOptions struct {
	// SkipRows is the number of metadata rows above the header row.
	SkipRows int

	// Sheet names the worksheet to read. Empty selects the first sheet.
	Sheet string
}

// DefaultReportOptions returns the options matching the standard GPS export.
func DefaultReportOptions() ReportOptions {
	return ReportOptions{SkipRows: 5}
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ReadReportBytes reads a GPS report held in memory.
func ReadReportBytes(content []byte, opts ReportOptions) (*types.Table, error) {
	return ReadReport(bytes.NewReader(content), opts)
}

// ReadReport reads a GPS report workbook into a table.
//
// PARAMETERS:
//   - r: The workbook content.
//   - opts: Which sheet to read and how many metadata rows to skip.
//
// RETURNS:
//   - A table whose headers come from the row after the skipped rows and
//     whose rows hold every following non-empty line, in sheet order.
//   - An error if the workbook cannot be opened, the sheet does not exist,
//     or the sheet has no header row.
//
// HEADER HANDLING:
//   - Header text is trimmed
//   - Empty headers are named Column_<n> (1-based position)
//   - When a header repeats, the first occurrence wins
func ReadReport(r io.Reader, opts ReportOptions) (*types.Table, error) {
	if opts.SkipRows < 0 {
		return nil, fmt.Errorf("skip rows must not be negative, got %d", opts.SkipRows)
	}

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open GPS report: %w", err)
	}
	defer f.Close()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("GPS report has no sheets")
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheet, err)
	}

	if len(rows) <= opts.SkipRows {
		return nil, fmt.Errorf("GPS report has no header row after %d metadata rows", opts.SkipRows)
	}

	headers := cleanHeaders(rows[opts.SkipRows])
	table := &types.Table{
		Headers: headers,
		Rows:    make([]types.Row, 0, len(rows)-opts.SkipRows-1),
	}

	for _, raw := range rows[opts.SkipRows+1:] {
		if isRowEmpty(raw) {
			continue
		}
		table.Rows = append(table.Rows, buildRow(headers, raw))
	}

	return table, nil
}

// cleanHeaders trims headers and names empty ones by position.
func cleanHeaders(raw []string) []string {
	headers := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Column_%d", i+1)
		}
		headers[i] = h
	}
	return headers
}

// buildRow pairs cell values with headers. Cells beyond the header are
// dropped; missing trailing cells become "".
func buildRow(headers, raw []string) types.Row {
	row := make(types.Row, len(headers))
	for i, h := range headers {
		if _, dup := row[h]; dup {
			continue
		}
		if i < len(raw) {
			row[h] = raw[i]
		} else {
			row[h] = ""
		}
	}
	return row
}

// isRowEmpty checks if a row contains only blank cells.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
