// =============================================================================
// GPS to ERP Converter - CSV Writer Module
// =============================================================================
//
// This module serializes a projected working table into the CSV bytes the ERP
// import expects:
//
//   **ThirdPartyRefNo,**StoreName,...,Tags      <- header row, layout order
//   4500001,PORT DROP OFF,...,"S1 23, BUY2"     <- one row per order line
//
// Values containing the delimiter, quotes or line breaks are quoted per
// RFC 4180. Output is UTF-8 without a byte order mark.
//
// =============================================================================

package csvwriter

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
)

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// GenerateOptions contains options for CSV generation.
type GenerateOptions struct {
	// Comma is the field delimiter.
	// Default: ','
	Comma rune

	// UseCRLF ends lines with \r\n instead of \n.
	// Default: false
	UseCRLF bool
}

// DefaultGenerateOptions returns the options used for ERP imports.
func DefaultGenerateOptions() GenerateOptions {
	return GenerateOptions{Comma: ','}
}

// =============================================================================
// CSV GENERATION FUNCTIONS
// =============================================================================

// Generate writes the header row and every row of table, restricted to fields.
//
// PARAMETERS:
//   - table: The projected table. Row order is kept.
//   - fields: Column order of the output. Fields absent from a row are "".
//
// RETURNS:
//   - The CSV document.
//   - An error if writing fails.
func Generate(table *types.Table, fields []string) ([]byte, error) {
	return GenerateWithOptions(table, fields, DefaultGenerateOptions())
}

// GenerateWithOptions is Generate with explicit options.
func GenerateWithOptions(table *types.Table, fields []string, options GenerateOptions) ([]byte, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("no output fields given")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if options.Comma != 0 {
		w.Comma = options.Comma
	}
	w.UseCRLF = options.UseCRLF

	if err := w.Write(fields); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	record := make([]string, len(fields))
	for i, row := range table.Rows {
		for j, f := range fields {
			record[j] = row[f]
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush CSV: %w", err)
	}
	return buf.Bytes(), nil
}
