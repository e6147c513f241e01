// =============================================================================
// GPS to ERP Converter - CSV Parser Module
// =============================================================================
//
// This module parses the ERP product master ("Xoro reference table") that
// supplies unit cost and title per item. It handles the shapes ERP exports
// arrive in:
//   - Different delimiters (comma, semicolon, pipe, tab)
//   - Multi-line headers
//   - Different encodings (UTF-8 with or without BOM, UTF-16, windows-1252,
//     ISO-8859-1)
//   - Ragged rows and loosely quoted fields
//
// The parser does not know which columns the converter needs. Required column
// checks happen in the converter's reference index.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// =============================================================================
// CSV DATA STRUCTURE
// =============================================================================

// CSVData represents the parsed CSV file.
type CSVData struct {
	// Headers contains the column headers from the CSV file.
	// For multi-line headers, these are the merged/final headers.
	Headers []string

	// Rows contains the data rows as maps of header -> value.
	Rows []map[string]string

	// SourceFile is the path or name of the source CSV, for error messages.
	SourceFile string

	// RowCount is the total number of data rows (excluding headers).
	RowCount int

	// ColumnCount is the number of columns in the CSV.
	ColumnCount int
}

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// ParseFile opens a CSV file and parses it with Parse.
func ParseFile(filePath string, settings config.CSVSettings) (*CSVData, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	data, err := Parse(file, settings)
	if err != nil {
		return nil, err
	}
	data.SourceFile = filePath
	return data, nil
}

// Parse reads CSV content and returns the parsed data.
//
// PARAMETERS:
//   - r: The CSV content.
//   - settings: The reference CSV settings from the main configuration.
//
// RETURNS:
//   - A pointer to the CSVData struct containing the parsed data.
//   - An error if the content cannot be decoded or parsed, or is empty.
//
// PARSING PROCESS:
//   1. Decode the content from the configured encoding to UTF-8
//   2. Configure the CSV reader with the configured delimiter
//   3. Read and merge header rows (for multi-line headers)
//   4. Convert each remaining non-empty row to a map of header -> value
func Parse(r io.Reader, settings config.CSVSettings) (*CSVData, error) {
	decoder, err := decoderFor(settings.Encoding)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(transform.NewReader(bufio.NewReader(r), decoder))
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}

	if len(allRows) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	headers, err := extractHeaders(allRows, settings)
	if err != nil {
		return nil, fmt.Errorf("failed to extract headers: %w", err)
	}

	dataRows := extractDataRows(allRows, headers, settings)

	return &CSVData{
		Headers:     headers,
		Rows:        dataRows,
		RowCount:    len(dataRows),
		ColumnCount: len(headers),
	}, nil
}

// decoderFor returns a decoder converting the named encoding to UTF-8.
// UTF-8 and UTF-16 decoders drop a leading byte order mark.
func decoderFor(name string) (transform.Transformer, error) {
	var enc encoding.Encoding
	switch config.NormalizeEncoding(name) {
	case "UTF-8":
		enc = unicode.UTF8BOM
	case "UTF-16":
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case "WINDOWS-1252":
		enc = charmap.Windows1252
	case "ISO-8859-1":
		enc = charmap.ISO8859_1
	default:
		return nil, fmt.Errorf("unsupported encoding %q", name)
	}
	return enc.NewDecoder(), nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// ERP exports are not always rectangular.
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
}

// extractHeaders extracts and merges headers from the CSV.
//
// MULTI-LINE HEADER HANDLING:
//   Some exports have headers that span multiple rows. Non-empty values of
//   each column are joined with a space.
//
//   Example:
//   Row 1: "Standard", "", "Item"
//   Row 2: "UnitCost", "Title", "Number"
//   Result: "Standard UnitCost", "Title", "Item Number"
func extractHeaders(allRows [][]string, settings config.CSVSettings) ([]string, error) {
	headerRows := settings.HeaderRows
	if headerRows <= 0 {
		headerRows = 1
	}

	if len(allRows) < headerRows {
		return nil, fmt.Errorf("file has fewer rows than header_rows setting")
	}

	if headerRows == 1 {
		return cleanHeaders(allRows[0]), nil
	}

	maxCols := 0
	for i := 0; i < headerRows; i++ {
		if len(allRows[i]) > maxCols {
			maxCols = len(allRows[i])
		}
	}

	headers := make([]string, maxCols)
	for col := 0; col < maxCols; col++ {
		var parts []string
		for row := 0; row < headerRows; row++ {
			if col < len(allRows[row]) {
				if value := strings.TrimSpace(allRows[row][col]); value != "" {
					parts = append(parts, value)
				}
			}
		}
		headers[col] = strings.Join(parts, " ")
	}

	return cleanHeaders(headers), nil
}

// cleanHeaders trims header values and names empty ones by position.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))

	for i, header := range headers {
		header = strings.TrimSpace(header)
		if header == "" {
			header = fmt.Sprintf("Column_%d", i+1)
		}
		cleaned[i] = header
	}

	return cleaned
}

// extractDataRows converts the rows after the header into maps.
// Empty rows are skipped. Values are trimmed. Missing trailing cells become "".
func extractDataRows(allRows [][]string, headers []string, settings config.CSVSettings) []map[string]string {
	startIndex := settings.HeaderRows
	if startIndex <= 0 {
		startIndex = 1
	}

	if startIndex >= len(allRows) {
		return []map[string]string{}
	}

	dataRows := make([]map[string]string, 0, len(allRows)-startIndex)

	for _, row := range allRows[startIndex:] {
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(map[string]string, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(row) {
				rowMap[header] = strings.TrimSpace(row[colIndex])
			} else {
				rowMap[header] = ""
			}
		}

		dataRows = append(dataRows, rowMap)
	}

	return dataRows
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// GetColumnByHeader returns all values for a specific column.
func GetColumnByHeader(data *CSVData, header string) []string {
	values := make([]string, len(data.Rows))
	for i, row := range data.Rows {
		values[i] = row[header]
	}
	return values
}
