// =============================================================================
// GPS to ERP Converter - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - xlsxparser (produces a Table from the GPS report)
//   - converter  (derives fields on the Table and projects it)
//   - csvwriter  (serializes the projected Table)
//
// =============================================================================

package types

import (
	"fmt"
	"strings"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// DocumentType identifies the ERP import layout a conversion produces.
type DocumentType string

const (
	// PurchaseOrder is the 16-field Xoro purchase order import layout.
	PurchaseOrder DocumentType = "po"

	// SalesOrder is the Xoro sales order import layout.
	SalesOrder DocumentType = "so"
)

// ParseDocumentType converts user input ("po", "PO", " so ") into a DocumentType.
func ParseDocumentType(s string) (DocumentType, error) {
	switch DocumentType(strings.ToLower(strings.TrimSpace(s))) {
	case PurchaseOrder:
		return PurchaseOrder, nil
	case SalesOrder:
		return SalesOrder, nil
	default:
		return "", fmt.Errorf("unknown document type %q (expected po or so)", s)
	}
}

// Suffix returns the file name suffix used for converted output, e.g. "_PO.csv".
func (d DocumentType) Suffix() string {
	return "_" + strings.ToUpper(string(d)) + ".csv"
}

// String implements fmt.Stringer.
func (d DocumentType) String() string {
	return string(d)
}

// =============================================================================
// TABLE TYPES
// =============================================================================

// Row is a single spreadsheet line keyed by column name.
// Derivation stages add keys to it; nothing removes them.
type Row map[string]string

// Get returns the value of a column, or "" if the column is absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Table is the working table of one conversion.
//
// Rows keep the order of the source sheet. Headers lists the columns the
// source provided; derived columns live only in the rows.
type Table struct {
	// Headers holds the column names in source order.
	Headers []string

	// Rows holds one entry per data line, in source order.
	Rows []Row
}

// HasColumn reports whether the table header contains the given column.
func (t *Table) HasColumn(column string) bool {
	for _, h := range t.Headers {
		if h == column {
			return true
		}
	}
	return false
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}
