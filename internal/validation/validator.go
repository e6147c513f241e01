// =============================================================================
// GPS to ERP Converter - Validation
// =============================================================================
//
// This module holds the structural checks that run before any row is
// transformed:
//   - Required column checks on the GPS report header
//   - Required column checks on the ERP reference table
//   - Unreadable inputs, attributed to the input that failed to parse
//   - Offset-days contract checks
//
// ERROR HANDLING:
//   - Missing columns are collected, never reported one at a time
//   - Each SchemaError and InputError is attributable to exactly one input
//     (source or reference)
//   - Row-level bad values are not validation errors; the normalizers degrade
//     them to documented defaults
//
// =============================================================================

package validation

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// SCHEMA ERRORS
// =============================================================================

// Schema names the input a SchemaError belongs to.
type Schema string

const (
	// SourceSchema is the GPS report header row.
	SourceSchema Schema = "source"

	// ReferenceSchema is the ERP reference table header row.
	ReferenceSchema Schema = "reference"
)

// SchemaError reports every required column absent from one input.
type SchemaError struct {
	// Schema identifies which input is missing columns.
	Schema Schema

	// Missing lists the absent column names in the order they were required.
	Missing []string
}

// Label is the name of the input a schema belongs to, as users know it.
func (s Schema) Label() string {
	if s == ReferenceSchema {
		return "reference table"
	}
	return "GPS report"
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s is missing required columns: %s", e.Schema.Label(), strings.Join(e.Missing, ", "))
}

// InputError reports an input that could not be parsed at all, such as bytes
// that are not a workbook or a reference CSV that cannot be decoded.
type InputError struct {
	// Schema identifies which input could not be read.
	Schema Schema

	// Err is the underlying parse failure.
	Err error
}

// Error implements the error interface.
func (e *InputError) Error() string {
	return fmt.Sprintf("failed to read %s: %v", e.Schema.Label(), e.Err)
}

// Unwrap returns the parse failure.
func (e *InputError) Unwrap() error {
	return e.Err
}

// NewInputError ties err to one input. A nil err yields nil.
func NewInputError(schema Schema, err error) error {
	if err == nil {
		return nil
	}
	return &InputError{Schema: schema, Err: err}
}

// IsInputError reports whether err (or anything it wraps) is an InputError,
// returning it when it is.
func IsInputError(err error) (*InputError, bool) {
	var ie *InputError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// SchemaOf returns the input an error is attributed to. Both SchemaError and
// InputError carry one; any other error returns false.
func SchemaOf(err error) (Schema, bool) {
	if se, ok := IsSchemaError(err); ok {
		return se.Schema, true
	}
	if ie, ok := IsInputError(err); ok {
		return ie.Schema, true
	}
	return "", false
}

// IsSchemaError reports whether err (or anything it wraps) is a SchemaError,
// returning it when it is.
func IsSchemaError(err error) (*SchemaError, bool) {
	var se *SchemaError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// =============================================================================
// COLUMN CHECKS
// =============================================================================

// RequireColumns checks that every name in required appears in present.
//
// PARAMETERS:
//   - schema: Which input the header belongs to.
//   - present: The header of the input.
//   - required: The columns the pipeline needs, in reporting order.
//
// RETURNS:
//   - nil when all columns are present.
//   - A *SchemaError naming all missing columns otherwise. Duplicates in
//     required are reported once.
func RequireColumns(schema Schema, present, required []string) error {
	have := make(map[string]struct{}, len(present))
	for _, h := range present {
		have[h] = struct{}{}
	}

	var missing []string
	seen := make(map[string]struct{}, len(required))
	for _, col := range required {
		if _, dup := seen[col]; dup {
			continue
		}
		seen[col] = struct{}{}
		if _, ok := have[col]; !ok {
			missing = append(missing, col)
		}
	}

	if len(missing) > 0 {
		return &SchemaError{Schema: schema, Missing: missing}
	}
	return nil
}

// =============================================================================
// OFFSET CHECKS
// =============================================================================

// ErrNegativeOffset is returned when a caller passes an offset below zero.
var ErrNegativeOffset = errors.New("offset days must be a non-negative integer")

// ValidateOffset enforces the core's offset contract.
func ValidateOffset(days int) error {
	if days < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeOffset, days)
	}
	return nil
}

// ClampOffset turns user-supplied offset text into a usable offset.
//
// Empty input yields def. Text that does not parse as an integer yields 0, and
// negative values are clamped to 0. Callers facing end users (the upload form,
// the JSON API) use this before calling the converter.
func ClampOffset(raw string, def int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors renders a list of per-file failures for an error log.
func FormatErrors(failures map[string]error, order []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Conversion Errors (%d total)\n", len(order)))
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	for i, name := range order {
		err := failures[name]
		kind := "error"
		if schema, ok := SchemaOf(err); ok {
			kind = string(schema) + " schema"
		}
		sb.WriteString(fmt.Sprintf("%d. [%s] %s\n   %v\n\n", i+1, kind, name, err))
	}
	return sb.String()
}
