// =============================================================================
// GPS to ERP Converter - Field Normalizers
// =============================================================================
//
// Pure functions converting one raw cell value into a canonical value.
// None of them fail: a value that cannot be interpreted degrades to its
// documented default (empty string, 0, 0.0).
//
// =============================================================================

package converter

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the textual date format of every ERP date field.
const DateLayout = "2006-01-02"

// spreadsheetEpoch is day zero of spreadsheet serial dates.
var spreadsheetEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerialDay is 9999-12-31 as a serial number.
const maxSerialDay = 2958465

// dateLayouts are tried in order before a value is read as a serial number.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04",
	"01/02/06",
	"1/2/06",
	"01-02-2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"02-Jan-06",
	"Jan 2, 2006",
	"January 2, 2006",
	"02 Jan 2006",
}

// NormalizeDate interprets text dates and spreadsheet serial day counts.
// It reports false when the value is empty or cannot be interpreted.
func NormalizeDate(raw string) (time.Time, bool) {
	s := SafeString(raw)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDay(t), true
		}
	}

	serial, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(serial) || serial <= 0 || serial > maxSerialDay {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	return spreadsheetEpoch.AddDate(0, 0, int(days)), true
}

// FormatDate renders a date in DateLayout.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// NormalizeDateString is NormalizeDate followed by FormatDate; "" when invalid.
func NormalizeDateString(raw string) string {
	t, ok := NormalizeDate(raw)
	if !ok {
		return ""
	}
	return FormatDate(t)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseQuantity reads a quantity as an integer. "12", "12.0" and " 1,200 "
// are accepted; anything else is 0. Fractions are truncated.
func ParseQuantity(raw string) int {
	d, ok := ParseAmount(raw)
	if !ok {
		return 0
	}
	return int(d.IntPart())
}

// amountNoise is removed from amounts before parsing.
var amountNoise = strings.NewReplacer("$", "", ",", "", " ", "", "USD", "")

// ParseAmount reads a monetary or numeric amount. It reports false when the
// value is empty or not a number.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := amountNoise.Replace(SafeString(raw))
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// FormatAmount renders an amount in its shortest form, always with a
// fractional part: 12.5 -> "12.5", 12 -> "12.0", 0 -> "0.0".
func FormatAmount(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// zeroAmount is the price of unmatched items and of every sales order line.
var zeroAmount = decimal.Zero

// NormalizeAmountString is ParseAmount followed by FormatAmount; "0.0" when invalid.
func NormalizeAmountString(raw string) string {
	d, _ := ParseAmount(raw)
	return FormatAmount(d)
}

// missingMarkers are text values that mean "no value".
var missingMarkers = map[string]struct{}{
	"nan":  {},
	"none": {},
	"null": {},
	"nat":  {},
}

// integerFloat matches digits followed by ".0", e.g. an order number that went
// through a floating point column.
var integerFloat = regexp.MustCompile(`^\d+\.0$`)

// SafeString trims a value, maps missing markers to "" and strips a trailing
// ".0" from integer-like numbers.
func SafeString(raw string) string {
	s := strings.TrimSpace(raw)
	if _, missing := missingMarkers[strings.ToLower(s)]; missing {
		return ""
	}
	if integerFloat.MatchString(s) {
		return s[:len(s)-2]
	}
	return s
}
