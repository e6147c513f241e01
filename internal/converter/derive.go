// =============================================================================
// GPS to ERP Converter - Derivation Rules
// =============================================================================
//
// Row-level functions computing derived ERP fields from renamed GPS columns.
// Every function here is pure: same row in, same value out.
//
// =============================================================================

package converter

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// StoreName is the ERP store every converted order is booked to.
	StoreName = "PORT DROP OFF"

	// CurrencyCode is the currency of every converted order.
	CurrencyCode = "USD"

	// CurrencyRate is the exchange rate written for CurrencyCode.
	CurrencyRate = "1"

	// VendorJasan supplies the "daily" and "value" product lines.
	VendorJasan = "ZHEJIANG JASAN HOLDING GROUP CO., LTD"

	// VendorFuturestitch supplies everything else.
	VendorFuturestitch = "ZHEJIANG FUTURESTITCH SPORTS CO., LTD"

	// USMarket is the market whose dates get the offset.
	USMarket = "UNITED STATES"

	// memoReferenceLabel separates descriptive memo parts from reference numbers.
	memoReferenceLabel = "PO REFERENCE #"

	itemKeySeparator = "_"
)

var (
	vendorKeywords = regexp.MustCompile(`(?i)(daily|value)`)

	// seasonCode matches identifiers like "Q123", "S204-OC" or "q223 - 4".
	seasonCode = regexp.MustCompile(`(?i)^([QS])(\d)(\d{2})(?:\s*-\s*((?:[1-5])|OC))?`)
)

// =============================================================================
// KEYS AND CLASSIFIERS
// =============================================================================

// ItemKey joins the trimmed part number, color and size with "_".
// This is the ItemNumber of the ERP reference table. Parts are only trimmed,
// so "10.0" or "NONE" stay part of the key.
func ItemKey(row types.Row) string {
	return strings.Join([]string{
		strings.TrimSpace(row.Get(ColStylePart)),
		strings.TrimSpace(row.Get(ColColorWidth)),
		strings.TrimSpace(row.Get(ColSize)),
	}, itemKeySeparator)
}

// ChooseVendor classifies a style description into one of the two vendors.
func ChooseVendor(styleDescription string) string {
	if vendorKeywords.MatchString(styleDescription) {
		return VendorJasan
	}
	return VendorFuturestitch
}

// IsUSMarket reports whether a market value means the United States.
func IsUSMarket(market string) bool {
	return strings.EqualFold(strings.TrimSpace(market), USMarket)
}

// =============================================================================
// REFERENCE NUMBERS
// =============================================================================

// ResolveRefNumber returns the first non-empty of customer order number,
// PO reference number and PO number.
func ResolveRefNumber(row types.Row) string {
	for _, col := range []string{ColCustomerOrderNo, ColPOReferenceNo, FieldThirdPartyRefNo} {
		if v := SafeString(row.Get(col)); v != "" {
			return v
		}
	}
	return ""
}

// Region codes recognised by SelectRegionalRef.
const (
	RegionEMEA  = "EMEA"
	RegionNA    = "NA"
	RegionLATAM = "LATAM"
	RegionAPAC  = "APAC"
)

// SelectRegionalRef picks the sales order reference number by region.
//
//   - EMEA:      customer order number
//   - NA, LATAM: PO number
//   - APAC:      PO reference number
//   - other:     ResolveRefNumber
//
// When the field chosen for a region is empty, the fallback chain is used.
// Adding a region is a code change here.
func SelectRegionalRef(row types.Row) string {
	var col string
	switch strings.ToUpper(SafeString(row.Get(ColRegion))) {
	case RegionEMEA:
		col = ColCustomerOrderNo
	case RegionNA, RegionLATAM:
		col = FieldThirdPartyRefNo
	case RegionAPAC:
		col = ColPOReferenceNo
	default:
		return ResolveRefNumber(row)
	}
	if v := SafeString(row.Get(col)); v != "" {
		return v
	}
	return ResolveRefNumber(row)
}

// =============================================================================
// TEXT SYNTHESIS
// =============================================================================

// BuildTags turns a PO header identifier into the ERP season tag.
//
//	"Q123"     -> "S1 23"
//	"Q323"     -> "S2 23"
//	"S204-OC"  -> "S2 04, SPECIAL EVENTS"
//	"S204-3"   -> "S2 04, BUY3"
//	"garbage"  -> ""
func BuildTags(identifier string) string {
	m := seasonCode.FindStringSubmatch(strings.TrimSpace(identifier))
	if m == nil {
		return ""
	}
	kind, digit, year, suffix := strings.ToUpper(m[1]), m[2], m[3], strings.ToUpper(m[4])

	var season string
	switch {
	case kind == "Q" && (digit == "1" || digit == "2"):
		season = "S1"
	case kind == "Q":
		season = "S2"
	default:
		season = "S" + digit
	}
	tag := season + " " + year

	switch {
	case suffix == "OC":
		tag += ", SPECIAL EVENTS"
	case suffix != "":
		tag += ", BUY" + suffix
	}
	return tag
}

// BuildMemo joins the non-empty descriptive and reference fields of a row.
// RefNumber must already be derived.
func BuildMemo(row types.Row) string {
	parts := []string{
		SafeString(row.Get(ColBrand)),
		SafeString(row.Get(ColMarket)),
		SafeString(row.Get(ColPOHeaderIdentifier)),
		memoReferenceLabel,
		SafeString(row.Get(FieldThirdPartyRefNo)),
		SafeString(row.Get(FieldRefNumber)),
		SafeString(row.Get(ColCustomerOrderNo)),
	}

	kept := parts[:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ", ")
}

// =============================================================================
// DATES
// =============================================================================

// ShiftForMarket moves a date by offsetDays when the market is the US.
// A negative offsetDays moves it backwards. Other markets are returned unchanged.
func ShiftForMarket(date time.Time, market string, offsetDays int) time.Time {
	if !IsUSMarket(market) {
		return date
	}
	return date.AddDate(0, 0, offsetDays)
}

// AdjustDates aligns a PO row's delivery and ship dates and applies the US offset.
//
// The ship date is authoritative; when it is missing the confirmed delivery
// date is used. Both fields receive the same value, then US-market rows move
// offsetDays earlier. Both fields must already hold DateLayout text or "".
func AdjustDates(row types.Row, offsetDays int) error {
	source := row.Get(FieldExpectedShipDate)
	if source == "" {
		source = row.Get(FieldDateExpectedDelivery)
	}
	if source == "" {
		row[FieldExpectedShipDate] = ""
		row[FieldDateExpectedDelivery] = ""
		return nil
	}

	date, err := time.Parse(DateLayout, source)
	if err != nil {
		return fmt.Errorf("failed to parse normalized date %q: %w", source, err)
	}

	adjusted := FormatDate(ShiftForMarket(date, row.Get(ColMarket), -offsetDays))
	row[FieldExpectedShipDate] = adjusted
	row[FieldDateExpectedDelivery] = adjusted
	return nil
}

// CustomerName derives the SO customer from the market.
// US rows use usCustomer; other markets use the upper-cased market name.
func CustomerName(market, usCustomer string) string {
	if IsUSMarket(market) {
		return usCustomer
	}
	return strings.ToUpper(SafeString(market))
}
