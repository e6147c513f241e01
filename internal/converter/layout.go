// =============================================================================
// GPS to ERP Converter - Column Layouts
// =============================================================================
//
// Column names of the GPS report, field names of the ERP import layouts, and
// the rename / projection operations between them.
//
// The "**" prefix marks fields the ERP import requires.
//
// =============================================================================

package converter

import (
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
)

// =============================================================================
// GPS REPORT COLUMNS
// =============================================================================

// GPS report columns read by derivations under their original names.
const (
	ColStylePart          = "Style/Part No."
	ColColorWidth         = "Color/Width"
	ColSize               = "Size"
	ColStyleDescription   = "Style Description"
	ColBrand              = "Brand"
	ColMarket             = "Market"
	ColPOHeaderIdentifier = "PO Header Identifier"
	ColPOReferenceNo      = "PO Reference No."
	ColCustomerOrderNo    = "Customer Order No."
	ColRegion             = "Region"
)

// derivationInputs must be present in addition to the column map sources.
// Style Description, Brand, Market and Region are optional; a report without
// Market has no US rows.
var derivationInputs = []string{
	ColStylePart,
	ColColorWidth,
	ColSize,
	ColPOHeaderIdentifier,
}

// =============================================================================
// ERP FIELDS
// =============================================================================

// Purchase order fields.
const (
	FieldThirdPartyRefNo      = "**ThirdPartyRefNo"
	FieldStoreName            = "**StoreName"
	FieldCurrencyCode         = "**CurrencyCode"
	FieldVendorName           = "**VendorName"
	FieldDateOrder            = "**DateOrder"
	FieldVendorReqDate        = "VendorReqDate"
	FieldDateExpectedDelivery = "**DateExpectedDelivery"
	FieldExpectedShipDate     = "ExpectedShipDate"
	FieldCurrencyRate         = "**CurrencyRate"
	FieldMemo                 = "Memo"
	FieldRefNumber            = "RefNumber"
	FieldPoItemNumber         = "**PoItemNumber"
	FieldUnitPrice            = "**UnitPrice"
	FieldQtyOrder             = "**QtyOrder"
	FieldDropOffAddress       = "DropOffAddress"
	FieldTags                 = "Tags"
)

// Sales order fields not shared with the purchase order layout.
const (
	FieldCustomerName      = "**CustomerName"
	FieldDateToBeShipped   = "**DateToBeShipped"
	FieldDateToBeCancelled = "DateToBeCancelled"
	FieldCustomerPO        = "CustomerPO"
	FieldSalesRepID        = "SalesRepId"
	FieldItemNumber        = "**ItemNumber"
	FieldItemTitle         = "ItemTitle"
	FieldQty               = "**Qty"
	FieldShipToCountry     = "ShipToCountry"
)

// rawShipDate holds the untouched ship date cell for the sales order builder.
const rawShipDate = "_raw.ExpectedShipDate"

// dateFields are normalized to DateLayout after renaming.
var dateFields = []string{
	FieldDateOrder,
	FieldVendorReqDate,
	FieldDateExpectedDelivery,
	FieldExpectedShipDate,
}

// textFields are passed through SafeString after renaming.
var textFields = []string{
	FieldThirdPartyRefNo,
	FieldVendorName,
	FieldMemo,
	ColPOReferenceNo,
	ColCustomerOrderNo,
}

// PurchaseOrderFields is the ordered purchase order import layout.
var PurchaseOrderFields = []string{
	FieldThirdPartyRefNo,
	FieldStoreName,
	FieldCurrencyCode,
	FieldVendorName,
	FieldDateOrder,
	FieldVendorReqDate,
	FieldDateExpectedDelivery,
	FieldExpectedShipDate,
	FieldCurrencyRate,
	FieldMemo,
	FieldRefNumber,
	FieldPoItemNumber,
	FieldUnitPrice,
	FieldQtyOrder,
	FieldDropOffAddress,
	FieldTags,
}

// SalesOrderFields is the ordered sales order import layout. Fields the
// converter does not derive are exported empty.
//
// Provisional: the field list is pending confirmation against the ERP sales
// order import template.
var SalesOrderFields = []string{
	FieldThirdPartyRefNo,
	FieldStoreName,
	FieldCustomerName,
	FieldCurrencyCode,
	FieldDateOrder,
	FieldDateToBeShipped,
	FieldDateToBeCancelled,
	FieldCurrencyRate,
	FieldCustomerPO,
	FieldMemo,
	FieldRefNumber,
	FieldSalesRepID,
	FieldTags,
	FieldItemNumber,
	FieldItemTitle,
	FieldUnitPrice,
	FieldQty,
	"ItemMemo",
	"ShipToName",
	"ShipToAddr1",
	"ShipToCity",
	FieldShipToCountry,
	"PaymentTermsName",
	"ShipViaName",
	"DiscountAmount",
	FieldDropOffAddress,
}

// FieldsFor returns the output layout of a document type.
func FieldsFor(doc types.DocumentType) []string {
	if doc == types.SalesOrder {
		return SalesOrderFields
	}
	return PurchaseOrderFields
}

// =============================================================================
// RENAME AND PROJECTION
// =============================================================================

// RequiredSourceColumns lists every GPS report column a conversion needs:
// the column map sources followed by the derivation inputs.
func RequiredSourceColumns(columnMap []config.ColumnMapping) []string {
	required := make([]string, 0, len(columnMap)+len(derivationInputs))
	for _, m := range columnMap {
		required = append(required, m.Source)
	}
	return append(required, derivationInputs...)
}

// ValidateSource checks the GPS report header before any derivation runs.
func ValidateSource(table *types.Table, columnMap []config.ColumnMapping) error {
	return validation.RequireColumns(validation.SourceSchema, table.Headers, RequiredSourceColumns(columnMap))
}

// Rename moves every mapped source column to its target name.
// Pass-through mappings (source == target) leave the row unchanged.
func Rename(table *types.Table, columnMap []config.ColumnMapping) {
	for _, row := range table.Rows {
		for _, m := range columnMap {
			if m.Source == m.Target {
				continue
			}
			row[m.Target] = row[m.Source]
			delete(row, m.Source)
		}
	}
}

// EnsureColumns sets every field of fields that row lacks to "".
func EnsureColumns(row types.Row, fields []string) {
	for _, f := range fields {
		if _, ok := row[f]; !ok {
			row[f] = ""
		}
	}
}

// Project selects exactly fields, in order, from every row.
// Absent fields yield "".
func Project(table *types.Table, fields []string) *types.Table {
	out := &types.Table{
		Headers: append([]string(nil), fields...),
		Rows:    make([]types.Row, len(table.Rows)),
	}
	for i, row := range table.Rows {
		projected := make(types.Row, len(fields))
		for _, f := range fields {
			projected[f] = row[f]
		}
		out.Rows[i] = projected
	}
	return out
}
