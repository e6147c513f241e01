// =============================================================================
// GPS to ERP Converter - Converter Module
// =============================================================================
//
// This module contains the document builders. Each builder takes the GPS
// report bytes and a parsed ERP reference table and produces the CSV bytes of
// one ERP import document.
//
// CONVERSION PIPELINE:
//   1. Check the offset contract
//   2. Read the GPS report (skip metadata rows)
//   3. Validate the GPS report header and the reference table header
//   4. Rename GPS columns to ERP field names
//   5. Normalize dates, quantities, prices and text
//   6. Derive item key, vendor, reference number and dates
//   7. Join unit cost and title from the reference table
//   8. Build memo and tags
//   9. Apply document-specific fields
//  10. Project onto the document layout and serialize
//
// CONCURRENCY:
//   A Converter holds no per-conversion state and can be shared between
//   goroutines. Every call builds its own working table.
//
// =============================================================================

package converter

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/config"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/csvparser"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/csvwriter"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/types"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/xlsxparser"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one conversion.
type Result struct {
	// RunID identifies the conversion in logs and download names.
	RunID string

	// Document is the layout that was produced.
	Document types.DocumentType

	// CSV is the converted document.
	CSV []byte

	// Rows is the number of order lines written.
	Rows int

	// Unmatched counts rows whose item key is not in the reference table.
	// Their unit price is 0.
	Unmatched int

	// Duration is the time taken by the conversion.
	Duration time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter builds ERP import documents from GPS reports.
type Converter struct {
	cfg    config.Conversion
	logger *zap.Logger
	now    func() time.Time
}

// Option configures a Converter.
type Option func(*Converter)

// WithClock replaces the clock used for the sales order date.
func WithClock(now func() time.Time) Option {
	return func(c *Converter) {
		c.now = now
	}
}

// New creates a Converter.
//
// PARAMETERS:
//   - cfg: The conversion rules. Unset fields take their defaults.
//   - logger: Structured logger. nil disables logging.
//   - opts: Optional settings such as WithClock.
func New(cfg config.Conversion, logger *zap.Logger, opts ...Option) *Converter {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.ApplyDefaults()
	c := &Converter{
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// =============================================================================
// ENTRY POINTS
// =============================================================================

// Convert dispatches to PurchaseOrder or SalesOrder.
func (c *Converter) Convert(doc types.DocumentType, report []byte, ref *csvparser.CSVData, offsetDays int) (*Result, error) {
	switch doc {
	case types.PurchaseOrder:
		return c.PurchaseOrder(report, ref, offsetDays)
	case types.SalesOrder:
		return c.SalesOrder(report, ref, offsetDays)
	default:
		return nil, fmt.Errorf("unknown document type %q", doc)
	}
}

// PurchaseOrder converts a GPS report into the purchase order layout.
//
// PARAMETERS:
//   - report: The GPS report workbook bytes.
//   - ref: The parsed ERP reference table.
//   - offsetDays: Days US-market delivery and ship dates move earlier. Must
//     not be negative.
//
// RETURNS:
//   - The converted document, or an error. A missing column yields a
//     *validation.SchemaError and an unreadable workbook a
//     *validation.InputError for the source schema; no partial output is
//     returned.
func (c *Converter) PurchaseOrder(report []byte, ref *csvparser.CSVData, offsetDays int) (*Result, error) {
	return c.build(types.PurchaseOrder, report, ref, offsetDays)
}

// SalesOrder converts a GPS report into the sales order layout.
//
// The ship date is taken from the untouched GPS ship date and, for US-market
// rows, moved by offsetDays in the configured direction (forward by default).
func (c *Converter) SalesOrder(report []byte, ref *csvparser.CSVData, offsetDays int) (*Result, error) {
	return c.build(types.SalesOrder, report, ref, offsetDays)
}

// =============================================================================
// PIPELINE
// =============================================================================

func (c *Converter) build(doc types.DocumentType, report []byte, ref *csvparser.CSVData, offsetDays int) (*Result, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := c.logger.With(zap.String("run_id", runID), zap.String("document", doc.String()))

	// =========================================================================
	// STEP 1: CONTRACT AND INPUTS
	// =========================================================================

	if err := validation.ValidateOffset(offsetDays); err != nil {
		return nil, err
	}
	if ref == nil {
		return nil, fmt.Errorf("reference table is required")
	}

	table, err := xlsxparser.ReadReportBytes(report, xlsxparser.ReportOptions{SkipRows: c.cfg.SkipRows})
	if err != nil {
		return nil, validation.NewInputError(validation.SourceSchema, err)
	}
	log.Debug("Read GPS report", zap.Int("rows", table.Len()), zap.Int("columns", len(table.Headers)))

	// =========================================================================
	// STEP 2: SCHEMA CHECKS
	// =========================================================================

	if err := ValidateSource(table, c.cfg.ColumnMap); err != nil {
		return nil, err
	}
	index, err := NewReferenceIndex(ref)
	if err != nil {
		return nil, err
	}
	log.Debug("Built reference index", zap.Int("items", index.Len()))

	// =========================================================================
	// STEP 3: RENAME AND DERIVE
	// =========================================================================

	Rename(table, c.cfg.ColumnMap)

	unmatched := 0
	var chain *Transformer
	if doc == types.SalesOrder {
		chain = c.salesOrderChain(index, offsetDays, &unmatched)
	} else {
		chain = c.purchaseOrderChain(index, offsetDays, &unmatched)
	}
	if err := chain.Transform(table); err != nil {
		return nil, fmt.Errorf("failed to derive %s fields: %w", doc, err)
	}

	// =========================================================================
	// STEP 4: PROJECT AND SERIALIZE
	// =========================================================================

	fields := FieldsFor(doc)
	out, err := csvwriter.Generate(Project(table, fields), fields)
	if err != nil {
		return nil, fmt.Errorf("failed to write %s CSV: %w", doc, err)
	}

	result := &Result{
		RunID:     runID,
		Document:  doc,
		CSV:       out,
		Rows:      table.Len(),
		Unmatched: unmatched,
		Duration:  time.Since(start),
	}

	if unmatched > 0 {
		log.Warn("Items missing from reference table were priced at 0", zap.Int("unmatched", unmatched))
	}
	log.Info("Conversion complete",
		zap.Int("rows", result.Rows),
		zap.Int("unmatched", result.Unmatched),
		zap.Duration("duration", result.Duration),
	)
	return result, nil
}

// normalizeStages bring renamed GPS values into canonical form.
func normalizeStages() []Stage {
	stages := make([]Stage, 0, len(dateFields)+len(textFields)+2)
	for _, f := range dateFields {
		field := f
		stages = append(stages, Derive(field, func(row types.Row) string {
			return NormalizeDateString(row[field])
		}))
	}
	for _, f := range textFields {
		field := f
		stages = append(stages, Derive(field, func(row types.Row) string {
			return SafeString(row[field])
		}))
	}
	stages = append(stages,
		Derive(FieldQtyOrder, func(row types.Row) string {
			return strconv.Itoa(ParseQuantity(row[FieldQtyOrder]))
		}),
		Derive(FieldUnitPrice, func(row types.Row) string {
			return NormalizeAmountString(row[FieldUnitPrice])
		}),
	)
	return stages
}

// commonStages derive the fields both layouts share, up to the reference join.
func commonStages(index *ReferenceIndex, unmatched *int) []Stage {
	return []Stage{
		Derive(FieldPoItemNumber, ItemKey),
		Derive(FieldVendorName, func(row types.Row) string {
			return ChooseVendor(row[ColStyleDescription])
		}),
		Derive(FieldRefNumber, ResolveRefNumber),
		Step("join reference table", func(row types.Row) error {
			cost, title, ok := index.Lookup(row[FieldPoItemNumber])
			if !ok {
				*unmatched++
			}
			row[FieldUnitPrice] = FormatAmount(cost)
			row[FieldItemTitle] = title
			return nil
		}),
	}
}

// textStages build memo and tags. RefNumber must hold the fallback chain value.
func textStages() []Stage {
	return []Stage{
		Derive(FieldMemo, BuildMemo),
		Derive(FieldTags, func(row types.Row) string {
			return BuildTags(row[ColPOHeaderIdentifier])
		}),
	}
}

func (c *Converter) purchaseOrderChain(index *ReferenceIndex, offsetDays int, unmatched *int) *Transformer {
	return NewTransformer(normalizeStages()...).
		Add(commonStages(index, unmatched)...).
		Add(Step("adjust delivery dates", func(row types.Row) error {
			return AdjustDates(row, offsetDays)
		})).
		Add(textStages()...).
		Add(
			Constant(FieldStoreName, StoreName),
			Constant(FieldCurrencyCode, CurrencyCode),
			Constant(FieldCurrencyRate, CurrencyRate),
			Constant(FieldDropOffAddress, ""),
		)
}

func (c *Converter) salesOrderChain(index *ReferenceIndex, offsetDays int, unmatched *int) *Transformer {
	so := c.cfg.SalesOrder
	shift := offsetDays
	if c.cfg.SubtractSalesOrderOffset() {
		shift = -offsetDays
	}
	orderDate := FormatDate(c.now())

	return NewTransformer(Copy(rawShipDate, FieldExpectedShipDate)).
		Add(normalizeStages()...).
		Add(commonStages(index, unmatched)...).
		Add(Derive(FieldDateToBeShipped, func(row types.Row) string {
			date, ok := NormalizeDate(row[rawShipDate])
			if !ok {
				return ""
			}
			return FormatDate(ShiftForMarket(date, row[ColMarket], shift))
		})).
		Add(textStages()...).
		Add(Step("ensure sales order columns", func(row types.Row) error {
			EnsureColumns(row, SalesOrderFields)
			return nil
		})).
		Add(
			Constant(FieldStoreName, StoreName),
			Constant(FieldCurrencyCode, CurrencyCode),
			Constant(FieldCurrencyRate, CurrencyRate),
			Constant(FieldUnitPrice, FormatAmount(zeroAmount)),
			Copy(FieldQty, FieldQtyOrder),
			Copy(FieldItemNumber, FieldPoItemNumber),
			Derive(FieldCustomerName, func(row types.Row) string {
				return CustomerName(row[ColMarket], so.USCustomerName)
			}),
			Constant(FieldDateOrder, orderDate),
			Derive(FieldRefNumber, SelectRegionalRef),
			Constant(FieldSalesRepID, so.SalesRepID),
			Copy(FieldCustomerPO, ColCustomerOrderNo),
			Derive(FieldShipToCountry, func(row types.Row) string {
				return SafeString(row[ColMarket])
			}),
		)
}
