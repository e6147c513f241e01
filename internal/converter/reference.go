package converter

import (
	"strings"

	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/csvparser"
	"github.com/ginjaninja78/GPS-to-ERP-conversion/internal/validation"
	"github.com/shopspring/decimal"
)

// Reference table columns.
const (
	RefColItemNumber = "ItemNumber"
	RefColTitle      = "Title"
	RefColUnitCost   = "StandardUnitCost"
)

// ReferenceColumns are the columns the ERP reference table must provide.
var ReferenceColumns = []string{RefColItemNumber, RefColTitle, RefColUnitCost}

// ReferenceIndex maps ERP item numbers to unit cost and title.
// It is read-only once built and may be shared between conversions.
type ReferenceIndex struct {
	costs  map[string]decimal.Decimal
	titles map[string]string
}

// NewReferenceIndex builds the item lookup from a parsed reference table.
//
// Both maps are complete before the first lookup. When an item number occurs
// more than once the last row wins. A cost that does not parse is stored as 0.
func NewReferenceIndex(table *csvparser.CSVData) (*ReferenceIndex, error) {
	if err := validation.RequireColumns(validation.ReferenceSchema, table.Headers, ReferenceColumns); err != nil {
		return nil, err
	}

	idx := &ReferenceIndex{
		costs:  make(map[string]decimal.Decimal, len(table.Rows)),
		titles: make(map[string]string, len(table.Rows)),
	}
	items := csvparser.GetColumnByHeader(table, RefColItemNumber)
	costs := csvparser.GetColumnByHeader(table, RefColUnitCost)
	titles := csvparser.GetColumnByHeader(table, RefColTitle)
	for i, item := range items {
		key := strings.TrimSpace(item)
		if key == "" {
			continue
		}
		cost, _ := ParseAmount(costs[i])
		idx.costs[key] = cost
		idx.titles[key] = SafeString(titles[i])
	}
	return idx, nil
}

// Lookup returns the unit cost and title of an item key.
// Unknown keys return a zero cost, an empty title and false.
func (idx *ReferenceIndex) Lookup(key string) (decimal.Decimal, string, bool) {
	cost, ok := idx.costs[key]
	if !ok {
		return decimal.Zero, "", false
	}
	return cost, idx.titles[key], true
}

// Len returns the number of distinct item numbers.
func (idx *ReferenceIndex) Len() int {
	return len(idx.costs)
}
