package holdings

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Holding is one line item of an owned instrument.
//
// Valuation is read from the page, it is never recomputed from Quantity and
// UnitPrice: sites round it their own way.
type Holding struct {
	Label     string   // unique within a Snapshot
	Code      string   // instrument code, empty when the site does not show one
	Quantity  Quantity // >= 0
	UnitPrice Money    // >= 0
	Valuation Money    // >= 0
}

// merge accumulates quantity and valuation of another line with the same label.
// Unit price and code stay as first seen.
func (h *Holding) merge(o Holding) {
	h.Quantity = h.Quantity.Add(o.Quantity)
	h.Valuation = h.Valuation.Add(o.Valuation)
}

func (h Holding) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Label     string   `json:"label"`
		Code      string   `json:"code,omitempty"`
		Quantity  Quantity `json:"quantity"`
		UnitPrice Money    `json:"unitPrice"`
		Valuation Money    `json:"valuation"`
	}{h.Label, h.Code, h.Quantity, h.UnitPrice, h.Valuation})
}

// Label and code of the synthetic cash holding.
const (
	LiquidityLabel = "Liquidités"
	LiquidityCode  = "XX-liquidity"
)

// CashFactory builds the synthetic holding standing for uninvested cash.
type CashFactory func(amount Money) Holding

// Cash is the default CashFactory.
func Cash(amount Money) Holding {
	return Holding{
		Label:     LiquidityLabel,
		Code:      LiquidityCode,
		Quantity:  Q(decimal.NewFromInt(1)),
		UnitPrice: amount,
		Valuation: amount,
	}
}

// Row is one raw line item as read from a listing page. Numeric fields are
// kept as displayed; they are parsed during aggregation.
type Row struct {
	Page      int
	Label     string
	Code      string
	Quantity  string
	UnitPrice string
	Valuation string

	// Err is set when the row could not be read (missing cell, malformed line).
	// Such rows are skipped, they never abort a traversal.
	Err error
}

// Batch is the set of rows read from one page.
type Batch []Row
