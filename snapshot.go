package holdings

import (
	"fmt"
	"iter"

	"github.com/rs/zerolog"
)

// Snapshot is the deduplicated set of holdings produced by one aggregation.
// Each label appears at most once. The cash holding, if any, comes last.
type Snapshot struct {
	index map[string]int // label -> position in items
	items []Holding
	cash  *Holding
}

func newSnapshot() *Snapshot {
	return &Snapshot{index: make(map[string]int)}
}

// add inserts h, or merges it into the holding with the same label.
func (s *Snapshot) add(h Holding) {
	if i, ok := s.index[h.Label]; ok {
		s.items[i].merge(h)
		return
	}
	s.index[h.Label] = len(s.items)
	s.items = append(s.items, h)
}

// dropEmpty removes holdings whose quantity is exactly zero: closed positions
// still rendered by the site.
func (s *Snapshot) dropEmpty() {
	kept := s.items[:0]
	for _, h := range s.items {
		if !h.Quantity.IsZero() {
			kept = append(kept, h)
		}
	}
	s.items = kept
	clear(s.index)
	for i, h := range s.items {
		s.index[h.Label] = i
	}
}

// Len returns the number of holdings, cash included.
func (s *Snapshot) Len() int {
	if s.cash != nil {
		return len(s.items) + 1
	}
	return len(s.items)
}

// Holding returns the holding with the given label. The cash holding is not
// looked up by label: it never shares one with a listed holding.
func (s *Snapshot) Holding(label string) (Holding, bool) {
	i, ok := s.index[label]
	if !ok {
		return Holding{}, false
	}
	return s.items[i], true
}

// Cash returns the synthetic liquidity holding, if any.
func (s *Snapshot) Cash() (Holding, bool) {
	if s.cash == nil {
		return Holding{}, false
	}
	return *s.cash, true
}

// All iterates over the holdings in first seen order, then cash.
func (s *Snapshot) All() iter.Seq[Holding] {
	return func(yield func(Holding) bool) {
		for _, h := range s.items {
			if !yield(h) {
				return
			}
		}
		if s.cash != nil {
			yield(*s.cash)
		}
	}
}

// Aggregator folds raw rows into a Snapshot.
type Aggregator struct {
	Locale   Locale      // numeric format of the rows, European by default
	Currency string      // currency of prices and valuations
	Cash     CashFactory // defaults to Cash
	Log      zerolog.Logger

	// Skip is called for each row whose numeric fields do not parse.
	Skip func(Row, error)
}

// Aggregate consumes rows and returns the snapshot. A row that does not parse
// is skipped; an error carried by the sequence itself aborts the aggregation.
//
// The result does not depend on row order: merging only sums quantities and
// valuations.
func (a Aggregator) Aggregate(rows iter.Seq2[Row, error], liquidity Money) (*Snapshot, error) {
	s := newSnapshot()
	for row, err := range rows {
		if err != nil {
			return nil, err
		}
		h, err := a.holding(row)
		if err != nil {
			a.Log.Warn().Int("page", row.Page).Str("label", row.Label).Err(err).Msg("row skipped")
			if a.Skip != nil {
				a.Skip(row, err)
			}
			continue
		}
		s.add(h)
	}
	s.dropEmpty()

	if liquidity.IsPositive() {
		cash := a.Cash
		if cash == nil {
			cash = Cash
		}
		h := cash(liquidity)
		s.cash = &h
	}
	return s, nil
}

func (a Aggregator) holding(row Row) (Holding, error) {
	if row.Label == "" {
		return Holding{}, fmt.Errorf("row has no label")
	}
	qty, err := ParseAmountIn(row.Quantity, a.Locale)
	if err != nil {
		return Holding{}, fmt.Errorf("quantity: %w", err)
	}
	price, err := ParseAmountIn(row.UnitPrice, a.Locale)
	if err != nil {
		return Holding{}, fmt.Errorf("unit price: %w", err)
	}
	value, err := ParseAmountIn(row.Valuation, a.Locale)
	if err != nil {
		return Holding{}, fmt.Errorf("valuation: %w", err)
	}
	if qty.IsNegative() || price.IsNegative() || value.IsNegative() {
		return Holding{}, fmt.Errorf("negative amount in %q", row.Label)
	}
	return Holding{
		Label:     row.Label,
		Code:      row.Code,
		Quantity:  Q(qty),
		UnitPrice: M(price, a.Currency),
		Valuation: M(value, a.Currency),
	}, nil
}
