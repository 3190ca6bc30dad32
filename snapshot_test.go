package holdings

import (
	"errors"
	"iter"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func EUR(v string) Money { return M(decimal.RequireFromString(v), "EUR") }

// rowsOf returns a sequence over rows, without errors.
func rowsOf(rows ...Row) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for _, r := range rows {
			if !yield(r, nil) {
				return
			}
		}
	}
}

// summary is a comparable view of a snapshot, ignoring order. Unit prices
// are first seen values and so are left out.
func summary(s *Snapshot) map[string][2]string {
	m := make(map[string][2]string)
	for h := range s.All() {
		m[h.Label] = [2]string{h.Quantity.String(), h.Valuation.Decimal().String()}
	}
	return m
}

func TestAggregate_Merge(t *testing.T) {
	a := Aggregator{Currency: "EUR"}
	s, err := a.Aggregate(rowsOf(
		Row{Label: "Gold 1oz", Quantity: "2", UnitPrice: "50", Valuation: "100"},
		Row{Label: "Silver 1kg", Quantity: "1", UnitPrice: "900", Valuation: "900"},
		Row{Label: "Gold 1oz", Quantity: "3", UnitPrice: "60", Valuation: "150"},
	), EUR("0"))
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", s.Len())
	}
	gold, ok := s.Holding("Gold 1oz")
	if !ok {
		t.Fatal("Holding(Gold 1oz) not found")
	}
	if want := Q(decimal.NewFromInt(5)); !gold.Quantity.Equal(want) {
		t.Errorf("quantity = %v, want %v", gold.Quantity, want)
	}
	if want := EUR("250"); !gold.Valuation.Equal(want) {
		t.Errorf("valuation = %v, want %v", gold.Valuation, want)
	}
	// unit price is kept as first seen
	if want := EUR("50"); !gold.UnitPrice.Equal(want) {
		t.Errorf("unit price = %v, want %v", gold.UnitPrice, want)
	}
}

func TestAggregate_FirstSeenCode(t *testing.T) {
	s, err := Aggregator{}.Aggregate(rowsOf(
		Row{Label: "Napoleon 20F", Code: "FR-1", Quantity: "1"},
		Row{Label: "Napoleon 20F", Code: "FR-2", Quantity: "1"},
	), Money{})
	if err != nil {
		t.Fatal(err)
	}
	h, _ := s.Holding("Napoleon 20F")
	if h.Code != "FR-1" {
		t.Errorf("Code = %q, want FR-1", h.Code)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	rows := []Row{
		{Label: "Gold 1oz", Quantity: "2", UnitPrice: "1 800,10", Valuation: "3 600,20"},
		{Label: "Vreneli", Quantity: "1", UnitPrice: "400", Valuation: "400,5"},
		{Label: "Gold 1oz", Quantity: "3", UnitPrice: "1 790", Valuation: "5 370"},
		{Label: "Closed", Quantity: "0", UnitPrice: "1", Valuation: "0"},
		{Label: "Vreneli", Quantity: "0,5", UnitPrice: "410", Valuation: "205,25"},
	}
	a := Aggregator{Currency: "EUR"}
	want, err := a.Aggregate(rowsOf(rows...), EUR("12"))
	if err != nil {
		t.Fatal(err)
	}

	// every rotation and the reverse order
	perms := [][]Row{slices.Clone(rows)}
	slices.Reverse(perms[0])
	for i := 1; i < len(rows); i++ {
		perms = append(perms, append(slices.Clone(rows[i:]), rows[:i]...))
	}
	for _, p := range perms {
		got, err := a.Aggregate(rowsOf(p...), EUR("12"))
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(summary(want), summary(got)); diff != "" {
			t.Errorf("Aggregate() mismatch for permutation (-want +got):\n%s", diff)
		}
	}
}

func TestAggregate_ZeroQuantityExcluded(t *testing.T) {
	s, err := Aggregator{}.Aggregate(rowsOf(
		Row{Label: "Closed", Quantity: "0", Valuation: "0"},
		Row{Label: "Empty", Quantity: ""},
		Row{Label: "Kept", Quantity: "1"},
	), Money{})
	if err != nil {
		t.Fatal(err)
	}
	for _, label := range []string{"Closed", "Empty"} {
		if _, ok := s.Holding(label); ok {
			t.Errorf("Holding(%q) found, want excluded", label)
		}
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestAggregate_Liquidity(t *testing.T) {
	rows := []Row{{Label: LiquidityLabel, Quantity: "1", UnitPrice: "5", Valuation: "5"}}

	t.Run("zero", func(t *testing.T) {
		s, err := Aggregator{Currency: "EUR"}.Aggregate(rowsOf(rows...), EUR("0"))
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := s.Cash(); ok {
			t.Error("Cash() found, want none")
		}
	})

	t.Run("positive", func(t *testing.T) {
		s, err := Aggregator{Currency: "EUR"}.Aggregate(rowsOf(rows...), EUR("42.10"))
		if err != nil {
			t.Fatal(err)
		}
		cash, ok := s.Cash()
		if !ok {
			t.Fatal("Cash() not found")
		}
		if want := EUR("42.10"); !cash.Valuation.Equal(want) {
			t.Errorf("cash valuation = %v, want %v", cash.Valuation, want)
		}
		// a listed holding sharing the cash label is not merged into it
		listed, ok := s.Holding(LiquidityLabel)
		if !ok || !listed.Valuation.Equal(EUR("5")) {
			t.Errorf("listed holding = %v, %v, want valuation 5", listed, ok)
		}
		var n int
		for h := range s.All() {
			if h.Code == LiquidityCode {
				n++
			}
		}
		if n != 1 || s.Len() != 2 {
			t.Errorf("cash holdings = %d, Len() = %d, want 1 and 2", n, s.Len())
		}
	})

	t.Run("custom factory", func(t *testing.T) {
		a := Aggregator{Cash: func(m Money) Holding { return Holding{Label: "Cash", Quantity: Q(m.Decimal()), Valuation: m} }}
		s, err := a.Aggregate(rowsOf(), EUR("3"))
		if err != nil {
			t.Fatal(err)
		}
		cash, _ := s.Cash()
		if cash.Label != "Cash" {
			t.Errorf("cash label = %q, want Cash", cash.Label)
		}
	})
}

func TestAggregate_SkipsMalformedRows(t *testing.T) {
	var skipped []string
	a := Aggregator{Skip: func(r Row, _ error) { skipped = append(skipped, r.Label) }}
	s, err := a.Aggregate(rowsOf(
		Row{Label: "Bad", Quantity: "one"},
		Row{Label: "Negative", Quantity: "-1"},
		Row{Label: "", Quantity: "1"},
		Row{Label: "Good", Quantity: "1"},
	), Money{})
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if diff := cmp.Diff([]string{"Bad", "Negative", ""}, skipped); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_SequenceError(t *testing.T) {
	boom := errors.New("boom")
	rows := func(yield func(Row, error) bool) {
		if !yield(Row{Label: "A", Quantity: "1"}, nil) {
			return
		}
		yield(Row{}, boom)
	}
	if _, err := (Aggregator{}).Aggregate(rows, Money{}); !errors.Is(err, boom) {
		t.Errorf("Aggregate() error = %v, want %v", err, boom)
	}
}
