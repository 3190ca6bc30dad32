package holdings

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Defaults used when the dashboard does not expose a field.
const (
	DefaultAccountID    = "default_account"
	DefaultAccountLabel = "Holdings account"
	DefaultCurrency     = "EUR"
)

// Account is the top level summary read from a dashboard.
//
// Balance is the total reported by the site, it is not the sum of holdings and
// liquidity: sites may include unsettled amounts.
type Account struct {
	ID        string
	Label     string
	Balance   Money
	Liquidity Money // >= 0

	// Defaulted lists the fields that could not be read and were substituted.
	Defaulted []Defaulted
}

// Currency returns the ISO 4217 code of the account.
func (a Account) Currency() string { return a.Balance.Currency() }

func (a Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID        string `json:"id"`
		Label     string `json:"label"`
		Currency  string `json:"currency"`
		Balance   Money  `json:"balance"`
		Liquidity Money  `json:"liquidity"`
	}{a.ID, a.Label, a.Currency(), a.Balance, a.Liquidity})
}

// Defaulted records a field replaced by its default and why.
type Defaulted struct {
	Field  string
	Reason error
}

func (d Defaulted) String() string { return fmt.Sprintf("%s: %v", d.Field, d.Reason) }

// errAbsent is the reason for a field that was read but empty.
var errAbsent = errors.New("field is empty")

// DashboardFields are the raw summary fields of a dashboard.
type DashboardFields struct {
	ID        Field
	Label     Field
	Balance   Field
	Liquidity Field
	Currency  string

	// LiquidityOutsideBalance is set when the site total leaves out the cash
	// balance, which is then added to it.
	LiquidityOutsideBalance bool
}

// BuildAccount assembles the account summary. A field that is missing or
// does not parse is replaced by its default, never failing the whole build.
func BuildAccount(f DashboardFields, loc Locale) Account {
	var a Account
	text := func(name string, fd Field, def string) string {
		if fd.Present() {
			return fd.Text
		}
		a.Defaulted = append(a.Defaulted, Defaulted{Field: name, Reason: reason(fd)})
		return def
	}
	amount := func(name string, fd Field) decimal.Decimal {
		if !fd.Present() {
			a.Defaulted = append(a.Defaulted, Defaulted{Field: name, Reason: reason(fd)})
			return decimal.Zero
		}
		d, err := ParseAmountIn(fd.Text, loc)
		if err != nil {
			a.Defaulted = append(a.Defaulted, Defaulted{Field: name, Reason: err})
			return decimal.Zero
		}
		return d
	}

	a.ID = text("id", f.ID, DefaultAccountID)
	a.Label = text("label", f.Label, DefaultAccountLabel)

	currency := f.Currency
	if !ValidCurrency(currency) {
		a.Defaulted = append(a.Defaulted, Defaulted{Field: "currency", Reason: fmt.Errorf("invalid currency %q", currency)})
		currency = DefaultCurrency
	}

	balance := amount("balance", f.Balance)
	liquidity := amount("liquidity", f.Liquidity)
	if liquidity.IsNegative() {
		a.Defaulted = append(a.Defaulted, Defaulted{Field: "liquidity", Reason: fmt.Errorf("negative liquidity %s", liquidity)})
		liquidity = decimal.Zero
	}
	if f.LiquidityOutsideBalance {
		balance = balance.Add(liquidity)
	}
	a.Balance = M(balance, currency)
	a.Liquidity = M(liquidity, currency)
	return a
}

func reason(f Field) error {
	if f.Err != nil {
		return f.Err
	}
	return errAbsent
}
