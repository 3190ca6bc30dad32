package renderer

import (
	"github.com/etnz/holdings"
	"github.com/etnz/holdings/scraper"
	"github.com/shopspring/decimal"
)

// Accounts is the accounts report of a site.
type Accounts struct {
	Site     string    `json:"site"`
	Accounts []Account `json:"accounts"`
}

// Account is one row of the accounts report.
type Account struct {
	ID        string         `json:"id"`
	Label     string         `json:"label"`
	Balance   holdings.Money `json:"balance"`
	Liquidity holdings.Money `json:"liquidity"`
	// Defaulted lists fields the dashboard did not provide.
	Defaulted []Defaulted `json:"defaulted,omitempty"`
}

// Defaulted is a field replaced by its default.
type Defaulted struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// NewAccounts creates the accounts report.
func NewAccounts(site string, accounts []holdings.Account) *Accounts {
	r := &Accounts{Site: site}
	for _, a := range accounts {
		ra := Account{ID: a.ID, Label: a.Label, Balance: a.Balance, Liquidity: a.Liquidity}
		for _, d := range a.Defaulted {
			ra.Defaulted = append(ra.Defaulted, Defaulted{Field: d.Field, Reason: reason(d.Reason)})
		}
		r.Accounts = append(r.Accounts, ra)
	}
	return r
}

// Investments is the holdings report of an account.
type Investments struct {
	Site    string `json:"site"`
	Account string `json:"account"`
	// Total is the sum of the valuations, liquidity included.
	Total    holdings.Money `json:"total"`
	Holdings []Holding      `json:"holdings"`
	Skipped  []Skipped      `json:"skipped,omitempty"`
}

// Holding is one row of the holdings report.
type Holding struct {
	Label     string            `json:"label"`
	Code      string            `json:"code"`
	Quantity  holdings.Quantity `json:"quantity"`
	UnitPrice holdings.Money    `json:"unitPrice"`
	Valuation holdings.Money    `json:"valuation"`
}

// Skipped is a listing row left out of the report.
type Skipped struct {
	Page   int    `json:"page"`
	Label  string `json:"label"`
	Reason string `json:"reason"`
}

// NewInvestments creates the holdings report of account a.
func NewInvestments(site string, a holdings.Account, hs []holdings.Holding, skipped []scraper.Skipped) *Investments {
	r := &Investments{Site: site, Account: a.Label, Total: holdings.M(decimal.Zero, a.Currency())}
	for _, h := range hs {
		r.Holdings = append(r.Holdings, Holding{
			Label:     h.Label,
			Code:      h.Code,
			Quantity:  h.Quantity,
			UnitPrice: h.UnitPrice,
			Valuation: h.Valuation,
		})
		r.Total = r.Total.Add(h.Valuation)
	}
	for _, s := range skipped {
		r.Skipped = append(r.Skipped, Skipped{Page: s.Page, Label: s.Label, Reason: reason(s.Reason)})
	}
	return r
}

func reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
