// Package bullionstar reads the bullion portfolio of a bullionstar.com account.
//
// The whole portfolio is listed on the dashboard, two table rows per product:
// a title row with the product name, then a row with its figures.
package bullionstar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/etnz/holdings"
)

const base = "https://www.bullionstar.com"

var (
	homeURL      = base + "/"
	logoutURL    = base + "/logout"
	dashboardURL = base + "/myaccount/dashboard"
)

// Page elements.
const (
	xLoginButton = `//*[@id="btn-login"]`
	xEmail       = `//input[@data-param="email"]`
	xPassword    = `//input[@data-param="hashedPassword"]`
	xPopupLogin  = `//*[@id="btn-popup-login"]`
	xLoginError  = `//div[contains(@class, "popup-login")]//*[contains(@class, "error") and normalize-space()]`

	xAccountNumber = `//td[contains(text(), "BullionStar Account Number")]/span[@class="account-number"]`
	xAccountName   = `//td[@class="account-name -bold"]`
	xTotalAssets   = `//td[@class="text-right total-assets-amount -bold"]/span[contains(@class, "valuation") and not(contains(@class, "hide"))]`
	xCashBalance   = `//div[@class="cash-balance"]/header/p[@class="pull-right"]/span[@class="-bold total"]`

	xRows = `//div[@class="bullion-portfolio-wrap"]//table[@class="bullion-portfolio"]/tbody/tr`
)

// columns read on every row: the whole row text for title rows, then
// quantity, buy price and market value for figure rows.
var columns = []string{".", "./td[1]", "./td[2]", "./td[5]"}

// Waits for content the site renders after the page load.
const (
	popupTimeout = 10 * time.Second
	tableTimeout = 10 * time.Second
)

// storage dumps the local storage, where the site keeps its login flag.
const storage = `JSON.stringify(Object.assign({}, window.localStorage))`

// Site returns the bullionstar strategies.
func Site() holdings.Site {
	return holdings.Site{
		Name:          "bullionstar",
		Currency:      "EUR",
		Locale:        holdings.English,
		LoginURL:      homeURL,
		LogoutURL:     logoutURL,
		DashboardURL:  dashboardURL,
		PageURL:       func(int) string { return dashboardURL },
		Submit:        submit,
		Authenticated: authenticated,
		Rejected:      rejected,
		Dashboard:     dashboard,
		Rows:          rows,
		HasNext:       holdings.SinglePage,
	}
}

func submit(ctx context.Context, d holdings.Driver, c holdings.Credentials) error {
	if err := d.Click(ctx, xLoginButton); err != nil {
		return fmt.Errorf("opening login popup: %w", err)
	}
	ok, err := d.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		email, err := holdings.Exists(ctx, d, xEmail)
		if err != nil || !email {
			return false, err
		}
		return holdings.Exists(ctx, d, xPassword)
	}, popupTimeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("login popup: %w", holdings.ErrElementNotFound)
	}
	if err := d.Fill(ctx, xEmail, c.Identifier); err != nil {
		return err
	}
	if err := d.Fill(ctx, xPassword, c.Secret); err != nil {
		return err
	}
	return d.Click(ctx, xPopupLogin)
}

// authenticated reads the "isLogin" flag the site sets in local storage.
func authenticated(ctx context.Context, d holdings.Driver) (bool, error) {
	var dump string
	if err := d.Eval(ctx, storage, &dump); err != nil {
		return false, err
	}
	return isLogin(dump)
}

func isLogin(dump string) (bool, error) {
	var v any
	if err := json.Unmarshal([]byte(dump), &v); err != nil {
		return false, fmt.Errorf("decoding local storage: %w", err)
	}
	flag, err := jsonpath.Get("$.isLogin", v)
	if err != nil {
		// no such key yet
		return false, nil
	}
	return flag == "true", nil
}

func rejected(ctx context.Context, d holdings.Driver) (string, error) {
	text, err := d.Text(ctx, xLoginError)
	if errors.Is(err, holdings.ErrElementNotFound) {
		return "", nil
	}
	return text, err
}

func dashboard(ctx context.Context, d holdings.Driver) holdings.DashboardFields {
	return holdings.DashboardFields{
		ID:        holdings.ReadField(ctx, d, xAccountNumber),
		Label:     holdings.ReadField(ctx, d, xAccountName),
		Balance:   holdings.ReadField(ctx, d, xTotalAssets),
		Liquidity: holdings.ReadField(ctx, d, xCashBalance),
		Currency:  "EUR",
	}
}

func rows(ctx context.Context, d holdings.Driver) (holdings.Batch, error) {
	// the table is rendered after the dashboard summary
	found, err := d.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		t, err := d.Table(ctx, xRows, columns[:1])
		return len(t) > 0, err
	}, tableTimeout)
	if err != nil || !found {
		// an empty portfolio has no table
		return nil, err
	}
	table, err := d.Table(ctx, xRows, columns)
	if err != nil {
		return nil, err
	}
	return pairs(table), nil
}

// pairs folds (title, figures) row pairs into line items. A pair whose figures
// cannot be read yields a failed row. A row without title is skipped alone.
func pairs(table []holdings.TableRow) holdings.Batch {
	var b holdings.Batch
	for i := 0; i < len(table); {
		title := table[i]
		if len(title) == 0 || !title[0].Found || title[0].Text == "" {
			b = append(b, holdings.Row{Err: fmt.Errorf("row %d: %w: product title", i, holdings.ErrElementNotFound)})
			i++
			continue
		}
		label := title[0].Text
		if i+1 >= len(table) {
			b = append(b, holdings.Row{Label: label, Err: fmt.Errorf("%w: figures of %q", holdings.ErrElementNotFound, label)})
			break
		}
		figures := table[i+1]
		if len(figures) != len(columns) || !figures[1].Found || !figures[2].Found || !figures[3].Found {
			b = append(b, holdings.Row{Label: label, Err: fmt.Errorf("%w: figures of %q", holdings.ErrElementNotFound, label)})
			i += 2
			continue
		}
		b = append(b, holdings.Row{
			Label:     label,
			Quantity:  figures[1].Text,
			UnitPrice: figures[2].Text,
			Valuation: figures[3].Text,
		})
		i += 2
	}
	return b
}
