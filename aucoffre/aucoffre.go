// Package aucoffre reads the precious metal holdings of an aucoffre.com account.
//
// The coin listing shows one line per coin, so the same label comes back once
// per coin held, across several pages.
package aucoffre

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/etnz/holdings"
)

const base = "https://www.aucoffre.com"

var (
	loginURL     = base + "/connexion"
	logoutURL    = base + "/deconnexion"
	dashboardURL = base + "/transactions/tableau-de-bord"
)

func pageURL(page int) string {
	return fmt.Sprintf("%s/pieces/desc-piecelibre/pageNum-%d/displayMode-3/liste-par-utilisateur", base, page)
}

// Page elements.
const (
	xPseudo     = `//input[@name="usr_pseudo"]`
	xIdentifier = `//input[@name="usr_identifiant"]`
	xSecret     = `//input[@name="usr_cle"]`
	xCaptcha    = `//*[@name="g-recaptcha-response"]`
	xSubmit     = `//button[@type="submit" and contains(@class, "btn-primary")]`
	xErrors     = `//div[contains(@class, "errors")]`

	xBalance   = `//h4[contains(text(), "Valeur totale")]/following-sibling::dl[contains(@class, "dl-portefeuille")]/dd[2]`
	xLiquidity = `//span[contains(@class, "amount_available_input")]`

	xRows = `//table[contains(@class, "table-hover")]/tbody/tr`
	xNext = `//a[contains(text(), 'Suivant')]`
)

// columns of the coin listing: product type, unit price, valuation.
var columns = []string{"./td[2]", "./td[7]", "./td[8]"}

// formTimeout bounds the wait for the login form behind the consent overlay.
const formTimeout = 10 * time.Second

// consent is where the cookie overlay takes a click to go away.
var consent = struct{ x, y float64 }{700, 400}

// Site returns the aucoffre strategies.
func Site() holdings.Site {
	return holdings.Site{
		Name:          "aucoffre",
		Currency:      "EUR",
		Locale:        holdings.European,
		LoginURL:      loginURL,
		LogoutURL:     logoutURL,
		DashboardURL:  dashboardURL,
		PageURL:       pageURL,
		Submit:        submit,
		Authenticated: authenticated,
		Rejected:      rejected,
		Dashboard:     dashboard,
		Rows:          rows,
		HasNext:       hasNext,
	}
}

func submit(ctx context.Context, d holdings.Driver, c holdings.Credentials) error {
	if err := d.ClickAt(ctx, consent.x, consent.y); err != nil {
		return fmt.Errorf("dismissing consent: %w", err)
	}
	ok, err := d.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		return holdings.Exists(ctx, d, xPseudo)
	}, formTimeout)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("login form: %w", holdings.ErrElementNotFound)
	}
	for _, f := range []struct{ xpath, value string }{
		{xPseudo, c.Pseudo},
		{xIdentifier, c.Identifier},
		{xSecret, c.Secret},
	} {
		if err := d.Fill(ctx, f.xpath, f.value); err != nil {
			return err
		}
	}
	if c.Challenge != "" {
		if err := d.Fill(ctx, xCaptcha, c.Challenge); err != nil {
			return err
		}
	}
	return d.Click(ctx, xSubmit)
}

// authenticated holds once the site redirected to the dashboard.
func authenticated(ctx context.Context, d holdings.Driver) (bool, error) {
	loc, err := d.Location(ctx)
	if err != nil {
		return false, err
	}
	return holdings.SameSurface(loc, dashboardURL), nil
}

func rejected(ctx context.Context, d holdings.Driver) (string, error) {
	loc, err := d.Location(ctx)
	if err != nil || !holdings.SameSurface(loc, loginURL) {
		return "", err
	}
	f := holdings.ReadField(ctx, d, xErrors)
	if !f.Present() {
		return "", nil
	}
	return f.Text, nil
}

func dashboard(ctx context.Context, d holdings.Driver) holdings.DashboardFields {
	return holdings.DashboardFields{
		Label:     holdings.Field{Text: "My Aucoffre Account"},
		Balance:   holdings.ReadField(ctx, d, xBalance),
		Liquidity: holdings.ReadField(ctx, d, xLiquidity),
		Currency:  "EUR",
		// "Valeur totale" leaves out the waiting account.
		LiquidityOutsideBalance: true,
	}
}

func rows(ctx context.Context, d holdings.Driver) (holdings.Batch, error) {
	table, err := d.Table(ctx, xRows, columns)
	if err != nil {
		return nil, err
	}
	var b holdings.Batch
	// the first row repeats the column titles
	for i, r := range table {
		if i == 0 {
			continue
		}
		b = append(b, row(r))
	}
	return b, nil
}

func row(r holdings.TableRow) holdings.Row {
	if len(r) != len(columns) {
		return holdings.Row{Err: fmt.Errorf("row has %d cells, want %d", len(r), len(columns))}
	}
	label, price, value := r[0], r[1], r[2]
	if !label.Found || !price.Found || !value.Found {
		return holdings.Row{Label: label.Text, Err: fmt.Errorf("%w: missing column", holdings.ErrElementNotFound)}
	}
	return holdings.Row{
		Label:     strings.TrimSpace(label.Text),
		Quantity:  "1",
		UnitPrice: price.Text,
		Valuation: value.Text,
	}
}

func hasNext(ctx context.Context, d holdings.Driver) (bool, error) {
	return holdings.Exists(ctx, d, xNext)
}
