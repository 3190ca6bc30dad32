package aucoffre

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/holdingstest"
	"github.com/etnz/holdings/scraper"
	"github.com/etnz/holdings/session"
	"github.com/google/go-cmp/cmp"
)

func header() holdings.TableRow {
	return holdingstest.Row("Type", "Prix", "Valeur")
}

func newDriver() *holdingstest.Driver {
	d := holdingstest.NewDriver(map[string]*holdingstest.Page{
		loginURL: {Texts: map[string]string{xPseudo: "", xIdentifier: "", xSecret: "", xCaptcha: "", xSubmit: "Se connecter"}},
		dashboardURL: {Texts: map[string]string{
			xBalance:   "3 250,40 €",
			xLiquidity: "120,00 €",
		}},
		pageURL(1): {
			Texts: map[string]string{xNext: "Suivant »"},
			Tables: map[string][]holdings.TableRow{xRows: {
				header(),
				holdingstest.Row("Napoléon 20 Francs", "412,30 €", "415,00 €"),
				holdingstest.Row("Napoléon 20 Francs", "412,30 €", "415,00 €"),
			}},
		},
		pageURL(2): {
			Tables: map[string][]holdings.TableRow{xRows: {
				header(),
				holdingstest.Row("Krugerrand 1 once", "2 010,00 €", "2 020,40 €"),
				{{Text: "Souverain", Found: true}, {}, {Text: "380,00 €", Found: true}},
			}},
		},
	})
	d.OnClick[xSubmit] = func(d *holdingstest.Driver) { d.Goto(dashboardURL) }
	d.Clock = holdingstest.NewClock(time.Now())
	return d
}

func TestSubmit(t *testing.T) {
	d := newDriver()
	d.Goto(loginURL)
	c := holdings.Credentials{Pseudo: "goldbug", Identifier: "123456", Secret: "s3cret", Challenge: "token"}
	if err := submit(context.Background(), d, c); err != nil {
		t.Fatalf("submit() error = %v", err)
	}
	want := map[string]string{xPseudo: "goldbug", xIdentifier: "123456", xSecret: "s3cret", xCaptcha: "token"}
	if diff := cmp.Diff(want, d.Filled); diff != "" {
		t.Errorf("filled fields mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"700,400", xSubmit}, d.Clicks); diff != "" {
		t.Errorf("clicks mismatch (-want +got):\n%s", diff)
	}
	if ok, _ := authenticated(context.Background(), d); !ok {
		t.Error("authenticated() = false after submit")
	}
}

func TestSubmit_NoForm(t *testing.T) {
	d := newDriver()
	delete(d.Pages[loginURL].Texts, xPseudo)
	d.Goto(loginURL)
	start := d.Clock.Now()
	err := submit(context.Background(), d, holdings.Credentials{})
	if !errors.Is(err, holdings.ErrElementNotFound) {
		t.Errorf("submit() error = %v, want ErrElementNotFound", err)
	}
	if waited := d.Clock.Now().Sub(start); waited != formTimeout {
		t.Errorf("waited %v for the form, want %v", waited, formTimeout)
	}
}

func TestRejected(t *testing.T) {
	d := newDriver()
	d.Goto(loginURL)
	if banner, err := rejected(context.Background(), d); banner != "" || err != nil {
		t.Errorf("rejected() = %q, %v, want no banner", banner, err)
	}
	d.Pages[loginURL].Texts[xErrors] = " Identifiant ou clé incorrect "
	if banner, _ := rejected(context.Background(), d); banner != "Identifiant ou clé incorrect" {
		t.Errorf("rejected() = %q", banner)
	}
}

func TestRows(t *testing.T) {
	d := newDriver()
	d.Goto(pageURL(2))
	b, err := rows(context.Background(), d)
	if err != nil {
		t.Fatal(err)
	}
	if len(b) != 2 {
		t.Fatalf("rows() = %d rows, want 2 (header skipped)", len(b))
	}
	want := holdings.Row{Label: "Krugerrand 1 once", Quantity: "1", UnitPrice: "2 010,00 €", Valuation: "2 020,40 €"}
	if diff := cmp.Diff(want, b[0]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if !errors.Is(b[1].Err, holdings.ErrElementNotFound) {
		t.Errorf("incomplete row Err = %v, want ErrElementNotFound", b[1].Err)
	}
}

func TestSite(t *testing.T) {
	d := newDriver()
	s, err := scraper.New(d, Site(), holdings.Credentials{Pseudo: "p", Identifier: "i", Secret: "s"},
		scraper.WithSession(session.WithClock(holdingstest.NewClock(time.Now()))))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	a, err := s.Account(ctx, holdings.DefaultAccountID)
	if err != nil {
		t.Fatalf("Account() error = %v", err)
	}
	if a.Label != "My Aucoffre Account" || a.Balance.Decimal().String() != "3370.4" {
		t.Errorf("account = %q %v, want balance including the waiting account", a.Label, a.Balance)
	}

	got := make(map[string]string)
	for h, err := range s.Investments(ctx, a) {
		if err != nil {
			t.Fatalf("Investments() error = %v", err)
		}
		got[h.Label] = h.Quantity.String() + " " + h.Valuation.Decimal().String()
	}
	want := map[string]string{
		"Napoléon 20 Francs":    "2 830",
		"Krugerrand 1 once":     "1 2020.4",
		holdings.LiquidityLabel: "1 120",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Investments() mismatch (-want +got):\n%s", diff)
	}

	if err := s.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if last := d.Navigations[len(d.Navigations)-1]; last != logoutURL {
		t.Errorf("last navigation = %q, want %q", last, logoutURL)
	}
}
