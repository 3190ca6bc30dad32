package holdings

import (
	"context"
	"fmt"
)

// Site gathers the per dashboard strategies. The generic engine does every
// navigation itself; site functions only act on, or read, the current page.
type Site struct {
	Name     string
	Currency string // ISO 4217 of every amount shown
	Locale   Locale

	LoginURL     string
	LogoutURL    string
	DashboardURL string
	// PageURL returns the url of a holdings listing page, starting at 1.
	PageURL func(page int) string

	// Submit drives the login surface: dismiss interstitials, fill and submit
	// the credentials. The login surface is already loaded.
	Submit func(ctx context.Context, d Driver, c Credentials) error
	// Authenticated reports whether the session is established.
	Authenticated func(ctx context.Context, d Driver) (bool, error)
	// Rejected returns the error banner text shown after a refused login, "" if none.
	Rejected func(ctx context.Context, d Driver) (string, error)

	// Dashboard reads the summary fields from the dashboard.
	Dashboard func(ctx context.Context, d Driver) DashboardFields
	// Rows reads the line items of the current listing page.
	Rows func(ctx context.Context, d Driver) (Batch, error)
	// HasNext reports whether the listing continues on another page.
	HasNext func(ctx context.Context, d Driver) (bool, error)
}

// Validate checks that s is complete.
func (s Site) Validate() error {
	switch {
	case s.Name == "":
		return fmt.Errorf("site has no name")
	case !ValidCurrency(s.Currency):
		return fmt.Errorf("site %s: invalid currency %q", s.Name, s.Currency)
	case s.LoginURL == "" || s.DashboardURL == "" || s.PageURL == nil:
		return fmt.Errorf("site %s: missing urls", s.Name)
	case s.Submit == nil || s.Authenticated == nil:
		return fmt.Errorf("site %s: missing login strategy", s.Name)
	case s.Dashboard == nil || s.Rows == nil || s.HasNext == nil:
		return fmt.Errorf("site %s: missing extraction strategy", s.Name)
	}
	return nil
}

// SinglePage is a HasNext for listings that fit on one page.
func SinglePage(context.Context, Driver) (bool, error) { return false, nil }
