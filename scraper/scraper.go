// Package scraper exposes the accounts and holdings of a dashboard to a
// calling application. It owns the browser session of one site and runs
// every operation sequentially on it.
package scraper

import (
	"context"
	"fmt"
	"iter"

	"github.com/etnz/holdings"
	"github.com/etnz/holdings/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Skipped is a line item left out of a snapshot, and why.
type Skipped struct {
	Page   int
	Label  string
	Reason error
}

// Scraper reads one site through one Driver.
type Scraper struct {
	d       holdings.Driver
	site    holdings.Site
	session *session.Machine

	maxPages    int
	limiter     *rate.Limiter
	cash        holdings.CashFactory
	log         zerolog.Logger
	sessionOpts []session.Option

	skipped []Skipped
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithMaxPages bounds the listing traversal.
func WithMaxPages(n int) Option {
	return func(s *Scraper) { s.maxPages = n }
}

// WithRateLimit paces listing page loads. Zero or less means unlimited.
func WithRateLimit(pagesPerSecond float64) Option {
	return func(s *Scraper) {
		if pagesPerSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(pagesPerSecond), 1)
		}
	}
}

// WithCash sets the factory of the synthetic liquidity holding.
func WithCash(f holdings.CashFactory) Option {
	return func(s *Scraper) { s.cash = f }
}

// WithLogger sets the logger, also handed down to the session.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Scraper) { s.log = l }
}

// WithSession passes options to the session state machine.
func WithSession(opts ...session.Option) Option {
	return func(s *Scraper) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// New returns a Scraper with an anonymous session.
func New(d holdings.Driver, site holdings.Site, creds holdings.Credentials, opts ...Option) (*Scraper, error) {
	if err := site.Validate(); err != nil {
		return nil, err
	}
	s := &Scraper{
		d:        d,
		site:     site,
		maxPages: holdings.MaxPages,
		cash:     holdings.Cash,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.With().Str("site", site.Name).Logger()
	sopts := append([]session.Option{session.WithLogger(s.log)}, s.sessionOpts...)
	s.session = session.New(d, site, creds, sopts...)
	return s, nil
}

// Login authenticates the session.
func (s *Scraper) Login(ctx context.Context) (session.State, error) {
	return s.session.Login(ctx)
}

// State returns the session state.
func (s *Scraper) State() session.State { return s.session.State() }

// Close logs out if needed. The Driver is left to its owner.
func (s *Scraper) Close(ctx context.Context) error {
	return s.session.Close(ctx)
}

// visit navigates to url and checks the browser actually landed there. A
// redirect elsewhere, typically to the login page, invalidates the session.
func (s *Scraper) visit(ctx context.Context, url string) error {
	if err := s.d.Navigate(ctx, url); err != nil {
		return err
	}
	loc, err := s.d.Location(ctx)
	if err != nil {
		return err
	}
	if !holdings.SameSurface(loc, url) {
		err := fmt.Errorf("%w: wanted %s, got %s", holdings.ErrUnexpectedLocation, url, loc)
		s.session.Invalidate(err)
		return err
	}
	return nil
}

func (s *Scraper) account(ctx context.Context) (holdings.Account, error) {
	if err := s.session.RequireAuthenticated(ctx); err != nil {
		return holdings.Account{}, err
	}
	if err := s.visit(ctx, s.site.DashboardURL); err != nil {
		return holdings.Account{}, fmt.Errorf("opening dashboard: %w", err)
	}
	fields := s.site.Dashboard(ctx, s.d)
	if fields.Currency == "" {
		fields.Currency = s.site.Currency
	}
	a := holdings.BuildAccount(fields, s.site.Locale)
	for _, d := range a.Defaulted {
		s.log.Warn().Str("field", d.Field).Err(d.Reason).Msg("dashboard field defaulted")
	}
	return a, nil
}

// Accounts lists the accounts of the session: a single one. Each range over
// the sequence reads the dashboard again.
func (s *Scraper) Accounts(ctx context.Context) iter.Seq2[holdings.Account, error] {
	return func(yield func(holdings.Account, error) bool) {
		yield(s.account(ctx))
	}
}

// Account returns the account with the given id. It fails with
// holdings.ErrUnknownAccount for any other id than the one of the dashboard.
func (s *Scraper) Account(ctx context.Context, id string) (holdings.Account, error) {
	a, err := s.account(ctx)
	if err != nil {
		return a, err
	}
	if a.ID != id {
		return holdings.Account{}, fmt.Errorf("%w: %q (only %q is available)", holdings.ErrUnknownAccount, id, a.ID)
	}
	return a, nil
}

// Snapshot walks the holdings listing and aggregates it. The account
// liquidity, if positive, becomes a cash holding.
func (s *Scraper) Snapshot(ctx context.Context, a holdings.Account) (*holdings.Snapshot, error) {
	if err := s.session.RequireAuthenticated(ctx); err != nil {
		return nil, err
	}
	s.skipped = nil
	log := s.log.With().Str("run", uuid.NewString()).Str("account", a.ID).Logger()

	fetch := func(ctx context.Context, page int) (holdings.Batch, error) {
		if err := s.visit(ctx, s.site.PageURL(page)); err != nil {
			return nil, err
		}
		return s.site.Rows(ctx, s.d)
	}
	next := func(ctx context.Context) (bool, error) {
		return s.site.HasNext(ctx, s.d)
	}

	currency := a.Currency()
	if currency == "" {
		currency = s.site.Currency
	}
	t := holdings.Traversal{MaxPages: s.maxPages, Limiter: s.limiter, Log: log, Skip: s.skip}
	agg := holdings.Aggregator{Locale: s.site.Locale, Currency: currency, Cash: s.cash, Log: log, Skip: s.skip}
	snap, err := agg.Aggregate(t.Rows(ctx, fetch, next), a.Liquidity)
	if err != nil {
		return nil, err
	}
	log.Info().Int("holdings", snap.Len()).Int("skipped", len(s.skipped)).Msg("snapshot done")
	return snap, nil
}

// Investments lists the holdings of an account. Each range over the
// sequence runs a fresh extraction.
func (s *Scraper) Investments(ctx context.Context, a holdings.Account) iter.Seq2[holdings.Holding, error] {
	return func(yield func(holdings.Holding, error) bool) {
		snap, err := s.Snapshot(ctx, a)
		if err != nil {
			yield(holdings.Holding{}, err)
			return
		}
		for h := range snap.All() {
			if !yield(h, nil) {
				return
			}
		}
	}
}

// Skipped returns the rows left out by the last extraction.
func (s *Scraper) Skipped() []Skipped { return s.skipped }

func (s *Scraper) skip(r holdings.Row, err error) {
	s.skipped = append(s.skipped, Skipped{Page: r.Page, Label: r.Label, Reason: err})
}
