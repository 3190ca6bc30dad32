// Package session drives the login lifecycle of one browser session.
//
//	Anonymous -> Authenticating -> Authenticated | Failed
//	Authenticated -> Anonymous (logout, or a detected redirect)
//
// Every data fetching operation calls RequireAuthenticated first. It logs in
// if needed, at most once per session without an explicit Login call, and
// once more after each invalidation.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/etnz/holdings"
	"github.com/rs/zerolog"
)

// State of a session.
type State int

const (
	Anonymous State = iota
	Authenticating
	Authenticated
	Failed
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Default bounds of the authentication detection.
const (
	DefaultPollInterval = time.Second
	DefaultTimeout      = 10 * time.Second
)

// Machine is the session state machine. It is the only writer of the
// session state. It is not safe for concurrent use.
type Machine struct {
	d     holdings.Driver
	site  holdings.Site
	creds holdings.Credentials

	poll    time.Duration
	timeout time.Duration
	clock   holdings.Clock
	log     zerolog.Logger

	state    State
	err      error // cause of the Failed state or of the last invalidation
	relogged bool  // the automatic login has been used since the last invalidation
}

// Option configures a Machine.
type Option func(*Machine)

// WithPolling sets the poll interval and the timeout of the authentication detection.
func WithPolling(interval, timeout time.Duration) Option {
	return func(m *Machine) {
		m.poll, m.timeout = interval, timeout
	}
}

// WithClock sets the time source, for tests.
func WithClock(c holdings.Clock) Option {
	return func(m *Machine) { m.clock = c }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Machine) { m.log = l }
}

// New returns a Machine in the Anonymous state.
func New(d holdings.Driver, site holdings.Site, creds holdings.Credentials, opts ...Option) *Machine {
	m := &Machine{
		d:       d,
		site:    site,
		creds:   creds,
		poll:    DefaultPollInterval,
		timeout: DefaultTimeout,
		clock:   holdings.SystemClock,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.log = m.log.With().Str("site", site.Name).Logger()
	return m
}

// State returns the current state.
func (m *Machine) State() State { return m.state }

// Err returns the cause of the Failed state or of the last invalidation.
func (m *Machine) Err() error { return m.err }

func (m *Machine) set(s State, err error) {
	m.log.Debug().Stringer("from", m.state).Stringer("to", s).Err(err).Msg("session transition")
	m.state, m.err = s, err
}

// Login runs the login sequence and returns the resulting state. It fails
// with *holdings.CredentialsRejectedError, holdings.ErrAuthTimeout, or the
// driver error that interrupted the sequence.
func (m *Machine) Login(ctx context.Context) (State, error) {
	switch m.state {
	case Authenticated:
		return m.state, nil
	case Authenticating:
		return m.state, errors.New("login already in progress")
	}
	m.set(Authenticating, nil)
	if err := m.login(ctx); err != nil {
		m.set(Failed, err)
		m.log.Info().Err(err).Msg("login failed")
		return m.state, err
	}
	m.set(Authenticated, nil)
	m.log.Info().Msg("logged in")
	return m.state, nil
}

func (m *Machine) login(ctx context.Context) error {
	if err := m.d.Navigate(ctx, m.site.LoginURL); err != nil {
		return fmt.Errorf("opening login page: %w", err)
	}
	if err := m.site.Submit(ctx, m.d, m.creds); err != nil {
		return fmt.Errorf("submitting credentials: %w", err)
	}
	ok, err := holdings.Poll(ctx, m.clock, m.poll, m.timeout, m.authenticated)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w after %v", holdings.ErrAuthTimeout, m.timeout)
	}
	return nil
}

// authenticated is the detection condition: the site says so, or an error
// banner says it never will. Driver errors mean "not yet": the page may be
// in the middle of a redirect.
func (m *Machine) authenticated(ctx context.Context) (bool, error) {
	ok, err := m.site.Authenticated(ctx, m.d)
	if err != nil {
		return false, m.notYet(ctx, err)
	}
	if ok {
		return true, nil
	}
	if m.site.Rejected == nil {
		return false, nil
	}
	banner, err := m.site.Rejected(ctx, m.d)
	if err != nil {
		return false, m.notYet(ctx, err)
	}
	if banner != "" {
		return false, &holdings.CredentialsRejectedError{Banner: banner}
	}
	return false, nil
}

// notYet drops a detection error unless the context is done.
func (m *Machine) notYet(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	m.log.Debug().Err(err).Msg("authentication not detected yet")
	return nil
}

// RequireAuthenticated is the precondition of every data fetching operation.
// When the session is not authenticated it logs in, once per session and
// once again after each invalidation; it fails with
// holdings.ErrNotAuthenticated otherwise, wrapping the cause.
func (m *Machine) RequireAuthenticated(ctx context.Context) error {
	if m.state == Authenticated {
		return nil
	}
	if m.relogged {
		if m.err != nil {
			return fmt.Errorf("%w: %w", holdings.ErrNotAuthenticated, m.err)
		}
		return holdings.ErrNotAuthenticated
	}
	m.relogged = true
	var invalidated error
	if m.state == Anonymous {
		invalidated = m.err
	}
	if _, err := m.Login(ctx); err != nil {
		if invalidated != nil {
			err = errors.Join(err, invalidated)
			m.err = err
		}
		return fmt.Errorf("%w: %w", holdings.ErrNotAuthenticated, err)
	}
	return nil
}

// Invalidate drops an authenticated session the site no longer honours, for
// instance after an unexpected redirect to the login page.
func (m *Machine) Invalidate(cause error) {
	if m.state == Authenticated {
		m.log.Warn().Err(cause).Msg("session invalidated")
		m.set(Anonymous, cause)
		m.relogged = false
	}
}

// Logout navigates to the logout page if the session is authenticated.
func (m *Machine) Logout(ctx context.Context) error {
	if m.state != Authenticated {
		return nil
	}
	if m.site.LogoutURL != "" {
		if err := m.d.Navigate(ctx, m.site.LogoutURL); err != nil {
			return fmt.Errorf("logging out: %w", err)
		}
	}
	m.set(Anonymous, nil)
	m.log.Info().Msg("logged out")
	return nil
}

// Close tears the session down, logging out first when authenticated.
func (m *Machine) Close(ctx context.Context) error {
	return m.Logout(ctx)
}
