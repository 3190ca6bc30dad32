// Package cmd implements the hold command line application, reading holdings
// from a precious metals dealer dashboard.
package cmd

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/etnz/holdings"
	"github.com/etnz/holdings/aucoffre"
	"github.com/etnz/holdings/browser"
	"github.com/etnz/holdings/bullionstar"
	"github.com/etnz/holdings/config"
	"github.com/etnz/holdings/scraper"
	"github.com/etnz/holdings/session"
	"github.com/google/subcommands"
	"github.com/rs/zerolog"
)

// Register the subcommands.
// A main package will call Register() to allow subcommands, and Execute() on the user-selected one.
func Register(c *subcommands.Commander) {
	c.Register(&loginCmd{}, "session")
	c.Register(&accountsCmd{}, "holdings")
	c.Register(&investmentsCmd{}, "holdings")
}

// as a CLI application, it has a very short lived lifecycle, so it is ok to use global variables.

var configFile = flag.String("config", "hold.toml", "Path to the configuration file (TOML format)")
var Verbose = flag.Bool("v", false, "Verbose logging")

// Sites maps a site name to its strategies.
var Sites = map[string]func() holdings.Site{
	"aucoffre":    aucoffre.Site,
	"bullionstar": bullionstar.Site,
}

// app is an open session on the configured site.
type app struct {
	cfg     config.Config
	log     zerolog.Logger
	browser *browser.Browser
	scraper *scraper.Scraper
}

// open loads the configuration, starts the browser and prepares the scraper.
// The session is still anonymous.
func open(ctx context.Context) (*app, error) {
	cfg, err := config.Load(*configFile)
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	level := cfg.Level()
	if *Verbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).With().Timestamp().Logger()

	b, err := browser.New(ctx,
		browser.Headless(cfg.Browser.Headless),
		browser.WindowSize(cfg.Browser.Width, cfg.Browser.Height),
		browser.ExecPath(cfg.Browser.ExecPath),
		browser.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}
	creds := holdings.Credentials{
		Pseudo:     cfg.Credentials.Pseudo,
		Identifier: cfg.Credentials.Identifier,
		Secret:     cfg.Credentials.Secret,
		Challenge:  cfg.Credentials.Challenge,
	}
	s, err := scraper.New(b, Sites[cfg.Site](), creds,
		scraper.WithMaxPages(cfg.Traversal.MaxPages),
		scraper.WithRateLimit(cfg.Traversal.PagesPerSecond),
		scraper.WithLogger(log),
		scraper.WithSession(session.WithPolling(cfg.Session.PollInterval.Duration, cfg.Session.LoginTimeout.Duration)),
	)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &app{cfg: cfg, log: log, browser: b, scraper: s}, nil
}

// close logs out and shuts the browser down.
func (a *app) close(ctx context.Context) {
	if err := a.scraper.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("logout failed")
	}
	a.browser.Close()
}

// printMarkdown prints md to the terminal, styled when possible.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Print(md)
}
