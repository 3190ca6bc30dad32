// Package config loads the settings of the hold command.
//
// Settings come from, in increasing precedence: defaults, TOML files, a .env
// file and HOLD_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// Environment variables overriding the files.
const (
	EnvSite       = "HOLD_SITE"
	EnvPseudo     = "HOLD_PSEUDO"
	EnvIdentifier = "HOLD_IDENTIFIER"
	EnvSecret     = "HOLD_SECRET"
	EnvChallenge  = "HOLD_CHALLENGE"
	EnvHeadless   = "HOLD_HEADLESS"
	EnvLogLevel   = "HOLD_LOG_LEVEL"
)

// Sites lists the known site names.
var Sites = []string{"aucoffre", "bullionstar"}

// Config is the complete configuration.
type Config struct {
	Site        string      `toml:"site"`
	Credentials Credentials `toml:"credentials"`
	Browser     Browser     `toml:"browser"`
	Session     Session     `toml:"session"`
	Traversal   Traversal   `toml:"traversal"`
	Logging     Logging     `toml:"logging"`
}

type Credentials struct {
	Pseudo     string `toml:"pseudo"`
	Identifier string `toml:"identifier"`
	Secret     string `toml:"secret"`
	Challenge  string `toml:"challenge"`
}

type Browser struct {
	Headless bool   `toml:"headless"`
	Width    int    `toml:"width"`
	Height   int    `toml:"height"`
	ExecPath string `toml:"exec_path"`
}

type Session struct {
	PollInterval Duration `toml:"poll_interval"`
	LoginTimeout Duration `toml:"login_timeout"`
}

type Traversal struct {
	MaxPages int `toml:"max_pages"`
	// PagesPerSecond paces page loads, 0 means unlimited.
	PagesPerSecond float64 `toml:"pages_per_second"`
}

type Logging struct {
	Level string `toml:"level"`
}

// Duration is a time.Duration written as "1s", "500ms".
type Duration struct{ time.Duration }

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Browser:   Browser{Headless: true, Width: 1280, Height: 900},
		Session:   Session{PollInterval: Duration{time.Second}, LoginTimeout: Duration{10 * time.Second}},
		Traversal: Traversal{MaxPages: 1000},
		Logging:   Logging{Level: "info"},
	}
}

// Load reads the TOML files in order, skipping missing ones, then the .env
// file of the working directory, then the environment.
func Load(paths ...string) (Config, error) {
	c := Default()
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return c, err
		}
		if err := toml.Unmarshal(data, &c); err != nil {
			return c, fmt.Errorf("decoding %s: %w", p, err)
		}
	}
	// Load never overrides variables already set.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("loading .env: %w", err)
	}
	if err := c.fromEnv(os.LookupEnv); err != nil {
		return c, err
	}
	return c, nil
}

func (c *Config) fromEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		EnvSite:       &c.Site,
		EnvPseudo:     &c.Credentials.Pseudo,
		EnvIdentifier: &c.Credentials.Identifier,
		EnvSecret:     &c.Credentials.Secret,
		EnvChallenge:  &c.Credentials.Challenge,
		EnvLogLevel:   &c.Logging.Level,
	}
	for k, p := range strs {
		if v, ok := lookup(k); ok {
			*p = v
		}
	}
	if v, ok := lookup(EnvHeadless); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvHeadless, err)
		}
		c.Browser.Headless = b
	}
	return nil
}

// Validate checks c is usable.
func (c Config) Validate() error {
	var errs []error
	if !slices.Contains(Sites, c.Site) {
		errs = append(errs, fmt.Errorf("unknown site %q, want one of %v", c.Site, Sites))
	}
	if c.Session.PollInterval.Duration <= 0 {
		errs = append(errs, fmt.Errorf("session poll interval must be positive"))
	}
	if c.Session.LoginTimeout.Duration < c.Session.PollInterval.Duration {
		errs = append(errs, fmt.Errorf("session login timeout %v is shorter than the poll interval", c.Session.LoginTimeout))
	}
	if c.Traversal.MaxPages <= 0 {
		errs = append(errs, fmt.Errorf("traversal max pages must be positive"))
	}
	if c.Traversal.PagesPerSecond < 0 {
		errs = append(errs, fmt.Errorf("traversal pages per second must not be negative"))
	}
	if _, err := zerolog.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging level: %w", err))
	}
	return errors.Join(errs...)
}

// Level returns the logging level, info if invalid.
func (c Config) Level() zerolog.Level {
	l, err := zerolog.ParseLevel(c.Logging.Level)
	if err != nil {
		return zerolog.InfoLevel
	}
	return l
}
