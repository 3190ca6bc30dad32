// Package holdingstest provides a scripted Driver and a manual Clock for
// testing site strategies and the code driving them, without a browser.
package holdingstest

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/etnz/holdings"
)

// Page is the scripted content of one url.
type Page struct {
	Texts  map[string]string              // xpath -> text
	Tables map[string][]holdings.TableRow // rows xpath -> rows
}

// Driver is a holdings.Driver serving scripted pages.
type Driver struct {
	Pages map[string]*Page
	// Redirects maps a requested url to the url actually reached.
	Redirects map[string]string
	// Fail maps a url to the error navigating to it returns.
	Fail map[string]error
	// Evals maps a script to a function computing its result.
	Evals map[string]func() any
	// OnClick maps an xpath to a side effect of clicking it.
	OnClick map[string]func(d *Driver)
	Clock   holdings.Clock

	mu          sync.Mutex
	location    string
	Navigations []string          // every requested url, in order
	Filled      map[string]string // xpath -> last value filled
	Clicks      []string          // clicked xpaths, "x,y" for ClickAt
}

// NewDriver returns a Driver serving pages by url.
func NewDriver(pages map[string]*Page) *Driver {
	return &Driver{
		Pages:     pages,
		Redirects: make(map[string]string),
		Fail:      make(map[string]error),
		Evals:     make(map[string]func() any),
		OnClick:   make(map[string]func(d *Driver)),
		Filled:    make(map[string]string),
	}
}

// Goto sets the current location without recording a navigation, as a
// redirect performed by the site would.
func (d *Driver) Goto(url string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = url
}

func (d *Driver) page() *Page {
	for url, p := range d.Pages {
		if holdings.SameSurface(url, d.location) {
			return p
		}
	}
	return &Page{}
}

func (d *Driver) Navigate(_ context.Context, url string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Navigations = append(d.Navigations, url)
	if err := d.Fail[url]; err != nil {
		return fmt.Errorf("%w: %s: %w", holdings.ErrNavigation, url, err)
	}
	if to, ok := d.Redirects[url]; ok {
		url = to
	}
	d.location = url
	return nil
}

func (d *Driver) Location(context.Context) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.location, nil
}

func (d *Driver) WaitFor(ctx context.Context, cond holdings.Condition, timeout time.Duration) (bool, error) {
	return holdings.Poll(ctx, d.Clock, 100*time.Millisecond, timeout, cond)
}

func (d *Driver) Text(_ context.Context, xpath string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	text, ok := d.page().Texts[xpath]
	if !ok {
		return "", fmt.Errorf("%w: %s", holdings.ErrElementNotFound, xpath)
	}
	return text, nil
}

func (d *Driver) Table(_ context.Context, rows string, _ []string) ([]holdings.TableRow, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.page().Tables[rows], nil
}

// Eval decodes the scripted result through JSON, as a browser would.
func (d *Driver) Eval(_ context.Context, script string, res any) error {
	d.mu.Lock()
	f, ok := d.Evals[script]
	d.mu.Unlock()
	if !ok {
		return fmt.Errorf("unexpected script %q", script)
	}
	data, err := json.Marshal(f())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, res)
}

func (d *Driver) Fill(_ context.Context, xpath, value string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.page().Texts[xpath]; !ok {
		return fmt.Errorf("%w: %s", holdings.ErrElementNotFound, xpath)
	}
	d.Filled[xpath] = value
	return nil
}

func (d *Driver) Click(_ context.Context, xpath string) error {
	d.mu.Lock()
	if _, ok := d.page().Texts[xpath]; !ok {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", holdings.ErrElementNotFound, xpath)
	}
	d.Clicks = append(d.Clicks, xpath)
	f := d.OnClick[xpath]
	d.mu.Unlock()
	if f != nil {
		f(d)
	}
	return nil
}

func (d *Driver) ClickAt(_ context.Context, x, y float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.Clicks = append(d.Clicks, fmt.Sprintf("%g,%g", x, y))
	return nil
}

// Row is a convenience to build a TableRow where every cell is found.
func Row(cells ...string) holdings.TableRow {
	r := make(holdings.TableRow, len(cells))
	for i, c := range cells {
		r[i] = holdings.Cell{Text: c, Found: true}
	}
	return r
}

// Clock is a holdings.Clock that only moves on Sleep.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a Clock set at start.
func NewClock(start time.Time) *Clock { return &Clock{now: start} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	return nil
}
