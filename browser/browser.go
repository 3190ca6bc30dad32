// Package browser implements holdings.Driver on a Chrome tab driven through
// the DevTools protocol.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/etnz/holdings"
	"github.com/rs/zerolog"
)

// Browser is a single Chrome tab. Close releases it and the browser process.
type Browser struct {
	ctx    context.Context // chromedp tab context
	cancel context.CancelFunc
	poll   time.Duration
}

type config struct {
	headless      bool
	width, height int
	execPath      string
	poll          time.Duration
	log           zerolog.Logger
}

// Option configures a Browser.
type Option func(*config)

// Headless runs Chrome without a window.
func Headless(b bool) Option { return func(c *config) { c.headless = b } }

// WindowSize sets the viewport, which positional clicks depend on.
func WindowSize(width, height int) Option {
	return func(c *config) { c.width, c.height = width, height }
}

// ExecPath sets the Chrome binary. By default it is looked up.
func ExecPath(path string) Option { return func(c *config) { c.execPath = path } }

// PollInterval sets the interval of WaitFor.
func PollInterval(d time.Duration) Option { return func(c *config) { c.poll = d } }

// WithLogger receives the DevTools protocol errors and, at trace level, its
// messages.
func WithLogger(l zerolog.Logger) Option { return func(c *config) { c.log = l } }

// New starts Chrome and opens a tab. The browser lives until Close or until
// ctx is done.
func New(ctx context.Context, opts ...Option) (*Browser, error) {
	c := config{headless: true, width: 1280, height: 900, poll: 100 * time.Millisecond, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&c)
	}

	alloc := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", c.headless),
		chromedp.WindowSize(c.width, c.height),
	)
	if c.execPath != "" {
		alloc = append(alloc, chromedp.ExecPath(c.execPath))
	}
	actx, acancel := chromedp.NewExecAllocator(ctx, alloc...)
	tctx, tcancel := chromedp.NewContext(actx,
		chromedp.WithErrorf(func(f string, args ...any) { c.log.Debug().Msgf(f, args...) }),
		chromedp.WithDebugf(func(f string, args ...any) { c.log.Trace().Msgf(f, args...) }),
	)
	b := &Browser{
		ctx:    tctx,
		cancel: func() { tcancel(); acancel() },
		poll:   c.poll,
	}
	// starts the browser
	if err := chromedp.Run(tctx); err != nil {
		b.cancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}
	return b, nil
}

// Close shuts the tab and the browser down.
func (b *Browser) Close() error {
	b.cancel()
	return nil
}

// run runs actions on the tab, bounded by the caller's ctx.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	rctx, cancel := context.WithCancel(b.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(rctx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	if err := b.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("%w: %s: %w", holdings.ErrNavigation, url, err)
	}
	return nil
}

func (b *Browser) Location(ctx context.Context) (string, error) {
	var loc string
	err := b.run(ctx, chromedp.Location(&loc))
	return loc, err
}

func (b *Browser) WaitFor(ctx context.Context, cond holdings.Condition, timeout time.Duration) (bool, error) {
	return holdings.Poll(ctx, holdings.SystemClock, b.poll, timeout, cond)
}

// eval calls the javascript function fn with args, encoded as JSON.
func (b *Browser) eval(ctx context.Context, res any, fn string, args ...any) error {
	script, err := call(fn, args...)
	if err != nil {
		return err
	}
	return b.run(ctx, chromedp.Evaluate(script, res))
}

func (b *Browser) Text(ctx context.Context, xpath string) (string, error) {
	var c holdings.Cell
	if err := b.eval(ctx, &c, textJS, xpath); err != nil {
		return "", err
	}
	if !c.Found {
		return "", fmt.Errorf("%w: %s", holdings.ErrElementNotFound, xpath)
	}
	return c.Text, nil
}

func (b *Browser) Table(ctx context.Context, rows string, cells []string) ([]holdings.TableRow, error) {
	var t []holdings.TableRow
	if err := b.eval(ctx, &t, tableJS, rows, cells); err != nil {
		return nil, err
	}
	return t, nil
}

func (b *Browser) Eval(ctx context.Context, script string, res any) error {
	return b.run(ctx, chromedp.Evaluate(script, res))
}

// Fill sets the value property, so hidden inputs can be filled too.
func (b *Browser) Fill(ctx context.Context, xpath, value string) error {
	var found bool
	if err := b.eval(ctx, &found, fillJS, xpath, value); err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: %s", holdings.ErrElementNotFound, xpath)
	}
	return nil
}

func (b *Browser) Click(ctx context.Context, xpath string) error {
	ok, err := holdings.Exists(ctx, b, xpath)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", holdings.ErrElementNotFound, xpath)
	}
	return b.run(ctx, chromedp.Click(xpath, chromedp.BySearch))
}

func (b *Browser) ClickAt(ctx context.Context, x, y float64) error {
	return b.run(ctx, chromedp.MouseClickXY(x, y))
}

// call returns the script calling fn with args.
func call(fn string, args ...any) (string, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s)(...%s)", fn, data), nil
}

const textJS = `function(xpath) {
	const n = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	return n ? {found: true, text: (n.innerText ?? n.textContent ?? "").trim()} : {found: false, text: ""};
}`

const tableJS = `function(rows, cells) {
	const it = document.evaluate(rows, document, null, XPathResult.ORDERED_NODE_SNAPSHOT_TYPE, null);
	const out = [];
	for (let i = 0; i < it.snapshotLength; i++) {
		const row = it.snapshotItem(i);
		out.push(cells.map(c => {
			const n = document.evaluate(c, row, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
			return n ? {found: true, text: (n.innerText ?? n.textContent ?? "").trim()} : {found: false, text: ""};
		}));
	}
	return out;
}`

const fillJS = `function(xpath, value) {
	const n = document.evaluate(xpath, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue;
	if (!n) return false;
	n.value = value;
	n.dispatchEvent(new Event("input", {bubbles: true}));
	n.dispatchEvent(new Event("change", {bubbles: true}));
	return true;
}`
