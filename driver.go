package holdings

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

// Driver is the browser automation surface. Implementations block for the
// duration of each call and are not safe for concurrent use: there is one
// tab behind them.
type Driver interface {
	// Navigate loads url. It fails with ErrNavigation.
	Navigate(ctx context.Context, url string) error
	// Location returns the url of the current page.
	Location(ctx context.Context) (string, error)
	// WaitFor polls cond until it holds or timeout elapses.
	WaitFor(ctx context.Context, cond Condition, timeout time.Duration) (bool, error)

	// Text returns the text content of the first node matching xpath.
	// It fails with ErrElementNotFound.
	Text(ctx context.Context, xpath string) (string, error)
	// Table returns, for every node matching rows, the text of the nodes
	// matching each cell xpath relative to the row.
	Table(ctx context.Context, rows string, cells []string) ([]TableRow, error)
	// Eval runs script in the page and decodes its result into res.
	Eval(ctx context.Context, script string, res any) error

	Fill(ctx context.Context, xpath, value string) error
	Click(ctx context.Context, xpath string) error
	// ClickAt clicks at viewport coordinates, for overlays with no stable selector.
	ClickAt(ctx context.Context, x, y float64) error
}

// TableRow is one row extracted by Driver.Table.
type TableRow []Cell

// Cell is one cell of a TableRow. Found is false when the cell xpath matched nothing.
type Cell struct {
	Text  string
	Found bool
}

// Field is the outcome of reading a single page field: either its text or the
// reason it could not be read.
type Field struct {
	Text string
	Err  error
}

// Present reports whether the field was read and is not blank.
func (f Field) Present() bool { return f.Err == nil && strings.TrimSpace(f.Text) != "" }

// ReadField reads xpath into a Field. Failures are kept in the Field, not returned.
func ReadField(ctx context.Context, d Driver, xpath string) Field {
	text, err := d.Text(ctx, xpath)
	return Field{Text: strings.TrimSpace(text), Err: err}
}

// Exists reports whether xpath matches a node on the current page.
func Exists(ctx context.Context, d Driver, xpath string) (bool, error) {
	_, err := d.Text(ctx, xpath)
	if errors.Is(err, ErrElementNotFound) {
		return false, nil
	}
	return err == nil, err
}

// SameSurface reports whether two urls designate the same page, ignoring
// scheme, query, fragment and a trailing slash.
func SameSurface(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}
	return strings.EqualFold(ua.Host, ub.Host) &&
		strings.TrimSuffix(ua.Path, "/") == strings.TrimSuffix(ub.Path, "/")
}

// Credentials used to log in. Pseudo and Challenge are only used by sites
// that ask for them.
type Credentials struct {
	Pseudo     string
	Identifier string
	Secret     string
	Challenge  string // challenge response token, optional
}
