package holdings

import (
	"errors"
	"fmt"
)

// Driver level failures.
var (
	ErrElementNotFound    = errors.New("element not found")
	ErrNavigation         = errors.New("navigation failed")
	ErrUnexpectedLocation = fmt.Errorf("%w: unexpected location", ErrNavigation)
)

// Session level failures. They are fatal to the operation that hits them.
var (
	ErrAuthTimeout      = errors.New("authentication timed out")
	ErrNotAuthenticated = errors.New("not authenticated")
)

// Extraction level failures.
var (
	ErrPaginationOverrun = errors.New("pagination overrun")
	ErrTraversalConsumed = errors.New("traversal already consumed")
	ErrUnknownAccount    = errors.New("unknown account")
)

// ParseError reports an amount text that is not a decimal literal once
// symbols and separators are removed.
type ParseError struct {
	Text   string // original text
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse amount %q: %s", e.Text, e.Reason)
}

// CredentialsRejectedError is returned when the login surface shows an error
// banner after the credentials were submitted.
type CredentialsRejectedError struct {
	Banner string
}

func (e *CredentialsRejectedError) Error() string {
	return fmt.Sprintf("credentials rejected: %q", e.Banner)
}
