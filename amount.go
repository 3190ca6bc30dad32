package holdings

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// Locale describes how a site formats numbers.
type Locale struct {
	Decimal rune   // decimal separator
	Group   string // every rune in Group is a thousands separator and is dropped
}

var (
	// European is the "1 234,56 €" convention. It is the default.
	European = Locale{Decimal: ',', Group: " \u00a0\u202f.'"}
	// English is the "€1,234.56" convention.
	English = Locale{Decimal: '.', Group: " \u00a0\u202f,"}
)

var decimalLiteral = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)

// ParseAmount converts a European formatted amount or quantity into an exact
// decimal. Empty or blank text is zero.
func ParseAmount(text string) (decimal.Decimal, error) {
	return ParseAmountIn(text, European)
}

// ParseAmountIn is like ParseAmount for an explicit locale.
func ParseAmountIn(text string, loc Locale) (decimal.Decimal, error) {
	if loc.Decimal == 0 {
		loc = European
	}
	s := stripCurrency(strings.TrimFunc(text, isBlank))
	if s == "" {
		return decimal.Zero, nil
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == loc.Decimal:
			b.WriteByte('.')
		case strings.ContainsRune(loc.Group, r):
		case r == '\u2212': // minus sign
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	lit := b.String()
	if !decimalLiteral.MatchString(lit) {
		return decimal.Zero, &ParseError{Text: text, Reason: "not a decimal literal"}
	}
	lit = strings.TrimSuffix(lit, ".")
	if strings.HasPrefix(lit, ".") || strings.HasPrefix(lit, "-.") || strings.HasPrefix(lit, "+.") {
		lit = strings.Replace(lit, ".", "0.", 1)
	}
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, &ParseError{Text: text, Reason: err.Error()}
	}
	return d, nil
}

// stripCurrency removes leading and trailing currency symbols and ISO 4217
// codes, repeatedly, so that "EUR 12 €" is reduced to "12".
func stripCurrency(s string) string {
	for {
		before := s
		s = strings.TrimFunc(s, func(r rune) bool { return unicode.Is(unicode.Sc, r) || isBlank(r) })
		if len(s) > 3 && ValidCurrency(s[len(s)-3:]) && isAlpha(s[len(s)-3:]) {
			s = s[:len(s)-3]
		}
		if len(s) > 3 && ValidCurrency(s[:3]) && isAlpha(s[:3]) {
			s = s[3:]
		}
		if s == before {
			return s
		}
	}
}

func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func isBlank(r rune) bool { return unicode.IsSpace(r) }
