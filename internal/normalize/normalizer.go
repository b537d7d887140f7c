package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"midas/internal/domain/metric"
	"midas/pkg/errors"
)

// Convention is one thousands/decimal separator pairing tried during parsing
type Convention struct {
	Name      string
	Thousands rune
	Decimal   rune
}

// Named conventions. US style takes priority by default because the
// upstream documents are normalized to one locale before ingestion.
var (
	ConventionUS    = Convention{Name: "us", Thousands: ',', Decimal: '.'}
	ConventionEU    = Convention{Name: "eu", Thousands: '.', Decimal: ','}
	ConventionSpace = Convention{Name: "space", Thousands: ' ', Decimal: ','}
)

// DefaultConventions returns the default priority order
func DefaultConventions() []Convention {
	return []Convention{ConventionUS, ConventionEU}
}

// ConventionsByName maps config names to conventions
func ConventionsByName(names []string) ([]Convention, error) {
	known := map[string]Convention{
		ConventionUS.Name:    ConventionUS,
		ConventionEU.Name:    ConventionEU,
		ConventionSpace.Name: ConventionSpace,
	}

	out := make([]Convention, 0, len(names))
	for _, name := range names {
		conv, ok := known[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, errors.Wrapf(errors.ErrInvalidInput, "unknown separator convention %q", name)
		}
		out = append(out, conv)
	}
	if len(out) == 0 {
		return DefaultConventions(), nil
	}
	return out, nil
}

// scaleExponents maps scale suffixes to powers of ten
var scaleExponents = map[string]int32{
	"k":        3,
	"thousand": 3,
	"m":        6,
	"mm":       6,
	"million":  6,
	"b":        9,
	"bn":       9,
	"billion":  9,
	"t":        12,
	"trillion": 12,
}

// numericSpanRe recognizes numeric-like spans in running text: an optional
// currency symbol, an optionally parenthesized digit group with separators,
// and an optional scale suffix or percent sign.
var numericSpanRe = regexp.MustCompile(
	`(?i)[-−]?(?:US)?[$€£]?\(?(?:US)?[$€£]?\d+(?:[.,\x{00a0} ]\d+)*\)?(?: ?(?:%|bn\b|mm\b|[kmbt]\b|thousand\b|million\b|billion\b|trillion\b))?`,
)

// Error describes a span that failed normalization. It wraps
// errors.ErrNormalization so callers can test with errors.Is.
type Error struct {
	Raw    string
	Reason string
}

func (e *Error) Error() string {
	return "cannot normalize " + quote(e.Raw) + ": " + e.Reason
}

func (e *Error) Unwrap() error {
	return errors.ErrNormalization
}

func quote(s string) string {
	return `"` + s + `"`
}

// Skip records a numeric-like span that was skipped during scanning
type Skip struct {
	Span metric.Span
	Err  error
}

// Normalizer canonicalizes numeric text spans into NumericTokens.
// It is a pure function of its configuration and safe for concurrent use.
type Normalizer struct {
	conventions []Convention
}

// New creates a Normalizer with the given separator conventions,
// tried in order; first successful parse wins
func New(conventions ...Convention) *Normalizer {
	if len(conventions) == 0 {
		conventions = DefaultConventions()
	}
	return &Normalizer{conventions: conventions}
}

// Scan finds all numeric-like spans in text and normalizes each.
// Malformed spans are returned as skips, never as a failure.
func (n *Normalizer) Scan(text string) ([]metric.NumericToken, []Skip) {
	var tokens []metric.NumericToken
	var skips []Skip

	for _, loc := range numericSpanRe.FindAllStringIndex(text, -1) {
		span := metric.Span{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]}

		// A trailing close paren with no matching open paren belongs to the
		// surrounding text, not the number
		if strings.HasSuffix(span.Text, ")") && !strings.Contains(span.Text, "(") {
			span.End--
			span.Text = span.Text[:len(span.Text)-1]
		}

		token, err := n.Parse(span)
		if err != nil {
			skips = append(skips, Skip{Span: span, Err: err})
			continue
		}
		tokens = append(tokens, token)
	}

	return tokens, skips
}

// Parse normalizes a single numeric-like span into a NumericToken.
// The returned token's Value is in base units: scale suffixes applied,
// accounting-style parenthesized negatives resolved.
func (n *Normalizer) Parse(span metric.Span) (metric.NumericToken, error) {
	s := strings.TrimSpace(span.Text)
	if s == "" {
		return metric.NumericToken{}, &Error{Raw: span.Text, Reason: "empty span"}
	}

	negative := false

	// Accounting convention: (1,234) means -1234
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	// Unbalanced parens are not part of the number
	s = strings.Trim(s, "()")
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "−") {
		negative = true
		s = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(s, "-"), "−"))
	}

	unit := metric.UnitNone
	for _, prefix := range []string{"US$", "$", "€", "£"} {
		if strings.HasPrefix(s, prefix) {
			unit = metric.UnitCurrency
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
			break
		}
	}

	var scaleExp int32
	if strings.HasSuffix(s, "%") {
		if unit == metric.UnitCurrency {
			return metric.NumericToken{}, &Error{Raw: span.Text, Reason: "currency and percent markers conflict"}
		}
		unit = metric.UnitPercent
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	} else if suffix := trailingAlpha(s); suffix != "" {
		exp, ok := scaleExponents[strings.ToLower(suffix)]
		if !ok {
			return metric.NumericToken{}, &Error{Raw: span.Text, Reason: "unknown scale suffix " + quote(suffix)}
		}
		scaleExp = exp
		s = strings.TrimSpace(s[:len(s)-len(suffix)])
	}

	if s == "" {
		return metric.NumericToken{}, &Error{Raw: span.Text, Reason: "no digits"}
	}

	value, err := n.parseCore(s)
	if err != nil {
		return metric.NumericToken{}, &Error{Raw: span.Text, Reason: err.Error()}
	}

	value = value.Shift(scaleExp)
	if negative {
		value = value.Neg()
	}

	// Bare numbers: whole quantities are counts, fractional ones carry no unit
	if unit == metric.UnitNone && value.IsInteger() {
		unit = metric.UnitCount
	}

	return metric.NumericToken{
		Span:     span,
		Value:    value,
		Unit:     unit,
		ScaleExp: scaleExp,
	}, nil
}

// parseCore parses the digit/separator core, trying each convention in
// priority order; first successful parse wins
func (n *Normalizer) parseCore(core string) (decimal.Decimal, error) {
	var lastErr error
	for _, conv := range n.conventions {
		value, err := parseWithConvention(core, conv)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = errors.New("no separator conventions configured")
	}
	return decimal.Decimal{}, lastErr
}

func parseWithConvention(core string, conv Convention) (decimal.Decimal, error) {
	// Only digits and the convention's separators may appear
	for _, r := range core {
		if r >= '0' && r <= '9' {
			continue
		}
		if r == conv.Thousands || r == conv.Decimal || (r == ' ' && conv.Thousands == ' ') {
			continue
		}
		return decimal.Decimal{}, errors.Newf("unexpected character %q", r)
	}

	intPart := core
	fracPart := ""
	if idx := strings.LastIndexByte(core, byte(conv.Decimal)); idx >= 0 {
		intPart = core[:idx]
		fracPart = core[idx+1:]
		if strings.ContainsRune(fracPart, conv.Decimal) || strings.ContainsRune(fracPart, conv.Thousands) {
			return decimal.Decimal{}, errors.Newf("multiple separators after decimal point")
		}
	}

	if intPart == "" && fracPart != "" {
		intPart = "0"
	}

	groups := splitGroups(intPart, conv.Thousands)
	for i, g := range groups {
		if g == "" {
			return decimal.Decimal{}, errors.Newf("empty digit group")
		}
		// Groups after the first must be exactly three digits, otherwise the
		// separator cannot be a thousands separator under this convention
		if i > 0 && len(g) != 3 {
			return decimal.Decimal{}, errors.Newf("digit group %q is not a thousands group", g)
		}
		if i == 0 && len(g) > 3 && len(groups) > 1 {
			return decimal.Decimal{}, errors.Newf("leading digit group %q too long", g)
		}
	}

	cleaned := strings.Join(groups, "")
	if fracPart != "" {
		cleaned += "." + fracPart
	}

	value, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return value, nil
}

func splitGroups(intPart string, thousands rune) []string {
	if thousands == ' ' {
		intPart = strings.ReplaceAll(intPart, " ", " ")
	}
	return strings.Split(intPart, string(thousands))
}

// trailingAlpha returns the trailing run of letters, if any
func trailingAlpha(s string) string {
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
			i--
			continue
		}
		break
	}
	return s[i:]
}
