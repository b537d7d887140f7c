package extract

import (
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"midas/internal/domain/metric"
	"midas/pkg/errors"
)

// Side encodes where an anchor expects its number relative to the phrase.
// Some anchors place the number before the label ("$1.23 per share"),
// most place it after ("EPS of $1.23").
type Side string

const (
	SideBefore Side = "before"
	SideAfter  Side = "after"
	SideEither Side = "either"
)

// Anchor is one lexical cue for a metric mention. Anchors are data, not
// code: the catalog is loaded once at startup and never mutated.
type Anchor struct {
	ID     string      `yaml:"id"`
	Kind   metric.Kind `yaml:"kind"`
	Phrase string      `yaml:"phrase"`

	// Specificity in (0,1]: exact multi-word phrases score higher than
	// short generic labels
	Specificity float64 `yaml:"specificity"`

	Side Side `yaml:"side"`

	// Ordinal selects only the nth nearest numeric span on the preferred
	// side, 1-based; guidance ranges use 1 for the low bound and 2 for the
	// high. Zero means every numeric span in the window yields a candidate.
	Ordinal int `yaml:"ordinal"`

	// BaseWeight in (0,1] per pattern type
	BaseWeight float64 `yaml:"base_weight"`

	// Units restricts which token units can satisfy this anchor;
	// empty means any
	Units []metric.Unit `yaml:"units"`

	re *regexp.Regexp
}

// matches returns all occurrences of the anchor phrase in text
func (a *Anchor) matches(text string) []metric.Span {
	var spans []metric.Span
	for _, loc := range a.re.FindAllStringIndex(text, -1) {
		spans = append(spans, metric.Span{Start: loc[0], End: loc[1], Text: text[loc[0]:loc[1]]})
	}
	return spans
}

// acceptsUnit reports whether a token unit can satisfy this anchor
func (a *Anchor) acceptsUnit(u metric.Unit) bool {
	if len(a.Units) == 0 {
		return true
	}
	for _, unit := range a.Units {
		if unit == u {
			return true
		}
	}
	return false
}

// Catalog is the immutable anchor-pattern catalog plus per-metric
// magnitude ranges. Loaded once at process start, read-only afterwards.
type Catalog struct {
	Anchors []Anchor                              `yaml:"anchors"`
	Ranges  map[metric.Kind]metric.MagnitudeRange `yaml:"magnitude_ranges"`
}

// DefaultCatalog returns the built-in catalog. Phrases and weights are
// tuned for US earnings releases and financial news wire copy.
func DefaultCatalog() *Catalog {
	c := &Catalog{
		Anchors: []Anchor{
			// EPS
			{ID: "eps_full", Kind: metric.KindEPS, Phrase: "earnings per share", Specificity: 1.0, Side: SideEither, BaseWeight: 1.0, Units: currencyOrBare},
			{ID: "eps_diluted", Kind: metric.KindEPS, Phrase: "diluted EPS", Specificity: 0.95, Side: SideAfter, BaseWeight: 1.0, Units: currencyOrBare},
			{ID: "eps_adjusted", Kind: metric.KindEPS, Phrase: "adjusted EPS", Specificity: 0.9, Side: SideAfter, BaseWeight: 0.95, Units: currencyOrBare},
			{ID: "eps_short", Kind: metric.KindEPS, Phrase: "EPS", Specificity: 0.8, Side: SideAfter, BaseWeight: 0.9, Units: currencyOrBare},
			{ID: "eps_per_share", Kind: metric.KindEPS, Phrase: "per share", Specificity: 0.7, Side: SideBefore, BaseWeight: 0.8, Units: currencyOrBare},

			// Revenue
			{ID: "rev_total", Kind: metric.KindRevenue, Phrase: "total revenue", Specificity: 0.95, Side: SideAfter, BaseWeight: 1.0},
			{ID: "rev_net_sales", Kind: metric.KindRevenue, Phrase: "net sales", Specificity: 0.9, Side: SideAfter, BaseWeight: 0.95},
			{ID: "rev_plain", Kind: metric.KindRevenue, Phrase: "revenue", Specificity: 0.8, Side: SideEither, BaseWeight: 0.9},
			{ID: "rev_sales", Kind: metric.KindRevenue, Phrase: "sales", Specificity: 0.55, Side: SideAfter, BaseWeight: 0.7},

			// Net income
			{ID: "ni_income", Kind: metric.KindNetIncome, Phrase: "net income", Specificity: 0.95, Side: SideAfter, BaseWeight: 1.0},
			{ID: "ni_loss", Kind: metric.KindNetIncome, Phrase: "net loss", Specificity: 0.9, Side: SideAfter, BaseWeight: 0.95},
			{ID: "ni_profit", Kind: metric.KindNetIncome, Phrase: "profit", Specificity: 0.55, Side: SideEither, BaseWeight: 0.7},

			// Guidance: ordinal 1 is the low bound, ordinal 2 the high
			{ID: "guid_low", Kind: metric.KindGuidanceLow, Phrase: "guidance", Specificity: 0.85, Side: SideAfter, Ordinal: 1, BaseWeight: 0.9},
			{ID: "guid_high", Kind: metric.KindGuidanceHigh, Phrase: "guidance", Specificity: 0.85, Side: SideAfter, Ordinal: 2, BaseWeight: 0.9},
			{ID: "guid_expects_low", Kind: metric.KindGuidanceLow, Phrase: "expects revenue between", Specificity: 1.0, Side: SideAfter, Ordinal: 1, BaseWeight: 1.0},
			{ID: "guid_expects_high", Kind: metric.KindGuidanceHigh, Phrase: "expects revenue between", Specificity: 1.0, Side: SideAfter, Ordinal: 2, BaseWeight: 1.0},

			// Gross margin
			{ID: "margin_gross", Kind: metric.KindGrossMargin, Phrase: "gross margin", Specificity: 0.95, Side: SideEither, BaseWeight: 1.0, Units: []metric.Unit{metric.UnitPercent}},
		},
		Ranges: map[metric.Kind]metric.MagnitudeRange{
			metric.KindEPS:          {Min: -100, Max: 100},
			metric.KindRevenue:      {Min: 0, Max: 1e13},
			metric.KindNetIncome:    {Min: -1e13, Max: 1e13},
			metric.KindGuidanceLow:  {Min: 0, Max: 1e13},
			metric.KindGuidanceHigh: {Min: 0, Max: 1e13},
			metric.KindGrossMargin:  {Min: -100, Max: 100},
		},
	}
	if err := c.compile(); err != nil {
		// The built-in catalog is static; a compile failure is a bug
		panic(err)
	}
	return c
}

var currencyOrBare = []metric.Unit{metric.UnitCurrency, metric.UnitNone}

// LoadCatalog reads a catalog override from a YAML file. Sections left
// empty in the file fall back to the built-in defaults.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCatalogInvalid, "read %s: %v", path, err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(errors.ErrCatalogInvalid, "parse %s: %v", path, err)
	}

	defaults := DefaultCatalog()
	if len(c.Anchors) == 0 {
		c.Anchors = defaults.Anchors
	}
	if c.Ranges == nil {
		c.Ranges = defaults.Ranges
	} else {
		for kind, r := range defaults.Ranges {
			if _, ok := c.Ranges[kind]; !ok {
				c.Ranges[kind] = r
			}
		}
	}

	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

// compile validates anchors and builds their phrase matchers
func (c *Catalog) compile() error {
	seen := make(map[string]bool, len(c.Anchors))
	for i := range c.Anchors {
		a := &c.Anchors[i]

		if a.ID == "" || a.Phrase == "" {
			return errors.Wrapf(errors.ErrCatalogInvalid, "anchor %d missing id or phrase", i)
		}
		if seen[a.ID] {
			return errors.Wrapf(errors.ErrCatalogInvalid, "duplicate anchor id %q", a.ID)
		}
		seen[a.ID] = true

		if !a.Kind.Valid() {
			return errors.Wrapf(errors.ErrCatalogInvalid, "anchor %q has unknown metric kind %q", a.ID, a.Kind)
		}
		if a.Specificity <= 0 || a.Specificity > 1 {
			return errors.Wrapf(errors.ErrCatalogInvalid, "anchor %q specificity out of (0,1]", a.ID)
		}
		if a.BaseWeight <= 0 || a.BaseWeight > 1 {
			return errors.Wrapf(errors.ErrCatalogInvalid, "anchor %q base weight out of (0,1]", a.ID)
		}
		if a.Side == "" {
			a.Side = SideEither
		}
		if a.Side != SideBefore && a.Side != SideAfter && a.Side != SideEither {
			return errors.Wrapf(errors.ErrCatalogInvalid, "anchor %q has unknown side %q", a.ID, a.Side)
		}
		if a.Ordinal < 0 {
			return errors.Wrapf(errors.ErrCatalogInvalid, "anchor %q ordinal must be >= 0", a.ID)
		}

		re, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(a.Phrase) + `\b`)
		if err != nil {
			return errors.Wrapf(errors.ErrCatalogInvalid, "anchor %q phrase: %v", a.ID, err)
		}
		a.re = re
	}
	return nil
}
