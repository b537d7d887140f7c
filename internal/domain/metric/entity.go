package metric

import (
	"github.com/shopspring/decimal"
)

// Kind identifies a financial metric extracted from document text
type Kind string

const (
	KindEPS          Kind = "EPS"
	KindRevenue      Kind = "REVENUE"
	KindNetIncome    Kind = "NET_INCOME"
	KindGuidanceLow  Kind = "GUIDANCE_LOW"
	KindGuidanceHigh Kind = "GUIDANCE_HIGH"
	KindGrossMargin  Kind = "GROSS_MARGIN"
)

// Kinds returns all metric kinds in resolution order
func Kinds() []Kind {
	return []Kind{
		KindEPS,
		KindRevenue,
		KindNetIncome,
		KindGuidanceLow,
		KindGuidanceHigh,
		KindGrossMargin,
	}
}

// Valid returns true for known metric kinds
func (k Kind) Valid() bool {
	switch k {
	case KindEPS, KindRevenue, KindNetIncome, KindGuidanceLow, KindGuidanceHigh, KindGrossMargin:
		return true
	}
	return false
}

// Unit classifies what a numeric value measures
type Unit string

const (
	UnitCurrency Unit = "currency"
	UnitPercent  Unit = "percent"
	UnitCount    Unit = "count"
	UnitNone     Unit = "none"
)

// Span locates a substring within document text by byte offsets
type Span struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Text  string `json:"text"`
}

// Overlaps reports whether two spans share at least one byte
func (s Span) Overlaps(other Span) bool {
	return s.Start < other.End && other.Start < s.End
}

// NumericToken is a normalized numeric value extracted from a text span.
// Value is always in base units: the scale suffix ("B", "M", ...) has
// already been applied, ScaleExp records which power of ten that was.
type NumericToken struct {
	Span     Span            `json:"span"`
	Value    decimal.Decimal `json:"value"`
	Unit     Unit            `json:"unit"`
	ScaleExp int32           `json:"scale_exp"`
}

// Canonical returns the base-unit string representation of the value.
// Re-parsing the canonical string yields an equal Value.
func (t NumericToken) Canonical() string {
	return t.Value.String()
}

// MagnitudeRange is the expected order-of-magnitude range for a metric
// kind, used as a plausibility check during resolution
type MagnitudeRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// Contains reports whether v falls inside the range
func (r MagnitudeRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Candidate is one hypothesis for a metric value, immutable once created
type Candidate struct {
	Kind       Kind         `json:"kind"`
	Token      NumericToken `json:"token"`
	AnchorID   string       `json:"anchor_id"`
	Confidence float64      `json:"confidence"`
	Context    Span         `json:"context"`
}

// Status is the terminal resolution state for a metric within a document
type Status string

const (
	StatusResolved  Status = "RESOLVED"
	StatusAmbiguous Status = "AMBIGUOUS"
	StatusNotFound  Status = "NOT_FOUND"
)

// Result is the resolved value for one metric kind within one document.
// Exactly one Result exists per (document, kind) pair after resolution.
type Result struct {
	Kind   Kind       `json:"kind"`
	Status Status     `json:"status"`
	Chosen *Candidate `json:"chosen,omitempty"`

	// Alternatives holds rejected candidates ordered most-to-least confident
	Alternatives []Candidate `json:"alternatives,omitempty"`
}
