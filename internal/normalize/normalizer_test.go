package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midas/internal/domain/metric"
	"midas/pkg/errors"
)

func span(text string) metric.Span {
	return metric.Span{Start: 0, End: len(text), Text: text}
}

func TestParse(t *testing.T) {
	n := New()

	tests := []struct {
		name     string
		input    string
		value    string
		unit     metric.Unit
		scaleExp int32
	}{
		{"plain currency", "$1.23", "1.23", metric.UnitCurrency, 0},
		{"currency with billions suffix", "$4.5B", "4500000000", metric.UnitCurrency, 9},
		{"currency with US prefix", "US$1.2B", "1200000000", metric.UnitCurrency, 9},
		{"grouped integer", "1,200,000,000", "1200000000", metric.UnitCount, 0},
		{"accounting negative", "(2,500)", "-2500", metric.UnitCount, 0},
		{"accounting negative with currency", "($1,234)", "-1234", metric.UnitCurrency, 0},
		{"leading minus", "-12.5", "-12.5", metric.UnitNone, 0},
		{"percent", "42.5%", "42.5", metric.UnitPercent, 0},
		{"scale word", "1.2 billion", "1200000000", metric.UnitCount, 9},
		{"lowercase bn", "3.4bn", "3400000000", metric.UnitCount, 9},
		{"millions", "250M", "250000000", metric.UnitCount, 6},
		{"thousands suffix", "75K", "75000", metric.UnitCount, 3},
		{"us convention wins for ambiguous decimal", "1.234", "1.234", metric.UnitNone, 0},
		{"eu decimal fallback", "1,23", "1.23", metric.UnitNone, 0},
		{"euro symbol", "€500", "500", metric.UnitCurrency, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := n.Parse(span(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.value, token.Value.String(), "value mismatch for %q", tt.input)
			assert.Equal(t, tt.scaleExp, token.ScaleExp)
			assert.Equal(t, tt.unit, token.Unit)
		})
	}
}

func TestParse_Units(t *testing.T) {
	n := New()

	token, err := n.Parse(span("$4.5B"))
	require.NoError(t, err)
	assert.Equal(t, metric.UnitCurrency, token.Unit)

	token, err = n.Parse(span("42.5%"))
	require.NoError(t, err)
	assert.Equal(t, metric.UnitPercent, token.Unit)

	token, err = n.Parse(span("12500"))
	require.NoError(t, err)
	assert.Equal(t, metric.UnitCount, token.Unit)

	token, err = n.Parse(span("12.5"))
	require.NoError(t, err)
	assert.Equal(t, metric.UnitNone, token.Unit)
}

func TestParse_Invalid(t *testing.T) {
	n := New()

	inputs := []string{
		"",
		"$",
		"12 zonks",
		"1,23,4",
		"$1.2%",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, err := n.Parse(span(input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrNormalization), "expected a normalization error for %q, got %v", input, err)
		})
	}
}

// Round-trip stability: re-parsing the canonical base-unit string must
// yield the same value
func TestParse_CanonicalRoundTrip(t *testing.T) {
	n := New()

	inputs := []string{
		"$1.23",
		"$4.5B",
		"(2,500)",
		"42.5%",
		"1,200,000,000",
		"-0.07",
		"3.4bn",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			first, err := n.Parse(span(input))
			require.NoError(t, err)

			canonical := first.Canonical()
			second, err := n.Parse(span(canonical))
			require.NoError(t, err)

			assert.True(t, first.Value.Equal(second.Value),
				"round trip changed value: %s -> %s -> %s", input, canonical, second.Value)
		})
	}
}

func TestScan(t *testing.T) {
	n := New()

	text := "Diluted EPS of $1.23 beat estimates; revenue rose to $4.5B"
	tokens, skips := n.Scan(text)

	require.Len(t, tokens, 2)
	assert.Empty(t, skips)

	assert.Equal(t, "1.23", tokens[0].Value.String())
	assert.Equal(t, "$1.23", tokens[0].Span.Text)
	assert.Equal(t, "4500000000", tokens[1].Value.String())

	// Offsets point back into the original text
	for _, token := range tokens {
		assert.Equal(t, token.Span.Text, text[token.Span.Start:token.Span.End])
	}
}

func TestScan_AccountingLoss(t *testing.T) {
	n := New()

	tokens, _ := n.Scan("posted a net loss of (2,500) for the quarter")
	require.Len(t, tokens, 1)
	assert.Equal(t, "-2500", tokens[0].Value.String())
}

func TestScan_UnbalancedParen(t *testing.T) {
	n := New()

	// The close paren belongs to the sentence, not the number
	tokens, _ := n.Scan("(revenue was 2,500) according to the filing")
	require.Len(t, tokens, 1)
	assert.Equal(t, "2500", tokens[0].Value.String())
}

func TestScan_SkipsMalformed(t *testing.T) {
	n := New()

	// "3 2025" false-merges under the space separator and fails every
	// configured convention; the skip is reported, not fatal
	tokens, skips := n.Scan("Q3 2025 revenue was $10M")
	require.NotEmpty(t, skips)
	require.Len(t, tokens, 1)
	assert.Equal(t, "10000000", tokens[0].Value.String())
}

func TestConventionsByName(t *testing.T) {
	convs, err := ConventionsByName([]string{"us", "eu"})
	require.NoError(t, err)
	require.Len(t, convs, 2)
	assert.Equal(t, ConventionUS, convs[0])

	_, err = ConventionsByName([]string{"martian"})
	require.Error(t, err)

	convs, err = ConventionsByName(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConventions(), convs)
}
