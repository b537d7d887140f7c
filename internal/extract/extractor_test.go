package extract

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"midas/internal/domain/document"
	"midas/internal/domain/metric"
	"midas/internal/normalize"
)

func testDocument(text string) *document.Document {
	return &document.Document{
		ID:          "doc-1",
		RawText:     text,
		SourceType:  document.SourceEarningsReport,
		PublishedAt: time.Date(2025, 7, 24, 13, 0, 0, 0, time.UTC),
		Language:    "en",
	}
}

func newTestExtractor(t *testing.T) *Extractor {
	t.Helper()
	return New(DefaultCatalog(), normalize.New(), 12)
}

func topCandidate(candidates []metric.Candidate, kind metric.Kind) *metric.Candidate {
	var top *metric.Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Kind != kind {
			continue
		}
		if top == nil || c.Confidence > top.Confidence {
			top = c
		}
	}
	return top
}

func TestExtract_EarningsSentence(t *testing.T) {
	e := newTestExtractor(t)

	doc := testDocument("Diluted EPS of $1.23 beat estimates; revenue rose to $4.5B")
	candidates := e.Extract(doc)
	require.NotEmpty(t, candidates)

	eps := topCandidate(candidates, metric.KindEPS)
	require.NotNil(t, eps, "expected an EPS candidate")
	assert.Equal(t, "1.23", eps.Token.Value.String())

	rev := topCandidate(candidates, metric.KindRevenue)
	require.NotNil(t, rev, "expected a revenue candidate")
	assert.Equal(t, "4500000000", rev.Token.Value.String())

	for _, c := range candidates {
		assert.GreaterOrEqual(t, c.Confidence, 0.0)
		assert.LessOrEqual(t, c.Confidence, 1.0)
	}
}

func TestExtract_MultipleCandidatesPerAnchor(t *testing.T) {
	e := newTestExtractor(t)

	doc := testDocument("EPS came in at $0.50, though analysts had pegged it near $0.55")
	candidates := e.Extract(doc)

	var values []string
	for _, c := range candidates {
		if c.Kind == metric.KindEPS {
			values = append(values, c.Token.Value.String())
		}
	}
	assert.Contains(t, values, "0.5")
	assert.Contains(t, values, "0.55")
}

func TestExtract_NearerCandidateScoresHigher(t *testing.T) {
	e := newTestExtractor(t)

	doc := testDocument("EPS came in at $0.50, though analysts had pegged it near $0.55")
	candidates := e.Extract(doc)

	var near, far *metric.Candidate
	for i := range candidates {
		c := &candidates[i]
		if c.Kind != metric.KindEPS {
			continue
		}
		switch c.Token.Value.String() {
		case "0.5":
			near = c
		case "0.55":
			far = c
		}
	}
	require.NotNil(t, near)
	require.NotNil(t, far)
	assert.Greater(t, near.Confidence, far.Confidence)
}

func TestExtract_GuidanceOrdinals(t *testing.T) {
	e := newTestExtractor(t)

	doc := testDocument("The company expects revenue between $4.5B and $4.8B next quarter")
	candidates := e.Extract(doc)

	low := topCandidate(candidates, metric.KindGuidanceLow)
	require.NotNil(t, low)
	assert.Equal(t, "4500000000", low.Token.Value.String())

	high := topCandidate(candidates, metric.KindGuidanceHigh)
	require.NotNil(t, high)
	assert.Equal(t, "4800000000", high.Token.Value.String())
}

func TestExtract_UnitFilter(t *testing.T) {
	e := newTestExtractor(t)

	doc := testDocument("Gross margin expanded to 42.5% in the quarter")
	candidates := e.Extract(doc)

	margin := topCandidate(candidates, metric.KindGrossMargin)
	require.NotNil(t, margin)
	assert.Equal(t, "42.5", margin.Token.Value.String())
	assert.Equal(t, metric.UnitPercent, margin.Token.Unit)

	// A currency amount cannot satisfy the margin anchor
	doc = testDocument("Gross margin was $5")
	candidates = e.Extract(doc)
	assert.Nil(t, topCandidate(candidates, metric.KindGrossMargin))
}

func TestExtract_NoAnchors(t *testing.T) {
	e := newTestExtractor(t)

	doc := testDocument("The weather was pleasant and nothing financial happened at all")
	candidates := e.Extract(doc)
	assert.Empty(t, candidates)
}

func TestExtract_NumberOutsideWindow(t *testing.T) {
	e := New(DefaultCatalog(), normalize.New(), 3)

	doc := testDocument("EPS improved this quarter thanks to many one-off items that we will not enumerate here, coming in at $1.10")
	candidates := e.Extract(doc)
	assert.Nil(t, topCandidate(candidates, metric.KindEPS))
}

func TestExtract_ContextSpanCoversAnchorAndNumber(t *testing.T) {
	e := newTestExtractor(t)

	doc := testDocument("Diluted EPS of $1.23 beat estimates")
	candidates := e.Extract(doc)

	eps := topCandidate(candidates, metric.KindEPS)
	require.NotNil(t, eps)
	assert.Equal(t, doc.RawText[eps.Context.Start:eps.Context.End], eps.Context.Text)
	assert.Contains(t, eps.Context.Text, "$1.23")
}

func TestTokenDistance(t *testing.T) {
	text := "EPS of $1.23 beat estimates"
	anchor := metric.Span{Start: 0, End: 3, Text: "EPS"}
	number := metric.Span{Start: 7, End: 12, Text: "$1.23"}

	assert.Equal(t, 2, tokenDistance(text, anchor, number))
	assert.Equal(t, 2, tokenDistance(text, number, anchor))
	assert.Equal(t, 0, tokenDistance(text, anchor, anchor))
}
