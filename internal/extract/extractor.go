package extract

import (
	"sort"
	"strings"

	"midas/internal/domain/document"
	"midas/internal/domain/metric"
	"midas/internal/metrics"
	"midas/internal/normalize"
	"midas/pkg/logger"
)

// beforeSidePenalty discounts numeric spans found before an either-side
// anchor: financial prose states the label before the number more often
// than the reverse
const beforeSidePenalty = 0.8

// Extractor scans document text for metric mentions using the anchor
// catalog. It is stateless per document and safe for concurrent use.
type Extractor struct {
	catalog    *Catalog
	normalizer *normalize.Normalizer
	window     int
	log        *logger.Logger
}

// New creates an Extractor with the given catalog and proximity window
// (in tokens)
func New(catalog *Catalog, normalizer *normalize.Normalizer, windowTokens int) *Extractor {
	return &Extractor{
		catalog:    catalog,
		normalizer: normalizer,
		window:     windowTokens,
		log:        logger.Get().With("component", "extractor"),
	}
}

// Extract produces all metric candidates for a document. Zero candidates
// is a normal outcome, not a failure. Malformed numeric spans are skipped
// with a logged extraction-skip event.
func (e *Extractor) Extract(doc *document.Document) []metric.Candidate {
	tokens, skips := e.normalizer.Scan(doc.RawText)

	for _, skip := range skips {
		e.log.Debugf("extraction skip: document=%s span=%q err=%v", doc.ID, skip.Span.Text, skip.Err)
		metrics.ExtractionSkips.Inc()
	}

	if len(tokens) == 0 {
		return nil
	}

	var candidates []metric.Candidate
	for i := range e.catalog.Anchors {
		anchor := &e.catalog.Anchors[i]
		for _, occurrence := range anchor.matches(doc.RawText) {
			found := e.candidatesFor(doc.RawText, anchor, occurrence, tokens)
			for _, c := range found {
				metrics.CandidatesExtracted.WithLabelValues(string(c.Kind)).Inc()
			}
			candidates = append(candidates, found...)
		}
	}

	return candidates
}

type eligibleToken struct {
	token  metric.NumericToken
	dist   int
	before bool
}

// candidatesFor evaluates one anchor occurrence against the numeric
// tokens. Anchors without an ordinal yield a candidate per eligible token
// in the window; ordinal anchors yield only the nth nearest.
func (e *Extractor) candidatesFor(text string, anchor *Anchor, occurrence metric.Span, tokens []metric.NumericToken) []metric.Candidate {
	var eligible []eligibleToken

	for _, token := range tokens {
		if !anchor.acceptsUnit(token.Unit) {
			continue
		}

		before := token.Span.End <= occurrence.Start
		after := token.Span.Start >= occurrence.End
		switch anchor.Side {
		case SideBefore:
			if !before {
				continue
			}
		case SideAfter:
			if !after {
				continue
			}
		case SideEither:
			if !before && !after {
				continue
			}
		}

		dist := tokenDistance(text, occurrence, token.Span)
		if dist > e.window {
			continue
		}

		eligible = append(eligible, eligibleToken{token: token, dist: dist, before: before})
	}

	// Nearest first; on equal distance prefer the span after the anchor,
	// then document order
	sort.SliceStable(eligible, func(i, j int) bool {
		if eligible[i].dist != eligible[j].dist {
			return eligible[i].dist < eligible[j].dist
		}
		if eligible[i].before != eligible[j].before {
			return !eligible[i].before
		}
		return eligible[i].token.Span.Start < eligible[j].token.Span.Start
	})

	if anchor.Ordinal > 0 {
		if len(eligible) < anchor.Ordinal {
			return nil
		}
		eligible = eligible[anchor.Ordinal-1 : anchor.Ordinal]
	}

	candidates := make([]metric.Candidate, 0, len(eligible))
	for _, et := range eligible {
		confidence := anchor.Specificity * e.proximity(et.dist) * anchor.BaseWeight
		if anchor.Side == SideEither && et.before {
			confidence *= beforeSidePenalty
		}
		confidence = clamp01(confidence)

		candidates = append(candidates, metric.Candidate{
			Kind:       anchor.Kind,
			Token:      et.token,
			AnchorID:   anchor.ID,
			Confidence: confidence,
			Context:    contextSpan(text, occurrence, et.token.Span),
		})
	}
	return candidates
}

// proximity maps a token distance to a decay factor in (0,1]
func (e *Extractor) proximity(dist int) float64 {
	if dist < 1 {
		dist = 1
	}
	return float64(e.window-dist+1) / float64(e.window)
}

// tokenDistance counts whitespace-delimited tokens between two spans,
// plus one. Overlapping spans have distance zero.
func tokenDistance(text string, a, b metric.Span) int {
	var gap string
	switch {
	case a.End <= b.Start:
		gap = text[a.End:b.Start]
	case b.End <= a.Start:
		gap = text[b.End:a.Start]
	default:
		return 0
	}
	return len(strings.Fields(gap)) + 1
}

// contextSpan covers the anchor occurrence and the chosen numeric span
func contextSpan(text string, a, b metric.Span) metric.Span {
	start := a.Start
	if b.Start < start {
		start = b.Start
	}
	end := a.End
	if b.End > end {
		end = b.End
	}
	return metric.Span{Start: start, End: end, Text: text[start:end]}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
