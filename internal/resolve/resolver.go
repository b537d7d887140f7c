package resolve

import (
	"math"
	"sort"

	"midas/internal/domain/metric"
	"midas/internal/metrics"
	"midas/pkg/logger"
)

// maxAlternatives caps how many runner-up candidates a result carries.
const maxAlternatives = 3

// Resolver picks a single winning candidate per metric kind, or marks the
// kind ambiguous when the evidence does not separate the contenders.
type Resolver struct {
	confidenceFloor    float64
	ambiguityTolerance float64
	valueTolerance     float64
	ranges             map[metric.Kind]metric.MagnitudeRange
	log                *logger.Logger
}

// New creates a Resolver. The ranges map comes from the anchor catalog and
// is used both as a tie-break signal and as a plausibility check.
//
// Note that a confidence near-tie alone does not make a kind ambiguous:
// when the tied candidates agree on the value (within valueTolerance), the
// kind resolves to the earlier mention. AMBIGUOUS is reserved for genuine
// value disagreement or a top candidate below confidenceFloor.
func New(confidenceFloor, ambiguityTolerance, valueTolerance float64, ranges map[metric.Kind]metric.MagnitudeRange) *Resolver {
	return &Resolver{
		confidenceFloor:    confidenceFloor,
		ambiguityTolerance: ambiguityTolerance,
		valueTolerance:     valueTolerance,
		ranges:             ranges,
		log:                logger.Get().With("component", "resolver"),
	}
}

// Resolve decides the outcome for one metric kind given its candidates.
// Candidates of other kinds are ignored.
func (r *Resolver) Resolve(kind metric.Kind, candidates []metric.Candidate) metric.Result {
	pool := make([]metric.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Kind == kind {
			pool = append(pool, c)
		}
	}

	if len(pool) == 0 {
		metrics.ResolutionStatus.WithLabelValues(string(kind), string(metric.StatusNotFound)).Inc()
		return metric.Result{Kind: kind, Status: metric.StatusNotFound, Alternatives: []metric.Candidate{}}
	}

	r.rank(kind, pool)

	result := metric.Result{
		Kind:         kind,
		Status:       metric.StatusResolved,
		Chosen:       &pool[0],
		Alternatives: alternatives(pool),
	}

	if r.ambiguous(pool) {
		result.Status = metric.StatusAmbiguous
		result.Chosen = nil
		result.Alternatives = contenders(pool)
		r.log.Debug("ambiguous metric", "kind", kind, "candidates", len(pool), "top_confidence", pool[0].Confidence)
	}

	metrics.ResolutionStatus.WithLabelValues(string(kind), string(result.Status)).Inc()
	return result
}

// rank orders candidates best first: higher confidence wins, then
// plausible magnitude beats implausible, then earlier document position.
func (r *Resolver) rank(kind metric.Kind, pool []metric.Candidate) {
	rng, hasRange := r.ranges[kind]
	sort.SliceStable(pool, func(i, j int) bool {
		a, b := pool[i], pool[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		if hasRange {
			aIn := rng.Contains(a.Token.Value.InexactFloat64())
			bIn := rng.Contains(b.Token.Value.InexactFloat64())
			if aIn != bIn {
				return aIn
			}
		}
		return a.Token.Span.Start < b.Token.Span.Start
	})
}

// ambiguous reports whether the ranked pool fails to produce a clear
// winner. A low-confidence top candidate is always ambiguous; otherwise
// two near-tied candidates are ambiguous only when their values actually
// disagree, near-ties on the same value resolve to the earlier mention.
func (r *Resolver) ambiguous(pool []metric.Candidate) bool {
	top := pool[0]
	if top.Confidence < r.confidenceFloor {
		return true
	}
	if len(pool) < 2 {
		return false
	}

	runnerUp := pool[1]
	if top.Confidence-runnerUp.Confidence >= r.ambiguityTolerance {
		return false
	}
	return r.valuesDisagree(top, runnerUp)
}

func (r *Resolver) valuesDisagree(a, b metric.Candidate) bool {
	av := a.Token.Value.InexactFloat64()
	bv := b.Token.Value.InexactFloat64()
	if av == bv {
		return false
	}

	scale := math.Max(math.Abs(av), math.Abs(bv))
	if scale == 0 {
		return true
	}
	return math.Abs(av-bv)/scale > r.valueTolerance
}

// alternatives returns the runner-up candidates, best first, capped.
func alternatives(pool []metric.Candidate) []metric.Candidate {
	if len(pool) <= 1 {
		return []metric.Candidate{}
	}
	return capped(pool[1:])
}

// contenders returns the top candidates of an ambiguous pool, the former
// front-runner included since no winner was chosen.
func contenders(pool []metric.Candidate) []metric.Candidate {
	return capped(pool)
}

func capped(pool []metric.Candidate) []metric.Candidate {
	if len(pool) > maxAlternatives {
		pool = pool[:maxAlternatives]
	}
	out := make([]metric.Candidate, len(pool))
	copy(out, pool)
	return out
}
