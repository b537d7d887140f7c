package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"midas/internal/domain/document"
	"midas/internal/domain/fusion"
	"midas/internal/domain/market"
	"midas/internal/domain/metric"
	"midas/internal/domain/sentiment"
	"midas/internal/extract"
	"midas/internal/fuse"
	"midas/internal/metrics"
	"midas/internal/resolve"
	"midas/pkg/errors"
	"midas/pkg/logger"
)

// SentimentScorer scores one document, span scores included.
type SentimentScorer interface {
	Score(ctx context.Context, doc *document.Document, candidates []metric.Candidate) (*sentiment.Result, error)
}

// Pipeline runs one document through extraction, sentiment scoring,
// resolution and fusion. It holds only read-only state and is safe for
// concurrent use across documents.
type Pipeline struct {
	extractor *extract.Extractor
	scorer    SentimentScorer
	resolver  *resolve.Resolver
	fuser     *fuse.Fuser

	snapshots      market.Repository
	matchTolerance time.Duration

	log *logger.Logger
}

// New wires the pipeline stages together. snapshots may be nil when no
// market data source is configured.
func New(
	extractor *extract.Extractor,
	scorer SentimentScorer,
	resolver *resolve.Resolver,
	fuser *fuse.Fuser,
	snapshots market.Repository,
	matchTolerance time.Duration,
) *Pipeline {
	return &Pipeline{
		extractor:      extractor,
		scorer:         scorer,
		resolver:       resolver,
		fuser:          fuser,
		snapshots:      snapshots,
		matchTolerance: matchTolerance,
		log:            logger.Get().With("component", "pipeline"),
	}
}

// Run processes a single document and returns its fused record.
// A malformed document or cancellation aborts the run with an error and
// nothing is produced; every other failure mode degrades into flags on
// the record.
func (p *Pipeline) Run(ctx context.Context, doc *document.Document) (*fusion.Record, error) {
	started := time.Now()

	source := string(doc.SourceType)

	if err := doc.Validate(); err != nil {
		metrics.DocumentsProcessed.WithLabelValues(source, "invalid").Inc()
		return nil, err
	}

	runID := uuid.NewString()
	log := p.log.With("document_id", doc.ID, "run_id", runID)

	candidates := p.extractor.Extract(doc)

	sent, err := p.scorer.Score(ctx, doc, candidates)
	if err != nil {
		metrics.DocumentsProcessed.WithLabelValues(source, "cancelled").Inc()
		return nil, err
	}

	results := make([]metric.Result, 0, len(metric.Kinds()))
	for _, kind := range metric.Kinds() {
		results = append(results, p.resolver.Resolve(kind, candidates))
	}

	snap := p.lookupSnapshot(ctx, doc, log)

	// A cancelled document emits nothing, even when all stages finished.
	if ctx.Err() != nil {
		metrics.DocumentsProcessed.WithLabelValues(source, "cancelled").Inc()
		return nil, ctx.Err()
	}

	rec := p.fuser.Fuse(doc, runID, results, sent, snap)

	metrics.DocumentsProcessed.WithLabelValues(source, "success").Inc()
	metrics.PipelineDuration.WithLabelValues(source).Observe(time.Since(started).Seconds())
	log.Debugf("Document processed in %s (%d candidates, %d flags)",
		time.Since(started), len(candidates), len(rec.ConsistencyFlags))

	return rec, nil
}

// lookupSnapshot finds the market snapshot nearest to the document's
// publication time. Absence of a snapshot, of a ticker hint or of the
// whole market data source is normal and yields nil.
func (p *Pipeline) lookupSnapshot(ctx context.Context, doc *document.Document, log *logger.Logger) *market.Snapshot {
	if p.snapshots == nil || doc.Ticker == "" {
		return nil
	}

	snap, err := p.snapshots.Nearest(ctx, doc.Ticker, doc.PublishedAt, p.matchTolerance)
	switch {
	case err == nil:
		metrics.SnapshotLookups.WithLabelValues("hit").Inc()
		return snap
	case errors.Is(err, errors.ErrNoSnapshot):
		metrics.SnapshotLookups.WithLabelValues("miss").Inc()
		return nil
	default:
		metrics.SnapshotLookups.WithLabelValues("error").Inc()
		log.Warnf("market snapshot lookup failed for %s: %v", doc.Ticker, err)
		return nil
	}
}
