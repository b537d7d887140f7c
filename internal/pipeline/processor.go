package pipeline

import (
	"context"
	"runtime"
	"sync"

	"midas/internal/domain/document"
	"midas/internal/domain/fusion"
	"midas/pkg/logger"
)

// Emitter receives fused records at the output boundary.
type Emitter interface {
	Emit(ctx context.Context, rec *fusion.Record) error
}

// Processor fans documents out over a bounded worker pool. Documents are
// independent, so one worker per document up to the concurrency cap.
type Processor struct {
	pipeline *Pipeline
	emitter  Emitter

	maxConcurrency int
	log            *logger.Logger
}

// NewProcessor creates a bounded processor. maxConcurrency 0 sizes the
// pool to the number of CPUs.
func NewProcessor(pipeline *Pipeline, emitter Emitter, maxConcurrency int) *Processor {
	if maxConcurrency <= 0 {
		maxConcurrency = runtime.NumCPU()
	}

	return &Processor{
		pipeline:       pipeline,
		emitter:        emitter,
		maxConcurrency: maxConcurrency,
		log:            logger.Get().With("component", "processor"),
	}
}

// Process runs one document through the pipeline and emits the record.
// Errors from a single document never affect other documents.
func (p *Processor) Process(ctx context.Context, doc *document.Document) error {
	rec, err := p.pipeline.Run(ctx, doc)
	if err != nil {
		return err
	}
	return p.emitter.Emit(ctx, rec)
}

// ProcessBatch processes documents concurrently under the pool cap and
// returns per-document errors keyed by document id. Output order is not
// defined; consumers key records by document id.
func (p *Processor) ProcessBatch(ctx context.Context, docs []*document.Document) map[string]error {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, p.maxConcurrency)

	var mu sync.Mutex
	failures := make(map[string]error)

	for _, doc := range docs {
		wg.Add(1)
		go func(doc *document.Document) {
			defer wg.Done()

			// Acquire semaphore
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := p.Process(ctx, doc); err != nil {
				p.log.Errorf("Document %s failed: %v", doc.ID, err)

				mu.Lock()
				failures[doc.ID] = err
				mu.Unlock()
			}
		}(doc)
	}

	wg.Wait()
	return failures
}
