package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Pipeline metrics
	DocumentsProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midas_documents_processed_total",
			Help: "Total number of documents processed",
		},
		[]string{"source_type", "status"}, // status: success|invalid|cancelled
	)

	PipelineDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midas_pipeline_duration_seconds",
			Help:    "Per-document pipeline duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		},
		[]string{"source_type"},
	)

	// Extraction metrics
	CandidatesExtracted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midas_candidates_extracted_total",
			Help: "Total number of metric candidates extracted",
		},
		[]string{"kind"},
	)

	ExtractionSkips = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "midas_extraction_skips_total",
			Help: "Total number of malformed numeric spans skipped",
		},
	)

	// Resolution metrics
	ResolutionStatus = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midas_resolution_status_total",
			Help: "Resolution outcomes per metric kind",
		},
		[]string{"kind", "status"}, // status: RESOLVED|AMBIGUOUS|NOT_FOUND
	)

	// Sentiment metrics
	ScorerCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midas_scorer_calls_total",
			Help: "Total number of model scorer calls",
		},
		[]string{"provider", "status"}, // status: success|error|timeout
	)

	ScorerFallbacks = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "midas_scorer_fallbacks_total",
			Help: "Total number of lexicon-only fallbacks",
		},
	)

	ScorerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midas_scorer_latency_seconds",
			Help:    "Model scorer latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"provider"},
	)

	// Fusion metrics
	ConsistencyFlags = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midas_consistency_flags_total",
			Help: "Consistency rule violations recorded on output records",
		},
		[]string{"flag"},
	)

	SnapshotLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midas_snapshot_lookups_total",
			Help: "Market snapshot lookups by result",
		},
		[]string{"result"}, // result: hit|miss|error
	)

	RecordsEmitted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "midas_records_emitted_total",
			Help: "Total number of fused records emitted",
		},
	)

	// Worker metrics
	WorkerExecutions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "midas_worker_executions_total",
			Help: "Total number of worker executions",
		},
		[]string{"worker", "status"}, // status: success|error
	)

	WorkerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "midas_worker_duration_seconds",
			Help:    "Worker execution duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"worker"},
	)
)

// Init registers all metrics with the default registry
func Init() {
	prometheus.MustRegister(DocumentsProcessed)
	prometheus.MustRegister(PipelineDuration)

	prometheus.MustRegister(CandidatesExtracted)
	prometheus.MustRegister(ExtractionSkips)

	prometheus.MustRegister(ResolutionStatus)

	prometheus.MustRegister(ScorerCalls)
	prometheus.MustRegister(ScorerFallbacks)
	prometheus.MustRegister(ScorerLatency)

	prometheus.MustRegister(ConsistencyFlags)
	prometheus.MustRegister(SnapshotLookups)
	prometheus.MustRegister(RecordsEmitted)

	prometheus.MustRegister(WorkerExecutions)
	prometheus.MustRegister(WorkerDuration)
}

// Handler returns the HTTP handler for the /metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordWorkerExecution records a worker execution
func RecordWorkerExecution(worker string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	WorkerExecutions.WithLabelValues(worker, status).Inc()
	WorkerDuration.WithLabelValues(worker).Observe(duration.Seconds())
}
