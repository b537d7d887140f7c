package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"midas/internal/adapters/clickhouse"
	"midas/internal/adapters/config"
	"midas/internal/adapters/errors/noop"
	"midas/internal/adapters/errors/sentry"
	"midas/internal/adapters/kafka"
	"midas/internal/adapters/redis"
	"midas/internal/consumers"
	"midas/internal/extract"
	"midas/internal/fuse"
	"midas/internal/metrics"
	"midas/internal/ml"
	"midas/internal/ml/remote"
	"midas/internal/normalize"
	"midas/internal/pipeline"
	clickhouserepo "midas/internal/repository/clickhouse"
	redisrepo "midas/internal/repository/redis"
	"midas/internal/resolve"
	"midas/internal/sentimentscore"
	"midas/internal/workers"
	"midas/pkg/errors"
	"midas/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	metrics.Init()
	startMetricsServer(cfg, log)

	// Storage clients
	chClient, err := clickhouse.NewClient(cfg.ClickHouse)
	if err != nil {
		log.Fatalf("Failed to connect to ClickHouse: %v", err)
	}
	defer chClient.Close()

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()

	// Pattern catalog and sentiment lexicon
	catalog := loadCatalog(cfg, log)
	lexicon := loadLexicon(cfg, log)

	conventions, err := normalize.ConventionsByName(cfg.Pipeline.SeparatorConventions)
	if err != nil {
		log.Fatalf("Invalid separator conventions: %v", err)
	}

	// Model scorer
	model, closeModel := initModelScorer(cfg, log)
	if closeModel != nil {
		defer closeModel()
	}

	// Market snapshot store behind a read-through cache
	snapshotStore := clickhouserepo.NewMarketSnapshotRepository(chClient.Conn())
	snapshotCache := redisrepo.NewSnapshotCache(redisClient, snapshotStore, cfg.Snapshot.CacheTTL)

	// Pipeline stages
	extractor := extract.New(catalog, normalize.New(conventions...), cfg.Pipeline.ProximityWindowTokens)
	scorer := sentimentscore.NewScorer(lexicon, model,
		cfg.Pipeline.LexiconWeight, cfg.Pipeline.ModelWeight, cfg.Pipeline.ModelTimeout)
	resolver := resolve.New(cfg.Pipeline.ConfidenceFloor, cfg.Pipeline.AmbiguityTolerance,
		cfg.Pipeline.ValueTolerance, catalog.Ranges)

	pipe := pipeline.New(extractor, scorer, resolver, fuse.New(),
		snapshotCache, cfg.Pipeline.MarketMatchTolerance)

	// Kafka boundaries
	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
	defer producer.Close()

	emitter := kafka.NewRecordEmitter(producer, cfg.Kafka.RecordsTopic)
	processor := pipeline.NewProcessor(pipe, emitter, cfg.Pipeline.MaxConcurrency)

	docConsumer := consumers.NewDocumentConsumer(
		kafka.NewConsumer(kafka.ConsumerConfig{
			Brokers: cfg.Kafka.Brokers,
			GroupID: cfg.Kafka.GroupID,
			Topic:   cfg.Kafka.DocumentsTopic,
		}),
		processor,
	)
	defer docConsumer.Close()

	// Background workers
	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(workers.NewSnapshotRefresherWorker(
		snapshotStore, snapshotCache,
		cfg.Snapshot.Tickers, cfg.Snapshot.RefreshInterval, cfg.Snapshot.RefreshEnabled,
	))

	log.Info("System initialized successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	go func() {
		if err := docConsumer.Start(ctx); err != nil && ctx.Err() == nil {
			log.Errorf("Document consumer stopped: %v", err)
			cancel()
		}
	}()

	waitForShutdown(ctx, cancel, scheduler, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// startMetricsServer exposes the Prometheus endpoint
func startMetricsServer(cfg *config.Config, log *logger.Logger) {
	if !cfg.Metrics.Enabled {
		return
	}

	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())

		log.Infof("Metrics server listening on %s", cfg.Metrics.Addr)
		if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil {
			log.Errorf("Metrics server failed: %v", err)
		}
	}()
}

// loadCatalog loads the anchor catalog override or the built-in defaults
func loadCatalog(cfg *config.Config, log *logger.Logger) *extract.Catalog {
	if cfg.Catalog.AnchorsPath == "" {
		return extract.DefaultCatalog()
	}

	catalog, err := extract.LoadCatalog(cfg.Catalog.AnchorsPath)
	if err != nil {
		log.Fatalf("Failed to load anchor catalog: %v", err)
	}
	log.Infof("Loaded anchor catalog from %s (%d anchors)", cfg.Catalog.AnchorsPath, len(catalog.Anchors))
	return catalog
}

// loadLexicon loads the sentiment lexicon override or the built-in defaults
func loadLexicon(cfg *config.Config, log *logger.Logger) *sentimentscore.Lexicon {
	if cfg.Catalog.LexiconPath == "" {
		return sentimentscore.DefaultLexicon()
	}

	lexicon, err := sentimentscore.LoadLexicon(cfg.Catalog.LexiconPath)
	if err != nil {
		log.Fatalf("Failed to load sentiment lexicon: %v", err)
	}
	log.Infof("Loaded sentiment lexicon from %s", cfg.Catalog.LexiconPath)
	return lexicon
}

// initModelScorer builds the configured model scorer. Returns a nil
// scorer for provider "none", which runs lexicon-only scoring.
func initModelScorer(cfg *config.Config, log *logger.Logger) (sentimentscore.ModelScorer, func()) {
	switch cfg.Model.Provider {
	case "onnx":
		scorer, err := ml.NewONNXScorer(cfg.Model.ONNXModelPath, cfg.Model.ONNXVocabPath, cfg.Model.MaxSeqLength)
		if err != nil {
			log.Fatalf("Failed to load ONNX sentiment model: %v", err)
		}
		log.Infof("Sentiment model: onnx (%s)", cfg.Model.ONNXModelPath)
		return scorer, scorer.Close

	case "openai":
		scorer, err := remote.NewOpenAIScorer(cfg.Model.OpenAIKey, cfg.Model.OpenAIModel, cfg.Model.RateLimitRPS)
		if err != nil {
			log.Fatalf("Failed to configure OpenAI scorer: %v", err)
		}
		log.Infof("Sentiment model: openai (%s)", cfg.Model.OpenAIModel)
		return scorer, nil

	case "none":
		log.Info("Sentiment model disabled, running lexicon-only")
		return nil, nil

	default:
		log.Fatalf("Unknown model provider %q", cfg.Model.Provider)
		return nil, nil
	}
}

// waitForShutdown blocks until a termination signal, then shuts the
// system down in order.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, scheduler *workers.Scheduler, errorTracker errors.Tracker, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Shutting down...")
	case <-ctx.Done():
		log.Info("Shutting down after internal failure...")
	}

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler stop: %v", err)
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(context.Background()); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
