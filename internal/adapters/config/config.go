package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"midas/pkg/errors"
)

type Config struct {
	App           AppConfig
	Kafka         KafkaConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Pipeline      PipelineConfig
	Model         ModelConfig
	Catalog       CatalogConfig
	Snapshot      SnapshotConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"midas"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type KafkaConfig struct {
	Brokers        []string `envconfig:"KAFKA_BROKERS" required:"true"`
	GroupID        string   `envconfig:"KAFKA_GROUP_ID" default:"midas"`
	DocumentsTopic string   `envconfig:"KAFKA_DOCUMENTS_TOPIC" default:"documents.raw"`
	RecordsTopic   string   `envconfig:"KAFKA_RECORDS_TOPIC" default:"records.fused"`
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST" required:"true"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"market"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" required:"true"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PipelineConfig holds the tunables of the extraction and fusion pipeline.
// All values have working defaults; none are required.
type PipelineConfig struct {
	// Extraction
	ProximityWindowTokens int `envconfig:"PIPELINE_PROXIMITY_WINDOW_TOKENS" default:"12"`

	// Separator conventions tried in priority order when parsing numbers
	SeparatorConventions []string `envconfig:"PIPELINE_SEPARATOR_CONVENTIONS" default:"us,eu"`

	// Resolution. Near-tied candidates within AmbiguityTolerance are only
	// AMBIGUOUS when their values also disagree beyond ValueTolerance;
	// near-ties on the same figure resolve to the earlier mention.
	ConfidenceFloor    float64 `envconfig:"PIPELINE_CONFIDENCE_FLOOR" default:"0.35"`
	AmbiguityTolerance float64 `envconfig:"PIPELINE_AMBIGUITY_TOLERANCE" default:"0.05"`
	ValueTolerance     float64 `envconfig:"PIPELINE_VALUE_TOLERANCE" default:"0.02"` // relative disagreement between top candidates

	// Sentiment blend weights (normalized at load if they don't sum to 1)
	LexiconWeight float64 `envconfig:"PIPELINE_LEXICON_WEIGHT" default:"0.4"`
	ModelWeight   float64 `envconfig:"PIPELINE_MODEL_WEIGHT" default:"0.6"`

	// Fusion
	MarketMatchTolerance time.Duration `envconfig:"PIPELINE_MARKET_MATCH_TOLERANCE" default:"24h"`

	// Per-call timeout for the model scorer
	ModelTimeout time.Duration `envconfig:"PIPELINE_MODEL_TIMEOUT" default:"5s"`

	// Worker pool size; 0 means number of CPUs
	MaxConcurrency int `envconfig:"PIPELINE_MAX_CONCURRENCY" default:"0"`
}

type ModelConfig struct {
	// Provider selects the sentiment model scorer: onnx, openai or none.
	// "none" runs lexicon-only scoring with a reduced-confidence flag.
	Provider string `envconfig:"MODEL_PROVIDER" default:"onnx"`

	ONNXModelPath string `envconfig:"MODEL_ONNX_PATH" default:"models/finbert.onnx"`
	ONNXVocabPath string `envconfig:"MODEL_ONNX_VOCAB_PATH" default:"models/vocab.txt"`
	MaxSeqLength  int    `envconfig:"MODEL_MAX_SEQ_LENGTH" default:"512"`

	OpenAIKey    string  `envconfig:"OPENAI_API_KEY"`
	OpenAIModel  string  `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	RateLimitRPS float64 `envconfig:"MODEL_RATE_LIMIT_RPS" default:"5"`
}

type CatalogConfig struct {
	// Optional paths to YAML overrides; empty means built-in defaults
	AnchorsPath string `envconfig:"CATALOG_ANCHORS_PATH"`
	LexiconPath string `envconfig:"CATALOG_LEXICON_PATH"`
}

type SnapshotConfig struct {
	// Tickers whose snapshots the refresher keeps warm in Redis
	Tickers         []string      `envconfig:"SNAPSHOT_TICKERS"`
	RefreshInterval time.Duration `envconfig:"SNAPSHOT_REFRESH_INTERVAL" default:"5m"`
	RefreshEnabled  bool          `envconfig:"SNAPSHOT_REFRESH_ENABLED" default:"true"`
	CacheTTL        time.Duration `envconfig:"SNAPSHOT_CACHE_TTL" default:"15m"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	if err := cfg.Pipeline.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// normalize validates and normalizes pipeline tunables
func (p *PipelineConfig) normalize() error {
	if p.ProximityWindowTokens <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "proximity window must be positive, got %d", p.ProximityWindowTokens)
	}
	if p.ConfidenceFloor < 0 || p.ConfidenceFloor > 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "confidence floor must be in [0,1], got %f", p.ConfidenceFloor)
	}
	if p.AmbiguityTolerance < 0 || p.AmbiguityTolerance > 1 {
		return errors.Wrapf(errors.ErrInvalidInput, "ambiguity tolerance must be in [0,1], got %f", p.AmbiguityTolerance)
	}

	sum := p.LexiconWeight + p.ModelWeight
	if sum <= 0 {
		return errors.Wrapf(errors.ErrInvalidInput, "sentiment blend weights must sum to a positive value")
	}
	p.LexiconWeight /= sum
	p.ModelWeight /= sum

	return nil
}
