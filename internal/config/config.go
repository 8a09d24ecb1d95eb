package config

import (
	"log/slog"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration shared by the gateway, worker and CLI.
type Config struct {
	// Server
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // "json" or "text"

	// Upload limits
	MaxUploadSize     int64    `env:"MAX_UPLOAD_SIZE" envDefault:"10485760"` // 10MB in bytes
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envDefault:"pdf,doc,docx,txt" envSeparator:","`
	DedupPolicy       string   `env:"DEDUP_POLICY" envDefault:"none"` // "none" or "content-hash"

	// Store (document, job and report records)
	StoreProvider string `env:"STORE_PROVIDER" envDefault:"memory"` // "memory" or "postgres"
	DBURL         string `env:"DB_URL"`

	// Blob (document and report bytes)
	BlobProvider   string `env:"BLOB_PROVIDER" envDefault:"local"` // "local", "memory", "s3" or "gcs"
	BlobDir        string `env:"BLOB_DIR" envDefault:"data"`
	S3Bucket       string `env:"S3_BUCKET"`
	S3Region       string `env:"S3_REGION"`
	S3Profile      string `env:"S3_PROFILE"`
	S3Prefix       string `env:"S3_PREFIX"`
	S3UsePathStyle bool   `env:"S3_USE_PATH_STYLE" envDefault:"false"`
	GCSBucket      string `env:"GCS_BUCKET"`
	GCSPrefix      string `env:"GCS_PREFIX"`

	// Queue (async comparison and web-check jobs)
	QueueProvider string `env:"QUEUE_PROVIDER" envDefault:"none"` // "none" or "nats"
	QueueURL      string `env:"QUEUE_URL"`

	// Cache (web-check results); a zero TTL disables caching
	CacheProvider    string        `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr        string        `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword    string        `env:"REDIS_PASSWORD"`
	WebCheckCacheTTL time.Duration `env:"WEB_CHECK_CACHE_TTL" envDefault:"0s"`

	// Scoring engine
	ScoringProvider string `env:"SCORING_PROVIDER" envDefault:"tfidf"` // "tfidf", "openai" or "http"
	ScoringURL      string `env:"SCORING_URL"`

	// Web search provider
	WebProvider        string `env:"WEB_PROVIDER" envDefault:"serper"` // "serper" or "none"
	SerperAPIKey       string `env:"SERPER_API_KEY"`
	SerperURL          string `env:"SERPER_URL" envDefault:"https://google.serper.dev/search"`
	WebResultsPerQuery int    `env:"WEB_RESULTS_PER_QUERY" envDefault:"5"`
	WebMaxSources      int    `env:"WEB_MAX_SOURCES" envDefault:"5"`

	// LLM & Embeddings
	LLMProvider    string `env:"LLM_PROVIDER" envDefault:"none"` // "openai" or "none"
	OpenAIKey      string `env:"OPENAI_API_KEY"`
	LLMModel       string `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	EmbeddingModel string `env:"EMBEDDING_MODEL" envDefault:"text-embedding-3-small"`

	// Orchestration
	WorkerLimit   int           `env:"WORKER_LIMIT" envDefault:"4"`
	CallTimeout   time.Duration `env:"CALL_TIMEOUT" envDefault:"30s"`
	RetryAttempts int           `env:"RETRY_ATTEMPTS" envDefault:"2"`
	RetryBase     time.Duration `env:"RETRY_BASE" envDefault:"200ms"`
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
