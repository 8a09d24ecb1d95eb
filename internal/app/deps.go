package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/nats-io/nats.go"
	"github.com/openai/openai-go/v3"

	"simcheck/internal/blob"
	"simcheck/internal/cache"
	"simcheck/internal/config"
	"simcheck/internal/documents"
	"simcheck/internal/embeddings"
	"simcheck/internal/llm"
	"simcheck/internal/logger"
	"simcheck/internal/orchestrator"
	"simcheck/internal/queue"
	"simcheck/internal/reports"
	"simcheck/internal/scoring"
	"simcheck/internal/store"
	"simcheck/internal/websearch"
)

// Deps bundles common runtime dependencies for the gateway, worker and CLI.
type Deps struct {
	Config config.Config
	Log    *slog.Logger

	Store  store.Store
	Blobs  blob.Store
	Queue  queue.Queue // nil when QUEUE_PROVIDER=none
	Cache  cache.Cache
	Engine scoring.Engine
	Web    websearch.Provider

	Reports    *reports.Manager
	Documents  *documents.Registry
	Uploader   *documents.Uploader
	Comparer   *orchestrator.Comparer
	WebChecker *orchestrator.WebChecker

	closers []func() error
}

// Build loads env, config, and shared components.
func Build() (Deps, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Deps{}, fmt.Errorf("failed to load environment variables: %w", err)
	}
	cfg := config.Load()
	log := logger.NewWithFormat(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	return BuildWith(context.Background(), cfg, log)
}

// BuildWith wires every component from an already loaded config.
func BuildWith(ctx context.Context, cfg config.Config, log *slog.Logger) (Deps, error) {
	d := Deps{Config: cfg, Log: log}

	st, err := buildStore(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize store: %w", err)
	}
	d.Store = st
	if c, ok := st.(interface{ Close() error }); ok {
		d.closers = append(d.closers, c.Close)
	}

	if d.Blobs, err = buildBlobs(ctx, cfg, log, &d); err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize blob store: %w", err)
	}
	if d.Queue, err = buildQueue(cfg, log, &d); err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize queue: %w", err)
	}
	if d.Cache, err = buildCache(cfg, log); err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	d.closers = append(d.closers, d.Cache.Close)

	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	if d.Engine, err = buildEngine(cfg, log); err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize scoring engine: %w", err)
	}
	if d.Web, err = buildWeb(cfg, log, llmClient); err != nil {
		d.Close()
		return Deps{}, fmt.Errorf("failed to initialize web search: %w", err)
	}
	return Assemble(d), nil
}

// Assemble builds the services on top of the collaborators already set in d.
// A nil Cache is replaced by the no-op cache.
func Assemble(d Deps) Deps {
	if d.Cache == nil {
		d.Cache = cache.NewNoOpCache()
	}
	cfg := d.Config
	opts := orchestrator.Options{
		WorkerLimit: cfg.WorkerLimit,
		Call: orchestrator.CallPolicy{
			Timeout:  cfg.CallTimeout,
			Attempts: cfg.RetryAttempts,
			Base:     cfg.RetryBase,
		},
	}
	texts := orchestrator.NewTextLoader(d.Blobs)

	d.Reports = reports.NewManager(d.Store, d.Blobs, d.Log)
	d.Documents = documents.NewRegistry(d.Store, d.Blobs, d.Cache, d.Log)
	d.Uploader = documents.NewUploader(d.Store, d.Blobs, documents.UploadOptions{
		AllowedExtensions: cfg.AllowedExtensions,
		MaxSize:           cfg.MaxUploadSize,
		Dedup:             cfg.DedupPolicy,
		WorkerLimit:       cfg.WorkerLimit,
	}, d.Log)
	d.Comparer = orchestrator.NewComparer(d.Store, texts, d.Engine, d.Reports, opts, d.Log)
	d.WebChecker = orchestrator.NewWebChecker(d.Store, texts, d.Web, d.Reports, opts, d.Log).
		WithCache(d.Cache, cfg.WebCheckCacheTTL)
	return d
}

// Close releases connections opened by BuildWith, last opened first.
func (d Deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil && d.Log != nil {
			d.Log.Warn("failed to close dependency", "err", err)
		}
	}
}

func buildStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	switch cfg.StoreProvider {
	case "memory":
		log.Info("using in-memory store")
		return store.NewMemory(), nil
	case "postgres":
		if cfg.DBURL == "" {
			return nil, fmt.Errorf("DB_URL is required when STORE_PROVIDER=postgres")
		}
		db, err := store.NewPostgres(cfg.DBURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres: %w", err)
		}
		log.Info("using Postgres store")
		return db, nil
	default:
		return nil, fmt.Errorf("invalid STORE_PROVIDER: %s (valid options: memory, postgres)", cfg.StoreProvider)
	}
}

func buildBlobs(ctx context.Context, cfg config.Config, log *slog.Logger, d *Deps) (blob.Store, error) {
	switch cfg.BlobProvider {
	case "memory":
		log.Info("using in-memory blob store")
		return blob.NewMemory(), nil
	case "local":
		bs, err := blob.NewLocal(cfg.BlobDir)
		if err != nil {
			return nil, err
		}
		log.Info("using local blob store", "dir", cfg.BlobDir)
		return bs, nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3_BUCKET is required when BLOB_PROVIDER=s3")
		}
		bs, err := blob.NewS3(ctx, blob.S3Config{
			Bucket:       cfg.S3Bucket,
			Prefix:       cfg.S3Prefix,
			Region:       cfg.S3Region,
			Profile:      cfg.S3Profile,
			UsePathStyle: cfg.S3UsePathStyle,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3: %w", err)
		}
		log.Info("using S3 blob store", "bucket", cfg.S3Bucket)
		return bs, nil
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCS_BUCKET is required when BLOB_PROVIDER=gcs")
		}
		bs, err := blob.NewGCS(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize GCS: %w", err)
		}
		d.closers = append(d.closers, bs.Close)
		log.Info("using GCS blob store", "bucket", cfg.GCSBucket)
		return bs, nil
	default:
		return nil, fmt.Errorf("invalid BLOB_PROVIDER: %s (valid options: local, memory, s3, gcs)", cfg.BlobProvider)
	}
}

func buildQueue(cfg config.Config, log *slog.Logger, d *Deps) (queue.Queue, error) {
	switch cfg.QueueProvider {
	case "none":
		log.Info("no queue configured; async jobs are disabled")
		return nil, nil
	case "nats":
		if cfg.QueueURL == "" {
			return nil, fmt.Errorf("QUEUE_URL is required when QUEUE_PROVIDER=nats")
		}
		nc, err := nats.Connect(cfg.QueueURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}
		d.closers = append(d.closers, func() error { return nc.Drain() })
		log.Info("using NATS queue")
		return queue.NewNATS(log, nc), nil
	default:
		return nil, fmt.Errorf("invalid QUEUE_PROVIDER: %s (valid options: none, nats)", cfg.QueueProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "none":
		return cache.NewNoOpCache(), nil
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			log.Warn("redis unavailable; web-check caching disabled", "addr", cfg.RedisAddr, "err", err)
			return cache.NewNoOpCache(), nil
		}
		log.Info("using Redis cache", "addr", cfg.RedisAddr, "ttl", cfg.WebCheckCacheTTL)
		return c, nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "none":
		return nil, nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
		client, err := llm.NewOpenAIClient(cfg.OpenAIKey, openai.ChatModel(cfg.LLMModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI LLM client", "model", cfg.LLMModel)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid options: none, openai)", cfg.LLMProvider)
	}
}

func buildEngine(cfg config.Config, log *slog.Logger) (scoring.Engine, error) {
	switch cfg.ScoringProvider {
	case "tfidf":
		log.Info("using local TF-IDF scoring engine")
		return scoring.NewTFIDF(), nil
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when SCORING_PROVIDER=openai")
		}
		embedder, err := embeddings.NewOpenAIEmbedder(cfg.OpenAIKey, openai.EmbeddingModel(cfg.EmbeddingModel))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI embedder: %w", err)
		}
		log.Info("using OpenAI embedding scoring engine", "model", cfg.EmbeddingModel)
		return scoring.NewEmbedding(embedder), nil
	case "http":
		if cfg.ScoringURL == "" {
			return nil, fmt.Errorf("SCORING_URL is required when SCORING_PROVIDER=http")
		}
		engine, err := scoring.NewHTTP(cfg.ScoringURL)
		if err != nil {
			return nil, err
		}
		log.Info("using remote scoring engine", "url", cfg.ScoringURL)
		return engine, nil
	default:
		return nil, fmt.Errorf("invalid SCORING_PROVIDER: %s (valid options: tfidf, openai, http)", cfg.ScoringProvider)
	}
}

func buildWeb(cfg config.Config, log *slog.Logger, assessor llm.Client) (websearch.Provider, error) {
	switch cfg.WebProvider {
	case "none":
		log.Info("web search disabled")
		return websearch.Disabled{}, nil
	case "serper":
		if cfg.SerperAPIKey == "" {
			log.Warn("SERPER_API_KEY is not set; web checks will fail until it is configured")
			return websearch.Disabled{}, nil
		}
		searcher, err := websearch.NewSerper(cfg.SerperAPIKey, cfg.SerperURL)
		if err != nil {
			return nil, err
		}
		log.Info("using Serper web search", "llm_summary", assessor != nil)
		return websearch.NewPipeline(searcher, websearch.NewReadabilityFetcher(), assessor, websearch.Options{
			ResultsPerQuery: cfg.WebResultsPerQuery,
			MaxSources:      cfg.WebMaxSources,
		}, log), nil
	default:
		return nil, fmt.Errorf("invalid WEB_PROVIDER: %s (valid options: serper, none)", cfg.WebProvider)
	}
}
