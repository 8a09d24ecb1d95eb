package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simcheck/internal/cache"
	"simcheck/internal/config"
	"simcheck/internal/logger"
	"simcheck/internal/scoring"
	"simcheck/internal/websearch"
)

func memoryConfig() config.Config {
	return config.Config{
		LogLevel:          "info",
		MaxUploadSize:     1 << 20,
		AllowedExtensions: []string{"txt"},
		DedupPolicy:       "none",
		StoreProvider:     "memory",
		BlobProvider:      "memory",
		QueueProvider:     "none",
		CacheProvider:     "none",
		ScoringProvider:   "tfidf",
		WebProvider:       "none",
		LLMProvider:       "none",
		WorkerLimit:       2,
		CallTimeout:       time.Second,
		RetryAttempts:     1,
	}
}

func TestBuildWithMemoryProviders(t *testing.T) {
	d, err := BuildWith(context.Background(), memoryConfig(), logger.Discard())
	require.NoError(t, err)
	defer d.Close()

	assert.Nil(t, d.Queue)
	assert.IsType(t, &cache.NoOpCache{}, d.Cache)
	assert.IsType(t, &scoring.TFIDFEngine{}, d.Engine)
	assert.IsType(t, websearch.Disabled{}, d.Web)
	assert.NotNil(t, d.Reports)
	assert.NotNil(t, d.Documents)
	assert.NotNil(t, d.Uploader)
	assert.NotNil(t, d.Comparer)
	assert.NotNil(t, d.WebChecker)
}

func TestBuildWithProviderErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		msg    string
	}{
		{name: "unknown store", mutate: func(c *config.Config) { c.StoreProvider = "mongo" }, msg: "invalid STORE_PROVIDER"},
		{name: "postgres without url", mutate: func(c *config.Config) { c.StoreProvider = "postgres" }, msg: "DB_URL is required"},
		{name: "unknown blob", mutate: func(c *config.Config) { c.BlobProvider = "ftp" }, msg: "invalid BLOB_PROVIDER"},
		{name: "s3 without bucket", mutate: func(c *config.Config) { c.BlobProvider = "s3" }, msg: "S3_BUCKET is required"},
		{name: "gcs without bucket", mutate: func(c *config.Config) { c.BlobProvider = "gcs" }, msg: "GCS_BUCKET is required"},
		{name: "nats without url", mutate: func(c *config.Config) { c.QueueProvider = "nats" }, msg: "QUEUE_URL is required"},
		{name: "unknown queue", mutate: func(c *config.Config) { c.QueueProvider = "kafka" }, msg: "invalid QUEUE_PROVIDER"},
		{name: "unknown cache", mutate: func(c *config.Config) { c.CacheProvider = "memcached" }, msg: "invalid CACHE_PROVIDER"},
		{name: "openai llm without key", mutate: func(c *config.Config) { c.LLMProvider = "openai" }, msg: "OPENAI_API_KEY is required"},
		{name: "openai scoring without key", mutate: func(c *config.Config) { c.ScoringProvider = "openai" }, msg: "OPENAI_API_KEY is required"},
		{name: "http scoring without url", mutate: func(c *config.Config) { c.ScoringProvider = "http" }, msg: "SCORING_URL is required"},
		{name: "unknown web", mutate: func(c *config.Config) { c.WebProvider = "bing" }, msg: "invalid WEB_PROVIDER"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)
			_, err := BuildWith(context.Background(), cfg, logger.Discard())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestBuildWithSerperWithoutKeyDisablesWeb(t *testing.T) {
	cfg := memoryConfig()
	cfg.WebProvider = "serper"
	d, err := BuildWith(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	assert.IsType(t, websearch.Disabled{}, d.Web)
}

func TestBuildWithLocalBlobs(t *testing.T) {
	cfg := memoryConfig()
	cfg.BlobProvider = "local"
	cfg.BlobDir = t.TempDir()
	d, err := BuildWith(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	assert.NotNil(t, d.Blobs)
}
