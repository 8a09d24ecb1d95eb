package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "LOG_LEVEL", "MAX_UPLOAD_SIZE", "ALLOWED_EXTENSIONS", "DEDUP_POLICY",
		"STORE_PROVIDER", "BLOB_PROVIDER", "QUEUE_PROVIDER", "SCORING_PROVIDER",
		"WORKER_LIMIT", "CALL_TIMEOUT", "RETRY_ATTEMPTS", "WEB_CHECK_CACHE_TTL",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg := Load()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"Port", cfg.Port, 8080},
		{"LogLevel", cfg.LogLevel, "info"},
		{"MaxUploadSize", cfg.MaxUploadSize, int64(10 * 1024 * 1024)},
		{"DedupPolicy", cfg.DedupPolicy, "none"},
		{"StoreProvider", cfg.StoreProvider, "memory"},
		{"BlobProvider", cfg.BlobProvider, "local"},
		{"QueueProvider", cfg.QueueProvider, "none"},
		{"ScoringProvider", cfg.ScoringProvider, "tfidf"},
		{"WorkerLimit", cfg.WorkerLimit, 4},
		{"CallTimeout", cfg.CallTimeout, 30 * time.Second},
		{"RetryAttempts", cfg.RetryAttempts, 2},
		{"WebCheckCacheTTL", cfg.WebCheckCacheTTL, time.Duration(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
	assert.Equal(t, []string{"pdf", "doc", "docx", "txt"}, cfg.AllowedExtensions)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("WORKER_LIMIT", "16")
	t.Setenv("CALL_TIMEOUT", "5s")
	t.Setenv("ALLOWED_EXTENSIONS", "txt,md")

	cfg := Load()

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 16, cfg.WorkerLimit)
	assert.Equal(t, 5*time.Second, cfg.CallTimeout)
	assert.Equal(t, []string{"txt", "md"}, cfg.AllowedExtensions)
}

func TestLoadProviderOverrides(t *testing.T) {
	t.Setenv("STORE_PROVIDER", "postgres")
	t.Setenv("SCORING_PROVIDER", "openai")
	t.Setenv("DEDUP_POLICY", "content-hash")

	cfg := Load()

	assert.Equal(t, "postgres", cfg.StoreProvider)
	assert.Equal(t, "openai", cfg.ScoringProvider)
	assert.Equal(t, "content-hash", cfg.DedupPolicy)
}
