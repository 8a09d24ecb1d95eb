package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const webCheckKeyPrefix = "webcheck:"

type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache client
func NewRedisCache(addr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RedisCache{client: client}, nil
}

func webCheckKey(docID, contentHash string) string {
	return webCheckKeyPrefix + docID + ":" + contentHash
}

func docPattern(docID string) string {
	return webCheckKeyPrefix + docID + ":*"
}

func (c *RedisCache) GetWebCheck(ctx context.Context, docID, contentHash string) (*WebCheckEntry, error) {
	data, err := c.client.Get(ctx, webCheckKey(docID, contentHash)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entry WebCheckEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *RedisCache) SetWebCheck(ctx context.Context, docID, contentHash string, entry WebCheckEntry, ttl time.Duration) error {
	entry.Result.Cached = false
	entry.Result.ReportRef = ""
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, webCheckKey(docID, contentHash), data, ttl).Err()
}

// InvalidateDocument deletes every cached result for docID regardless of content hash.
func (c *RedisCache) InvalidateDocument(ctx context.Context, docID string) error {
	iter := c.client.Scan(ctx, 0, docPattern(docID), 0).Iterator()

	pipe := c.client.Pipeline()
	count := 0
	for iter.Next(ctx) {
		pipe.Del(ctx, iter.Val())
		count++
	}
	if err := iter.Err(); err != nil {
		return err
	}

	if count > 0 {
		_, err := pipe.Exec(ctx)
		return err
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
