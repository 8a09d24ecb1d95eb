package cache

import (
	"context"
	"time"
)

// NoOpCache never stores anything; every lookup is a miss.
// Used when CACHE_PROVIDER=none or the TTL is zero.
type NoOpCache struct{}

func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

func (c *NoOpCache) GetWebCheck(context.Context, string, string) (*WebCheckEntry, error) {
	return nil, nil
}

func (c *NoOpCache) SetWebCheck(context.Context, string, string, WebCheckEntry, time.Duration) error {
	return nil
}

func (c *NoOpCache) InvalidateDocument(context.Context, string) error {
	return nil
}

func (c *NoOpCache) Close() error {
	return nil
}
