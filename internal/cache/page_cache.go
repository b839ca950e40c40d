package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-redis/redis/v8"
)

// PageCache stores rendered pages for a short time.
type PageCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, page []byte) error
}

// RedisPageCache keeps pages in Redis with a fixed TTL.
type RedisPageCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPageCache creates a RedisPageCache. Keys are namespaced under "yatube:page:".
func NewRedisPageCache(client *redis.Client, ttl time.Duration) *RedisPageCache {
	return &RedisPageCache{client: client, prefix: "yatube:page:", ttl: ttl}
}

func (c *RedisPageCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	page, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return page, true, nil
}

func (c *RedisPageCache) Set(ctx context.Context, key string, page []byte) error {
	if err := c.client.Set(ctx, c.prefix+key, page, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// NopPageCache never stores anything.
type NopPageCache struct{}

func (NopPageCache) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }

func (NopPageCache) Set(context.Context, string, []byte) error { return nil }

// IndexKey identifies one cached index page, keyed by the raw page query value and
// the viewer (0 for anonymous) because the layout shows the signed-in user.
func IndexKey(rawPage string, viewerID uint) string {
	return fmt.Sprintf("index:page=%s:viewer=%d", url.QueryEscape(rawPage), viewerID)
}
