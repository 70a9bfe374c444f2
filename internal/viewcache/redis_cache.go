package viewcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2beens/fitjournal/internal/telemetry/metrics"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	versionKeyPrefix = "fitjournal-viewcache-ver::"
	valueKeyPrefix   = "fitjournal-viewcache::"
)

var _ Cache = (*RedisCache)(nil)

type RedisCache struct {
	redisClient *redis.Client
	ttl         time.Duration
	metrics     *metrics.Manager
}

func NewRedisCache(redisClient *redis.Client, ttl time.Duration, metricsManager *metrics.Manager) *RedisCache {
	return &RedisCache{
		redisClient: redisClient,
		ttl:         ttl,
		metrics:     metricsManager,
	}
}

func (c *RedisCache) version(ctx context.Context, namespace string) (int64, error) {
	cmd := c.redisClient.Get(ctx, versionKeyPrefix+namespace)
	if err := cmd.Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return cmd.Int64()
}

func (c *RedisCache) valueKey(namespace string, version int64, key string) string {
	return fmt.Sprintf("%s%s::v%d::%s", valueKeyPrefix, namespace, version, key)
}

func (c *RedisCache) Get(ctx context.Context, namespace, key string) ([]byte, bool) {
	version, err := c.version(ctx, namespace)
	if err != nil {
		log.Errorf("view cache, get %s version: %s", namespace, err)
		return nil, false
	}

	cmd := c.redisClient.Get(ctx, c.valueKey(namespace, version, key))
	if err := cmd.Err(); err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Errorf("view cache, get [%s][%s]: %s", namespace, key, err)
		}
		if c.metrics != nil {
			c.metrics.CounterViewCacheMisses.Inc()
		}
		return nil, false
	}

	if c.metrics != nil {
		c.metrics.CounterViewCacheHits.Inc()
	}
	return []byte(cmd.Val()), true
}

func (c *RedisCache) Set(ctx context.Context, namespace, key string, value []byte) {
	version, err := c.version(ctx, namespace)
	if err != nil {
		log.Errorf("view cache, set, get %s version: %s", namespace, err)
		return
	}

	cmd := c.redisClient.Set(ctx, c.valueKey(namespace, version, key), value, c.ttl)
	if err := cmd.Err(); err != nil {
		log.Errorf("view cache, set [%s][%s]: %s", namespace, key, err)
	}
}

func (c *RedisCache) Bump(ctx context.Context, namespaces ...string) {
	for _, namespace := range namespaces {
		cmd := c.redisClient.Incr(ctx, versionKeyPrefix+namespace)
		if err := cmd.Err(); err != nil {
			log.Errorf("view cache, bump %s: %s", namespace, err)
		}
	}
}
