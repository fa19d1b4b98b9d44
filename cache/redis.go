package cache

import (
	"context"
	"errors"
	"time"

	"github.com/ZaguanLabs/wordpop"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultKeyPrefix namespaces cached outcomes.
const DefaultKeyPrefix = "wordpop:outcome:"

// opTimeout bounds each Redis round trip; a slow cache must not stall a fetch.
const opTimeout = 500 * time.Millisecond

// RedisCache is a Redis-backed outcome cache shared across processes.
type RedisCache struct {
	client    redis.UniversalClient
	ttl       time.Duration
	keyPrefix string
	logger    zerolog.Logger
}

// RedisConfig holds configuration for the Redis cache.
type RedisConfig struct {
	URL       string // Redis connection URL (e.g., "redis://localhost:6379/0")
	TTL       int    // TTL in seconds (0 = no expiration)
	KeyPrefix string // Prefix for all keys (default: "wordpop:outcome:")
	Logger    *zerolog.Logger
}

// NewRedisCache connects to Redis and verifies the connection.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, &wordpop.CacheError{Message: "invalid redis url", Cause: err}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, &wordpop.CacheError{Message: "redis unreachable", Cause: err}
	}

	c := NewRedisCacheFromClient(client, cfg.TTL, cfg.KeyPrefix)
	if cfg.Logger != nil {
		c.logger = *cfg.Logger
	}
	return c, nil
}

// NewRedisCacheFromClient creates a RedisCache from an existing Redis client.
func NewRedisCacheFromClient(client redis.UniversalClient, ttlSeconds int, keyPrefix string) *RedisCache {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}

	var ttl time.Duration
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}

	return &RedisCache{
		client:    client,
		ttl:       ttl,
		keyPrefix: keyPrefix,
		logger:    zerolog.Nop(),
	}
}

// Get retrieves a value from Redis. Errors are logged and reported as a miss.
func (c *RedisCache) Get(key string) (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	val, err := c.client.Get(ctx, c.keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis cache get failed")
		return "", false
	}
	return val, true
}

// Set stores a value in Redis.
func (c *RedisCache) Set(key string, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	if err := c.client.Set(ctx, c.keyPrefix+key, value, c.ttl).Err(); err != nil {
		return &wordpop.CacheError{Message: "redis set failed", Cause: err}
	}
	return nil
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// Ping tests the Redis connection.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Verify RedisCache implements TranslationCache
var _ TranslationCache = (*RedisCache)(nil)
