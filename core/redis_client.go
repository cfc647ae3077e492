// Package core provides Redis client abstractions shared by the gateway's
// optional distributed-state backends.
//
// Redis is advisory everywhere it is used in this service: the result
// cache (C8) treats it as a warm hint, never a source of truth, and the
// proof ledger (C9) never touches it at all. If Redis is unreachable the
// gateway falls back to in-process state rather than failing requests.
//
// Database allocation:
//   - DB 0: result cache (C8)
//   - DB 1-15: unused; the velocity limiter (C2) and circuit breaker (C3)
//     keep their state in process only
package core

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisClient provides a simplified Redis interface with DB isolation and
// key namespacing.
type RedisClient struct {
	client    *redis.Client
	dbID      int
	namespace string
	logger    Logger
}

// RedisClientOptions configures the Redis client.
type RedisClientOptions struct {
	RedisURL  string
	DB        int
	Namespace string
	Logger    Logger
}

// NewRedisClient creates a new Redis client with the given options,
// verifying connectivity with a bounded ping.
func NewRedisClient(opts RedisClientOptions) (*RedisClient, error) {
	if opts.Logger != nil {
		opts.Logger.Debug("initializing redis client", map[string]interface{}{
			"redis_url": opts.RedisURL,
			"db":        opts.DB,
			"namespace": opts.Namespace,
		})
	}

	if opts.RedisURL == "" {
		return nil, fmt.Errorf("redis URL is required: %w", ErrInvalidConfiguration)
	}

	redisOpt, err := redis.ParseURL(opts.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", ErrInvalidConfiguration)
	}

	if opts.DB >= 0 && opts.DB <= 15 {
		redisOpt.DB = opts.DB
	}

	client := redis.NewClient(redisOpt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		if opts.Logger != nil {
			opts.Logger.Error("failed to connect to redis", map[string]interface{}{
				"error": err.Error(),
				"db":    opts.DB,
			})
		}
		return nil, fmt.Errorf("failed to connect to redis DB %d: %w", opts.DB, ErrConnectionFailed)
	}

	rc := &RedisClient{client: client, dbID: opts.DB, namespace: opts.Namespace, logger: opts.Logger}

	if rc.logger != nil {
		rc.logger.Info("redis client connected", map[string]interface{}{
			"db":        opts.DB,
			"namespace": opts.Namespace,
		})
	}

	return rc, nil
}

// Close closes the Redis connection.
func (r *RedisClient) Close() error {
	return r.client.Close()
}

func (r *RedisClient) GetDB() int          { return r.dbID }
func (r *RedisClient) GetNamespace() string { return r.namespace }

func (r *RedisClient) formatKey(key string) string {
	if r.namespace != "" {
		return fmt.Sprintf("%s:%s", r.namespace, key)
	}
	return key
}

// Get retrieves a value.
func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, r.formatKey(key)).Result()
}

// Set stores a value with optional TTL.
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, r.formatKey(key), value, ttl).Err()
}

// Del deletes keys.
func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	formatted := make([]string, len(keys))
	for i, key := range keys {
		formatted[i] = r.formatKey(key)
	}
	return r.client.Del(ctx, formatted...).Err()
}

// Exists reports whether a key is present.
func (r *RedisClient) Exists(ctx context.Context, key string) (bool, error) {
	n, err := r.client.Exists(ctx, r.formatKey(key)).Result()
	return n > 0, err
}

// Incr increments a counter. No package in this service calls it.
func (r *RedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return r.client.Incr(ctx, r.formatKey(key)).Result()
}

// Expire sets a TTL on a key.
func (r *RedisClient) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return r.client.Expire(ctx, r.formatKey(key), ttl).Err()
}

// ZAdd, ZRemRangeByScore, ZCard and ZCount are sorted-set helpers suited
// to a Redis-resident sliding window. No package in this service calls
// them; the velocity limiter keeps its windows in process.
func (r *RedisClient) ZAdd(ctx context.Context, key string, members ...*redis.Z) error {
	return r.client.ZAdd(ctx, r.formatKey(key), members...).Err()
}

func (r *RedisClient) ZRemRangeByScore(ctx context.Context, key string, min, max string) error {
	return r.client.ZRemRangeByScore(ctx, r.formatKey(key), min, max).Err()
}

func (r *RedisClient) ZCard(ctx context.Context, key string) (int64, error) {
	return r.client.ZCard(ctx, r.formatKey(key)).Result()
}

func (r *RedisClient) ZCount(ctx context.Context, key string, min, max string) (int64, error) {
	return r.client.ZCount(ctx, r.formatKey(key), min, max).Result()
}

// HealthCheck verifies Redis connectivity.
func (r *RedisClient) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Standard DB allocation for this service's optional Redis-backed tiers.
const (
	RedisDBCache          = 0
	RedisDBVelocity       = 1
	RedisDBCircuitBreaker = 2
)

// GetRedisDBName returns a human-readable name for a DB number, used in
// log fields.
func GetRedisDBName(db int) string {
	switch db {
	case RedisDBCache:
		return "Result Cache"
	case RedisDBVelocity:
		return "Velocity Counters"
	case RedisDBCircuitBreaker:
		return "Circuit Breaker"
	default:
		return fmt.Sprintf("DB %d", db)
	}
}

// Memory adapter: RedisClient implements the Memory interface so it can
// back the cache's advisory tier interchangeably with InMemoryStore.
type redisMemory struct{ client *RedisClient }

// NewRedisMemory wraps a RedisClient as a Memory implementation scoped to
// the result cache's DB and namespace.
func NewRedisMemory(client *RedisClient) Memory {
	return &redisMemory{client: client}
}

func (m *redisMemory) Get(ctx context.Context, key string) (string, error) {
	v, err := m.client.Get(ctx, key)
	if err == redis.Nil {
		return "", nil
	}
	return v, err
}

func (m *redisMemory) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return m.client.Set(ctx, key, value, ttl)
}

func (m *redisMemory) Delete(ctx context.Context, key string) error {
	return m.client.Del(ctx, key)
}

func (m *redisMemory) Exists(ctx context.Context, key string) (bool, error) {
	return m.client.Exists(ctx, key)
}
