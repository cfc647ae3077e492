package core

import "time"

// Environment variable names. No code refers to these constants:
// Config.loadFromEnv reads COGNIGATE_REDIS_URL and COGNIGATE_PORT by their
// literal names, and nothing reads COGNIGATE_DEV_MODE.
const (
	EnvRedisURL = "COGNIGATE_REDIS_URL"
	EnvPort     = "COGNIGATE_PORT"
	EnvDevMode  = "COGNIGATE_DEV_MODE"
)

// Cache defaults (C8).
const (
	// DefaultCacheKeyPrefix namespaces result-cache entries in Redis.
	// Format: <prefix><plan_id>|<sorted policy ids, comma-joined>|<trust_level>|<rigor_mode>
	DefaultCacheKeyPrefix = "cognigate:cache:"

	// DefaultCacheTTL equals CacheConfig's default TTL. No code substitutes
	// it for an unset CacheConfig.TTL.
	DefaultCacheTTL = 5 * time.Minute
)
