// Package config provides configuration management for the cache-mate service.
// It handles loading configuration from environment variables with sensible defaults
// and validates the configuration to ensure the application starts safely.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//   - TLS_CERT_FILE, TLS_KEY_FILE: Serve HTTPS when both are set
//
// Redis Configuration:
//   - REDIS_ADDRESSES: Comma-separated Redis endpoints (default: localhost:6379)
//   - REDIS_TOPOLOGY: "standalone" or "cluster" (default: standalone)
//   - REDIS_TLS: Connect over TLS (default: false)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15, standalone only (default: 0)
//   - REDIS_TIMEOUT: Connect and command timeout (default: 60s)
//   - REDIS_POOL_SIZE: Connection pool size (default: 5)
//   - REDIS_MIN_IDLE: Minimum idle connections (default: 1)
//   - REDIS_RETRY_ATTEMPTS: Command retries in cluster mode (default: 10)
//
// Cache Configuration:
//   - CACHE_LOCAL_CAPACITY: Local snapshot entries per cache (default: 100)
//   - CACHE_EVICTION_POLICY: Local eviction policy, LRU only (default: LRU)
//   - CACHE_SYNC_STRATEGY: UPDATE, or NONE for single-process use (default: UPDATE)
//   - CACHE_RESYNC_SCHEDULE: Cron spec for dropping local snapshots; empty disables (default: @every 15m)
//   - CACHE_BREAKER_MAX_FAILURES: Consecutive remote failures before the breaker opens (default: 5)
//   - CACHE_BREAKER_TIMEOUT: How long the breaker stays open (default: 30s)
//
// Rate Limiting:
//   - RATE_LIMIT_RPS: API requests per second per client; 0 disables (default: 0)
//   - RATE_LIMIT_BURST: Requests allowed in a burst (default: 20)
//
// Example usage:
//
//	cfg := config.Load()
//	if err := cfg.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"cache-mate/internal/circuitbreaker"
	"cache-mate/internal/nearcache"
	"cache-mate/internal/ratelimit"
	rediscli "cache-mate/internal/redis"
	"cache-mate/internal/resync"
)

// Config holds all configuration values for the cache-mate service.
// String fields mirror environment variables and are parsed by the accessor methods
// after Validate has accepted them.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)
	TLSCert  string // Path to the TLS certificate, empty for plain HTTP
	TLSKey   string // Path to the TLS private key

	// Redis connection
	RedisAddresses     string // Comma-separated host:port list
	RedisTopology      string // standalone or cluster
	RedisTLS           bool   // Whether to dial TLS
	RedisPassword      string // Redis authentication password
	RedisDB            string // Redis database number (0-15)
	RedisTimeout       string // Connection timeout (e.g. "60s")
	RedisPoolSize      string // Connection pool size
	RedisMinIdle       string // Minimum idle connections
	RedisRetryAttempts string // Cluster retry attempts

	// Local cache behaviour
	CacheLocalCapacity  string
	CacheEvictionPolicy string
	CacheSyncStrategy   string
	CacheResyncSchedule string

	// Remote call protection
	BreakerMaxFailures string
	BreakerTimeout     string

	// API throttling
	RateLimitRPS   string
	RateLimitBurst string
}

// Load creates a new Config instance with values loaded from environment variables.
// If an environment variable is not set, the corresponding default value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		TLSCert:  getEnv("TLS_CERT_FILE", ""),
		TLSKey:   getEnv("TLS_KEY_FILE", ""),

		RedisAddresses:     getEnv("REDIS_ADDRESSES", "localhost:6379"),
		RedisTopology:      getEnv("REDIS_TOPOLOGY", string(rediscli.TopologyStandalone)),
		RedisTLS:           getBoolEnv("REDIS_TLS", false),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnv("REDIS_DB", "0"),
		RedisTimeout:       getEnv("REDIS_TIMEOUT", "60s"),
		RedisPoolSize:      getEnv("REDIS_POOL_SIZE", "5"),
		RedisMinIdle:       getEnv("REDIS_MIN_IDLE", "1"),
		RedisRetryAttempts: getEnv("REDIS_RETRY_ATTEMPTS", "10"),

		CacheLocalCapacity:  getEnv("CACHE_LOCAL_CAPACITY", strconv.Itoa(nearcache.DefaultCapacity)),
		CacheEvictionPolicy: getEnv("CACHE_EVICTION_POLICY", string(nearcache.EvictionLRU)),
		CacheSyncStrategy:   getEnv("CACHE_SYNC_STRATEGY", string(nearcache.SyncUpdate)),
		CacheResyncSchedule: getEnvAllowEmpty("CACHE_RESYNC_SCHEDULE", "@every 15m"),

		BreakerMaxFailures: getEnv("CACHE_BREAKER_MAX_FAILURES", "5"),
		BreakerTimeout:     getEnv("CACHE_BREAKER_TIMEOUT", "30s"),

		RateLimitRPS:   getEnv("RATE_LIMIT_RPS", "0"),
		RateLimitBurst: getEnv("RATE_LIMIT_BURST", "20"),
	}
}

// getEnv retrieves an environment variable value or returns a default value if not set.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAllowEmpty is getEnv for variables where an explicitly empty value means "off"
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

// getBoolEnv retrieves a boolean environment variable value or returns a default value.
//
// This function accepts common boolean representations:
//   - "true", "1", "t", "TRUE", "True" -> true
//   - "false", "0", "f", "FALSE", "False" -> false
//   - Any other value or parsing error -> returns defaultValue
func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// Validate performs validation on the configuration to ensure all values are
// present and well formed.
//
// This method checks:
//   - Field format validation (ports, counts, durations)
//   - Allowed values (topology, eviction policy, sync strategy)
//   - The resync cron expression
func (c *Config) Validate() error {
	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("TLS_CERT_FILE and TLS_KEY_FILE must be set together")
	}

	// Validate Redis config
	if len(c.Addresses()) == 0 {
		return fmt.Errorf("REDIS_ADDRESSES must list at least one endpoint")
	}
	switch rediscli.Topology(c.RedisTopology) {
	case rediscli.TopologyStandalone, rediscli.TopologyCluster:
	default:
		return fmt.Errorf("REDIS_TOPOLOGY must be 'standalone' or 'cluster'")
	}
	if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
		return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
	}
	if d, err := time.ParseDuration(c.RedisTimeout); err != nil || d <= 0 {
		return fmt.Errorf("REDIS_TIMEOUT must be a valid positive duration (e.g., '60s', '1m')")
	}
	if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
		return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
	}
	if minIdle, err := strconv.Atoi(c.RedisMinIdle); err != nil || minIdle < 0 {
		return fmt.Errorf("REDIS_MIN_IDLE must be zero or a positive number")
	}
	if retries, err := strconv.Atoi(c.RedisRetryAttempts); err != nil || retries < 0 {
		return fmt.Errorf("REDIS_RETRY_ATTEMPTS must be zero or a positive number")
	}

	// Validate cache config
	if capacity, err := strconv.Atoi(c.CacheLocalCapacity); err != nil || capacity < 1 {
		return fmt.Errorf("CACHE_LOCAL_CAPACITY must be a positive number")
	}
	if _, err := nearcache.ParseEvictionPolicy(c.CacheEvictionPolicy); err != nil {
		return fmt.Errorf("CACHE_EVICTION_POLICY must be 'LRU'")
	}
	if _, err := nearcache.ParseSyncStrategy(c.CacheSyncStrategy); err != nil {
		return fmt.Errorf("CACHE_SYNC_STRATEGY must be 'UPDATE' or 'NONE'")
	}
	if err := resync.ValidateSchedule(c.CacheResyncSchedule); err != nil {
		return fmt.Errorf("CACHE_RESYNC_SCHEDULE is not a valid cron expression: %w", err)
	}

	// Validate breaker config
	if failures, err := strconv.Atoi(c.BreakerMaxFailures); err != nil || failures < 1 {
		return fmt.Errorf("CACHE_BREAKER_MAX_FAILURES must be a positive number")
	}
	if d, err := time.ParseDuration(c.BreakerTimeout); err != nil || d <= 0 {
		return fmt.Errorf("CACHE_BREAKER_TIMEOUT must be a valid positive duration (e.g., '30s')")
	}

	// Validate rate limit config
	if rps, err := strconv.Atoi(c.RateLimitRPS); err != nil || rps < 0 {
		return fmt.Errorf("RATE_LIMIT_RPS must be zero or a positive number")
	}
	if burst, err := strconv.Atoi(c.RateLimitBurst); err != nil || burst < 1 {
		return fmt.Errorf("RATE_LIMIT_BURST must be a positive number")
	}

	return nil
}

// Addresses splits REDIS_ADDRESSES, dropping blanks
func (c *Config) Addresses() []string {
	var out []string
	for _, addr := range strings.Split(c.RedisAddresses, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}

// Redis returns the connection settings
func (c *Config) Redis() rediscli.Config {
	return rediscli.Config{
		Addresses:     c.Addresses(),
		Topology:      rediscli.Topology(c.RedisTopology),
		TLS:           c.RedisTLS,
		Password:      c.RedisPassword,
		DB:            atoi(c.RedisDB),
		Timeout:       duration(c.RedisTimeout),
		PoolSize:      atoi(c.RedisPoolSize),
		MinIdleConns:  atoi(c.RedisMinIdle),
		RetryAttempts: atoi(c.RedisRetryAttempts),
	}
}

// NearCache returns the options applied to every local cache
func (c *Config) NearCache() nearcache.Options {
	opts := nearcache.DefaultOptions()
	opts.Capacity = atoi(c.CacheLocalCapacity)
	if policy, err := nearcache.ParseEvictionPolicy(c.CacheEvictionPolicy); err == nil {
		opts.EvictionPolicy = policy
	}
	if strategy, err := nearcache.ParseSyncStrategy(c.CacheSyncStrategy); err == nil {
		opts.SyncStrategy = strategy
	}
	return opts
}

// Breaker returns the circuit breaker settings for remote calls
func (c *Config) Breaker() circuitbreaker.Config {
	cfg := circuitbreaker.DefaultConfig()
	cfg.MaxFailures = atoi(c.BreakerMaxFailures)
	cfg.Timeout = duration(c.BreakerTimeout)
	return cfg
}

// RateLimit returns the per-client API throttle; RATE_LIMIT_RPS=0 turns it off
func (c *Config) RateLimit() ratelimit.Config {
	rps := atoi(c.RateLimitRPS)
	return ratelimit.Config{
		RequestsPerSecond: rps,
		BurstSize:         atoi(c.RateLimitBurst),
		Enabled:           rps > 0,
		MaxKeys:           ratelimit.DefaultMaxKeys,
	}
}
