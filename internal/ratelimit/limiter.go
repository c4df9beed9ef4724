// Package ratelimit throttles API callers with one token bucket per client key
package ratelimit

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"cache-mate/internal/common/errors"
)

// DefaultMaxKeys bounds how many client buckets are tracked at once
const DefaultMaxKeys = 10000

// Config represents rate limiter configuration
type Config struct {
	RequestsPerSecond int
	BurstSize         int
	Enabled           bool
	MaxKeys           int
}

// Validate validates the rate limiter configuration and fills defaults
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.RequestsPerSecond <= 0 {
		return errors.ConfigError("requests per second must be positive")
	}
	if c.BurstSize <= 0 {
		c.BurstSize = c.RequestsPerSecond
	}
	if c.MaxKeys <= 0 {
		c.MaxKeys = DefaultMaxKeys
	}
	return nil
}

// Limiter hands out tokens per key. The least recently seen keys are forgotten once MaxKeys
// buckets exist, which resets their budget.
type Limiter struct {
	config  Config
	mu      sync.Mutex
	buckets *lru.Cache[string, *rate.Limiter]
}

// New creates a limiter
func New(config Config) (*Limiter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	l := &Limiter{config: config}
	if !config.Enabled {
		return l, nil
	}

	buckets, err := lru.New[string, *rate.Limiter](config.MaxKeys)
	if err != nil {
		return nil, errors.ConfigError("failed to create rate limiter: " + err.Error())
	}
	l.buckets = buckets
	return l, nil
}

// Enabled reports whether requests are throttled at all
func (l *Limiter) Enabled() bool {
	return l.config.Enabled
}

// Config returns the effective configuration
func (l *Limiter) Config() Config {
	return l.config
}

// TryAcquireForKey takes one token from key's bucket without blocking
func (l *Limiter) TryAcquireForKey(key string) bool {
	if !l.config.Enabled {
		return true
	}
	return l.bucket(key).Allow()
}

func (l *Limiter) bucket(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b, ok := l.buckets.Get(key); ok {
		return b
	}
	b := rate.NewLimiter(rate.Limit(l.config.RequestsPerSecond), l.config.BurstSize)
	l.buckets.Add(key, b)
	return b
}

// Tracked returns the number of client buckets held
func (l *Limiter) Tracked() int {
	if l.buckets == nil {
		return 0
	}
	return l.buckets.Len()
}

// HTTPMiddleware rejects requests over the limit with 429
func HTTPMiddleware(limiter *Limiter, keyFunc func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.TryAcquireForKey(keyFunc(r)) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerSecond))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("Retry-After", "1")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "RateLimitExceeded"})
		})
	}
}

// IPKey extracts the client address, preferring the first X-Forwarded-For hop
func IPKey(r *http.Request) string {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	}
	if ip == "" {
		ip = r.Header.Get("X-Real-IP")
	}
	if ip == "" {
		ip = r.RemoteAddr
	}
	if host, _, err := net.SplitHostPort(ip); err == nil {
		return host
	}
	return ip
}
