// Package localcache is the typed, instrumented view of one cache set held close to the
// process. Values pass through the codec on the way in and out; reads and writes go through a
// synced near-cache map so every process sharing the set sees the same data.
//
// Write and eviction failures are logged and swallowed. Reads never fail: anything that cannot
// produce a value counts as a miss.
package localcache

import (
	"context"
	"sync/atomic"

	"cache-mate/internal/codec"
	"cache-mate/internal/common/logging"
	"cache-mate/internal/nearcache"
)

// Stats is a point-in-time view of one cache
type Stats struct {
	Name         string `json:"name"`
	Hits         int64  `json:"hits"`
	Misses       int64  `json:"misses"`
	SizeInMemory int    `json:"sizeInMemory"`
	Capacity     int    `json:"capacity"`
	Evictions    int64  `json:"evictions"`
	PeerEvents   int64  `json:"peerEvents"`
	StaleEvents  int64  `json:"staleEvents"`
}

// Cache is one named cache set
type Cache struct {
	name   string
	shape  codec.Shape
	m      *nearcache.Map
	logger logging.Logger

	hits   atomic.Int64
	misses atomic.Int64
}

// New wraps m, decoding values with shape
func New(m *nearcache.Map, shape codec.Shape, logger logging.Logger) *Cache {
	if logger == nil {
		logger = logging.Component("localcache")
	}
	return &Cache{
		name:   m.Name(),
		shape:  shape,
		m:      m,
		logger: logger.WithFields(logging.String("cache", m.Name())),
	}
}

// Name returns the cache set name
func (c *Cache) Name() string {
	return c.name
}

// Shape returns the decode target for values
func (c *Cache) Shape() codec.Shape {
	return c.shape
}

// Get returns the decoded value for key. Absent, undecodable and unreadable entries all count
// as misses.
func (c *Cache) Get(ctx context.Context, key string) (any, bool) {
	text, found, err := c.m.Get(ctx, key)
	if err != nil {
		c.logger.WithContext(ctx).Error("Failed to read cache entry", err, logging.String("key", key))
		c.misses.Add(1)
		return nil, false
	}
	if !found {
		c.misses.Add(1)
		return nil, false
	}

	value, err := codec.Decode(text, c.shape)
	if err != nil {
		c.logger.WithContext(ctx).Warn("Cached value could not be decoded",
			logging.String("key", key),
			logging.String("shape", c.shape.Name()),
		)
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return value, true
}

// Put encodes value and writes it through both tiers
func (c *Cache) Put(ctx context.Context, key string, value any) {
	text, err := codec.Encode(value)
	if err != nil {
		c.logger.WithContext(ctx).Error("Failed to encode cache value", err, logging.String("key", key))
		return
	}
	if err := c.m.FastPut(ctx, key, text); err != nil {
		c.logger.WithContext(ctx).Error("Failed to write cache entry", err, logging.String("key", key))
	}
}

// Evict removes key from both tiers
func (c *Cache) Evict(ctx context.Context, key string) {
	c.EvictMany(ctx, []string{key})
}

// EvictMany removes every key in keys from both tiers
func (c *Cache) EvictMany(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if _, err := c.m.FastRemove(ctx, keys...); err != nil {
		c.logger.WithContext(ctx).Error("Failed to evict cache entries", err, logging.Strings("keys", keys))
	}
}

// Clear removes every entry from both tiers
func (c *Cache) Clear(ctx context.Context) {
	if err := c.m.Clear(ctx); err != nil {
		c.logger.WithContext(ctx).Error("Failed to clear cache", err)
	}
}

// ClearLocalOnly drops this process's snapshot; remote data is kept
func (c *Cache) ClearLocalOnly() {
	c.m.ClearLocal()
}

// HitCount returns the number of successful reads so far
func (c *Cache) HitCount() int64 {
	return c.hits.Load()
}

// MissCount returns the number of reads that produced no value so far
func (c *Cache) MissCount() int64 {
	return c.misses.Load()
}

// Size returns the remote entry count
func (c *Cache) Size(ctx context.Context) (int64, error) {
	return c.m.Size(ctx)
}

// SizeInMemory returns the local snapshot entry count
func (c *Cache) SizeInMemory() int {
	return c.m.SizeInMemory()
}

// LocalKeys returns the keys held in the local snapshot
func (c *Cache) LocalKeys() []string {
	return c.m.CachedKeys()
}

// Capacity returns the local snapshot bound
func (c *Cache) Capacity() int {
	return c.m.Capacity()
}

// Stats returns counters and local sizes
func (c *Cache) Stats() Stats {
	return Stats{
		Name:         c.name,
		Hits:         c.HitCount(),
		Misses:       c.MissCount(),
		SizeInMemory: c.SizeInMemory(),
		Capacity:     c.Capacity(),
		Evictions:    c.m.Evictions(),
		PeerEvents:   c.m.AppliedEvents(),
		StaleEvents:  c.m.StaleEvents(),
	}
}

// Close stops the change feed and drops the snapshot
func (c *Cache) Close() error {
	return c.m.Close()
}
