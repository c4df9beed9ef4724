package nearcache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"cache-mate/internal/common/errors"
)

// entry is a snapshot value and the set version it is known to be current at. Zero means
// unversioned.
type entry struct {
	text    string
	version uint64
}

// Store is the bounded in-process snapshot of a set: entry key to stored JSON text, least
// recently used entries evicted first. Safe for concurrent use.
type Store struct {
	cache     *lru.Cache[string, entry]
	capacity  int
	evictions atomic.Int64
}

// NewStore creates a store holding at most capacity entries
func NewStore(capacity int) (*Store, error) {
	if capacity <= 0 {
		return nil, errors.ConfigError("local capacity must be positive").WithContext("capacity", capacity)
	}
	cache, err := lru.New[string, entry](capacity)
	if err != nil {
		return nil, errors.InternalError("failed to create local store", err)
	}
	return &Store{cache: cache, capacity: capacity}, nil
}

// Get returns the text for key and marks it recently used
func (s *Store) Get(key string) (string, bool) {
	e, ok := s.cache.Get(key)
	return e.text, ok
}

// Version returns the version key is held at, without touching recency
func (s *Store) Version(key string) (uint64, bool) {
	e, ok := s.cache.Peek(key)
	return e.version, ok
}

// Contains reports presence without touching recency
func (s *Store) Contains(key string) bool {
	return s.cache.Contains(key)
}

// Add inserts or replaces key, evicting the least recently used entry when full
func (s *Store) Add(key, text string, version uint64) {
	if s.cache.Add(key, entry{text: text, version: version}) {
		s.evictions.Add(1)
	}
}

// Remove drops keys that are present
func (s *Store) Remove(keys ...string) {
	for _, key := range keys {
		s.cache.Remove(key)
	}
}

// Purge drops every entry
func (s *Store) Purge() {
	s.cache.Purge()
}

// Len returns the number of entries held
func (s *Store) Len() int {
	return s.cache.Len()
}

// Keys returns held keys, oldest first
func (s *Store) Keys() []string {
	return s.cache.Keys()
}

// Capacity returns the configured bound
func (s *Store) Capacity() int {
	return s.capacity
}

// Evictions counts entries pushed out by capacity pressure
func (s *Store) Evictions() int64 {
	return s.evictions.Load()
}
