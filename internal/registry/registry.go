// Package registry owns the process's named local caches. A cache is created on first request,
// at most once per name, and only for names registered with a decode shape.
package registry

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"cache-mate/internal/circuitbreaker"
	"cache-mate/internal/codec"
	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
	"cache-mate/internal/localcache"
	"cache-mate/internal/nearcache"
	rediscli "cache-mate/internal/redis"
)

// TestCache is the built-in cache name
const TestCache = "TEST_CACHE"

// DefaultShapes returns the built-in cache name to value shape table
func DefaultShapes() map[string]codec.Shape {
	return map[string]codec.Shape{
		TestCache: codec.Concrete[codec.Document](),
	}
}

// Registry creates and tracks local caches by name
type Registry struct {
	provider *rediscli.Provider
	options  nearcache.Options
	breaker  *circuitbreaker.Breaker
	logger   logging.Logger

	mu     sync.Mutex
	shapes map[string]codec.Shape
	caches map[string]*localcache.Cache

	creating singleflight.Group
}

// Option configures a Registry
type Option func(*Registry)

// WithCapacity sets the local snapshot bound for caches created afterwards
func WithCapacity(capacity int) Option {
	return func(r *Registry) {
		r.options.Capacity = capacity
	}
}

// WithSyncStrategy sets how caches created afterwards propagate writes to peers
func WithSyncStrategy(strategy nearcache.SyncStrategy) Option {
	return func(r *Registry) {
		r.options.SyncStrategy = strategy
	}
}

// WithEvictionPolicy sets the local eviction policy
func WithEvictionPolicy(policy nearcache.EvictionPolicy) Option {
	return func(r *Registry) {
		r.options.EvictionPolicy = policy
	}
}

// WithInstanceID fixes the sender id stamped on change events
func WithInstanceID(id string) Option {
	return func(r *Registry) {
		r.options.InstanceID = id
	}
}

// WithBreaker shares breaker with every cache's remote calls
func WithBreaker(breaker *circuitbreaker.Breaker) Option {
	return func(r *Registry) {
		r.breaker = breaker
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// New creates an empty registry. shapes seeds the name to shape table; it is copied.
func New(provider *rediscli.Provider, shapes map[string]codec.Shape, opts ...Option) *Registry {
	r := &Registry{
		provider: provider,
		options:  nearcache.DefaultOptions(),
		logger:   logging.Component("registry"),
		shapes:   make(map[string]codec.Shape, len(shapes)),
		caches:   make(map[string]*localcache.Cache),
	}
	for name, shape := range shapes {
		r.shapes[name] = shape
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register maps name to the shape its values decode into. Existing caches keep their shape.
func (r *Registry) Register(name string, shape codec.Shape) error {
	if name == "" {
		return errors.ValidationError("cache name is required")
	}
	if !shape.Valid() {
		return errors.ConfigError("cache shape has no decode target").WithContext("cache", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.shapes[name] = shape
	return nil
}

// GetOrCreate returns the cache for name, creating and starting it on first use. Concurrent
// callers for the same name share one creation; the registry lock is never held across the
// remote round trips creation needs.
func (r *Registry) GetOrCreate(ctx context.Context, name string) (*localcache.Cache, error) {
	r.mu.Lock()
	cache, ok := r.caches[name]
	_, registered := r.shapes[name]
	r.mu.Unlock()

	if ok {
		return cache, nil
	}
	if !registered {
		return nil, errors.ConfigError("no shape registered for cache").WithContext("cache", name)
	}

	ch := r.creating.DoChan(name, func() (any, error) {
		return r.create(context.WithoutCancel(ctx), name)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*localcache.Cache), nil
	case <-ctx.Done():
		return nil, errors.ConnectionError("cache creation abandoned", ctx.Err()).WithContext("cache", name)
	}
}

// create builds and starts the cache for name outside the lock, then publishes it unless
// another creation got there first
func (r *Registry) create(ctx context.Context, name string) (*localcache.Cache, error) {
	r.mu.Lock()
	if cache, ok := r.caches[name]; ok {
		r.mu.Unlock()
		return cache, nil
	}
	shape := r.shapes[name]
	options := r.options
	r.mu.Unlock()

	mapOpts := []nearcache.MapOption{nearcache.WithLogger(r.logger)}
	if r.breaker != nil {
		mapOpts = append(mapOpts, nearcache.WithBreaker(r.breaker))
	}
	m, err := nearcache.New(name, r.provider, options, mapOpts...)
	if err != nil {
		return nil, err
	}
	if err := m.Start(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	created := localcache.New(m, shape, r.logger)

	r.mu.Lock()
	if existing, ok := r.caches[name]; ok {
		r.mu.Unlock()
		_ = created.Close()
		return existing, nil
	}
	r.caches[name] = created
	r.mu.Unlock()

	r.logger.WithContext(ctx).Info("Created local cache",
		logging.String("cache", name),
		logging.Int("capacity", options.Capacity),
		logging.String("eviction_policy", string(options.EvictionPolicy)),
		logging.String("sync_strategy", string(options.SyncStrategy)),
		logging.String("shape", shape.Name()),
	)
	return created, nil
}

// Get returns the existing cache for name without creating one
func (r *Registry) Get(name string) (*localcache.Cache, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cache, ok := r.caches[name]
	return cache, ok
}

// ListCacheNames returns the names of created caches, sorted
func (r *Registry) ListCacheNames() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DeleteLocalCache drops the named cache's snapshot and forgets the instance. Remote data and
// other processes are not affected. Returns false when no such cache exists.
func (r *Registry) DeleteLocalCache(name string) bool {
	r.mu.Lock()
	cache, ok := r.caches[name]
	delete(r.caches, name)
	r.mu.Unlock()

	if !ok {
		return false
	}

	cache.ClearLocalOnly()
	if err := cache.Close(); err != nil {
		r.logger.Warn("Failed to close cache change feed", logging.String("cache", name), logging.Err(err))
	}
	r.logger.Info("Deleted local cache", logging.String("cache", name))
	return true
}

// Each calls fn for every created cache in name order
func (r *Registry) Each(fn func(*localcache.Cache)) {
	for _, cache := range r.snapshot() {
		fn(cache)
	}
}

func (r *Registry) snapshot() []*localcache.Cache {
	r.mu.Lock()
	defer r.mu.Unlock()

	caches := make([]*localcache.Cache, 0, len(r.caches))
	for _, cache := range r.caches {
		caches = append(caches, cache)
	}
	sort.Slice(caches, func(i, j int) bool { return caches[i].Name() < caches[j].Name() })
	return caches
}

// Close closes every cache and empties the registry
func (r *Registry) Close() error {
	r.mu.Lock()
	caches := r.caches
	r.caches = make(map[string]*localcache.Cache)
	r.mu.Unlock()

	var g errgroup.Group
	for _, cache := range caches {
		g.Go(cache.Close)
	}
	return g.Wait()
}
