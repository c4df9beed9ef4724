// Package nearcache keeps a bounded in-process snapshot of a remote set in front of the
// remote hash and keeps peer processes' snapshots in step through a pub/sub channel.
//
// Writes go to the remote hash first, then to the local snapshot, then out to peers as an
// Event. Peers apply events from other senders to their own snapshot. Reads are served from
// the snapshot when possible and fall through to the remote hash otherwise.
//
// With update sync every write also bumps a per-set counter in the same transaction and the
// event carries the new value. A snapshot never replaces an entry with a value stamped older
// than the one it holds, and it only admits a value for a key it does not hold when that value
// is newer than anything it has already seen for the set. Late or reordered events therefore
// cannot roll an entry back; at worst they are dropped and the key is read through later.
package nearcache

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"cache-mate/internal/circuitbreaker"
	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
	rediscli "cache-mate/internal/redis"
)

// Map is one set viewed through a local snapshot
type Map struct {
	name     string
	channel  string
	version  string
	options  Options
	provider *rediscli.Provider
	breaker  *circuitbreaker.Breaker
	logger   logging.Logger
	store    *Store

	// fillMu orders snapshot mutations against read-through fills so a fill never
	// overwrites a newer write with the value it read before that write. It also guards
	// highWater, the largest set version this map has observed.
	fillMu     sync.Mutex
	generation uint64
	highWater  uint64

	subMu  sync.Mutex
	pubsub *redis.PubSub
	done   chan struct{}
	closed atomic.Bool

	applied atomic.Int64
	stale   atomic.Int64
}

// MapOption configures a Map
type MapOption func(*Map)

// WithBreaker routes remote calls through breaker
func WithBreaker(breaker *circuitbreaker.Breaker) MapOption {
	return func(m *Map) {
		m.breaker = breaker
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) MapOption {
	return func(m *Map) {
		m.logger = logger
	}
}

// New creates a map over the remote hash called name. Call Start to begin receiving peer
// updates.
func New(name string, provider *rediscli.Provider, options Options, opts ...MapOption) (*Map, error) {
	if name == "" {
		return nil, errors.ValidationError("set name is required")
	}
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if options.InstanceID == "" {
		options.InstanceID = uuid.NewString()
	}

	store, err := NewStore(options.Capacity)
	if err != nil {
		return nil, err
	}

	m := &Map{
		name:     name,
		channel:  ChannelName(options.ChannelPrefix, name),
		version:  VersionKey(name),
		options:  options,
		provider: provider,
		store:    store,
		logger:   logging.Component("nearcache"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.WithFields(logging.String("set", name))
	return m, nil
}

// Name returns the set name
func (m *Map) Name() string {
	return m.name
}

// InstanceID returns the sender id this map stamps on its events
func (m *Map) InstanceID() string {
	return m.options.InstanceID
}

// Options returns the effective options
func (m *Map) Options() Options {
	return m.options
}

func (m *Map) do(ctx context.Context, op string, fn func(ctx context.Context, rdb redis.UniversalClient) error) error {
	run := func(ctx context.Context) error {
		rdb, err := m.provider.Client(ctx)
		if err != nil {
			return err
		}
		if err := fn(ctx, rdb); err != nil {
			return errors.ConnectionError(op+" failed", err).WithContext("set", m.name)
		}
		return nil
	}
	if m.breaker == nil {
		return run(ctx)
	}
	return m.breaker.Execute(ctx, run)
}

func (m *Map) versioned() bool {
	return m.options.SyncStrategy == SyncUpdate
}

// mutate applies fn to the snapshot and invalidates in-flight fills
func (m *Map) mutate(version uint64, fn func(s *Store)) {
	m.fillMu.Lock()
	defer m.fillMu.Unlock()
	m.generation++
	m.observe(version)
	fn(m.store)
}

// admit reports whether a value stamped version may go into the snapshot under key.
// Callers hold fillMu.
func (m *Map) admit(key string, version uint64) bool {
	if version == 0 {
		return true
	}
	if held, ok := m.store.Version(key); ok {
		return version > held
	}
	return version > m.highWater
}

// observe raises highWater to version. Callers hold fillMu.
func (m *Map) observe(version uint64) {
	if version > m.highWater {
		m.highWater = version
	}
}

// Get returns the stored text for key, from the snapshot when held, otherwise from the
// remote hash. Remote hits are added to the snapshot.
func (m *Map) Get(ctx context.Context, key string) (string, bool, error) {
	if text, ok := m.store.Get(key); ok {
		return text, true, nil
	}

	m.fillMu.Lock()
	gen := m.generation
	m.fillMu.Unlock()

	var (
		text    string
		found   bool
		version uint64
	)
	err := m.do(ctx, "HGET", func(ctx context.Context, rdb redis.UniversalClient) error {
		if !m.versioned() {
			val, err := rdb.HGet(ctx, m.name, key).Result()
			if err == redis.Nil {
				return nil
			}
			if err != nil {
				return err
			}
			text, found = val, val != ""
			return nil
		}

		var hget, current *redis.StringCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			hget = pipe.HGet(ctx, m.name, key)
			current = pipe.Get(ctx, m.version)
			return nil
		})
		if err != nil && err != redis.Nil {
			return err
		}
		val, err := hget.Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		text, found = val, val != ""
		// the counter is at least the version of the value just read
		version, _ = current.Uint64()
		return nil
	})
	if err != nil || !found {
		return "", false, err
	}

	m.fillMu.Lock()
	if m.generation == gen && m.admit(key, version) {
		m.store.Add(key, text, version)
		m.observe(version)
	}
	m.fillMu.Unlock()
	return text, true, nil
}

// writeTx runs write and, with update sync, bumps the set's counter in the same transaction.
// It returns the counter after the write, or zero when unversioned.
func (m *Map) writeTx(ctx context.Context, op string, write func(pipe redis.Pipeliner)) (uint64, error) {
	var version uint64
	err := m.do(ctx, op, func(ctx context.Context, rdb redis.UniversalClient) error {
		if !m.versioned() {
			_, err := rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
				write(pipe)
				return nil
			})
			return err
		}

		var incr *redis.IntCmd
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			write(pipe)
			incr = pipe.Incr(ctx, m.version)
			return nil
		})
		if err != nil {
			return err
		}
		version = uint64(incr.Val())
		return nil
	})
	return version, err
}

// FastPut writes text under key remotely and locally, then tells peers
func (m *Map) FastPut(ctx context.Context, key, text string) error {
	version, err := m.writeTx(ctx, "HSET", func(pipe redis.Pipeliner) {
		pipe.HSet(ctx, m.name, key, text)
	})
	if err != nil {
		return err
	}

	m.fillMu.Lock()
	m.generation++
	if m.admit(key, version) {
		m.store.Add(key, text, version)
	}
	m.observe(version)
	m.fillMu.Unlock()

	m.publish(ctx, Event{Action: ActionSet, Keys: []string{key}, Value: text, Version: version})
	return nil
}

// FastRemove deletes keys remotely and locally, then tells peers. Returns how many keys the
// remote hash actually held.
func (m *Map) FastRemove(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}

	var hdel *redis.IntCmd
	version, err := m.writeTx(ctx, "HDEL", func(pipe redis.Pipeliner) {
		hdel = pipe.HDel(ctx, m.name, keys...)
	})
	if err != nil {
		return 0, err
	}

	m.mutate(version, func(s *Store) { s.Remove(keys...) })
	m.publish(ctx, Event{Action: ActionDelete, Keys: keys, Version: version})
	return hdel.Val(), nil
}

// Clear drops the remote hash and the snapshot, then tells peers
func (m *Map) Clear(ctx context.Context) error {
	version, err := m.writeTx(ctx, "DEL", func(pipe redis.Pipeliner) {
		pipe.Del(ctx, m.name)
	})
	if err != nil {
		return err
	}

	m.mutate(version, func(s *Store) { s.Purge() })
	m.publish(ctx, Event{Action: ActionClear, Version: version})
	return nil
}

// ClearLocal empties only this process's snapshot. Remote data and peers are untouched.
func (m *Map) ClearLocal() {
	m.mutate(0, func(s *Store) { s.Purge() })
}

// Size returns the remote entry count
func (m *Map) Size(ctx context.Context) (int64, error) {
	var n int64
	err := m.do(ctx, "HLEN", func(ctx context.Context, rdb redis.UniversalClient) error {
		var err error
		n, err = rdb.HLen(ctx, m.name).Result()
		return err
	})
	return n, err
}

// SizeInMemory returns the snapshot entry count
func (m *Map) SizeInMemory() int {
	return m.store.Len()
}

// CachedKeys returns the keys held in the snapshot
func (m *Map) CachedKeys() []string {
	return m.store.Keys()
}

// Capacity returns the snapshot bound
func (m *Map) Capacity() int {
	return m.store.Capacity()
}

// Evictions counts snapshot entries dropped for capacity
func (m *Map) Evictions() int64 {
	return m.store.Evictions()
}

// AppliedEvents counts peer events applied to the snapshot
func (m *Map) AppliedEvents() int64 {
	return m.applied.Load()
}

// StaleEvents counts peer set events dropped because the snapshot had seen newer writes
func (m *Map) StaleEvents() int64 {
	return m.stale.Load()
}

// publish sends a change event to peers. Failures are logged; the remote write already
// succeeded and peers converge on their next read-through or resync.
func (m *Map) publish(ctx context.Context, e Event) {
	if m.options.SyncStrategy == SyncNone {
		return
	}
	e.Set = m.name
	e.Sender = m.options.InstanceID

	payload, err := encodeEvent(e)
	if err != nil {
		m.logger.Error("Failed to encode sync event", err, logging.String("action", string(e.Action)))
		return
	}

	err = m.do(ctx, "PUBLISH", func(ctx context.Context, rdb redis.UniversalClient) error {
		return rdb.Publish(ctx, m.channel, payload).Err()
	})
	if err != nil {
		m.logger.WithContext(ctx).Warn("Failed to publish sync event",
			logging.String("action", string(e.Action)),
			logging.Err(err),
		)
	}
}

// Start subscribes to the set's sync channel and applies peer events until Close. It returns
// once the subscription is confirmed. A map with SyncNone never subscribes.
func (m *Map) Start(ctx context.Context) error {
	if m.options.SyncStrategy == SyncNone {
		return nil
	}

	m.subMu.Lock()
	defer m.subMu.Unlock()

	if m.closed.Load() {
		return errors.ValidationError("map is closed").WithContext("set", m.name)
	}
	if m.pubsub != nil {
		return nil
	}

	rdb, err := m.provider.Client(ctx)
	if err != nil {
		return err
	}

	pubsub := rdb.Subscribe(ctx, m.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return errors.ConnectionError("failed to subscribe to sync channel", err).
			WithContext("channel", m.channel)
	}

	m.pubsub = pubsub
	m.done = make(chan struct{})
	go m.listen(pubsub.Channel(), m.done)

	m.logger.Debug("Subscribed to sync channel", logging.String("channel", m.channel))
	return nil
}

func (m *Map) listen(messages <-chan *redis.Message, done chan struct{}) {
	defer close(done)
	for msg := range messages {
		m.apply(msg.Payload)
	}
}

// apply updates the snapshot from a peer event. Own events and malformed payloads are
// ignored, and set events older than what the snapshot reflects are dropped.
func (m *Map) apply(payload string) {
	e, err := decodeEvent(payload)
	if err != nil {
		m.logger.Warn("Ignoring malformed sync event", logging.Err(err))
		return
	}
	if e.Sender == m.options.InstanceID || e.Set != m.name {
		return
	}

	m.fillMu.Lock()
	defer m.fillMu.Unlock()

	switch e.Action {
	case ActionSet:
		if !m.admit(e.Keys[0], e.Version) {
			m.observe(e.Version)
			m.stale.Add(1)
			return
		}
		m.store.Add(e.Keys[0], e.Value, e.Version)
	case ActionDelete:
		m.store.Remove(e.Keys...)
	case ActionClear:
		m.store.Purge()
	}
	m.generation++
	m.observe(e.Version)
	m.applied.Add(1)
}

// Close stops receiving peer events and drops the snapshot. Safe to call more than once.
func (m *Map) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.subMu.Lock()
	pubsub, done := m.pubsub, m.done
	m.pubsub = nil
	m.subMu.Unlock()

	var err error
	if pubsub != nil {
		err = pubsub.Close()
		<-done
	}
	m.store.Purge()
	return err
}
