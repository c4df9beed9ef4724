package nearcache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
	rediscli "cache-mate/internal/redis"
)

func newProvider(t *testing.T, mr *miniredis.Miniredis) *rediscli.Provider {
	t.Helper()
	provider := rediscli.NewProvider(rediscli.Config{
		Addresses: []string{mr.Addr()},
		Timeout:   time.Second,
	}, logging.NewNopLogger())
	t.Cleanup(func() { _ = provider.Close() })
	return provider
}

func newMap(t *testing.T, mr *miniredis.Miniredis, name string, mutate func(*Options)) *Map {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	m, err := New(name, newProvider(t, mr), opts, WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func TestStore_EvictsLeastRecentlyUsed(t *testing.T) {
	s, err := NewStore(2)
	require.NoError(t, err)

	s.Add("a", "1", 0)
	s.Add("b", "2", 0)
	_, _ = s.Get("a")
	s.Add("c", "3", 0)

	assert.True(t, s.Contains("a"))
	assert.False(t, s.Contains("b"))
	assert.True(t, s.Contains("c"))
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, int64(1), s.Evictions())

	s.Remove("a", "missing")
	assert.Equal(t, []string{"c"}, s.Keys())

	s.Purge()
	assert.Zero(t, s.Len())
	assert.Equal(t, int64(1), s.Evictions())
}

func TestNewStore_RejectsNonPositiveCapacity(t *testing.T) {
	_, err := NewStore(0)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
}

func TestOptions_Parse(t *testing.T) {
	p, err := ParseEvictionPolicy(" lru ")
	require.NoError(t, err)
	assert.Equal(t, EvictionLRU, p)

	_, err = ParseEvictionPolicy("LFU")
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	s, err := ParseSyncStrategy("none")
	require.NoError(t, err)
	assert.Equal(t, SyncNone, s)

	_, err = ParseSyncStrategy("INVALIDATE")
	assert.Error(t, err)

	bad := DefaultOptions()
	bad.Capacity = -1
	assert.Error(t, bad.Validate())
	assert.NoError(t, DefaultOptions().Validate())
}

func TestDecodeEvent(t *testing.T) {
	e, err := decodeEvent(`{"set":"s","action":"set","sender":"x","keys":["k"],"value":"1"}`)
	require.NoError(t, err)
	assert.Equal(t, ActionSet, e.Action)
	assert.Equal(t, "1", e.Value)

	for _, payload := range []string{
		`not json`,
		`{"set":"s","action":"set","sender":"x"}`,
		`{"set":"s","action":"delete","sender":"x"}`,
		`{"set":"s","action":"explode","sender":"x"}`,
		`{"set":"s","action":"clear"}`,
	} {
		_, err := decodeEvent(payload)
		assert.Error(t, err, payload)
	}
}

func TestMap_ReadThroughPopulatesSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", nil)
	ctx := context.Background()

	mr.HSet("orders", "o1", `{"id":1}`)

	text, found, err := m.Get(ctx, "o1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"id":1}`, text)
	assert.Equal(t, 1, m.SizeInMemory())

	// served locally once held
	mr.HSet("orders", "o1", `{"id":2}`)
	text, _, err = m.Get(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, `{"id":1}`, text)

	_, found, err = m.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 1, m.SizeInMemory())
}

func TestMap_WritesReachRemoteAndSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", nil)
	ctx := context.Background()

	require.NoError(t, m.FastPut(ctx, "o1", `"one"`))
	require.NoError(t, m.FastPut(ctx, "o2", `"two"`))
	assert.Equal(t, `"one"`, mr.HGet("orders", "o1"))

	text, ok := m.store.Get("o2")
	assert.True(t, ok)
	assert.Equal(t, `"two"`, text)

	size, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), size)

	removed, err := m.FastRemove(ctx, "o1", "nope")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.ElementsMatch(t, []string{"o2"}, m.CachedKeys())

	m.ClearLocal()
	assert.Zero(t, m.SizeInMemory())
	size, err = m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size)

	require.NoError(t, m.Clear(ctx))
	assert.False(t, mr.Exists("orders"))
}

func TestMap_CapacityBoundsSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "bounded", func(o *Options) { o.Capacity = 3 })
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, m.FastPut(ctx, fmt.Sprintf("k%d", i), fmt.Sprintf("%d", i)))
	}

	assert.Equal(t, 3, m.SizeInMemory())
	assert.Equal(t, 3, m.Capacity())
	assert.Equal(t, int64(7), m.Evictions())
	assert.ElementsMatch(t, []string{"k7", "k8", "k9"}, m.CachedKeys())

	size, err := m.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), size)
}

func TestMap_PeersApplyUpdates(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newMap(t, mr, "shared", nil)
	b := newMap(t, mr, "shared", nil)
	ctx := context.Background()

	// b holds a stale copy
	mr.HSet("shared", "k", `"old"`)
	_, _, err := b.Get(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, a.FastPut(ctx, "k", `"new"`))
	assert.Eventually(t, func() bool {
		text, ok := b.store.Get("k")
		return ok && text == `"new"`
	}, time.Second, 10*time.Millisecond)

	_, err = a.FastRemove(ctx, "k")
	require.NoError(t, err)
	assert.Eventually(t, func() bool {
		_, ok := b.store.Get("k")
		return !ok
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, b.FastPut(ctx, "x", `1`))
	require.NoError(t, a.FastPut(ctx, "y", `2`))
	require.NoError(t, a.Clear(ctx))
	assert.Eventually(t, func() bool {
		return b.SizeInMemory() == 0
	}, time.Second, 10*time.Millisecond)

	assert.Positive(t, a.AppliedEvents())
	assert.Positive(t, b.AppliedEvents())
}

func TestMap_SyncNoneStaysLocal(t *testing.T) {
	mr := miniredis.RunT(t)
	a := newMap(t, mr, "quiet", func(o *Options) { o.SyncStrategy = SyncNone })
	b := newMap(t, mr, "quiet", nil)
	ctx := context.Background()

	mr.HSet("quiet", "k", `"old"`)
	_, _, err := b.Get(ctx, "k")
	require.NoError(t, err)

	require.NoError(t, a.FastPut(ctx, "k", `"new"`))

	assert.Never(t, func() bool {
		text, _ := b.store.Get("k")
		return text == `"new"`
	}, 200*time.Millisecond, 20*time.Millisecond)
}

func TestMap_IgnoresOtherSetsAndOwnEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", func(o *Options) { o.InstanceID = "self" })

	m.apply(`{"set":"orders","action":"set","sender":"self","keys":["k"],"value":"1"}`)
	m.apply(`{"set":"other","action":"set","sender":"peer","keys":["k"],"value":"1"}`)
	m.apply(`garbage`)
	assert.Zero(t, m.SizeInMemory())
	assert.Zero(t, m.AppliedEvents())

	m.apply(`{"set":"orders","action":"set","sender":"peer","keys":["k"],"value":"1"}`)
	assert.Equal(t, 1, m.SizeInMemory())
}

func TestMap_RemoteFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", nil)
	ctx := context.Background()

	require.NoError(t, m.FastPut(ctx, "held", `1`))
	mr.SetError("ERR simulated outage")

	err := m.FastPut(ctx, "k", `1`)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	_, held := m.store.Get("k")
	assert.False(t, held)

	_, _, err = m.Get(ctx, "absent")
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))

	// local hits need no remote
	text, found, err := m.Get(ctx, "held")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "1", text)
}

func TestMap_CloseIsIdempotent(t *testing.T) {
	mr := miniredis.RunT(t)
	m, err := New("orders", newProvider(t, mr), DefaultOptions(), WithLogger(logging.NewNopLogger()))
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))

	assert.NoError(t, m.Close())
	assert.NoError(t, m.Close())
	assert.Error(t, m.Start(context.Background()))
}

func TestNew_Validates(t *testing.T) {
	mr := miniredis.RunT(t)
	_, err := New("", newProvider(t, mr), DefaultOptions())
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation))

	opts := DefaultOptions()
	opts.EvictionPolicy = "LFU"
	_, err = New("orders", newProvider(t, mr), opts)
	assert.True(t, errors.IsType(err, errors.ErrTypeConfig))

	m, err := New("orders", newProvider(t, mr), DefaultOptions())
	require.NoError(t, err)
	assert.NotEmpty(t, m.InstanceID())
	assert.Equal(t, "cache-mate:sync:orders", m.channel)
}

func TestVersionKey(t *testing.T) {
	assert.Equal(t, "{orders}:cache-mate:version", VersionKey("orders"))
	assert.Equal(t, "user:{42}:cart:cache-mate:version", VersionKey("user:{42}:cart"))
	assert.Equal(t, "{a{}b}:cache-mate:version", VersionKey("a{}b"))
}

func TestMap_WritesStampVersions(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", nil)
	ctx := context.Background()

	require.NoError(t, m.FastPut(ctx, "a", `1`))
	require.NoError(t, m.FastPut(ctx, "b", `2`))
	_, err := m.FastRemove(ctx, "a")
	require.NoError(t, err)

	counter, err := mr.Get(VersionKey("orders"))
	require.NoError(t, err)
	assert.Equal(t, "3", counter)

	version, ok := m.store.Version("b")
	require.True(t, ok)
	assert.Equal(t, uint64(2), version)
}

func TestMap_LateSetEventDoesNotRollBack(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", func(o *Options) { o.InstanceID = "self" })
	ctx := context.Background()

	// a peer wrote "v1" at version 5; this process then wrote "v2" at version 6
	require.NoError(t, mr.Set(VersionKey("orders"), "5"))
	require.NoError(t, m.FastPut(ctx, "k", `"v2"`))

	m.apply(`{"set":"orders","action":"set","sender":"peer","keys":["k"],"value":"\"v1\"","version":5}`)
	text, _, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v2"`, text)
	assert.Equal(t, int64(1), m.StaleEvents())
	assert.Zero(t, m.AppliedEvents())

	m.apply(`{"set":"orders","action":"set","sender":"peer","keys":["k"],"value":"\"v3\"","version":7}`)
	text, _, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, `"v3"`, text)
	assert.Equal(t, int64(1), m.AppliedEvents())
}

func TestMap_LateSetEventAfterDeleteIsDropped(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", func(o *Options) { o.InstanceID = "self" })
	ctx := context.Background()

	require.NoError(t, m.FastPut(ctx, "k", `"v1"`))
	_, err := m.FastRemove(ctx, "k")
	require.NoError(t, err)

	// the set at version 1 was already superseded by the delete at version 2
	m.apply(`{"set":"orders","action":"set","sender":"peer","keys":["k"],"value":"\"v1\"","version":1}`)
	_, held := m.store.Get("k")
	assert.False(t, held)

	m.apply(`{"set":"orders","action":"set","sender":"peer","keys":["k"],"value":"\"v3\"","version":3}`)
	text, held := m.store.Get("k")
	assert.True(t, held)
	assert.Equal(t, `"v3"`, text)
}

func TestMap_ReadThroughKeepsRemoteVersion(t *testing.T) {
	mr := miniredis.RunT(t)
	m := newMap(t, mr, "orders", func(o *Options) { o.InstanceID = "self" })
	ctx := context.Background()

	mr.HSet("orders", "k", `"current"`)
	require.NoError(t, mr.Set(VersionKey("orders"), "10"))

	text, found, err := m.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `"current"`, text)

	m.apply(`{"set":"orders","action":"set","sender":"peer","keys":["k"],"value":"\"older\"","version":9}`)
	text, _ = m.store.Get("k")
	assert.Equal(t, `"current"`, text)

	m.apply(`{"set":"orders","action":"set","sender":"peer","keys":["k"],"value":"\"newer\"","version":11}`)
	text, _ = m.store.Get("k")
	assert.Equal(t, `"newer"`, text)
}
