package redis

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cache-mate/internal/common/errors"
)

func setupProvider(t *testing.T) (*Provider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	provider := NewProvider(Config{
		Addresses: []string{mr.Addr()},
		Timeout:   2 * time.Second,
	}, nil)
	t.Cleanup(func() { _ = provider.Close() })

	return provider, mr
}

func TestConfig_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.applyDefaults()

	assert.Equal(t, []string{"localhost:6379"}, cfg.Addresses)
	assert.Equal(t, TopologyStandalone, cfg.Topology)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 5, cfg.PoolSize)
	assert.Equal(t, 0, cfg.MinIdleConns)
	assert.Equal(t, 0, cfg.RetryAttempts)

	def := DefaultConfig()
	assert.Equal(t, 1, def.MinIdleConns)
	assert.Equal(t, 10, def.RetryAttempts)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"standalone", Config{Addresses: []string{"localhost:6379"}, Topology: TopologyStandalone}, false},
		{"cluster", Config{Addresses: []string{"a:7000", "b:7001"}, Topology: TopologyCluster}, false},
		{"unknown topology", Config{Addresses: []string{"a:1"}, Topology: "sentinel"}, true},
		{"standalone with many addresses", Config{Addresses: []string{"a:1", "b:2"}, Topology: TopologyStandalone}, true},
		{"db out of range", Config{Addresses: []string{"a:1"}, DB: 16}, true},
		{"blank address", Config{Addresses: []string{" "}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.IsType(err, errors.ErrTypeConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	addr, tls := normalizeAddress("redis://cache:6379")
	assert.Equal(t, "cache:6379", addr)
	assert.False(t, tls)

	addr, tls = normalizeAddress("rediss://cache:6380")
	assert.Equal(t, "cache:6380", addr)
	assert.True(t, tls)

	addr, tls = normalizeAddress(" cache:6379 ")
	assert.Equal(t, "cache:6379", addr)
	assert.False(t, tls)
}

func TestNewUniversalClient_Topology(t *testing.T) {
	standalone := newUniversalClient(Config{Addresses: []string{"redis://localhost:6379"}, Topology: TopologyStandalone})
	defer standalone.Close()
	_, ok := standalone.(*redis.Client)
	assert.True(t, ok)

	cluster := newUniversalClient(Config{Addresses: []string{"a:7000", "b:7001"}, Topology: TopologyCluster})
	defer cluster.Close()
	_, ok = cluster.(*redis.ClusterClient)
	assert.True(t, ok)
}

func TestProvider_MemoizesClient(t *testing.T) {
	provider, _ := setupProvider(t)
	ctx := context.Background()

	first, err := provider.Client(ctx)
	require.NoError(t, err)
	second, err := provider.Client(ctx)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestProvider_ConcurrentFirstUse(t *testing.T) {
	mr := miniredis.RunT(t)

	var created int
	var mu sync.Mutex
	provider := NewProvider(Config{Addresses: []string{mr.Addr()}, Timeout: time.Second}, nil)
	provider.factory = func(cfg Config) redis.UniversalClient {
		mu.Lock()
		created++
		mu.Unlock()
		return newUniversalClient(cfg)
	}
	defer provider.Close()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := provider.Client(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
}

func TestProvider_FailedConnectionIsRetried(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	provider := NewProvider(Config{Addresses: []string{addr}, Timeout: 200 * time.Millisecond}, nil)
	defer provider.Close()

	_, err := provider.Client(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))

	require.NoError(t, mr.Restart())

	client, err := provider.Client(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, client)
}

// silentListener accepts connections and never answers
func silentListener(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		conns []net.Conn
	)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = ln.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			_ = c.Close()
		}
	})
	return ln.Addr().String()
}

func TestProvider_WaitersKeepTheirOwnDeadline(t *testing.T) {
	provider := NewProvider(Config{Addresses: []string{silentListener(t)}, Timeout: 2 * time.Second}, nil)
	defer provider.Close()

	first := make(chan error, 1)
	go func() {
		_, err := provider.Client(context.Background())
		first <- err
	}()
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := provider.Client(ctx)
	elapsed := time.Since(start)

	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	assert.Less(t, elapsed, time.Second)

	select {
	case err := <-first:
		assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
	case <-time.After(5 * time.Second):
		t.Fatal("first connect never finished")
	}
}

func TestProvider_Health(t *testing.T) {
	provider, mr := setupProvider(t)

	assert.NoError(t, provider.Health(context.Background()))

	mr.SetError("ERR simulated outage")
	err := provider.Health(context.Background())
	assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
}

func TestProvider_Close(t *testing.T) {
	provider, _ := setupProvider(t)

	assert.NoError(t, provider.Close())

	_, err := provider.Client(context.Background())
	require.NoError(t, err)
	assert.NoError(t, provider.Close())
	assert.NoError(t, provider.Close())
}

func TestNewProviderFromClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	provider := NewProviderFromClient(client)
	defer provider.Close()

	got, err := provider.Client(context.Background())
	require.NoError(t, err)
	assert.Same(t, client, got)
}
