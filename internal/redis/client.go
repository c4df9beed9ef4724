// Package redis owns the process-wide connection to the remote key-value store.
//
// A Provider builds a standalone or cluster go-redis client from Config the first time a
// caller asks for it and hands the same client to every later caller.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/singleflight"

	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
)

// Nil is returned by the driver when a key or hash field does not exist
const Nil = redis.Nil

// Topology selects how the remote store is deployed
type Topology string

const (
	TopologyStandalone Topology = "standalone"
	TopologyCluster    Topology = "cluster"
)

// Config describes how to reach the remote store
type Config struct {
	Addresses     []string      `json:"addresses"`
	Topology      Topology      `json:"topology"`
	TLS           bool          `json:"tls"`
	Password      string        `json:"-"`
	DB            int           `json:"db"`
	Timeout       time.Duration `json:"timeout"`
	PoolSize      int           `json:"pool_size"`
	MinIdleConns  int           `json:"min_idle_conns"`
	RetryAttempts int           `json:"retry_attempts"`
}

// DefaultConfig mirrors the connection settings the service has always run with
func DefaultConfig() Config {
	return Config{
		Addresses:     []string{"localhost:6379"},
		Topology:      TopologyStandalone,
		Timeout:       60 * time.Second,
		PoolSize:      5,
		MinIdleConns:  1,
		RetryAttempts: 10,
	}
}

func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if len(c.Addresses) == 0 {
		c.Addresses = defaults.Addresses
	}
	if c.Topology == "" {
		c.Topology = defaults.Topology
	}
	if c.Timeout <= 0 {
		c.Timeout = defaults.Timeout
	}
	if c.PoolSize <= 0 {
		c.PoolSize = defaults.PoolSize
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	if c.RetryAttempts < 0 {
		c.RetryAttempts = 0
	}
}

// Validate checks the configuration after defaults are applied
func (c Config) Validate() error {
	switch c.Topology {
	case TopologyStandalone, TopologyCluster, "":
	default:
		return errors.ConfigError(fmt.Sprintf("unknown redis topology %q", c.Topology))
	}
	if c.Topology == TopologyStandalone && len(c.Addresses) > 1 {
		return errors.ConfigError("standalone topology accepts a single address")
	}
	if c.DB < 0 || c.DB > 15 {
		return errors.ConfigError("redis db must be between 0 and 15")
	}
	for _, addr := range c.Addresses {
		if strings.TrimSpace(addr) == "" {
			return errors.ConfigError("redis address must not be empty")
		}
	}
	return nil
}

// normalizeAddress strips redis:// and rediss:// schemes, reporting whether TLS was implied
func normalizeAddress(addr string) (string, bool) {
	addr = strings.TrimSpace(addr)
	switch {
	case strings.HasPrefix(addr, "rediss://"):
		return strings.TrimPrefix(addr, "rediss://"), true
	case strings.HasPrefix(addr, "redis://"):
		return strings.TrimPrefix(addr, "redis://"), false
	default:
		return addr, false
	}
}

// newUniversalClient builds, but does not connect, the driver client for cfg
func newUniversalClient(cfg Config) redis.UniversalClient {
	useTLS := cfg.TLS
	addrs := make([]string, 0, len(cfg.Addresses))
	for _, a := range cfg.Addresses {
		addr, implied := normalizeAddress(a)
		useTLS = useTLS || implied
		addrs = append(addrs, addr)
	}

	var tlsConfig *tls.Config
	if useTLS {
		tlsConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	if cfg.Topology == TopologyCluster {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:         addrs,
			Password:      cfg.Password,
			DialTimeout:   cfg.Timeout,
			ReadTimeout:   cfg.Timeout,
			WriteTimeout:  cfg.Timeout,
			PoolSize:      cfg.PoolSize,
			MinIdleConns:  cfg.MinIdleConns,
			MaxRetries:    cfg.RetryAttempts,
			ReadOnly:      true,
			RouteRandomly: true,
			TLSConfig:     tlsConfig,
		})
	}

	return redis.NewClient(&redis.Options{
		Addr:         addrs[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		TLSConfig:    tlsConfig,
	})
}

// Provider lazily creates one client per process and memoizes it
type Provider struct {
	config  Config
	logger  logging.Logger
	factory func(Config) redis.UniversalClient

	mu         sync.Mutex
	client     redis.UniversalClient
	connecting singleflight.Group
}

// NewProvider returns a provider for cfg. No connection is made until Client is called.
func NewProvider(cfg Config, logger logging.Logger) *Provider {
	cfg.applyDefaults()
	if logger == nil {
		logger = logging.Component("redis")
	}
	return &Provider{
		config:  cfg,
		logger:  logger,
		factory: newUniversalClient,
	}
}

// NewProviderFromClient wraps an already constructed client
func NewProviderFromClient(client redis.UniversalClient) *Provider {
	return &Provider{
		logger: logging.Component("redis"),
		client: client,
	}
}

// Config returns the effective configuration
func (p *Provider) Config() Config {
	return p.config
}

// Client returns the shared client, creating and pinging it on first use. Callers arriving
// during the first connect wait for it without holding any lock and give up when their own
// context ends. A failed first connection is not memoized, so the next call tries again.
func (p *Provider) Client(ctx context.Context) (redis.UniversalClient, error) {
	p.mu.Lock()
	client := p.client
	p.mu.Unlock()
	if client != nil {
		return client, nil
	}

	ch := p.connecting.DoChan("connect", func() (any, error) {
		return p.connect(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(redis.UniversalClient), nil
	case <-ctx.Done():
		return nil, errors.ConnectionError("gave up waiting for remote store connection", ctx.Err())
	}
}

func (p *Provider) connect(ctx context.Context) (redis.UniversalClient, error) {
	p.mu.Lock()
	if p.client != nil {
		client := p.client
		p.mu.Unlock()
		return client, nil
	}
	p.mu.Unlock()

	if err := p.config.Validate(); err != nil {
		return nil, err
	}

	p.logger.Info("Connecting to remote store",
		logging.String("topology", string(p.config.Topology)),
		logging.Strings("addresses", p.config.Addresses),
		logging.Bool("tls", p.config.TLS),
		logging.Bool("password", p.config.Password != ""),
	)

	client := p.factory(p.config)

	pingCtx, cancel := context.WithTimeout(ctx, p.config.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.ConnectionError("failed to connect to remote store", err).
			WithContext("addresses", strings.Join(p.config.Addresses, ","))
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		_ = client.Close()
		return p.client, nil
	}
	p.client = client
	return client, nil
}

// Health pings the remote store through the shared client
func (p *Provider) Health(ctx context.Context) error {
	client, err := p.Client(ctx)
	if err != nil {
		return err
	}
	if err := client.Ping(ctx).Err(); err != nil {
		return errors.ConnectionError("remote store ping failed", err)
	}
	return nil
}

// Close releases the shared client if one was created
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
