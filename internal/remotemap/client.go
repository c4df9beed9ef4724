// Package remotemap reads and writes per-set maps in the remote store.
//
// Every set is one Redis hash named after the set. Hash fields are entry keys and hash values
// are JSON text produced by the codec package. Absent keys are never errors; remote I/O
// failures come back as connection errors.
package remotemap

import (
	"context"

	"github.com/go-redis/redis/v8"

	"cache-mate/internal/circuitbreaker"
	"cache-mate/internal/codec"
	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
	rediscli "cache-mate/internal/redis"
)

// Client performs get/put/delete/bulk operations against named sets
type Client struct {
	provider *rediscli.Provider
	breaker  *circuitbreaker.Breaker
	logger   logging.Logger
}

// Option configures a Client
type Option func(*Client)

// WithBreaker routes every remote call through breaker
func WithBreaker(breaker *circuitbreaker.Breaker) Option {
	return func(c *Client) {
		c.breaker = breaker
	}
}

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a remote map client backed by the provider's shared connection
func New(provider *rediscli.Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		logger:   logging.Component("remotemap"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// do runs fn with the shared connection, through the breaker when one is configured
func (c *Client) do(ctx context.Context, op, set string, fn func(ctx context.Context, rdb redis.UniversalClient) error) error {
	run := func(ctx context.Context) error {
		rdb, err := c.provider.Client(ctx)
		if err != nil {
			return err
		}
		if err := fn(ctx, rdb); err != nil {
			if errors.GetType(err) != errors.ErrTypeInternal {
				return err
			}
			return errors.ConnectionError(op+" failed", err).WithContext("set", set)
		}
		return nil
	}

	if c.breaker == nil {
		return run(ctx)
	}
	return c.breaker.Execute(ctx, run)
}

// getRaw returns the stored text for key, or ok=false when absent
func (c *Client) getRaw(ctx context.Context, set, key string) (string, bool, error) {
	var (
		text  string
		found bool
	)
	err := c.do(ctx, "HGET", set, func(ctx context.Context, rdb redis.UniversalClient) error {
		val, err := rdb.HGet(ctx, set, key).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		text, found = val, val != ""
		return nil
	})
	return text, found, err
}

// Get fetches key from set and decodes it with shape. A missing key or an undecodable value
// yields ok=false and no error.
func (c *Client) Get(ctx context.Context, set, key string, shape codec.Shape) (any, bool, error) {
	text, found, err := c.getRaw(ctx, set, key)
	if err != nil || !found {
		return nil, false, err
	}

	value, err := codec.Decode(text, shape)
	if err != nil {
		c.logger.WithContext(ctx).Warn("Discarding undecodable entry",
			logging.String("set", set),
			logging.String("key", key),
		)
		return nil, false, nil
	}
	return value, true, nil
}

// GetList fetches key from set and decodes it as a list of documents
func (c *Client) GetList(ctx context.Context, set, key string) (codec.Documents, bool, error) {
	text, found, err := c.getRaw(ctx, set, key)
	if err != nil || !found {
		return nil, false, err
	}

	docs, err := codec.DecodeInto[codec.Documents](text)
	if err != nil {
		c.logger.WithContext(ctx).Warn("Discarding undecodable list entry",
			logging.String("set", set),
			logging.String("key", key),
		)
		return nil, false, nil
	}
	return docs, true, nil
}

// GetMany fetches keys from set in one round trip. Keys that are absent or hold undecodable
// values are left out of the result.
func (c *Client) GetMany(ctx context.Context, set string, keys []string) (map[string]codec.Documents, error) {
	result := make(map[string]codec.Documents, len(keys))
	if len(keys) == 0 {
		return result, nil
	}

	var values []interface{}
	err := c.do(ctx, "HMGET", set, func(ctx context.Context, rdb redis.UniversalClient) error {
		var err error
		values, err = rdb.HMGet(ctx, set, keys...).Result()
		return err
	})
	if err != nil {
		return nil, err
	}

	for i, raw := range values {
		text, ok := raw.(string)
		if !ok || text == "" {
			continue
		}
		docs, err := codec.DecodeInto[codec.Documents](text)
		if err != nil {
			c.logger.WithContext(ctx).Warn("Skipping undecodable entry in bulk read",
				logging.String("set", set),
				logging.String("key", keys[i]),
			)
			continue
		}
		result[keys[i]] = docs
	}
	return result, nil
}

// Count returns the number of entries in set
func (c *Client) Count(ctx context.Context, set string) (int64, error) {
	var n int64
	err := c.do(ctx, "HLEN", set, func(ctx context.Context, rdb redis.UniversalClient) error {
		var err error
		n, err = rdb.HLen(ctx, set).Result()
		return err
	})
	return n, err
}

// Put encodes value and writes it under key, overwriting any previous value
func (c *Client) Put(ctx context.Context, set, key string, value any) (bool, error) {
	text, err := codec.Encode(value)
	if err != nil {
		return false, err
	}

	err = c.do(ctx, "HSET", set, func(ctx context.Context, rdb redis.UniversalClient) error {
		return rdb.HSet(ctx, set, key, text).Err()
	})
	return err == nil, err
}

// PutMany encodes every value and writes them all in one command. Nothing is written when any
// value fails to encode.
func (c *Client) PutMany(ctx context.Context, set string, values map[string]any) (bool, error) {
	if len(values) == 0 {
		return true, nil
	}

	fields := make(map[string]interface{}, len(values))
	for key, value := range values {
		text, err := codec.Encode(value)
		if err != nil {
			return false, err.(*errors.AppError).WithContext("key", key)
		}
		fields[key] = text
	}

	err := c.do(ctx, "HSET", set, func(ctx context.Context, rdb redis.UniversalClient) error {
		return rdb.HSet(ctx, set, fields).Err()
	})
	return err == nil, err
}

// PutList is PutMany for list-of-document values
func (c *Client) PutList(ctx context.Context, set string, values map[string]codec.Documents) (bool, error) {
	generic := make(map[string]any, len(values))
	for key, docs := range values {
		generic[key] = docs
	}
	return c.PutMany(ctx, set, generic)
}

// Delete removes key from set
func (c *Client) Delete(ctx context.Context, set, key string) (bool, error) {
	return c.DeleteMany(ctx, set, []string{key})
}

// DeleteMany removes every key in keys from set
func (c *Client) DeleteMany(ctx context.Context, set string, keys []string) (bool, error) {
	if len(keys) == 0 {
		return true, nil
	}
	err := c.do(ctx, "HDEL", set, func(ctx context.Context, rdb redis.UniversalClient) error {
		return rdb.HDel(ctx, set, keys...).Err()
	})
	return err == nil, err
}

// DeleteSet drops the whole set
func (c *Client) DeleteSet(ctx context.Context, set string) (bool, error) {
	c.logger.WithContext(ctx).Info("Deleting set", logging.String("set", set))

	err := c.do(ctx, "DEL", set, func(ctx context.Context, rdb redis.UniversalClient) error {
		return rdb.Del(ctx, set).Err()
	})
	return err == nil, err
}
