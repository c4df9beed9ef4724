package circuitbreaker

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cache-mate/internal/common/errors"
	"cache-mate/internal/common/logging"
)

func TestBreaker(t *testing.T) {
	logger := logging.NewNopLogger()
	ctx := context.Background()

	t.Run("starts closed", func(t *testing.T) {
		cb := New("test-basic", Config{MaxFailures: 2, Timeout: 100 * time.Millisecond, MaxConcurrentRequests: 1}, logger)

		err := cb.Execute(ctx, func(context.Context) error { return nil })
		assert.NoError(t, err)
		assert.Equal(t, StateClosed, cb.State())
		assert.Equal(t, "test-basic", cb.Name())
	})

	t.Run("opens after consecutive failures", func(t *testing.T) {
		cb := New("test-open", Config{MaxFailures: 3, Timeout: time.Minute, MaxConcurrentRequests: 1}, logger)

		for i := 0; i < 3; i++ {
			err := cb.Execute(ctx, func(context.Context) error {
				return errors.ConnectionError("HGET failed", fmt.Errorf("failure %d", i))
			})
			require.Error(t, err)
		}
		assert.Equal(t, StateOpen, cb.State())

		err := cb.Execute(ctx, func(context.Context) error {
			t.Fatal("must not run while open")
			return nil
		})
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeConnection))
		assert.Contains(t, err.Error(), "open")
	})

	t.Run("half-open after timeout then closes", func(t *testing.T) {
		cb := New("test-half-open", Config{MaxFailures: 1, Timeout: 50 * time.Millisecond, MaxConcurrentRequests: 1}, logger)

		_ = cb.Execute(ctx, func(context.Context) error { return fmt.Errorf("boom") })
		assert.Equal(t, StateOpen, cb.State())

		time.Sleep(80 * time.Millisecond)
		assert.Equal(t, StateHalfOpen, cb.State())

		assert.NoError(t, cb.Execute(ctx, func(context.Context) error { return nil }))
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("serialization errors do not trip", func(t *testing.T) {
		cb := New("test-serialization", Config{MaxFailures: 1, Timeout: time.Minute, MaxConcurrentRequests: 1}, logger)

		for i := 0; i < 3; i++ {
			err := cb.Execute(ctx, func(context.Context) error {
				return errors.SerializationError("bad json", nil)
			})
			assert.Error(t, err)
		}
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("cancelled callers do not trip", func(t *testing.T) {
		cb := New("test-cancel", Config{MaxFailures: 1, Timeout: time.Minute, MaxConcurrentRequests: 1}, logger)

		err := cb.Execute(ctx, func(context.Context) error { return context.Canceled })
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("invalid config falls back to defaults", func(t *testing.T) {
		cb := New("test-invalid", Config{}, logger)
		assert.Equal(t, StateClosed, cb.State())
	})

	t.Run("stats", func(t *testing.T) {
		cb := New("test-stats", DefaultConfig(), logger)
		_ = cb.Execute(ctx, func(context.Context) error { return nil })
		_ = cb.Execute(ctx, func(context.Context) error { return fmt.Errorf("x") })

		stats := cb.Stats()
		assert.Equal(t, "test-stats", stats.Name)
		assert.Equal(t, "closed", stats.State)
		assert.Equal(t, 1, stats.Successes)
		assert.Equal(t, 1, stats.Failures)
	})
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{MaxFailures: 0, Timeout: time.Second, MaxConcurrentRequests: 1}.Validate())
	assert.Error(t, Config{MaxFailures: 1, Timeout: 0, MaxConcurrentRequests: 1}.Validate())
	assert.Error(t, Config{MaxFailures: 1, Timeout: time.Second, MaxConcurrentRequests: 0}.Validate())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
