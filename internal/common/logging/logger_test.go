package logging

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogLevel_String(t *testing.T) {
	tests := []struct {
		level    LogLevel
		expected string
	}{
		{DebugLevel, "DEBUG"},
		{InfoLevel, "INFO"},
		{WarnLevel, "WARN"},
		{ErrorLevel, "ERROR"},
		{LogLevel(99), "UNKNOWN"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.level.String())
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel("WARNING"))
	assert.Equal(t, ErrorLevel, ParseLevel(" error "))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, InfoLevel, ParseLevel(""))
}

func TestZapAdapter_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: DebugLevel, Output: &buf})
	require.NoError(t, err)

	tests := []struct {
		name     string
		logFunc  func()
		contains []string
	}{
		{
			name:     "debug",
			logFunc:  func() { logger.Debug("cache miss", Field{"key", "o1"}) },
			contains: []string{"DEBUG", "cache miss", "o1"},
		},
		{
			name:     "info",
			logFunc:  func() { logger.Info("cache created", Int("capacity", 100)) },
			contains: []string{"INFO", "cache created", "100"},
		},
		{
			name:     "warn",
			logFunc:  func() { logger.Warn("put failed", Bool("swallowed", true)) },
			contains: []string{"WARN", "put failed", "true"},
		},
		{
			name:     "error",
			logFunc:  func() { logger.Error("decode failed", errors.New("bad json"), String("set", "orders")) },
			contains: []string{"ERROR", "decode failed", "bad json", "orders"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf.Reset()
			tt.logFunc()
			for _, s := range tt.contains {
				assert.Contains(t, buf.String(), s)
			}
		})
	}
}

func TestZapAdapter_Filtering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: WarnLevel, Output: &buf})
	require.NoError(t, err)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	assert.NotContains(t, buf.String(), "debug message")
	assert.NotContains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestZapAdapter_WithFieldsAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &buf})
	require.NoError(t, err)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithSet(ctx, "orders")

	logger.WithFields(Field{"component", "registry"}).WithContext(ctx).Info("lookup")

	out := buf.String()
	assert.Contains(t, out, "registry")
	assert.Contains(t, out, "req-123")
	assert.Contains(t, out, "orders")
}

func TestZapAdapter_WithContextWithoutValues(t *testing.T) {
	logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &bytes.Buffer{}})
	require.NoError(t, err)

	assert.Same(t, logger, logger.WithContext(context.Background()))
	assert.Same(t, logger, logger.WithFields())
}

func TestGlobalLogger(t *testing.T) {
	var buf bytes.Buffer
	previous := GetGlobalLogger()
	defer SetGlobalLogger(previous)

	logger, err := NewZapLogger(LogConfig{Level: InfoLevel, Output: &buf})
	require.NoError(t, err)
	SetGlobalLogger(logger)

	Info("global info")
	Component("remotemap").Warn("component warn")

	assert.Contains(t, buf.String(), "global info")
	assert.Contains(t, buf.String(), "remotemap")
}

func TestNewNopLogger(t *testing.T) {
	logger := NewNopLogger()
	assert.NotPanics(t, func() {
		logger.Error("ignored", errors.New("boom"))
	})
}
