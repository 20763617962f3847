package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Hari-1410/H4shQ4x-2026/internal/config"
)

func TestNewWithWriter_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, config.LoggingConfig{Level: "warn", Format: "json"})

	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger.Warn("batch rejected", "reason", "duplicate")
	assert.Contains(t, buf.String(), `"msg":"batch rejected"`)
	assert.Contains(t, buf.String(), `"reason":"duplicate"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel(" DEBUG "))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}

func TestFromContext(t *testing.T) {
	var fallbackBuf, ctxBuf bytes.Buffer
	fallback := NewWithWriter(&fallbackBuf, config.LoggingConfig{Format: "json"})
	scoped := NewWithWriter(&ctxBuf, config.LoggingConfig{Format: "json"})

	FromContext(context.Background(), fallback).Info("plain")
	assert.Contains(t, fallbackBuf.String(), "plain")

	ctx := WithRequestID(WithLogger(context.Background(), scoped), "req-1")
	assert.Equal(t, "req-1", RequestID(ctx))

	FromContext(ctx, fallback).Info("scoped")
	assert.Contains(t, ctxBuf.String(), `"request_id":"req-1"`)
	assert.NotContains(t, fallbackBuf.String(), "scoped")

	assert.NotNil(t, FromContext(context.Background(), nil))
}
