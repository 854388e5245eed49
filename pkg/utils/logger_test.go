package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogWrapper(t *testing.T) {
	var buf bytes.Buffer

	logger := NewLogger(DebugLevel, &buf, FormatText)
	require.NotNil(t, logger)

	t.Run("Debug", func(t *testing.T) {
		buf.Reset()
		logger.Debug("debug message", "table", "sales")
		assert.Contains(t, buf.String(), "DEBUG")
		assert.Contains(t, buf.String(), "debug message")
		assert.Contains(t, buf.String(), "table=sales")
	})

	t.Run("TraceSuppressedAtDebug", func(t *testing.T) {
		buf.Reset()
		logger.Trace("wire message", "bytes", 12)
		assert.Empty(t, buf.String())
	})

	t.Run("WithField", func(t *testing.T) {
		buf.Reset()
		logger.WithField("tool", "query").Debug("with field")
		assert.Contains(t, buf.String(), "tool=query")
	})

	t.Run("WithContext", func(t *testing.T) {
		buf.Reset()
		ctx := SetTraceId(context.Background(), "abc-123")
		logger.WithContext(ctx).Debug("traced")
		assert.Contains(t, buf.String(), "trace_id=abc-123")

		assert.Same(t, logger, logger.WithContext(context.Background()))
	})
}

func TestTraceLevelJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(TraceLevel, &buf, FormatJSON)

	logger.Trace("test trace", "method", "tools/call")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "test trace", entry["msg"])
	assert.Equal(t, "tools/call", entry["method"])
}

func TestInfoLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf, FormatText)

	logger.Debug("hidden")
	logger.Trace("hidden")
	assert.Empty(t, buf.String())

	logger.Slog().Info("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestSetupDefault(t *testing.T) {
	previous := GetLogger()
	previousSlog := slog.Default()
	defer func() {
		defaultLogger.Store(previous)
		slog.SetDefault(previousSlog)
	}()

	var buf bytes.Buffer
	logger := SetupDefault(TraceLevel, &buf, FormatText)
	assert.Same(t, logger, GetLogger())

	GetLogger().Trace("from default")
	slog.Info("from slog")
	assert.Contains(t, buf.String(), "from default")
	assert.Contains(t, buf.String(), "from slog")
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"trace":   TraceLevel,
		"DEBUG":   DebugLevel,
		"info":    InfoLevel,
		" warn ":  WarnLevel,
		"warning": WarnLevel,
		"error":   ErrorLevel,
		"fatal":   FatalLevel,
		"bogus":   InfoLevel,
		"":        InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestTraceId(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", GetTraceId(ctx))

	ctx, id := WithNewTraceId(ctx)
	assert.Len(t, id, 36)
	assert.Equal(t, id, GetTraceId(ctx))
}
