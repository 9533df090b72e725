package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func newBufferedLogger(t *testing.T, mutate func(cfg *Config)) (*Logger, *bytes.Buffer) {
	t.Helper()
	cfg := NewDefaultConfig()
	cfg.Level = TraceLevel
	cfg.Sampling.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	var buf bytes.Buffer
	logger, err := NewLoggerWithWriter(cfg, nil, &buf)
	require.NoError(t, err)
	return logger, &buf
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m), line)
		out = append(out, m)
	}
	return out
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(NewDefaultConfig(), nil)
	require.NoError(t, err)
	require.NotNil(t, logger.Underlying())

	cfg := NewDefaultConfig()
	cfg.Format = "xml"
	_, err = NewLogger(cfg, nil)
	assert.Error(t, err)
}

func TestLogger_LevelsAndFields(t *testing.T) {
	logger, buf := newBufferedLogger(t, nil)
	ctx := context.Background()

	logger.Trace(ctx, "trace message")
	logger.Debug(ctx, "debug message")
	logger.Info(ctx, "info message", zap.Int("chunks", 3))
	logger.Warn(ctx, "warn message")
	logger.Error(ctx, "error message")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 5)

	levels := make([]string, 0, len(lines))
	for _, l := range lines {
		levels = append(levels, l["level"].(string))
		assert.Equal(t, "chunkopt", l["service"])
	}
	assert.Equal(t, []string{"trace", "debug", "info", "warn", "error"}, levels)
	assert.Equal(t, float64(3), lines[2]["chunks"])
}

func TestLogger_CallerPointsAtCallSite(t *testing.T) {
	logger, buf := newBufferedLogger(t, nil)
	logger.Info(context.Background(), "where")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Contains(t, lines[0]["caller"], "logger_test.go")
}

func TestLogger_LevelFiltering(t *testing.T) {
	logger, buf := newBufferedLogger(t, func(cfg *Config) { cfg.Level = zapcore.WarnLevel })
	ctx := context.Background()

	logger.Debug(ctx, "hidden")
	logger.Info(ctx, "hidden")
	logger.Warn(ctx, "shown")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "shown", lines[0]["msg"])
	assert.False(t, logger.Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Enabled(zapcore.ErrorLevel))
}

func TestLogger_ContextFieldsInjected(t *testing.T) {
	logger, buf := newBufferedLogger(t, nil)

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithDocumentID(ctx, "doc-7")
	ctx = WithDomain(ctx, "medical")
	logger.Info(ctx, "analyzed")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "req-1", lines[0]["request.id"])
	assert.Equal(t, "doc-7", lines[0]["document.id"])
	assert.Equal(t, "medical", lines[0]["domain"])
}

func TestLogger_WithAndNamed(t *testing.T) {
	logger, buf := newBufferedLogger(t, nil)

	child := logger.Named("engine").With(zap.String("component", "optimizer"))
	child.Info(context.Background(), "from child")
	logger.Info(context.Background(), "from parent")

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "engine", lines[0]["logger"])
	assert.Equal(t, "optimizer", lines[0]["component"])
	assert.NotContains(t, lines[1], "component")
}

func TestLogger_RedactsSensitiveFields(t *testing.T) {
	logger, buf := newBufferedLogger(t, nil)
	ctx := context.Background()

	logger.With(zap.String("api_key", "with-secret")).Info(ctx, "with field")
	logger.Info(ctx, "call field",
		zap.String("Authorization", "Bearer abc.def"),
		zap.String("note", "header was bearer xyz123"),
		zap.String("chunk_id", "c-1"))

	lines := decodeLines(t, buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "[REDACTED]", lines[0]["api_key"])
	assert.Equal(t, "[REDACTED]", lines[1]["Authorization"])
	assert.Equal(t, "[REDACTED:pattern]", lines[1]["note"])
	assert.Equal(t, "c-1", lines[1]["chunk_id"])
	assert.NotContains(t, buf.String(), "with-secret")
	assert.NotContains(t, buf.String(), "xyz123")
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info(context.Background(), "discarded")
	assert.False(t, l.Enabled(zapcore.ErrorLevel))
}
