package logging

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fyrsmithlabs/chunkopt/internal/config"
)

func sampledLogger(levels map[zapcore.Level]LevelSamplingConfig) (*Logger, *observer.ObservedLogs) {
	core, observed := observer.New(TraceLevel)
	cfg := SamplingConfig{
		Enabled: true,
		Tick:    config.Duration(time.Minute),
		Levels:  levels,
	}
	return &Logger{zap: zap.New(newSampledCore(core, cfg)), config: NewDefaultConfig()}, observed
}

func TestNewSampledCore_Disabled(t *testing.T) {
	core, _ := observer.New(zapcore.InfoLevel)
	assert.Equal(t, core, newSampledCore(core, SamplingConfig{Enabled: false}))
}

func TestNewSampledCore_ErrorsNeverSampled(t *testing.T) {
	logger, observed := sampledLogger(DefaultLevelSamplingConfig())

	for range 200 {
		logger.Error(context.Background(), "error message")
	}
	assert.Equal(t, 200, observed.FilterMessage("error message").Len())
}

func TestNewSampledCore_PerLevelRates(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.DebugLevel: {Initial: 2, Thereafter: 0},
		zapcore.InfoLevel:  {Initial: 5, Thereafter: 5},
	})
	ctx := context.Background()

	for range 20 {
		logger.Debug(ctx, "debug message")
		logger.Info(ctx, "info message")
		logger.Warn(ctx, "warn message")
	}

	assert.Equal(t, 2, observed.FilterMessage("debug message").Len())
	// First 5, then every 5th of the remaining 15.
	assert.Equal(t, 8, observed.FilterMessage("info message").Len())
	// Warn has no rate configured.
	assert.Equal(t, 20, observed.FilterMessage("warn message").Len())
}

func TestNewSampledCore_DistinctMessagesCountedSeparately(t *testing.T) {
	logger, observed := sampledLogger(map[zapcore.Level]LevelSamplingConfig{
		zapcore.InfoLevel: {Initial: 1, Thereafter: 0},
	})
	ctx := context.Background()

	logger.Info(ctx, "first")
	logger.Info(ctx, "first")
	logger.Info(ctx, "second")

	assert.Equal(t, 2, observed.Len())
}

func TestLevelRangeCore_WithKeepsRange(t *testing.T) {
	core, observed := observer.New(TraceLevel)
	ranged := (&levelRangeCore{Core: core, min: zapcore.WarnLevel, max: zapcore.WarnLevel}).
		With([]zapcore.Field{zap.String("k", "v")})

	logger := zap.New(ranged)
	logger.Info("dropped")
	logger.Warn("kept")

	entries := observed.All()
	assert.Len(t, entries, 1)
	assert.Equal(t, "v", entries[0].ContextMap()["k"])
}
