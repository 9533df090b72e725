package logging

import (
	"sort"

	"go.uber.org/zap/zapcore"
)

// newSampledCore wraps core so that every level configured in
// cfg.Levels is sampled with its own rate. Levels without a rate, and Error
// and above, always pass through.
func newSampledCore(core zapcore.Core, cfg SamplingConfig) zapcore.Core {
	if !cfg.Enabled || len(cfg.Levels) == 0 {
		return core
	}

	levels := make([]zapcore.Level, 0, len(cfg.Levels))
	for lvl := range cfg.Levels {
		if lvl < zapcore.ErrorLevel {
			levels = append(levels, lvl)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	cores := make([]zapcore.Core, 0, len(levels)+1)
	sampled := make(map[zapcore.Level]bool, len(levels))
	for _, lvl := range levels {
		rate := cfg.Levels[lvl]
		only := &levelRangeCore{Core: core, min: lvl, max: lvl}
		cores = append(cores, zapcore.NewSamplerWithOptions(only, cfg.Tick.Duration(), rate.Initial, rate.Thereafter))
		sampled[lvl] = true
	}
	cores = append(cores, &unsampledCore{Core: core, skip: sampled})

	return zapcore.NewTee(cores...)
}

// levelRangeCore only accepts entries with min <= level <= max.
type levelRangeCore struct {
	zapcore.Core
	min, max zapcore.Level
}

func (c *levelRangeCore) Enabled(lvl zapcore.Level) bool {
	return lvl >= c.min && lvl <= c.max && c.Core.Enabled(lvl)
}

func (c *levelRangeCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *levelRangeCore) With(fields []zapcore.Field) zapcore.Core {
	return &levelRangeCore{Core: c.Core.With(fields), min: c.min, max: c.max}
}

// unsampledCore passes every level that has no sampler of its own.
type unsampledCore struct {
	zapcore.Core
	skip map[zapcore.Level]bool
}

func (c *unsampledCore) Enabled(lvl zapcore.Level) bool {
	return !c.skip[lvl] && c.Core.Enabled(lvl)
}

func (c *unsampledCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if !c.Enabled(e.Level) {
		return ce
	}
	return c.Core.Check(e, ce)
}

func (c *unsampledCore) With(fields []zapcore.Field) zapcore.Core {
	return &unsampledCore{Core: c.Core.With(fields), skip: c.skip}
}
