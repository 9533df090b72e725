package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// TraceLevel is a custom level below Debug for per-token detail. It is
// almost always filtered in production.
const TraceLevel = zapcore.Level(-2)

// LevelFromString parses a level name. It accepts "trace" plus every name
// zapcore understands, ignoring case and surrounding space.
func LevelFromString(level string) (zapcore.Level, error) {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "trace" {
		return TraceLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return zapcore.InfoLevel, err
	}
	return l, nil
}
