package logging

import (
	"reflect"
	"regexp"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// TestLogger is a Logger that records every entry for assertions.
type TestLogger struct {
	*Logger
	observed *observer.ObservedLogs
}

// NewTestLogger creates a logger observing every level down to Trace.
func NewTestLogger() *TestLogger {
	core, observed := observer.New(TraceLevel)
	return &TestLogger{
		Logger:   &Logger{zap: zap.New(core), config: NewDefaultConfig()},
		observed: observed,
	}
}

// All returns all logged entries.
func (t *TestLogger) All() []observer.LoggedEntry {
	return t.observed.All()
}

// FilterMessage returns entries matching message substring.
func (t *TestLogger) FilterMessage(msg string) *observer.ObservedLogs {
	return t.observed.FilterMessageSnippet(msg)
}

// Reset clears all logged entries.
func (t *TestLogger) Reset() {
	t.observed.TakeAll()
}

// AssertLogged verifies a log at level containing message was logged.
func (t *TestLogger) AssertLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			return
		}
	}
	tb.Errorf("expected log at %v containing %q, logs: %+v", level, msgContains, t.observed.All())
}

// AssertNotLogged verifies no log at level containing message was logged.
func (t *TestLogger) AssertNotLogged(tb testing.TB, level zapcore.Level, msgContains string) {
	tb.Helper()
	for _, entry := range t.observed.All() {
		if entry.Level == level && strings.Contains(entry.Message, msgContains) {
			tb.Errorf("unexpected log at %v containing %q", level, msgContains)
		}
	}
}

// AssertField verifies some entry whose message contains msg carries key
// with the expected value.
func (t *TestLogger) AssertField(tb testing.TB, msg, key string, expected interface{}) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessageSnippet(msg).All() {
		got, ok := entry.ContextMap()[key]
		if ok && reflect.DeepEqual(got, expected) {
			return
		}
	}
	tb.Errorf("field %q=%v not found in message %q", key, expected, msg)
}

// AssertNoSecrets verifies no entry carries an unredacted sensitive key or
// a value matching a sensitive pattern.
func (t *TestLogger) AssertNoSecrets(tb testing.TB) {
	tb.Helper()

	patterns := make([]*regexp.Regexp, 0, len(DefaultRedactedPatterns))
	for _, p := range DefaultRedactedPatterns {
		patterns = append(patterns, regexp.MustCompile(p))
	}
	matches := func(s string) bool {
		for _, re := range patterns {
			if re.MatchString(s) {
				return true
			}
		}
		return false
	}

	for _, entry := range t.observed.All() {
		if matches(entry.Message) {
			tb.Errorf("sensitive pattern in message: %q", entry.Message)
		}
		for _, field := range entry.Context {
			if field.Type != zapcore.StringType {
				continue
			}
			if isSensitiveKey(field.Key) && field.String != "" && !strings.HasPrefix(field.String, "[REDACTED") {
				tb.Errorf("sensitive field %q not redacted: %q", field.Key, field.String)
			}
			if matches(field.String) {
				tb.Errorf("sensitive pattern in field %q: %q", field.Key, field.String)
			}
		}
	}
}

// AssertTraceCorrelation verifies trace_id present in message.
func (t *TestLogger) AssertTraceCorrelation(tb testing.TB, msg string) {
	tb.Helper()
	for _, entry := range t.observed.FilterMessageSnippet(msg).All() {
		if _, ok := entry.ContextMap()["trace_id"]; ok {
			return
		}
	}
	tb.Errorf("message %q missing trace_id", msg)
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range DefaultRedactedFields {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
