package logging

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if id := RequestIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("request.id", id))
	}
	if id := DocumentIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("document.id", id))
	}
	if id := BatchIDFromContext(ctx); id != "" {
		fields = append(fields, zap.String("batch.id", id))
	}
	if domain := DomainFromContext(ctx); domain != "" {
		fields = append(fields, zap.String("domain", domain))
	}

	return fields
}

type (
	requestCtxKey  struct{}
	documentCtxKey struct{}
	batchCtxKey    struct{}
	domainCtxKey   struct{}
	loggerCtxKey   struct{}
)

const maxIDLen = 128

// idPattern allows the characters found in request ids, uuids and
// user-supplied document or batch ids.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_.:-]+$`)

// ValidID reports whether id may be attached to a context as a correlation
// id. Callers holding untrusted ids should check it before calling the With*
// helpers, which panic on invalid input.
func ValidID(id string) bool {
	return validateID(id, "id") == nil
}

func validateID(id, name string) error {
	if id == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	if !utf8.ValidString(id) {
		return fmt.Errorf("%s contains invalid UTF-8", name)
	}
	if len(id) > maxIDLen {
		return fmt.Errorf("%s exceeds max length %d", name, maxIDLen)
	}
	if !idPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters", name)
	}
	return nil
}

func withID(ctx context.Context, key any, id, name string) context.Context {
	if err := validateID(id, name); err != nil {
		panic(fmt.Sprintf("logging: %v", err))
	}
	return context.WithValue(ctx, key, id)
}

func stringFrom(ctx context.Context, key any) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithRequestID adds request ID to context.
// Panics if requestID is empty or contains invalid characters.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withID(ctx, requestCtxKey{}, requestID, "requestID")
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, requestCtxKey{})
}

// WithDocumentID adds the id of the document being analyzed.
// Panics on an invalid id.
func WithDocumentID(ctx context.Context, documentID string) context.Context {
	return withID(ctx, documentCtxKey{}, documentID, "documentID")
}

// DocumentIDFromContext extracts document ID from context.
func DocumentIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, documentCtxKey{})
}

// WithBatchID adds the id of the batch being analyzed.
// Panics on an invalid id.
func WithBatchID(ctx context.Context, batchID string) context.Context {
	return withID(ctx, batchCtxKey{}, batchID, "batchID")
}

// BatchIDFromContext extracts batch ID from context.
func BatchIDFromContext(ctx context.Context) string {
	return stringFrom(ctx, batchCtxKey{})
}

// WithDomain adds the resolved profile name. Empty names are ignored.
func WithDomain(ctx context.Context, domain string) context.Context {
	if domain == "" {
		return ctx
	}
	return context.WithValue(ctx, domainCtxKey{}, domain)
}

// DomainFromContext extracts the profile name from context.
func DomainFromContext(ctx context.Context) string {
	return stringFrom(ctx, domainCtxKey{})
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context, or a nop logger.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok {
		return l
	}
	return NewNop()
}
