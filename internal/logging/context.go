package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 4)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}

	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	if taskID, ok := TaskIDFromContext(ctx); ok {
		fields = append(fields, zap.Int("task.id", taskID))
	}

	return fields
}

type requestCtxKey struct{}
type taskCtxKey struct{}
type loggerCtxKey struct{}

const maxIDLen = 128

// idPattern allows alphanumeric, hyphen, underscore and dot.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)

// ValidRequestID reports whether id can be used as a request id.
func ValidRequestID(id string) bool {
	return id != "" && len(id) <= maxIDLen && idPattern.MatchString(id)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	if r, ok := ctx.Value(requestCtxKey{}).(string); ok {
		return r
	}
	return ""
}

// WithRequestID adds request ID to context. Request ids arrive from clients
// (e.g. X-Request-ID), so an invalid id is dropped and ctx returned unchanged.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if !ValidRequestID(requestID) {
		return ctx
	}
	return context.WithValue(ctx, requestCtxKey{}, requestID)
}

// TaskIDFromContext extracts the task being worked on.
func TaskIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(taskCtxKey{}).(int)
	return id, ok
}

// WithTaskID adds the task id to context.
func WithTaskID(ctx context.Context, taskID int) context.Context {
	return context.WithValue(ctx, taskCtxKey{}, taskID)
}

// WithLogger stores logger in context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// FromContext retrieves logger from context.
// Returns a nop logger if not found.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(loggerCtxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return NewNop()
}
