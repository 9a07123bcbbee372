package logger

import (
	"context"

	"go.uber.org/zap"

	"github.com/onlinekart/backend/internal/infrastructure/telemetry"
)

type contextKey string

const (
	// LoggerKey carries the request-scoped logger.
	LoggerKey contextKey = "logger"
	// RequestIDKey carries the request ID set by the RequestID middleware.
	RequestIDKey contextKey = "request_id"
	// UserIDKey carries the authenticated user's ID.
	UserIDKey contextKey = "user_id"
)

// WithContext stores the logger in ctx.
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, log)
}

// FromContext returns the logger stored in ctx, or a nop logger so call
// sites never need a nil check.
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(LoggerKey).(*zap.Logger); ok {
		return log
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in ctx and returns a logger that
// tags every entry with it.
func WithRequestID(ctx context.Context, log *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	return enrich(ctx, log, RequestIDKey, requestID)
}

// WithUserID stores the user ID in ctx and returns a logger that tags
// every entry with it.
func WithUserID(ctx context.Context, log *zap.Logger, userID string) (context.Context, *zap.Logger) {
	return enrich(ctx, log, UserIDKey, userID)
}

func enrich(ctx context.Context, log *zap.Logger, key contextKey, value string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, key, value)
	log = log.With(zap.String(string(key), value))
	return WithContext(ctx, log), log
}

// GetRequestID returns the request ID stored in ctx, if any.
func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, RequestIDKey)
}

// GetUserID returns the user ID stored in ctx, if any.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// WithTraceContext tags the logger with trace_id and span_id from the
// active span. With no recording span the logger comes back unchanged.
func WithTraceContext(ctx context.Context, log *zap.Logger) *zap.Logger {
	traceID := telemetry.GetTraceID(ctx)
	if traceID == "" {
		return log
	}
	return log.With(
		zap.String("trace_id", traceID),
		zap.String("span_id", telemetry.GetSpanID(ctx)),
	)
}

// ContextLogger logs with trace and request correlation pulled from the
// context at call time, so fields added after construction still appear.
type ContextLogger struct {
	ctx    context.Context
	logger *zap.Logger
}

// L builds a ContextLogger around the logger stored in ctx:
//
//	logger.L(ctx).Info("order placed", zap.String("order_id", id))
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: FromContext(ctx)}
}

// WithLogger builds a ContextLogger around an explicit logger, bypassing
// the one stored in ctx.
func WithLogger(ctx context.Context, log *zap.Logger) *ContextLogger {
	return &ContextLogger{ctx: ctx, logger: log}
}

// With returns a child ContextLogger carrying extra fields.
func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, logger: cl.logger.With(fields...)}
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) {
	cl.enriched().Debug(msg, fields...)
}

func (cl *ContextLogger) Info(msg string, fields ...zap.Field) {
	cl.enriched().Info(msg, fields...)
}

func (cl *ContextLogger) Warn(msg string, fields ...zap.Field) {
	cl.enriched().Warn(msg, fields...)
}

func (cl *ContextLogger) Error(msg string, fields ...zap.Field) {
	cl.enriched().Error(msg, fields...)
}

// Zap returns the underlying logger with correlation fields applied, for
// APIs that want a plain *zap.Logger.
func (cl *ContextLogger) Zap() *zap.Logger {
	return cl.enriched()
}

// Sugar returns the correlated logger in sugared form.
func (cl *ContextLogger) Sugar() *zap.SugaredLogger {
	return cl.enriched().Sugar()
}

func (cl *ContextLogger) enriched() *zap.Logger {
	l := cl.logger
	if l == nil {
		l = zap.NewNop()
	}
	l = WithTraceContext(cl.ctx, l)
	if requestID := GetRequestID(cl.ctx); requestID != "" {
		l = l.With(zap.String("request_id", requestID))
	}
	if userID := GetUserID(cl.ctx); userID != "" {
		l = l.With(zap.String("user_id", userID))
	}
	return l
}
