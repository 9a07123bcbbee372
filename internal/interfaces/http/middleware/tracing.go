package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength bounds request IDs taken from client headers.
const MaxRequestIDLength = 128

// TracingConfig configures the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns the default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "onlinekart-backend",
		Enabled:     true,
	}
}

// Tracing returns tracing middleware with the default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and tags each server span with
// request_id and, once authentication has run, user_id. Span names
// follow otelgin's "METHOD route" convention ("GET /api/products/:slug/").
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	base := otelgin.Middleware(cfg.ServiceName)
	return func(c *gin.Context) {
		base(c)

		// otelgin has created the span by now; tag it with whatever
		// correlation values the request carries
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(correlationAttrs(c)...)
		}
	}
}

// TracingAttributeInjector re-tags the current span with correlation
// values that only exist after later middleware ran. Place it after both
// the tracing and JWT middleware.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			span.SetAttributes(correlationAttrs(c)...)
		}
		c.Next()
	}
}

// SpanErrorMarker flips the span status to error on 4xx and 5xx
// responses. Place it after the tracing middleware.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		status := c.Writer.Status()
		if status < http.StatusBadRequest {
			return
		}

		span.SetStatus(codes.Error, errorStatusText(status))
		span.SetAttributes(attribute.Int("http.status_code", status))
	}
}

func errorStatusText(status int) string {
	switch {
	case status >= http.StatusInternalServerError:
		return "Internal Server Error"
	case status == http.StatusUnauthorized:
		return "Unauthorized"
	case status == http.StatusForbidden:
		return "Forbidden"
	case status == http.StatusNotFound:
		return "Not Found"
	default:
		return "Client Error"
	}
}

func correlationAttrs(c *gin.Context) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 2)
	if requestID := getRequestID(c); requestID != "" {
		attrs = append(attrs, attribute.String("request_id", requestID))
	}
	if userID := getUserID(c); userID != "" {
		attrs = append(attrs, attribute.String("user_id", userID))
	}
	return attrs
}

// getRequestID prefers the ID minted by the RequestID middleware and
// falls back to the client header, truncated so an oversized header
// cannot bloat the span.
func getRequestID(c *gin.Context) string {
	if id := c.GetString("request_id"); id != "" {
		return id
	}

	headerID := c.GetHeader("X-Request-ID")
	if len(headerID) > MaxRequestIDLength {
		return headerID[:MaxRequestIDLength]
	}
	return headerID
}

func getUserID(c *gin.Context) string {
	if id, ok := c.Get(JWTUserIDKey); ok {
		if userID, ok := id.(string); ok {
			return userID
		}
	}
	return ""
}
