// Package middleware provides HTTP middleware for the Online Kart API.
package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/onlinekart/backend/internal/infrastructure/telemetry"
)

// ProfilingConfig controls which requests get Pyroscope labels.
type ProfilingConfig struct {
	Enabled          bool
	SkipPaths        []string // exact paths, e.g. health checks
	SkipPathPrefixes []string // prefixes, e.g. the docs UI
}

// DefaultProfilingConfig skips the health endpoint and the docs UI.
func DefaultProfilingConfig() ProfilingConfig {
	return ProfilingConfig{
		Enabled:          true,
		SkipPaths:        []string{"/api/health/"},
		SkipPathPrefixes: []string{"/docs", "/redoc"},
	}
}

// Profiling returns the profiling middleware with default configuration.
func Profiling() gin.HandlerFunc {
	return ProfilingWithConfig(DefaultProfilingConfig())
}

// ProfilingWithConfig tags each request's goroutines with controller,
// route and method labels so profiles can be sliced per endpoint in the
// Pyroscope UI. Labels come from the matched route pattern, never the
// raw path, to keep cardinality low.
func ProfilingWithConfig(cfg ProfilingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	return func(c *gin.Context) {
		if skipProfiling(cfg, c.Request.URL.Path) {
			c.Next()
			return
		}

		telemetry.WithProfilingLabels(c.Request.Context(), requestProfilingLabels(c), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

func skipProfiling(cfg ProfilingConfig, path string) bool {
	for _, skip := range cfg.SkipPaths {
		if path == skip {
			return true
		}
	}
	for _, prefix := range cfg.SkipPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func requestProfilingLabels(c *gin.Context) map[string]string {
	labels := map[string]string{
		telemetry.ProfilingLabelMethod: c.Request.Method,
	}

	route := c.FullPath()
	if route != "" {
		labels[telemetry.ProfilingLabelRoute] = route
	}
	if controller := controllerFromRoute(route); controller != "" {
		labels[telemetry.ProfilingLabelController] = controller
	}
	return labels
}

// controllerFromRoute takes the first resource segment of the route
// pattern: "/api/products/:slug/" yields "products".
func controllerFromRoute(route string) string {
	for _, part := range strings.Split(route, "/") {
		switch {
		case part == "" || part == "api":
		case strings.HasPrefix(part, ":") || strings.HasPrefix(part, "*"):
		default:
			return part
		}
	}
	return ""
}
