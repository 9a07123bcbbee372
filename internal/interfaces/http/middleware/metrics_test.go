package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// metricsRouter wires the middleware to a manual reader so tests can
// collect the recorded series on demand.
func metricsRouter(t *testing.T) (*gin.Engine, *sdkmetric.ManualReader) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), true))
	return router, reader
}

func collectedMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func serve(router *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHTTPMetrics_DegradesToPassThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	configs := map[string]HTTPMetricsConfig{
		"disabled":     {Enabled: false},
		"nil provider": {Enabled: true, MeterProvider: nil},
	}

	for name, cfg := range configs {
		t.Run(name, func(t *testing.T) {
			router := gin.New()
			router.Use(HTTPMetrics(cfg))
			router.GET("/products/", func(c *gin.Context) {
				c.JSON(http.StatusOK, gin.H{"items": []string{}})
			})

			assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/products/", "").Code)
		})
	}
}

func TestHTTPMetricsWithMeter_Disabled(t *testing.T) {
	gin.SetMode(gin.TestMode)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	router := gin.New()
	router.Use(HTTPMetricsWithMeter(mp.Meter("http.server"), false))
	router.GET("/products/", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/products/", "").Code)
	assert.Nil(t, collectedMetric(t, reader, "http_server_request_total"))
}

func TestHTTPMetricsWithMeter_CountsRequests(t *testing.T) {
	router, reader := metricsRouter(t)
	router.GET("/products/", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		serve(router, http.MethodGet, "/products/", "")
	}

	m := collectedMetric(t, reader, "http_server_request_total")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

func TestHTTPMetricsWithMeter_SplitsByStatusAndMethod(t *testing.T) {
	router, reader := metricsRouter(t)
	router.GET("/products/", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.POST("/products/", func(c *gin.Context) { c.Status(http.StatusCreated) })
	router.GET("/missing/", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	serve(router, http.MethodGet, "/products/", "")
	serve(router, http.MethodGet, "/products/", "")
	serve(router, http.MethodPost, "/products/", "")
	serve(router, http.MethodGet, "/missing/", "")

	m := collectedMetric(t, reader, "http_server_request_total")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	// GET 200, POST 201 and GET 404 are distinct series
	assert.Len(t, sum.DataPoints, 3)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(4), total)
}

func TestHTTPMetricsWithMeter_RecordsDuration(t *testing.T) {
	router, reader := metricsRouter(t)
	router.GET("/slow/", func(c *gin.Context) {
		time.Sleep(30 * time.Millisecond)
		c.Status(http.StatusOK)
	})

	serve(router, http.MethodGet, "/slow/", "")

	m := collectedMetric(t, reader, "http_server_request_duration_seconds")
	require.NotNil(t, m)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Greater(t, hist.DataPoints[0].Sum, 0.03)
}

func TestHTTPMetricsWithMeter_RecordsBodySizes(t *testing.T) {
	router, reader := metricsRouter(t)
	router.POST("/cart/items/", func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"quantity": 2})
	})

	serve(router, http.MethodPost, "/cart/items/", `{"product_id":"p1","quantity":2}`)

	for _, name := range []string{"http_server_request_size_bytes", "http_server_response_size_bytes"} {
		m := collectedMetric(t, reader, name)
		require.NotNil(t, m, name)

		hist, ok := m.Data.(metricdata.Histogram[float64])
		require.True(t, ok, name)
		require.Len(t, hist.DataPoints, 1, name)
		assert.Greater(t, hist.DataPoints[0].Sum, float64(0), name)
	}
}

func TestHTTPMetricsWithMeter_ActiveRequestsDrainToZero(t *testing.T) {
	router, reader := metricsRouter(t)
	router.GET("/products/", func(c *gin.Context) { c.Status(http.StatusOK) })

	serve(router, http.MethodGet, "/products/", "")

	m := collectedMetric(t, reader, "http_server_active_requests")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(0), sum.DataPoints[0].Value)
}

func TestHTTPMetricsWithMeter_UsesRoutePattern(t *testing.T) {
	router, reader := metricsRouter(t)
	router.GET("/products/:slug/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"slug": c.Param("slug")})
	})

	for _, slug := range []string{"gaming-mouse", "usb-hub", "keyboard"} {
		serve(router, http.MethodGet, "/products/"+slug+"/", "")
	}

	m := collectedMetric(t, reader, "http_server_request_total")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)

	// Every slug collapses into the one pattern series
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)

	route, found := sum.DataPoints[0].Attributes.Value("http.route")
	require.True(t, found)
	assert.Equal(t, "/products/:slug/", route.AsString())
}

func TestGetRoutePattern(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("matched route", func(t *testing.T) {
		router := gin.New()
		router.GET("/products/:slug/", func(c *gin.Context) {
			c.String(http.StatusOK, getRoutePattern(c))
		})

		w := serve(router, http.MethodGet, "/products/usb-hub/", "")
		assert.Equal(t, "/products/:slug/", w.Body.String())
	})

	t.Run("unmatched route", func(t *testing.T) {
		router := gin.New()
		router.NoRoute(func(c *gin.Context) {
			c.String(http.StatusNotFound, getRoutePattern(c))
		})

		w := serve(router, http.MethodGet, "/nowhere", "")
		assert.Equal(t, "unknown", w.Body.String())
	})
}

func TestGetRequestSize(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name          string
		contentLength int64
		want          int64
	}{
		{"declared length", 100, 100},
		{"zero length", 0, 0},
		{"unknown length", -1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got int64
			router := gin.New()
			router.POST("/test", func(c *gin.Context) {
				got = getRequestSize(c)
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodPost, "/test", nil)
			req.ContentLength = tt.contentLength
			router.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultHTTPMetricsConfig(t *testing.T) {
	cfg := DefaultHTTPMetricsConfig()

	assert.Equal(t, "onlinekart-backend", cfg.ServiceName)
	assert.True(t, cfg.Enabled)
	assert.Nil(t, cfg.MeterProvider)
}
