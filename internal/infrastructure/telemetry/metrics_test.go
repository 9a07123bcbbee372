package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"

	"github.com/onlinekart/backend/internal/infrastructure/telemetry"
)

func newDisabledMeterProvider(t *testing.T) *telemetry.MeterProvider {
	t.Helper()
	mp, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           false,
		CollectorEndpoint: "localhost:14317",
		ExportInterval:    60 * time.Second,
		ServiceName:       "onlinekart-backend",
	}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return mp
}

// manualMeter returns a meter whose recordings can be collected on demand,
// plus the reader to collect them with.
func manualMeter(t *testing.T) (*sdkmetric.ManualReader, metric.Meter) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })
	return reader, provider.Meter("test")
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return rm
}

func metricByName(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMeterProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	mp := newDisabledMeterProvider(t)

	assert.False(t, mp.IsEnabled())

	cfg := mp.GetConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "onlinekart-backend", cfg.ServiceName)

	// Meters still work, instruments just record into the void
	meter := mp.Meter("onlinekart/http")
	require.NotNil(t, meter)

	assert.NoError(t, mp.ForceFlush(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestMeterProvider_ShutdownIsIdempotent(t *testing.T) {
	ctx := context.Background()
	mp := newDisabledMeterProvider(t)

	assert.NoError(t, mp.Shutdown(ctx))
	assert.NoError(t, mp.Shutdown(ctx))
}

func TestCounter(t *testing.T) {
	ctx := context.Background()
	reader, meter := manualMeter(t)

	counter, err := telemetry.NewCounter(meter, "orders_placed_total", "Orders placed", "{order}")
	require.NoError(t, err)

	counter.Add(ctx, 5, attribute.String("channel", "web"))
	counter.Inc(ctx, attribute.String("channel", "web"))
	counter.Inc(ctx, attribute.String("channel", "api"))

	m := metricByName(collect(t, reader), "orders_placed_total")
	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 2)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.Equal(t, int64(7), total)
}

func TestHistogram(t *testing.T) {
	ctx := context.Background()
	reader, meter := manualMeter(t)

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "http_request_duration_seconds",
		Description: "HTTP request duration",
		Unit:        "s",
		Boundaries:  telemetry.HTTPDurationBuckets,
	})
	require.NoError(t, err)

	histogram.Record(ctx, 0.05, telemetry.AttrHTTPRoute.String("/api/products/"))
	histogram.RecordDuration(ctx, 250*time.Millisecond, telemetry.AttrHTTPRoute.String("/api/products/"))

	m := metricByName(collect(t, reader), "http_request_duration_seconds")
	require.NotNil(t, m)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)

	dp := hist.DataPoints[0]
	assert.Equal(t, uint64(2), dp.Count)
	assert.InDelta(t, 0.3, dp.Sum, 0.001)
	assert.Equal(t, telemetry.HTTPDurationBuckets, dp.Bounds)
}

func TestHistogram_DefaultBoundaries(t *testing.T) {
	ctx := context.Background()
	reader, meter := manualMeter(t)

	histogram, err := telemetry.NewHistogram(meter, telemetry.HistogramOpts{
		Name:        "checkout_duration_seconds",
		Description: "Checkout duration",
		Unit:        "s",
	})
	require.NoError(t, err)

	histogram.Record(ctx, 1.5)

	m := metricByName(collect(t, reader), "checkout_duration_seconds")
	require.NotNil(t, m)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
}

func TestGauge(t *testing.T) {
	ctx := context.Background()
	reader, meter := manualMeter(t)

	gauge, err := telemetry.NewGauge(meter, "db_pool_connections", "Pool connections", "{connection}")
	require.NoError(t, err)

	gauge.Record(ctx, 10, telemetry.AttrDBState.String("open"))
	gauge.Record(ctx, 4, telemetry.AttrDBState.String("open"))

	m := metricByName(collect(t, reader), "db_pool_connections")
	require.NotNil(t, m)

	data, ok := m.Data.(metricdata.Gauge[int64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	// Gauges keep the last value, not a sum
	assert.Equal(t, int64(4), data.DataPoints[0].Value)
}

func TestFloatGauge(t *testing.T) {
	ctx := context.Background()
	reader, meter := manualMeter(t)

	gauge, err := telemetry.NewFloatGauge(meter, "catalog_low_stock_ratio", "Share of products low on stock", "1")
	require.NoError(t, err)

	gauge.Record(ctx, 0.125)

	m := metricByName(collect(t, reader), "catalog_low_stock_ratio")
	require.NotNil(t, m)

	data, ok := m.Data.(metricdata.Gauge[float64])
	require.True(t, ok)
	require.Len(t, data.DataPoints, 1)
	assert.InDelta(t, 0.125, data.DataPoints[0].Value, 0.0001)
}

func TestAttributeKeys(t *testing.T) {
	assert.Equal(t, "user_id", string(telemetry.AttrUserID))
	assert.Equal(t, "http.method", string(telemetry.AttrHTTPMethod))
	assert.Equal(t, "http.status_code", string(telemetry.AttrHTTPStatusCode))
	assert.Equal(t, "http.route", string(telemetry.AttrHTTPRoute))
	assert.Equal(t, "db.operation", string(telemetry.AttrDBOperation))
	assert.Equal(t, "db.table", string(telemetry.AttrDBTable))
	assert.Equal(t, "db.pool.state", string(telemetry.AttrDBState))
	assert.Equal(t, "order_status", string(telemetry.AttrOrderStatus))
	assert.Equal(t, "failure_reason", string(telemetry.AttrFailureReason))
}

func TestDurationBucketsAreSorted(t *testing.T) {
	for _, buckets := range [][]float64{
		telemetry.HTTPDurationBuckets,
		telemetry.DBDurationBuckets,
		telemetry.SmallDurationBuckets,
	} {
		require.NotEmpty(t, buckets)
		for i := 1; i < len(buckets); i++ {
			assert.Greater(t, buckets[i], buckets[i-1])
		}
	}
}
