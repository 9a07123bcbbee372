package telemetry_test

import (
	"context"
	"runtime/pprof"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onlinekart/backend/internal/infrastructure/telemetry"
)

// labelInCallback runs the wrapper and reports the value of key as seen
// by pprof inside the callback.
func labelInCallback(t *testing.T, labels map[string]string, key string) (string, bool) {
	t.Helper()

	var (
		value string
		found bool
	)
	telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
		value, found = pprof.Label(c, key)
	})
	return value, found
}

func TestWithProfilingLabels(t *testing.T) {
	value, found := labelInCallback(t, map[string]string{
		"controller": "CartHandler",
		"method":     "POST",
	}, "controller")

	require.True(t, found)
	assert.Equal(t, "CartHandler", value)
}

func TestWithProfilingLabels_EmptyLabels(t *testing.T) {
	for _, labels := range []map[string]string{nil, {}} {
		called := false
		telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
			called = true
		})
		assert.True(t, called)
	}
}

func TestWithProfilingLabels_FiltersHighCardinalityKeys(t *testing.T) {
	labels := map[string]string{
		"controller": "OrderHandler",
		"user_id":    "u-123",
		"order_id":   "ord-456",
		"request_id": "req-789",
		"trace_id":   "aaaa",
		"span_id":    "bbbb",
		"session_id": "cccc",
	}

	for _, key := range []string{"user_id", "order_id", "request_id", "trace_id", "span_id", "session_id"} {
		_, found := labelInCallback(t, labels, key)
		assert.False(t, found, "key %s must not reach the profiler", key)
	}

	value, found := labelInCallback(t, labels, "controller")
	require.True(t, found)
	assert.Equal(t, "OrderHandler", value)
}

func TestWithProfilingLabels_TruncatesLongValues(t *testing.T) {
	long := strings.Repeat("x", telemetry.MaxLabelValueLength+50)

	value, found := labelInCallback(t, map[string]string{"route": long}, "route")
	require.True(t, found)
	assert.Len(t, value, telemetry.MaxLabelValueLength)
}

func TestWithProfilingLabels_SkipsEmptyEntries(t *testing.T) {
	labels := map[string]string{
		"controller": "ProductHandler",
		"method":     "",
		"":           "orphan",
	}

	_, found := labelInCallback(t, labels, "method")
	assert.False(t, found)

	value, found := labelInCallback(t, labels, "controller")
	require.True(t, found)
	assert.Equal(t, "ProductHandler", value)
}

func TestWithProfilingLabels_NormalizesKeys(t *testing.T) {
	tests := []struct {
		name    string
		rawKey  string
		wantKey string
	}{
		{"spaces", "my key", "my_key"},
		{"dashes", "my-key", "my_key"},
		{"uppercase", "MyKey", "mykey"},
		{"mixed", "My Custom-Key", "my_custom_key"},
		{"punctuation dropped", "route?!", "route"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			value, found := labelInCallback(t, map[string]string{tt.rawKey: "v"}, tt.wantKey)
			require.True(t, found)
			assert.Equal(t, "v", value)
		})
	}
}

func TestWithPprofLabels(t *testing.T) {
	var (
		value string
		found bool
	)
	telemetry.WithPprofLabels(context.Background(), map[string]string{
		"operation": "ListProducts",
	}, func(c context.Context) {
		value, found = pprof.Label(c, "operation")
	})

	require.True(t, found)
	assert.Equal(t, "ListProducts", value)
}

func TestWithPprofLabels_EmptyLabels(t *testing.T) {
	called := false
	telemetry.WithPprofLabels(context.Background(), nil, func(c context.Context) {
		called = true
	})
	assert.True(t, called)
}

func TestNestedProfilingLabels(t *testing.T) {
	ctx := context.Background()

	telemetry.WithProfilingLabels(ctx, map[string]string{
		telemetry.ProfilingLabelController: "CartHandler",
	}, func(outer context.Context) {
		telemetry.WithProfilingLabels(outer, map[string]string{
			telemetry.ProfilingLabelRegion: "db_query",
		}, func(inner context.Context) {
			controller, ok := pprof.Label(inner, telemetry.ProfilingLabelController)
			require.True(t, ok, "outer label must survive nesting")
			assert.Equal(t, "CartHandler", controller)

			region, ok := pprof.Label(inner, telemetry.ProfilingLabelRegion)
			require.True(t, ok)
			assert.Equal(t, "db_query", region)
		})
	})
}

func TestWithProfilingLabels_PreservesContextValues(t *testing.T) {
	type ctxKey string
	key := ctxKey("tenant")
	ctx := context.WithValue(context.Background(), key, "acme")

	telemetry.WithProfilingLabels(ctx, map[string]string{"controller": "X"}, func(c context.Context) {
		assert.Equal(t, "acme", c.Value(key))
	})
}

func TestHTTPRequestLabels(t *testing.T) {
	tests := []struct {
		name       string
		controller string
		route      string
		method     string
		want       map[string]string
	}{
		{
			name:       "all fields",
			controller: "ProductHandler",
			route:      "/api/v1/products",
			method:     "GET",
			want: map[string]string{
				telemetry.ProfilingLabelController: "ProductHandler",
				telemetry.ProfilingLabelRoute:      "/api/v1/products",
				telemetry.ProfilingLabelMethod:     "GET",
			},
		},
		{
			name:       "controller only",
			controller: "CartHandler",
			want:       map[string]string{telemetry.ProfilingLabelController: "CartHandler"},
		},
		{
			name: "all empty",
			want: map[string]string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, telemetry.HTTPRequestLabels(tt.controller, tt.route, tt.method))
		})
	}
}

func TestWithProfilingLabels_Concurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			labels := map[string]string{"controller": "CartHandler"}
			telemetry.WithProfilingLabels(context.Background(), labels, func(c context.Context) {
				_, _ = pprof.Label(c, "controller")
			})
		}()
	}
	wg.Wait()
}
