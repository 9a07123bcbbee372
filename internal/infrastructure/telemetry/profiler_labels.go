package telemetry

import (
	"context"
	"runtime/pprof"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Label keys used to slice profiles in the Pyroscope UI.
const (
	ProfilingLabelController = "controller"
	ProfilingLabelRoute      = "route"
	ProfilingLabelMethod     = "method"
	ProfilingLabelOperation  = "operation"
	ProfilingLabelRegion     = "region"
)

// MaxLabelValueLength caps label values. Longer values are truncated
// rather than dropped so the series stays queryable.
const MaxLabelValueLength = 128

// Per-request identifiers would explode the series count in Pyroscope,
// so these keys are filtered out silently.
var highCardinalityKeys = map[string]struct{}{
	"user_id":    {},
	"request_id": {},
	"order_id":   {},
	"trace_id":   {},
	"span_id":    {},
	"session_id": {},
}

// WithProfilingLabels runs fn with the given labels attached to the
// profiling context:
//
//	telemetry.WithProfilingLabels(ctx, map[string]string{
//	    "controller": "CartHandler",
//	    "operation":  "Checkout",
//	}, processCheckout)
//
// The map is read once up front, so callers may reuse or mutate it after
// the call returns.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// WithPprofLabels is the same wrapper built on the standard pprof API.
// pyroscope.TagWrapper and pprof.Do produce identical label behavior;
// this variant keeps profiles readable by stock Go tooling.
func WithPprofLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := labelPairs(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pprof.Do(ctx, pprof.Labels(pairs...), fn)
}

// HTTPRequestLabels builds the conventional label set for an HTTP
// handler. Empty components are omitted.
func HTTPRequestLabels(controller, route, method string) map[string]string {
	labels := make(map[string]string, 3)
	if controller != "" {
		labels[ProfilingLabelController] = controller
	}
	if route != "" {
		labels[ProfilingLabelRoute] = route
	}
	if method != "" {
		labels[ProfilingLabelMethod] = method
	}
	return labels
}

// labelPairs flattens the map into the alternating key/value slice the
// profiling APIs expect. Keys are normalized and sorted, values
// truncated, and high-cardinality or empty entries dropped.
func labelPairs(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" {
			continue
		}
		if _, skip := highCardinalityKeys[key]; skip {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		if normalized := normalizeLabelKey(key); normalized != "" {
			pairs = append(pairs, normalized, value)
		}
	}
	return pairs
}

// normalizeLabelKey lowercases the key and maps it onto snake_case,
// dropping anything outside [a-z0-9_].
func normalizeLabelKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, c := range strings.ToLower(key) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_':
			b.WriteRune(c)
		case c == ' ' || c == '-':
			b.WriteByte('_')
		}
	}
	return b.String()
}
