package gateway

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

var (
	metricsOnce          sync.Once
	sharedRequestMetrics *requestMetrics
)

type requestMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
}

func httpMetrics() *requestMetrics {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("auzchain/custody-gateway")
		requests, reqErr := meter.Int64Counter("auz.custody.http.requests")
		latency, latErr := meter.Float64Histogram("auz.custody.http.latency",
			metric.WithUnit("ms"))
		if reqErr != nil || latErr != nil {
			fallback := noop.NewMeterProvider().Meter("auzchain/custody-gateway")
			requests, _ = fallback.Int64Counter("auz.custody.http.requests")
			latency, _ = fallback.Float64Histogram("auz.custody.http.latency")
		}
		sharedRequestMetrics = &requestMetrics{requests: requests, latency: latency}
	})
	return sharedRequestMetrics
}

func (m *requestMetrics) record(method, path string, status int, elapsed time.Duration) {
	if m == nil || m.requests == nil || m.latency == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)
	m.requests.Add(context.Background(), 1, attrs)
	m.latency.Record(context.Background(), float64(elapsed)/float64(time.Millisecond), attrs)
}
