package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Delivery outcomes recorded by RecordDelivery.
const (
	OutcomeEmitted   = "emitted"
	OutcomeFiltered  = "filtered"
	OutcomeMalformed = "malformed"
)

// MetricsRecorder records botflow metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordDelivery records one webhook delivery and its outcome.
	RecordDelivery(ctx context.Context, outcome string, duration time.Duration)

	// RecordEvent records a processed event by update type and validity.
	RecordEvent(ctx context.Context, updateType string, valid bool)

	// RecordOutboundFailure records a classified outbound failure.
	RecordOutboundFailure(ctx context.Context, operation, category string)

	// RecordRetry records a scheduled retry and its delay.
	RecordRetry(ctx context.Context, operation, category string, delay time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	deliveries      metric.Int64Counter
	deliveryLatency metric.Float64Histogram
	events          metric.Int64Counter
	failures        metric.Int64Counter
	retries         metric.Int64Counter
	retryDelay      metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("botflow")

	deliveries, err := meter.Int64Counter("botflow.webhook.deliveries",
		metric.WithDescription("Number of webhook deliveries processed"),
	)
	if err != nil {
		return nil, err
	}

	deliveryLatency, err := meter.Float64Histogram("botflow.webhook.latency_ms",
		metric.WithDescription("Webhook pipeline latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	events, err := meter.Int64Counter("botflow.webhook.events",
		metric.WithDescription("Number of webhook events processed"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("botflow.outbound.failures",
		metric.WithDescription("Number of classified outbound failures"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("botflow.outbound.retries",
		metric.WithDescription("Number of outbound retries scheduled"),
	)
	if err != nil {
		return nil, err
	}

	retryDelay, err := meter.Float64Histogram("botflow.outbound.retry_delay_ms",
		metric.WithDescription("Delay before outbound retries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		deliveries:      deliveries,
		deliveryLatency: deliveryLatency,
		events:          events,
		failures:        failures,
		retries:         retries,
		retryDelay:      retryDelay,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordDelivery(ctx context.Context, outcome string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.deliveries.Add(ctx, 1, attrs)
	m.deliveryLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

func (m *otelMetrics) RecordEvent(ctx context.Context, updateType string, valid bool) {
	m.events.Add(ctx, 1, metric.WithAttributes(
		attribute.String("update_type", updateType),
		attribute.Bool("valid", valid),
	))
}

func (m *otelMetrics) RecordOutboundFailure(ctx context.Context, operation, category string) {
	m.failures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("category", category),
	))
}

func (m *otelMetrics) RecordRetry(ctx context.Context, operation, category string, delay time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("category", category),
	)
	m.retries.Add(ctx, 1, attrs)
	m.retryDelay.Record(ctx, float64(delay.Milliseconds()), attrs)
}
