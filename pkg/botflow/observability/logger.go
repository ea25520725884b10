// Package observability provides structured logging, metrics, and tracing
// for the botflow webhook and outbound pipelines.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds delivery context to a logger.
//
// Example:
//
//	logger = EnrichLogger(logger, "d-123", "message_created")
//	logger.Info("processing") // includes delivery_id and update_type
func EnrichLogger(logger *slog.Logger, deliveryID, updateType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("delivery_id", deliveryID),
		slog.String("update_type", updateType),
	)
}

// LogDeliveryReceived logs the arrival of a webhook body.
func LogDeliveryReceived(logger *slog.Logger, deliveryID string, sizeBytes int) {
	if logger == nil {
		return
	}
	logger.Debug("webhook delivery received",
		slog.String("delivery_id", deliveryID),
		slog.Int("size_bytes", sizeBytes),
	)
}

// LogDeliveryMalformed logs a body that could not be decoded into an event.
func LogDeliveryMalformed(logger *slog.Logger, deliveryID string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("webhook body malformed, emitting no events",
		slog.String("delivery_id", deliveryID),
		slog.String("error", err.Error()),
	)
}

// LogEventEmitted logs an event that passed filtering.
// The logger is expected to carry update_type already (see EnrichLogger).
func LogEventEmitted(logger *slog.Logger, eventID string, valid bool, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("webhook event emitted",
		slog.String("event_id", eventID),
		slog.Bool("valid", valid),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogEventInvalid logs the validation problems of an event.
// Invalid events are still emitted, so this is informational.
func LogEventInvalid(logger *slog.Logger, eventID string, problems []string) {
	if logger == nil {
		return
	}
	logger.Warn("webhook event failed validation",
		slog.String("event_id", eventID),
		slog.Any("errors", problems),
	)
}

// LogEventDropped logs an event rejected by the filter.
func LogEventDropped(logger *slog.Logger, eventID, reason string) {
	if logger == nil {
		return
	}
	logger.Info("webhook event dropped",
		slog.String("event_id", eventID),
		slog.String("reason", reason),
	)
}

// LogOutboundFailure logs a failed outbound attempt.
func LogOutboundFailure(logger *slog.Logger, operation, category string, attempt int, err error) {
	if logger == nil {
		return
	}
	logger.Warn("outbound call failed",
		slog.String("operation", operation),
		slog.String("category", category),
		slog.Int("attempt", attempt),
		slog.String("error", err.Error()),
	)
}

// LogRetryScheduled logs a retry wait before the next attempt.
func LogRetryScheduled(logger *slog.Logger, operation, category string, attempt int, delay time.Duration) {
	if logger == nil {
		return
	}
	logger.Info("outbound retry scheduled",
		slog.String("operation", operation),
		slog.String("category", category),
		slog.Int("attempt", attempt),
		slog.Int64("delay_ms", delay.Milliseconds()),
	)
}

// LogRetryExhausted logs a terminal outbound failure.
func LogRetryExhausted(logger *slog.Logger, operation, category string, attempts int, err error) {
	if logger == nil {
		return
	}
	logger.Error("outbound call failed permanently",
		slog.String("operation", operation),
		slog.String("category", category),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}
