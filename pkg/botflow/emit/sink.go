// Package emit delivers processed webhook events to downstream consumers.
package emit

import (
	"context"
	"log/slog"
	"sync"

	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
)

// Sink receives events that passed the inbound pipeline.
type Sink interface {
	Emit(ctx context.Context, pe inbound.ProcessedEvent) error
	Close() error
}

// MemorySink keeps emitted events in memory. It is safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []inbound.ProcessedEvent
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Emit implements Sink.
func (s *MemorySink) Emit(_ context.Context, pe inbound.ProcessedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, pe)
	return nil
}

// Events returns a copy of the events emitted so far.
func (s *MemorySink) Events() []inbound.ProcessedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]inbound.ProcessedEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Close implements Sink.
func (s *MemorySink) Close() error {
	return nil
}

// LogSink writes each emitted event to a logger. It is the sink used when
// no broker is configured.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a sink logging to logger, or slog.Default() when nil.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Emit implements Sink.
func (s *LogSink) Emit(ctx context.Context, pe inbound.ProcessedEvent) error {
	s.logger.InfoContext(ctx, "event",
		slog.String("event_id", pe.EventID),
		slog.String("update_type", pe.UpdateType().String()),
		slog.Bool("valid", pe.ValidationStatus.IsValid),
		slog.String("description", pe.EventContext.Description),
	)
	return nil
}

// Close implements Sink.
func (s *LogSink) Close() error {
	return nil
}
