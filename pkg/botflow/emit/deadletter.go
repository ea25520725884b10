package emit

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
)

// DefaultDeadLetterSize is the capacity used when none is given.
const DefaultDeadLetterSize = 1000

// ErrDeadLetterFull is returned by Enqueue when the queue is at capacity.
var ErrDeadLetterFull = errors.New("dead letter queue is full")

// FailedEvent is an event whose emit failed after all retries.
type FailedEvent struct {
	Event         inbound.ProcessedEvent `json:"event"`
	Category      string                 `json:"category,omitempty"`
	ErrorMessage  string                 `json:"error_message"`
	AttemptCount  int                    `json:"attempt_count"`
	FirstFailedAt time.Time              `json:"first_failed_at"`
	LastFailedAt  time.Time              `json:"last_failed_at"`
}

// DeadLetterQueue holds failed events in memory, keyed by event id, until
// they are replayed or acknowledged. It is safe for concurrent use.
type DeadLetterQueue struct {
	mu      sync.RWMutex
	events  map[string]*FailedEvent
	maxSize int
	now     func() time.Time

	// OnEnqueue, when set, is called with each newly queued or updated event.
	OnEnqueue func(FailedEvent)
}

// NewDeadLetterQueue creates a queue holding up to maxSize events.
func NewDeadLetterQueue(maxSize int) *DeadLetterQueue {
	if maxSize <= 0 {
		maxSize = DefaultDeadLetterSize
	}
	return &DeadLetterQueue{
		events:  make(map[string]*FailedEvent),
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Enqueue records a failure. A second failure of the same event id adds
// to its attempt count instead of taking another slot.
func (q *DeadLetterQueue) Enqueue(failed FailedEvent) error {
	q.mu.Lock()
	now := q.now()
	id := failed.Event.EventID

	existing, ok := q.events[id]
	switch {
	case ok:
		existing.AttemptCount += failed.AttemptCount
		existing.Category = failed.Category
		existing.ErrorMessage = failed.ErrorMessage
		existing.LastFailedAt = now
		failed = *existing
	case len(q.events) >= q.maxSize:
		q.mu.Unlock()
		return fmt.Errorf("enqueue %s: %w", id, ErrDeadLetterFull)
	default:
		failed.FirstFailedAt = now
		failed.LastFailedAt = now
		q.events[id] = &failed
	}
	q.mu.Unlock()

	if q.OnEnqueue != nil {
		q.OnEnqueue(failed)
	}
	return nil
}

// Len returns the number of queued events.
func (q *DeadLetterQueue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.events)
}

// List returns up to limit queued events, oldest failure first.
// A limit of zero or less returns all of them.
func (q *DeadLetterQueue) List(limit int) []FailedEvent {
	q.mu.RLock()
	out := make([]FailedEvent, 0, len(q.events))
	for _, f := range q.events {
		out = append(out, *f)
	}
	q.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].FirstFailedAt.Equal(out[j].FirstFailedAt) {
			return out[i].Event.EventID < out[j].Event.EventID
		}
		return out[i].FirstFailedAt.Before(out[j].FirstFailedAt)
	})
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

// Acknowledge removes an event. It reports whether the event was queued.
func (q *DeadLetterQueue) Acknowledge(eventID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, ok := q.events[eventID]
	delete(q.events, eventID)
	return ok
}

// Replay emits every queued event to sink. Delivered events are
// acknowledged; failures stay queued with their attempt count raised.
func (q *DeadLetterQueue) Replay(ctx context.Context, sink Sink) (int, error) {
	var (
		delivered int
		errs      []error
	)
	for _, f := range q.List(0) {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if err := sink.Emit(ctx, f.Event); err != nil {
			errs = append(errs, fmt.Errorf("replay %s: %w", f.Event.EventID, err))
			_ = q.Enqueue(FailedEvent{
				Event:        f.Event,
				Category:     f.Category,
				ErrorMessage: err.Error(),
				AttemptCount: 1,
			})
			continue
		}
		q.Acknowledge(f.Event.EventID)
		delivered++
	}
	return delivered, errors.Join(errs...)
}
