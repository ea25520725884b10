package emit

import (
	"context"
	"errors"

	bferrors "github.com/randalmurphal/botflow/pkg/botflow/errors"
	"github.com/randalmurphal/botflow/pkg/botflow/inbound"
)

// RetryingSink retries failed emits through an error handler. The
// returned error is the handler's formatted envelope.
type RetryingSink struct {
	next       Sink
	handler    *bferrors.Handler
	deadLetter *DeadLetterQueue
}

// RetryingSinkOption configures a RetryingSink.
type RetryingSinkOption func(*RetryingSink)

// WithDeadLetter parks events that exhaust their retries in q.
func WithDeadLetter(q *DeadLetterQueue) RetryingSinkOption {
	return func(s *RetryingSink) {
		s.deadLetter = q
	}
}

// NewRetryingSink wraps next. A nil handler uses bferrors.NewHandler().
func NewRetryingSink(next Sink, handler *bferrors.Handler, opts ...RetryingSinkOption) *RetryingSink {
	if handler == nil {
		handler = bferrors.NewHandler()
	}
	s := &RetryingSink{next: next, handler: handler}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit implements Sink.
func (s *RetryingSink) Emit(ctx context.Context, pe inbound.ProcessedEvent) error {
	res := s.handler.Execute(ctx, "emit."+pe.UpdateType().String(), func(ctx context.Context) error {
		return s.next.Emit(ctx, pe)
	})
	if res.Err == nil || s.deadLetter == nil {
		return res.Err
	}

	failed := FailedEvent{
		Event:        pe,
		ErrorMessage: res.Message,
		AttemptCount: res.Attempts,
	}
	if res.Classified != nil {
		failed.Category = res.Classified.Category.String()
	}
	if err := s.deadLetter.Enqueue(failed); err != nil {
		return errors.Join(res.Err, err)
	}
	return res.Err
}

// Close closes the wrapped sink.
func (s *RetryingSink) Close() error {
	return s.next.Close()
}
