package errors

import (
	"context"
	"log/slog"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/randalmurphal/botflow/pkg/botflow/observability"
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 3

// Handler runs outbound calls with classification, retry and formatting.
type Handler struct {
	policy      RetryPolicy
	maxRetries  int
	logger      *slog.Logger
	metrics     observability.MetricsRecorder
	spans       observability.SpanManager
	onExhausted func(op string, c *ClassifiedError)
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// NewHandler creates a new handler with the given options.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{
		policy:     DefaultRetryPolicy,
		maxRetries: DefaultMaxRetries,
		logger:     slog.Default(),
		metrics:    observability.NoopMetrics{},
		spans:      observability.NoopSpanManager{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(p RetryPolicy) HandlerOption {
	return func(h *Handler) {
		h.policy = p
	}
}

// WithMaxRetries sets the retry budget. Zero disables retries.
func WithMaxRetries(n int) HandlerOption {
	return func(h *Handler) {
		if n >= 0 {
			h.maxRetries = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m observability.MetricsRecorder) HandlerOption {
	return func(h *Handler) {
		if m != nil {
			h.metrics = m
		}
	}
}

// WithSpanManager sets the span manager.
func WithSpanManager(sm observability.SpanManager) HandlerOption {
	return func(h *Handler) {
		if sm != nil {
			h.spans = sm
		}
	}
}

// WithOnExhausted sets a callback for failures that will not be retried.
func WithOnExhausted(fn func(op string, c *ClassifiedError)) HandlerOption {
	return func(h *Handler) {
		h.onExhausted = fn
	}
}

// ExecuteResult contains the result of a handled execution.
type ExecuteResult[T any] struct {
	// Value is the result if successful.
	Value T

	// Err is the surfaced error if failed. It is always a *goerrors.Error.
	Err error

	// Classified is the classification of the last failure, if any.
	Classified *ClassifiedError

	// Message is the operator-facing text for Err.
	Message string

	// Attempts is the total number of calls made.
	Attempts int
}

// Execute runs fn, retrying retryable failures per the policy.
func (h *Handler) Execute(
	ctx context.Context,
	op string,
	fn func(ctx context.Context) error,
) ExecuteResult[struct{}] {
	return Execute(ctx, h, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
}

// Execute runs fn with full error handling and returns its value.
//
// Each failure is classified and handed to the retry policy. Waits between
// attempts stop early when ctx is done; the result then carries a
// cancellation error rather than the last classified failure.
func Execute[T any](
	ctx context.Context,
	h *Handler,
	op string,
	fn func(ctx context.Context) (T, error),
) ExecuteResult[T] {
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return canceled[T](op, attempt, err)
		}

		spanCtx, span := h.spans.StartOutboundSpan(ctx, op, attempt)
		value, err := fn(spanCtx)
		h.spans.EndSpanWithError(span, err)

		if err == nil {
			return ExecuteResult[T]{Value: value, Attempts: attempt + 1}
		}

		c := Classify(err)
		category := c.Category.String()
		observability.LogOutboundFailure(h.logger, op, category, attempt, err)
		h.metrics.RecordOutboundFailure(ctx, op, category)

		decision := h.policy.Decide(c, attempt, h.maxRetries)
		if !decision.ShouldRetry {
			f := Format(c, Operation{Name: op, Attempt: attempt, MaxAttempts: h.maxRetries})
			observability.LogRetryExhausted(h.logger, op, category, attempt+1, err)
			if h.onExhausted != nil {
				h.onExhausted(op, c)
			}
			return ExecuteResult[T]{
				Err:        f.Err,
				Classified: c,
				Message:    f.Message,
				Attempts:   attempt + 1,
			}
		}

		observability.LogRetryScheduled(h.logger, op, category, attempt+1, decision.Delay)
		h.metrics.RecordRetry(ctx, op, category, decision.Delay)

		timer := time.NewTimer(decision.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			res := canceled[T](op, attempt+1, ctx.Err())
			res.Classified = c
			return res
		case <-timer.C:
		}
	}
}

func canceled[T any](op string, attempts int, cause error) ExecuteResult[T] {
	msg := "Operation " + op + " was canceled before it could complete."
	err := goerrors.Wrap(cause, goerrors.CategoryOperation, msg).
		WithTextCode(TextCodeCanceled)
	err.WithMetadata(map[string]any{"operation": op})
	return ExecuteResult[T]{
		Err:      err,
		Message:  msg,
		Attempts: attempts,
	}
}
