package inbound

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/randalmurphal/botflow/pkg/botflow/observability"
	"github.com/randalmurphal/botflow/pkg/botflow/update"
)

// Result is the outcome of processing one webhook body.
//
// Events holds zero or one event. A body that is not a JSON object sets
// Malformed; a filtered event sets DropReason. Neither is an error for the
// caller.
type Result struct {
	DeliveryID string
	Events     []ProcessedEvent
	DropReason string
	Malformed  error
}

// Dropped reports whether the filter rejected the event.
func (r Result) Dropped() bool {
	return r.DropReason != ""
}

// Pipeline runs webhook bodies through decode, validation, keying,
// context building, filtering and enrichment.
//
// A Pipeline holds no per-delivery state and is safe for concurrent use.
type Pipeline struct {
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	now     func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) PipelineOption {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithMetrics sets the metrics recorder. Default: no-op.
func WithMetrics(m observability.MetricsRecorder) PipelineOption {
	return func(p *Pipeline) {
		if m != nil {
			p.metrics = m
		}
	}
}

// WithSpanManager sets the span manager. Default: no-op.
func WithSpanManager(sm observability.SpanManager) PipelineOption {
	return func(p *Pipeline) {
		if sm != nil {
			p.spans = sm
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) PipelineOption {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// NewPipeline creates a pipeline.
func NewPipeline(opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		logger:  slog.Default(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process decodes a raw webhook body and runs it through the pipeline.
// It never panics and never returns an error; failures resolve to a
// Result with no events.
func (p *Pipeline) Process(ctx context.Context, body []byte, criteria FilterCriteria) (res Result) {
	start := p.now()
	res.DeliveryID = uuid.NewString()

	ctx, span := p.spans.StartDeliverySpan(ctx, res.DeliveryID)
	defer p.finish(span, &res)

	observability.LogDeliveryReceived(p.logger, res.DeliveryID, len(body))

	evt, err := update.Decode(body)
	if err != nil {
		res.Malformed = err
		observability.LogDeliveryMalformed(p.logger, res.DeliveryID, err)
		p.metrics.RecordDelivery(ctx, observability.OutcomeMalformed, p.now().Sub(start))
		return res
	}
	return p.run(ctx, res, evt, criteria, start)
}

// ProcessPayload runs an already-decoded JSON object through the pipeline.
// A nil payload is treated like a JSON null body.
func (p *Pipeline) ProcessPayload(ctx context.Context, payload map[string]any, criteria FilterCriteria) (res Result) {
	start := p.now()
	res.DeliveryID = uuid.NewString()

	ctx, span := p.spans.StartDeliverySpan(ctx, res.DeliveryID)
	defer p.finish(span, &res)

	if payload == nil {
		res.Malformed = fmt.Errorf("%w: got null", update.ErrNotObject)
		observability.LogDeliveryMalformed(p.logger, res.DeliveryID, res.Malformed)
		p.metrics.RecordDelivery(ctx, observability.OutcomeMalformed, p.now().Sub(start))
		return res
	}
	return p.run(ctx, res, update.FromPayload(payload), criteria, start)
}

// finish is deferred by both entry points. A panic in any stage becomes
// a Result with no events, and the delivery span is always closed.
func (p *Pipeline) finish(span trace.Span, res *Result) {
	if r := recover(); r != nil {
		p.logger.Error("webhook pipeline panic",
			slog.String("delivery_id", res.DeliveryID),
			slog.Any("panic", r),
			slog.String("stack", string(debug.Stack())),
		)
		*res = Result{DeliveryID: res.DeliveryID, Malformed: fmt.Errorf("pipeline panic: %v", r)}
	}
	p.spans.EndSpanWithError(span, res.Malformed)
}

func (p *Pipeline) run(ctx context.Context, res Result, evt update.Event, criteria FilterCriteria, start time.Time) Result {
	pe := ProcessedEvent{
		Event:            evt,
		ValidationStatus: Validate(evt),
		EventID:          IdempotencyKey(evt),
		EventContext:     BuildContext(evt),
	}
	updateType := evt.UpdateType.String()
	logger := observability.EnrichLogger(p.logger, res.DeliveryID, updateType)

	if ok, reason := criteria.Match(pe); !ok {
		res.DropReason = reason
		observability.LogEventDropped(logger, pe.EventID, reason)
		p.spans.AddSpanEvent(ctx, "event.dropped",
			attribute.String("event.id", pe.EventID),
			attribute.String("reason", reason),
		)
		p.metrics.RecordDelivery(ctx, observability.OutcomeFiltered, p.now().Sub(start))
		return res
	}

	now := p.now()
	pe.Metadata = Enrich(evt, start, now)

	if !pe.ValidationStatus.IsValid {
		observability.LogEventInvalid(logger, pe.EventID, pe.ValidationStatus.Errors)
	}
	observability.LogEventEmitted(logger, pe.EventID, pe.ValidationStatus.IsValid, float64(pe.Metadata.ProcessingTimeMs))
	p.spans.AddSpanEvent(ctx, "event.emitted",
		attribute.String("event.id", pe.EventID),
		attribute.String("update_type", updateType),
		attribute.Bool("valid", pe.ValidationStatus.IsValid),
	)
	p.metrics.RecordEvent(ctx, updateType, pe.ValidationStatus.IsValid)
	p.metrics.RecordDelivery(ctx, observability.OutcomeEmitted, now.Sub(start))

	res.Events = []ProcessedEvent{pe}
	return res
}
