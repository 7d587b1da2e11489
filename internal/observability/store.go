package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"noteguard/internal/models"
	"noteguard/internal/store"
)

// InstrumentedEventStore wraps a store.EventStore implementation with
// OpenTelemetry tracing and metrics instrumentation.
type InstrumentedEventStore struct {
	inner    store.EventStore
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

// NewInstrumentedEventStore creates an event store wrapper that records trace
// spans, operation latency histograms, and error counters for every store
// method call.
func NewInstrumentedEventStore(inner store.EventStore) (*InstrumentedEventStore, error) {
	tracer := otel.Tracer("noteguard/store")
	meter := otel.Meter("noteguard/store")

	duration, err := meter.Float64Histogram(
		"store.operation.duration",
		metric.WithDescription("Duration of event store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"store.operation.errors",
		metric.WithDescription("Number of event store operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedEventStore{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedEventStore) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "store."+operation,
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("store.operation", operation),
		}, attrs...)...),
	)
	return ctx, span
}

func (s *InstrumentedEventStore) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedEventStore) RecordEvent(ctx context.Context, event *models.WebhookEvent) error {
	ctx, span := s.startSpan(ctx, "RecordEvent",
		attribute.String("event_id", event.ID),
		attribute.String("event_type", event.Type),
	)
	start := time.Now()
	err := s.inner.RecordEvent(ctx, event)
	s.record(ctx, span, "RecordEvent", start, err)
	return err
}

func (s *InstrumentedEventStore) GetEvent(ctx context.Context, id string) (*models.WebhookEvent, error) {
	ctx, span := s.startSpan(ctx, "GetEvent", attribute.String("event_id", id))
	start := time.Now()
	result, err := s.inner.GetEvent(ctx, id)
	s.record(ctx, span, "GetEvent", start, err)
	return result, err
}

func (s *InstrumentedEventStore) ListEvents(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	ctx, span := s.startSpan(ctx, "ListEvents", attribute.Int("limit", limit))
	start := time.Now()
	result, err := s.inner.ListEvents(ctx, limit)
	s.record(ctx, span, "ListEvents", start, err)
	return result, err
}

func (s *InstrumentedEventStore) Close() error {
	ctx, span := s.startSpan(context.Background(), "Close")
	start := time.Now()
	err := s.inner.Close()
	s.record(ctx, span, "Close", start, err)
	return err
}
