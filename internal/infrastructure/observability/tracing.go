package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "jan-actions"
)

// GetTracer returns the global tracer for the action chat client.
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StreamAttributes returns common attributes for stream spans.
func StreamAttributes(actionID string, attachments int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("action.id", actionID),
		attribute.Int("stream.attachments", attachments),
	}
}

// StartInvokeSpan starts the span covering one invoke, from open to terminal state.
func StartInvokeSpan(ctx context.Context, tracer trace.Tracer, actionID string, attachments int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "action.invoke",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(StreamAttributes(actionID, attachments)...),
	)
}

// StartBackendSpan starts a span for a backend REST call.
func StartBackendSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return GetTracer().Start(ctx, "backend."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// RecordError records an error on a span.
func RecordError(span trace.Span, err error, severity string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	span.SetAttributes(attribute.String("error.severity", severity))
}

// AddStreamEvent adds a folded stream event to a span.
func AddStreamEvent(span trace.Span, kind string) {
	span.AddEvent("stream.event",
		trace.WithAttributes(attribute.String("stream.event.kind", kind)),
	)
}

// AddStatusTransition adds a status transition event to a span.
func AddStatusTransition(span trace.Span, fromStatus, toStatus string) {
	span.AddEvent("status.transition",
		trace.WithAttributes(
			attribute.String("status.from", fromStatus),
			attribute.String("status.to", toStatus),
		),
	)
}
