package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	chaterrors "github.com/janhq/jan-actions/internal/domain/errors"
	"github.com/janhq/jan-actions/internal/domain/status"
	"github.com/janhq/jan-actions/internal/domain/stream"
	"github.com/janhq/jan-actions/internal/infrastructure/metrics"
)

// StreamTelemetry records assembler lifecycle in prometheus and OTEL.
type StreamTelemetry struct {
	tracer trace.Tracer
	events metric.Int64Counter
}

var _ stream.Telemetry = (*StreamTelemetry)(nil)

// NewStreamTelemetry builds the assembler hooks from an initialized provider.
func NewStreamTelemetry(p *Provider) (*StreamTelemetry, error) {
	events, err := p.Meter.Int64Counter("jan.actions.stream.events",
		metric.WithDescription("Stream events folded into transcripts"),
	)
	if err != nil {
		return nil, err
	}
	return &StreamTelemetry{tracer: p.Tracer, events: events}, nil
}

func (t *StreamTelemetry) InvokeStarted(ctx context.Context, actionID string, attachments int) (context.Context, func(status.Status, error)) {
	started := time.Now()
	metrics.RecordStreamStart(attachments)
	ctx, span := StartInvokeSpan(ctx, t.tracer, actionID, attachments)

	return ctx, func(outcome status.Status, err error) {
		label := outcomeLabel(outcome)
		metrics.RecordStreamEnd(label, time.Since(started).Seconds())
		AddStatusTransition(span, status.StatusActive.String(), outcome.String())
		if err != nil {
			RecordError(span, err, chaterrors.Classify(err).String())
			span.SetAttributes(attribute.String("error.code", chaterrors.Code(err)))
		}
		span.End()
	}
}

func (t *StreamTelemetry) EventApplied(ctx context.Context, kind stream.Kind) {
	metrics.RecordStreamEvent(string(kind))
	t.events.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", string(kind))))
	AddStreamEvent(trace.SpanFromContext(ctx), string(kind))
}

func outcomeLabel(s status.Status) string {
	switch s {
	case status.StatusIdle:
		return "completed"
	case status.StatusFailed:
		return "failed"
	case status.StatusClosed:
		return "closed"
	default:
		return s.String()
	}
}
