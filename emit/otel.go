package emit

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// OTel implements Emitter by recording each event as a zero-duration span
// carrying the event's fields as attributes. Trace events (§4.3) map
// naturally onto spans; other kinds still get one, so a single tracer
// backend captures the whole event stream.
type OTel struct {
	tracer trace.Tracer
}

// NewOTel creates an OTel emitter from an already-configured tracer, e.g.
// otel.Tracer("agentgraph").
func NewOTel(tracer trace.Tracer) *OTel {
	return &OTel{tracer: tracer}
}

func (o *OTel) Emit(event Event) {
	_, span := o.tracer.Start(context.Background(), string(event.Kind))
	defer span.End()
	span.SetAttributes(
		attribute.String("run_id", event.RunID),
		attribute.Int("step", event.Step),
		attribute.String("node_id", event.NodeID),
	)
	if event.Message != "" {
		span.SetAttributes(attribute.String("message", event.Message))
	}
	if event.Kind == KindTrace {
		if status, _ := event.Data["status"].(string); status == TraceFailed {
			span.SetStatus(codes.Error, event.Message)
		}
	}
}

func (o *OTel) EmitBatch(_ context.Context, events []Event) error {
	for _, e := range events {
		o.Emit(e)
	}
	return nil
}

// Flush is a no-op; span export is governed by the configured
// TracerProvider's own batching, not by this emitter.
func (o *OTel) Flush(context.Context) error { return nil }
