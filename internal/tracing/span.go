package tracing

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Span attribute keys recorded on every run span.
const (
	AttrRunID    = attribute.Key("wsbench.run_id")
	AttrFormat   = attribute.Key("wsbench.format")
	AttrURL      = attribute.Key("wsbench.url")
	AttrTarget   = attribute.Key("wsbench.total_messages")
	AttrSent     = attribute.Key("wsbench.sent")
	AttrReceived = attribute.Key("wsbench.received")
	AttrPartial  = attribute.Key("wsbench.partial")
)

// StartRunSpan opens the client span that covers one benchmark run.
func StartRunSpan(ctx context.Context, tracer trace.Tracer, runID, format, url string, total int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "wsbench "+format,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrRunID.String(runID),
			AttrFormat.String(format),
			AttrURL.String(url),
			AttrTarget.Int(total),
		),
	)
}

// MarkPhase records a lifecycle transition as a span event.
func MarkPhase(span trace.Span, phase string) {
	span.AddEvent(phase)
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHTTPHeaders writes W3C trace context into handshake headers.
func InjectHTTPHeaders(ctx context.Context, headers http.Header) {
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(headers))
}
