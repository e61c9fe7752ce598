package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceHeaders is the W3C trace context stored alongside a row that is
// published later, outside the request that produced it.
type TraceHeaders struct {
	Traceparent string
	Tracestate  string
}

// CaptureTraceHeaders serializes the span context in ctx. Both fields are empty
// when ctx carries no span.
func CaptureTraceHeaders(ctx context.Context) TraceHeaders {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceHeaders{
		Traceparent: carrier.Get("traceparent"),
		Tracestate:  carrier.Get("tracestate"),
	}
}

func (h TraceHeaders) Empty() bool {
	return h.Traceparent == "" && h.Tracestate == ""
}

// Context returns parent with the stored span context attached as the remote parent.
func (h TraceHeaders) Context(parent context.Context) context.Context {
	if h.Empty() {
		return parent
	}
	carrier := propagation.MapCarrier{}
	if h.Traceparent != "" {
		carrier.Set("traceparent", h.Traceparent)
	}
	if h.Tracestate != "" {
		carrier.Set("tracestate", h.Tracestate)
	}
	return otel.GetTextMapPropagator().Extract(parent, carrier)
}
