package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestSpanParentage verifies that spans started from a context carrying a
// parent span are recorded under that parent, which is what the sync and
// search packages rely on.
func TestSpanParentage(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(exporter),
	)
	otel.SetTracerProvider(tp)

	tracer := otel.Tracer("test")

	ctx, parent := tracer.Start(context.Background(), "outer")
	_, child := tracer.Start(ctx, "inner")
	child.End()
	parent.End()

	spans := exporter.GetSpans()
	if len(spans) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(spans))
	}

	// Spans export in end order: inner first
	inner, outer := spans[0], spans[1]
	if inner.Name != "inner" || outer.Name != "outer" {
		t.Fatalf("unexpected span names: %s, %s", inner.Name, outer.Name)
	}
	if inner.Parent.SpanID() != outer.SpanContext.SpanID() {
		t.Error("expected the inner span parented to the outer span")
	}
	if inner.SpanContext.TraceID() != outer.SpanContext.TraceID() {
		t.Error("expected both spans in one trace")
	}
}
