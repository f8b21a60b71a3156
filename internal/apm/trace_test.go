package apm

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

func TestTracer_StartSpanFromContext(t *testing.T) {
	tracer := NewTracer("test")

	ctx, span := tracer.StartSpanFromContext(context.Background(), "operation")
	if span == nil {
		t.Fatal("expected a span")
	}
	if trace.SpanFromContext(ctx) == nil {
		t.Fatal("context must carry the started span")
	}

	// The wrapper must be usable against the default no-op provider.
	span.SetAttributes(attribute.String("key", "value"))
	span.AddEvent("event")
	span.SetName("renamed")
	span.RecordError(errors.New("recorded"))
	span.NoticeError(errors.New("noticed"))
	span.SetStatus(codes.Ok, "done")
	_ = span.SpanContext()
	span.End()
}
