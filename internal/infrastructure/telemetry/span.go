package telemetry

import (
	"context"
	"errors"

	"github.com/flipflop/backend/internal/domain/shared"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/flipflop/backend"

// StartSpan starts an internal span using the global tracer provider
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(instrumentationName).Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err on span and ends it. Expected business outcomes
// (not found, invalid state, stock shortage) are recorded as events rather
// than errors so they do not page anyone.
func EndSpan(span trace.Span, err error) {
	defer span.End()
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		span.AddEvent("domain_error", trace.WithAttributes(
			attribute.String("error.code", de.Code),
			attribute.String("error.message", de.Message),
		))
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// TraceID returns the trace id of the span in ctx, or ""
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
