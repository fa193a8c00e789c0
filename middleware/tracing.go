package middleware

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/continuum/run"
)

// tracerName is the instrumentation scope name for continuum tracing.
const tracerName = "github.com/xraph/continuum"

// Tracing returns middleware that wraps the dispatch cycle in an
// OpenTelemetry span. If no TracerProvider is configured globally, the
// default noop tracer is used and this middleware becomes a pass-through
// with zero overhead.
//
// Span attributes include: continuum.run.id, continuum.session.id,
// continuum.run.status, continuum.run.max_turns. On error, the span status
// is set to codes.Error with the error message.
func Tracing() Middleware {
	tracer := otel.Tracer(tracerName)
	return TracingWithTracer(tracer)
}

// TracingWithTracer returns tracing middleware using the provided tracer.
// This variant allows injecting a specific TracerProvider for testing or
// when multiple providers are in use.
func TracingWithTracer(tracer trace.Tracer) Middleware {
	return func(ctx context.Context, r *run.Run, next Handler) error {
		ctx, span := tracer.Start(ctx, "continuum.dispatch",
			trace.WithAttributes(
				attribute.String("continuum.run.id", r.ID.String()),
				attribute.String("continuum.session.id", r.SessionID.String()),
				attribute.String("continuum.run.status", string(r.Status)),
				attribute.Int("continuum.run.max_turns", r.Options.MaxTurns),
			),
			trace.WithSpanKind(trace.SpanKindInternal),
		)
		defer span.End()

		err := next(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		return err
	}
}
