package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/xraph/continuum/run"
)

// meterName is the instrumentation scope name for continuum metrics.
const meterName = "github.com/xraph/continuum"

// Metrics returns middleware that records per-dispatch metrics using the
// global OTel MeterProvider. If no MeterProvider is configured, noop
// instruments are used and this middleware becomes a pass-through.
//
// Instruments:
//   - continuum.dispatch.duration (Float64Histogram): cycle time in
//     seconds, with attributes: session_id, status ("ok" or "error")
//   - continuum.dispatch.cycles (Int64Counter): total dispatch cycles,
//     with attributes: session_id, status ("ok" or "error")
func Metrics() Middleware {
	meter := otel.Meter(meterName)
	return MetricsWithMeter(meter)
}

// MetricsWithMeter returns metrics middleware using the provided meter.
// This variant allows injecting a specific MeterProvider for testing.
func MetricsWithMeter(meter metric.Meter) Middleware {
	// Create instruments once at middleware construction time.
	// OTel instruments are safe for concurrent use. On error, the API
	// returns noop instruments so the middleware degrades gracefully.
	duration, dErr := meter.Float64Histogram(
		"continuum.dispatch.duration",
		metric.WithDescription("Duration of a dispatch cycle in seconds"),
		metric.WithUnit("s"),
	)
	_ = dErr // noop fallback guaranteed by OTel API contract

	cycles, cErr := meter.Int64Counter(
		"continuum.dispatch.cycles",
		metric.WithDescription("Total number of dispatch cycles"),
		metric.WithUnit("{cycle}"),
	)
	_ = cErr // noop fallback guaranteed by OTel API contract

	return func(ctx context.Context, r *run.Run, next Handler) error {
		start := time.Now()
		err := next(ctx)
		elapsed := time.Since(start).Seconds()

		status := "ok"
		if err != nil {
			status = "error"
		}

		attrs := metric.WithAttributes(
			attribute.String("session_id", r.SessionID.String()),
			attribute.String("status", status),
		)

		duration.Record(ctx, elapsed, attrs)
		cycles.Add(ctx, 1, attrs)

		return err
	}
}
