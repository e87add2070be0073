// Package telemetry defines the logging, metrics, and tracing interfaces
// used throughout the intent-execution engine. Concrete implementations
// live in this package (Clue/OTEL-backed and no-op); callers depend only on
// these interfaces so components stay testable without a live backend.
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Logger emits structured log messages. Implementations must be safe for
// concurrent use.
type Logger interface {
	Debug(ctx context.Context, msg string, keyvals ...any)
	Info(ctx context.Context, msg string, keyvals ...any)
	Warn(ctx context.Context, msg string, keyvals ...any)
	Error(ctx context.Context, msg string, keyvals ...any)
}

// Metrics exposes counter, timer, and gauge helpers for runtime
// instrumentation.
type Metrics interface {
	IncCounter(name string, value float64, tags ...string)
	RecordTimer(name string, duration time.Duration, tags ...string)
	RecordGauge(name string, value float64, tags ...string)
}

// Tracer abstracts span creation so engine code can remain agnostic of the
// underlying OpenTelemetry provider.
type Tracer interface {
	Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, Span)
}

// Span is the minimal span surface consumed by engine code.
type Span interface {
	End()
	RecordError(err error)
	SetAttributes(kv ...any)
}
