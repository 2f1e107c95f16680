package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope under which all Comm-Analyz spans
// are recorded.
const tracerName = "github.com/commanalyz/commanalyz"

// Tracer returns the service tracer backed by whatever provider is currently
// registered globally.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan opens a span named name under the active trace in ctx. The caller
// owns the span and must End it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID is the identifier Comm-Analyz exposes to clients for tying a
// response back to server-side telemetry. It is simply the active trace ID,
// or the empty string outside of a span.
func CorrelationID(ctx context.Context) string {
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger annotated with the trace and span IDs
// from ctx, so log lines written inside a request join up with its trace.
// Without an active span it is just the default logger.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
