package logger

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

type ctxKey struct{}

// AttrsFromCtx returns trace_id/span_id of the active span, if any.
func AttrsFromCtx(ctx context.Context) []slog.Attr {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}

	return []slog.Attr{
		slog.String("trace_id", sc.TraceID().String()),
		slog.String("span_id", sc.SpanID().String()),
	}
}

// With returns ctx carrying extra attrs for every FromCtx logger derived
// from it, e.g. the connection id of a websocket session.
func With(ctx context.Context, args ...any) context.Context {
	prev, _ := ctx.Value(ctxKey{}).([]any)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, ctxKey{}, merged)
}

// FromCtx returns the default logger enriched with the attrs stored by
// With and the trace ids of ctx.
func FromCtx(ctx context.Context) *slog.Logger {
	l := slog.Default()
	if args, ok := ctx.Value(ctxKey{}).([]any); ok && len(args) > 0 {
		l = l.With(args...)
	}
	for _, a := range AttrsFromCtx(ctx) {
		l = l.With(a)
	}
	return l
}
