// Package trace provides helpers that start OpenTelemetry spans for
// frame phases and import plan items; the coordinator and the import
// dispatcher do not call them. Tracing is ambient instrumentation, not a feature:
// it carries no effect on coordinator or pipeline semantics.
package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// InstallSDK installs a fresh go.opentelemetry.io/otel/sdk TracerProvider
// as the process-wide default, with the given span processors (e.g. a
// batch exporter, or none for in-memory-only testing). Returns a shutdown
// function the caller must invoke on engine Stop.
func InstallSDK(opts ...sdktrace.TracerProviderOption) func(context.Context) error {
	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	return tp.Shutdown
}

// TracerName identifies the engine's tracer in exported spans.
const TracerName = "oxygen"

// Tracer returns the engine's otel.Tracer, resolved from the global
// TracerProvider each call so tests can install their own provider.
func Tracer() trace.Tracer {
	return otel.Tracer(TracerName)
}

// StartPhase starts a span named after a frame phase.
func StartPhase(ctx context.Context, phaseName string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "phase."+phaseName)
}

// StartImportItem starts a span for one import plan item.
func StartImportItem(ctx context.Context, kind, debugName string) (context.Context, trace.Span) {
	return Tracer().Start(ctx, "import."+kind, trace.WithAttributes(
		attribute.String("kind", kind),
		attribute.String("debug_name", debugName),
	))
}
