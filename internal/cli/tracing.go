package cli

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var tracerProvider *sdktrace.TracerProvider

// spanLogExporter writes every finished span as one log record.
type spanLogExporter struct {
	logger *slog.Logger
}

func (e spanLogExporter) ExportSpans(_ context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		attrs := []any{
			"span", s.Name(),
			"duration", s.EndTime().Sub(s.StartTime()),
			"status", s.Status().Code.String(),
			"trace_id", s.SpanContext().TraceID().String(),
		}
		if s.Status().Description != "" {
			attrs = append(attrs, "error", s.Status().Description)
		}
		e.logger.Info("span finished", attrs...)
	}
	return nil
}

func (spanLogExporter) Shutdown(context.Context) error { return nil }

func newTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(sdktrace.WithSyncer(spanLogExporter{logger: logger}))
}
