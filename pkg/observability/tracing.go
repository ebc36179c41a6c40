package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// LogExporter writes finished spans to a logger at debug level. It is the
// tracing backend of the CLI, where there is no collector to ship spans to.
type LogExporter struct {
	logger *slog.Logger
}

// NewLogExporter creates an exporter writing to logger.
func NewLogExporter(logger *slog.Logger) *LogExporter {
	return &LogExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *LogExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, s := range spans {
		attrs := []any{
			"span", s.Name(),
			"trace_id", s.SpanContext().TraceID().String(),
			"duration", s.EndTime().Sub(s.StartTime()),
		}
		if st := s.Status(); st.Code != codes.Unset {
			attrs = append(attrs, "status", st.Code.String())
			if st.Description != "" {
				attrs = append(attrs, "status_msg", st.Description)
			}
		}
		for _, kv := range s.Attributes() {
			attrs = append(attrs, string(kv.Key), kv.Value.Emit())
		}
		e.logger.DebugContext(ctx, "span finished", attrs...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *LogExporter) Shutdown(context.Context) error { return nil }

// NewTracerProvider returns a provider exporting every span synchronously to
// logger. Callers shut it down when done.
func NewTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSyncer(NewLogExporter(logger)),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
}
