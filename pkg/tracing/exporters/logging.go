package exporters

import (
	"context"

	"github.com/Gobusters/ectologger"
	"go.opentelemetry.io/otel/sdk/trace"
)

// LoggingExporter writes finished spans to the service log at debug level
type LoggingExporter struct {
	logger ectologger.Logger
}

func NewLoggingExporter(logger ectologger.Logger) *LoggingExporter {
	return &LoggingExporter{logger: logger}
}

func (e *LoggingExporter) ExportSpans(ctx context.Context, spans []trace.ReadOnlySpan) error {
	for _, span := range spans {
		e.logger.WithFields(map[string]any{
			"trace_id":    span.SpanContext().TraceID().String(),
			"span_id":     span.SpanContext().SpanID().String(),
			"duration_ms": span.EndTime().Sub(span.StartTime()).Milliseconds(),
			"status":      span.Status().Code.String(),
		}).Debugf("span %s", span.Name())
	}
	return nil
}

func (e *LoggingExporter) Shutdown(ctx context.Context) error {
	return nil
}
