package tracing

import (
	"context"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/reed/pkg/tracing/exporters"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type Config struct {
	ServiceName string
	Enabled     bool // export to an OTLP collector; spans are only logged otherwise
	Endpoint    string
	Protocol    string
	Insecure    bool
	SampleRatio float64
}

// Init installs a global tracer provider and the package tracer.
// The returned func flushes and stops the provider.
func Init(ctx context.Context, cfg Config, logger ectologger.Logger) (func(context.Context) error, error) {
	var exporter sdktrace.SpanExporter
	if cfg.Enabled {
		otlpConfig := exporters.DefaultOTLPConfig()
		otlpConfig.Endpoint = cfg.Endpoint
		otlpConfig.Protocol = cfg.Protocol
		otlpConfig.Insecure = cfg.Insecure

		otlpExporter, err := exporters.NewOTLPExporter(ctx, otlpConfig)
		if err != nil {
			logger.WithError(err).Errorf("Failed to create OTLP exporter for %s", cfg.Endpoint)
			return nil, err
		}
		exporter = otlpExporter
		logger.Infof("Exporting traces to %s over %s", cfg.Endpoint, cfg.Protocol)
	} else {
		exporter = exporters.NewLoggingExporter(logger)
	}

	ratio := cfg.SampleRatio
	if ratio <= 0 {
		ratio = 1
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	SetTracer(provider.Tracer(cfg.ServiceName))

	return provider.Shutdown, nil
}
