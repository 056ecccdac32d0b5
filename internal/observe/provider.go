package observe

import (
	"context"
	"errors"
	"fmt"

	otelprom "go.opentelemetry.io/otel/exporters/prometheus"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// ShutdownFunc gracefully shuts down the telemetry providers installed by
// [InitProvider]. It must be called before process exit to flush pending data.
type ShutdownFunc func(ctx context.Context) error

// InitProvider configures and globally registers the OpenTelemetry metric
// and trace providers for the process.
//
// Metrics are exported through a Prometheus bridge registered on the default
// Prometheus registry, so serving promhttp.Handler() exposes them. Traces
// use a plain SDK provider; no exporter is attached here, keeping span
// creation cheap while remaining ready for an OTLP pipeline.
//
// The returned [ShutdownFunc] flushes and stops both providers.
func InitProvider(serviceName, serviceVersion string) (ShutdownFunc, error) {
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	))
	if err != nil {
		return nil, fmt.Errorf("observe: building resource: %w", err)
	}

	promExporter, err := otelprom.New()
	if err != nil {
		return nil, fmt.Errorf("observe: creating prometheus exporter: %w", err)
	}

	meterProvider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(promExporter),
	)
	otel.SetMeterProvider(meterProvider)

	tracerProvider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tracerProvider)

	shutdown := func(ctx context.Context) error {
		var errs []error
		if err := meterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observe: shutting down meter provider: %w", err))
		}
		if err := tracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("observe: shutting down tracer provider: %w", err))
		}
		return errors.Join(errs...)
	}
	return shutdown, nil
}
