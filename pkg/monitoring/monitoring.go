package monitoring

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

type Monitoring interface {
	Start(ctx context.Context)
	Stop(ctx context.Context)
}

type openTelemetry struct {
	serviceName string
	environment string
	endpoint    string
	provider    *sdktrace.TracerProvider
}

func NewOpenTelemetry(serviceName, environment, endpoint string) Monitoring {
	return &openTelemetry{
		serviceName: serviceName,
		environment: environment,
		endpoint:    endpoint,
	}
}

// Start implements Monitoring.
func (m *openTelemetry) Start(ctx context.Context) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(m.endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		otel.SetTracerProvider(sdktrace.NewTracerProvider())
		return
	}

	m.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(m.serviceName),
			semconv.DeploymentEnvironment(m.environment),
		)),
	)

	otel.SetTracerProvider(m.provider)
}

// Stop implements Monitoring.
func (m *openTelemetry) Stop(ctx context.Context) {
	if m.provider != nil {
		m.provider.Shutdown(ctx)
	}
}
