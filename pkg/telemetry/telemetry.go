// Package telemetry sets up OpenTelemetry tracing from the standard OTEL_*
// environment variables and offers span helpers for heapwalker operations.
//
//	OTEL_ENABLED                 enable tracing (default false)
//	OTEL_SERVICE_NAME            service name (default heapwalker)
//	OTEL_SERVICE_VERSION         service version
//	OTEL_EXPORTER_OTLP_ENDPOINT  collector endpoint
//	OTEL_EXPORTER_OTLP_PROTOCOL  grpc or http/protobuf (default grpc)
//	OTEL_EXPORTER_OTLP_HEADERS   exporter headers, k=v pairs
//	OTEL_EXPORTER_OTLP_INSECURE  disable TLS
//	OTEL_TRACES_SAMPLER          sampler name (default always_on)
//	OTEL_TRACES_SAMPLER_ARG      sampler argument
//	OTEL_RESOURCE_ATTRIBUTES     extra resource attributes, k=v pairs
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/heapwalker/pkg/errors"
)

// InstrumentationName names the tracer used by heapwalker packages.
const InstrumentationName = "github.com/heapwalker"

var (
	globalConfig *Config
	configOnce   sync.Once
)

// ShutdownFunc flushes and stops the tracer provider.
type ShutdownFunc func(ctx context.Context) error

func noopShutdown(_ context.Context) error {
	return nil
}

// Init installs the global TracerProvider when OTEL_ENABLED is true. Otherwise
// the default no-op provider stays in place and a no-op shutdown is returned.
// version is reported when OTEL_SERVICE_VERSION is unset.
func Init(ctx context.Context, version string) (ShutdownFunc, error) {
	cfg := loadConfig()
	if !cfg.Enabled {
		return noopShutdown, nil
	}
	if cfg.ServiceVersion == "unknown" && version != "" {
		cfg.ServiceVersion = version
	}

	res, err := buildResource(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}
	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return noopShutdown, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(createSampler(cfg)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return tp.Shutdown, nil
}

// Enabled returns whether OpenTelemetry tracing is enabled.
func Enabled() bool {
	return loadConfig().Enabled
}

// GetConfig returns the current telemetry configuration.
func GetConfig() *Config {
	return loadConfig()
}

func loadConfig() *Config {
	configOnce.Do(func() {
		globalConfig = LoadFromEnv()
	})
	return globalConfig
}

// Tracer returns the heapwalker tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// StartSpan starts a span named name with attrs.
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, trace.WithAttributes(attrs...))
}

// EndSpan records err, if any, together with its error code and ends span.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.String("error.code", apperrors.GetErrorCode(err)))
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
