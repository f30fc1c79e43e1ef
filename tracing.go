package rendition

import (
	"context"
	"fmt"

	"github.com/ghetzel/go-stockutil/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

type TracingConfig struct {
	Enabled     bool              `yaml:"enabled"`
	Endpoint    string            `yaml:"endpoint"`
	Insecure    bool              `yaml:"insecure"`
	Headers     map[string]string `yaml:"headers"`
	ServiceName string            `yaml:"service_name"`
	SampleRate  float64           `yaml:"sample_rate"`
}

// Install a global OTLP/HTTP tracer provider as described by the configuration.  The
// returned function flushes and stops the provider.  When tracing is disabled the
// global no-op provider is left in place.
func SetupTracing(config TracingConfig) (func(context.Context) error, error) {
	if !config.Enabled {
		return func(context.Context) error { return nil }, nil
	}

	var opts = []otlptracehttp.Option{
		otlptracehttp.WithHeaders(config.Headers),
	}

	if config.Endpoint != `` {
		opts = append(opts, otlptracehttp.WithEndpoint(config.Endpoint))
	}

	if config.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))

	if err != nil {
		return nil, fmt.Errorf("create exporter: %v", err)
	}

	var serviceName = config.ServiceName

	if serviceName == `` {
		serviceName = ApplicationName
	}

	var sampleRate = config.SampleRate

	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	var provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String(`service.name`, serviceName),
			attribute.String(`service.version`, ApplicationVersion),
		)),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRate))),
	)

	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	log.Infof("tracing: exporting spans to %s", config.Endpoint)

	return provider.Shutdown, nil
}
