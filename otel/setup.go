package otel

import (
	"context"
	"errors"
	"fmt"
	"strings"

	otelapi "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// DefaultServiceName is reported when Config.ServiceName is empty.
const DefaultServiceName = "petalcall"

// InstrumentationName names the meter and tracer used for dispatch telemetry.
const InstrumentationName = "petalcall/tool"

// Config controls the SDK providers installed by Setup.
type Config struct {
	ServiceName string
	// OTLPEndpoint is a host:port for the OTLP/HTTP trace exporter. Spans are
	// not exported when empty.
	OTLPEndpoint string
	Insecure     bool
	// MetricReader, when set, is attached to the meter provider.
	MetricReader sdkmetric.Reader
	// SpanProcessor, when set, is attached to the tracer provider.
	SpanProcessor sdktrace.SpanProcessor
}

// Providers holds the installed SDK providers.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
}

// Shutdown flushes and stops both providers.
func (p *Providers) Shutdown(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var errs []error
	if p.Tracer != nil {
		errs = append(errs, p.Tracer.Shutdown(ctx))
	}
	if p.Meter != nil {
		errs = append(errs, p.Meter.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Setup builds SDK tracer and meter providers and installs them as the
// process globals.
func Setup(ctx context.Context, cfg Config) (*Providers, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = DefaultServiceName
	}
	res := resource.NewSchemaless(attribute.String("service.name", name))

	traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	if endpoint := strings.TrimSpace(cfg.OTLPEndpoint); endpoint != "" {
		exporterOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(endpoint)}
		if cfg.Insecure {
			exporterOpts = append(exporterOpts, otlptracehttp.WithInsecure())
		}
		exporter, err := otlptracehttp.New(ctx, exporterOpts...)
		if err != nil {
			return nil, fmt.Errorf("otel: create otlp trace exporter: %w", err)
		}
		traceOpts = append(traceOpts, sdktrace.WithBatcher(exporter))
	}
	if cfg.SpanProcessor != nil {
		traceOpts = append(traceOpts, sdktrace.WithSpanProcessor(cfg.SpanProcessor))
	}

	meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.MetricReader != nil {
		meterOpts = append(meterOpts, sdkmetric.WithReader(cfg.MetricReader))
	}

	providers := &Providers{
		Tracer: sdktrace.NewTracerProvider(traceOpts...),
		Meter:  sdkmetric.NewMeterProvider(meterOpts...),
	}
	otelapi.SetTracerProvider(providers.Tracer)
	otelapi.SetMeterProvider(providers.Meter)
	return providers, nil
}

// NewGlobalDispatchObserver builds a DispatchObserver on the global providers.
func NewGlobalDispatchObserver() (*DispatchObserver, error) {
	return NewDispatchObserver(
		otelapi.GetMeterProvider().Meter(InstrumentationName),
		otelapi.GetTracerProvider().Tracer(InstrumentationName),
	)
}
