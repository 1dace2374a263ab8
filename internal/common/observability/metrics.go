package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const instrumentationName = "immo-workers/platform"

type Observability struct {
	meterProvider  *metric.MeterProvider
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
	invokeCounter  otelmetric.Int64Counter
	invokeDuration otelmetric.Float64Histogram
}

// New installs the global tracer and meter providers. Tracing failures
// never prevent startup; metrics fall back to nothing when the prometheus
// exporter cannot be registered.
func New(serviceName string, tracing TracingOptions) *Observability {
	o := &Observability{}

	tp, err := newTracerProvider(serviceName, tracing)
	if err != nil {
		log.Printf("Failed to create trace exporter: %v", err)
		tp, _ = newTracerProvider(serviceName, TracingOptions{SampleRatio: tracing.SampleRatio})
	}
	o.tracerProvider = tp
	o.tracer = tp.Tracer(instrumentationName)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagator())

	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return o
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	invokeCounter, _ := meter.Int64Counter(
		"platform.invocations",
		otelmetric.WithDescription("Number of remote platform calls"),
	)

	invokeDuration, _ := meter.Float64Histogram(
		"platform.duration",
		otelmetric.WithDescription("Remote platform call duration"),
		otelmetric.WithUnit("ms"),
	)

	o.meterProvider = provider
	o.invokeCounter = invokeCounter
	o.invokeDuration = invokeDuration
	return o
}

// Noop returns an instance that records nothing. Used by tests and the CLI.
func Noop() *Observability {
	return &Observability{tracer: noop.NewTracerProvider().Tracer(instrumentationName)}
}

// StartSpan starts a client span for a remote call. Callers must End it.
func (o *Observability) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := o.tracer
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...), trace.WithSpanKind(trace.SpanKindClient))
}

// RecordInvocation records one remote platform call.
func (o *Observability) RecordInvocation(ctx context.Context, function string, duration time.Duration, status string) {
	attrs := otelmetric.WithAttributes(
		attribute.String("function", function),
		attribute.String("status", status),
	)
	if o.invokeCounter != nil {
		o.invokeCounter.Add(ctx, 1, attrs)
	}
	if o.invokeDuration != nil {
		o.invokeDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// Shutdown flushes pending spans and stops both providers.
func (o *Observability) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if o.tracerProvider != nil {
		if err := o.tracerProvider.Shutdown(ctx); err != nil {
			log.Printf("Failed to shut down tracer provider: %v", err)
		}
	}
	if o.meterProvider != nil {
		o.meterProvider.Shutdown(ctx)
	}
}
