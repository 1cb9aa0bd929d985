package observability

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/trace"
)

// Observability records latency histograms through the OpenTelemetry metric
// SDK and exposes them on a prometheus registerer.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	tracer         trace.Tracer
	requestLatency otelmetric.Float64Histogram
	factoryLatency otelmetric.Float64Histogram
}

// New wires an OpenTelemetry prometheus exporter into reg.
func New(serviceName string, reg prometheus.Registerer) (*Observability, error) {
	exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, fmt.Errorf("create prometheus exporter: %w", err)
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	requestLatency, err := meter.Float64Histogram(
		"pizza.request.latency",
		otelmetric.WithDescription("HTTP request latency"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	factoryLatency, err := meter.Float64Histogram(
		"pizza.factory.latency",
		otelmetric.WithDescription("Pizza factory call latency"),
		otelmetric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		tracer:         otel.Tracer(serviceName),
		requestLatency: requestLatency,
		factoryLatency: factoryLatency,
	}, nil
}

// StartSpan starts a span on the globally registered tracer provider.
func (o *Observability) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if o == nil || o.tracer == nil {
		return otel.Tracer("pizza-service").Start(ctx, name)
	}
	return o.tracer.Start(ctx, name)
}

func (o *Observability) RecordRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if o == nil || o.requestLatency == nil {
		return
	}
	o.requestLatency.Record(ctx, milliseconds(duration), otelmetric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
}

func (o *Observability) RecordFactory(ctx context.Context, outcome string, duration time.Duration) {
	if o == nil || o.factoryLatency == nil {
		return
	}
	o.factoryLatency.Record(ctx, milliseconds(duration), otelmetric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}

func (o *Observability) Shutdown(ctx context.Context) error {
	if o == nil || o.meterProvider == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return o.meterProvider.Shutdown(ctx)
}

func milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
