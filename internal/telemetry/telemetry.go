// Package telemetry wires OpenTelemetry tracing and a thin counters
// registry into the gateway, mirroring gomind's TelemetryConfig:
// stdout export in development, OTLP/gRPC in production.
package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/vorion/cognigate/core"
)

// Config selects the exporter and carries the service identity attached
// to every span.
type Config struct {
	ServiceName string
	Development bool
	OTLPEndpoint string
}

// Provider wraps the configured TracerProvider and a Tracer scoped to the
// gateway package.
type Provider struct {
	tp     *sdktrace.TracerProvider
	tracer trace.Tracer
}

// Setup builds the exporter (stdout in development, OTLP/gRPC otherwise)
// and installs it as the global tracer provider.
func Setup(ctx context.Context, cfg Config) (*Provider, error) {
	var exporter sdktrace.SpanExporter
	var err error

	if cfg.Development {
		exporter, err = stdouttrace.New(stdouttrace.WithPrettyPrint())
	} else {
		exporter, err = otlptracegrpc.New(ctx, otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint), otlptracegrpc.WithInsecure())
	}
	if err != nil {
		return nil, &core.GatewayError{Op: "telemetry.Setup", Kind: "config", Err: err}
	}

	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(cfg.ServiceName)))
	if err != nil {
		return nil, &core.GatewayError{Op: "telemetry.Setup", Kind: "config", Err: err}
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Provider{tp: tp, tracer: tp.Tracer("cognigate/gateway")}, nil
}

// Tracer returns the gateway-scoped tracer.
func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown flushes and stops the exporter, bounded by ctx's deadline.
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.tp.Shutdown(ctx)
}

// Counters is a minimal in-process metrics sink satisfying
// core.MetricsRegistry, installed via core.SetMetricsRegistry so
// ProductionLogger's error-count increment reaches it without an import
// cycle. That increment is its only writer; the gateway records no
// counters of its own.
type Counters struct {
	mu     sync.Mutex
	counts map[string]float64
}

func NewCounters() *Counters {
	return &Counters{counts: make(map[string]float64)}
}

func (c *Counters) Counter(name string, labels ...string) {
	c.add(name, 1, labels...)
}

func (c *Counters) Gauge(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key(name, labels)] = value
}

func (c *Counters) Histogram(name string, value float64, labels ...string) {
	c.add(name, value, labels...)
}

func (c *Counters) EmitWithContext(ctx context.Context, name string, value float64, labels ...string) {
	c.add(name, value, labels...)
}

func (c *Counters) add(name string, value float64, labels ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[key(name, labels)] += value
}

// Snapshot returns a copy of the current counter values, for diagnostics.
func (c *Counters) Snapshot() map[string]float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]float64, len(c.counts))
	for k, v := range c.counts {
		out[k] = v
	}
	return out
}

func key(name string, labels []string) string {
	if len(labels) == 0 {
		return name
	}
	out := name
	for _, l := range labels {
		out += "|" + l
	}
	return out
}
