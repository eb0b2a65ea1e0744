package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Service name for telemetry
	serviceName = "dagflow-engine"

	// Metric names
	metricElementsPlanned  = "elements.planned.total"
	metricElementsExecuted = "elements.executed.total"
	metricElementsFailed   = "elements.failed.total"
	metricElementDuration  = "element.execution.duration"
	metricCacheHits        = "cache.hits.total"
	metricCacheMisses      = "cache.misses.total"
	metricCacheLockWait    = "cache.lock_wait.duration"
	metricNodeCompletion   = "node.completion.duration"
)

// Provider manages OpenTelemetry setup and provides access to tracers and meters.
type Provider struct {
	meterProvider  *sdkmetric.MeterProvider
	tracerProvider trace.TracerProvider
	meter          metric.Meter
	tracer         trace.Tracer

	// Metrics instruments
	elementsPlanned  metric.Int64Counter
	elementsExecuted metric.Int64Counter
	elementsFailed   metric.Int64Counter
	elementDuration  metric.Float64Histogram
	cacheHits        metric.Int64Counter
	cacheMisses      metric.Int64Counter
	cacheLockWait    metric.Float64Histogram
	nodeCompletion   metric.Float64Histogram

	mu sync.RWMutex
}

// Config holds telemetry configuration
type Config struct {
	// ServiceName is the name of the service for telemetry
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// Environment (e.g., "production", "staging", "development")
	Environment string

	// EnableTracing enables distributed tracing
	EnableTracing bool

	// EnableMetrics enables metrics collection
	EnableMetrics bool
}

// DefaultConfig returns default telemetry configuration
func DefaultConfig() Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: "0.1.0",
		Environment:    "development",
		EnableTracing:  true,
		EnableMetrics:  true,
	}
}

// NewProvider creates a new telemetry provider with Prometheus metrics exporter.
// It initializes OpenTelemetry with the given configuration and returns a provider
// that can be used to create tracers and record metrics.
func NewProvider(ctx context.Context, config Config) (*Provider, error) {
	provider := &Provider{}

	// Create resource with service information
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(config.ServiceName),
			semconv.ServiceVersion(config.ServiceVersion),
			attribute.String("environment", config.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Initialize metrics if enabled
	if config.EnableMetrics {
		if err := provider.initMetrics(res); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	// Initialize tracing if enabled
	if config.EnableTracing {
		provider.initTracing()
	}

	return provider, nil
}

// initMetrics initializes the metrics provider with Prometheus exporter
func (p *Provider) initMetrics(res *resource.Resource) error {
	// Create Prometheus exporter
	exporter, err := prometheus.New()
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	// Create meter provider with the exporter
	p.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	// Set as global meter provider
	otel.SetMeterProvider(p.meterProvider)

	// Create meter
	p.meter = p.meterProvider.Meter(serviceName)

	// Create metric instruments
	if err := p.createMetricInstruments(); err != nil {
		return fmt.Errorf("failed to create metric instruments: %w", err)
	}

	return nil
}

// initTracing initializes the tracing provider
func (p *Provider) initTracing() {
	// For now, use the global tracer provider
	// In production, this should be configured with appropriate exporters (OTLP, Jaeger, etc.)
	p.tracerProvider = otel.GetTracerProvider()
	p.tracer = p.tracerProvider.Tracer(serviceName)
}

// createMetricInstruments creates all metric instruments
func (p *Provider) createMetricInstruments() error {
	var err error

	p.elementsPlanned, err = p.meter.Int64Counter(
		metricElementsPlanned,
		metric.WithDescription("Total number of (node, element) pairs planned"),
	)
	if err != nil {
		return err
	}

	p.elementsExecuted, err = p.meter.Int64Counter(
		metricElementsExecuted,
		metric.WithDescription("Total number of (node, element) pairs executed"),
	)
	if err != nil {
		return err
	}

	p.elementsFailed, err = p.meter.Int64Counter(
		metricElementsFailed,
		metric.WithDescription("Total number of (node, element) pairs that failed"),
	)
	if err != nil {
		return err
	}

	p.elementDuration, err = p.meter.Float64Histogram(
		metricElementDuration,
		metric.WithDescription("Element execution duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.cacheHits, err = p.meter.Int64Counter(
		metricCacheHits,
		metric.WithDescription("Total number of cache hits"),
	)
	if err != nil {
		return err
	}

	p.cacheMisses, err = p.meter.Int64Counter(
		metricCacheMisses,
		metric.WithDescription("Total number of cache misses"),
	)
	if err != nil {
		return err
	}

	p.cacheLockWait, err = p.meter.Float64Histogram(
		metricCacheLockWait,
		metric.WithDescription("Time spent waiting for another writer's cache lock, in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.nodeCompletion, err = p.meter.Float64Histogram(
		metricNodeCompletion,
		metric.WithDescription("Time from a node's first planned element to check_all_results succeeding, in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	return nil
}

// Tracer returns the tracer for creating spans
func (p *Provider) Tracer() trace.Tracer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tracer
}

// Meter returns the meter for recording metrics
func (p *Provider) Meter() metric.Meter {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.meter
}

// RecordElementsPlanned records how many elements a node planned.
func (p *Provider) RecordElementsPlanned(ctx context.Context, nodeID string, count int) {
	if p.meter == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("node.id", nodeID)}
	p.elementsPlanned.Add(ctx, int64(count), metric.WithAttributes(attrs...))
}

// RecordElementExecution records one (node, element) execution's outcome and
// duration.
func (p *Provider) RecordElementExecution(ctx context.Context, nodeID, dirName string, duration time.Duration, success bool) {
	if p.meter == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("node.id", nodeID),
		attribute.String("dir_name", dirName),
	}
	p.elementsExecuted.Add(ctx, 1, metric.WithAttributes(attrs...))
	p.elementDuration.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if !success {
		p.elementsFailed.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordCacheLookup records a cache hit or miss for one checksum lookup.
func (p *Provider) RecordCacheLookup(ctx context.Context, checksum string, hit bool) {
	if p.meter == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("checksum", checksum)}
	if hit {
		p.cacheHits.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else {
		p.cacheMisses.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordCacheLockWait records how long an element waited for another
// writer's advisory cache directory lock before proceeding.
func (p *Provider) RecordCacheLockWait(ctx context.Context, wait time.Duration) {
	if p.meter == nil {
		return
	}
	p.cacheLockWait.Record(ctx, float64(wait.Milliseconds()))
}

// RecordNodeCompletion records the wall-clock span between a node's first
// planned element and check_all_results succeeding.
func (p *Provider) RecordNodeCompletion(ctx context.Context, nodeID string, duration time.Duration) {
	if p.meter == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("node.id", nodeID)}
	p.nodeCompletion.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}

// Shutdown gracefully shuts down the telemetry provider
func (p *Provider) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
	}

	return nil
}
