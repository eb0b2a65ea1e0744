// Package telemetry provides OpenTelemetry integration for distributed tracing and metrics.
// It enables comprehensive observability for element execution with support for:
//   - A tracer taken from the global OpenTelemetry tracer provider; this
//     package configures no trace exporter
//   - Prometheus metrics for planned/executed/failed elements, cache hit rate,
//     cache lock wait time, and per-node completion latency, exported through
//     the OpenTelemetry Prometheus exporter
package telemetry
