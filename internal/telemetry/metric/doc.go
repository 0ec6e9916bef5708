// Package metric provides Prometheus metrics for loomtrace.
//
// This package implements metrics collection and exposition:
//
//   - prometheus.go: Prometheus registry and HTTP handler
//   - collector.go: a custom collector exporting live span-store counters
//
// Metrics include:
//
//   - Runtime events processed and spans/metric samples emitted
//   - Decode (data) errors and suspect-rewrite occurrences
//   - Processed-event, emitted-span and suspect-rewrite counts, read
//     live off store.State by a custom collector
//
// Metrics are exposed at /metrics in Prometheus format.
package metric
