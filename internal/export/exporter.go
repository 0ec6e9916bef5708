// Package export provides concrete sinks for spans and metrics: a
// single operation export(batch) -> ExportResult and a shutdown hook.
// loomtrace ships enough of these to be runnable out of the box: a
// no-op sink, a chrome-trace JSON writer, and a real OTLP sink.
package export

import (
	"context"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

// Result is the outcome of one Export call. The interpreter never
// inspects it — exporter failures are not propagated back to the fold —
// it exists for the exporter's own retry/metrics bookkeeping, not the
// caller's.
type Result int

const (
	ResultSuccess Result = iota
	ResultFailure
)

// SpanExporter accepts completed spans in emission order.
type SpanExporter interface {
	ExportSpans(ctx context.Context, batch []domain.Span) Result
	Shutdown(ctx context.Context) error
}

// MetricExporter accepts metric samples in emission order.
type MetricExporter interface {
	ExportMetrics(ctx context.Context, batch []domain.Sample) Result
	Shutdown(ctx context.Context) error
}
