package export

import (
	"context"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

// Discard is a SpanExporter and MetricExporter that drops every batch
// and always reports success. Used as the default exporter so the CLI
// is runnable without any sink configured.
type Discard struct{}

func (Discard) ExportSpans(context.Context, []domain.Span) Result     { return ResultSuccess }
func (Discard) ExportMetrics(context.Context, []domain.Sample) Result { return ResultSuccess }
func (Discard) Shutdown(context.Context) error                       { return nil }
