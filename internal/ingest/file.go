package ingest

import (
	"context"
	"sort"

	"github.com/loomtrace/loomtrace/internal/export"
	"github.com/loomtrace/loomtrace/internal/interpreter"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
)

// runFile implements the batch path: decode the whole file, stable-sort
// by timestamp (a multi-capability log is not globally ordered at
// source), then fold the state machine over the sorted sequence with
// one exporter call per event — no cross-event buffering.
func runFile(ctx context.Context, st *store.State, src Source, spanExp export.SpanExporter, metricExp export.MetricExporter) error {
	events, err := runtimelog.DecodeFile(src.path, src.newDecoder)
	if err != nil {
		return err
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp < events[j].Timestamp
	})

	for _, ev := range events {
		spans, metrics, err := interpreter.Process(st, ev)
		if err != nil {
			return err
		}
		if len(spans) > 0 {
			spanExp.ExportSpans(ctx, spans)
		}
		if len(metrics) > 0 {
			metricExp.ExportMetrics(ctx, metrics)
		}
	}
	return nil
}
