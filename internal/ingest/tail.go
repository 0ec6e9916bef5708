package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/loomtrace/loomtrace/internal/export"
	"github.com/loomtrace/loomtrace/internal/interpreter"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
)

// readChunkSize is the poll-read size for handle mode.
const readChunkSize = 4096

// pollInterval is the sleep between retries on a zero-byte or EOF read,
// a workaround for the absence of a blocking read on the host I/O API.
const pollInterval = time.Millisecond

// runTail implements the handle path: drive the decoder's
// Produce | Consume | Done | Error protocol, reading up to readChunkSize
// bytes per Consume. Metric batches are routed to metricExp here just
// like spans, not dropped, so tail mode and batch mode emit the same
// metrics for the same input.
func runTail(ctx context.Context, st *store.State, src Source, spanExp export.SpanExporter, metricExp export.MetricExporter, obs Observer) error {
	if obs == nil {
		obs = NopObserver{}
	}
	dec := src.newDecoder()
	buf := make([]byte, readChunkSize)

	for {
		step := dec.Step()
		switch step.Kind {
		case runtimelog.StepProduce:
			ev := step.Event
			if isShutdownLike(ev.Spec.Kind) {
				obs.Observe(fmt.Sprintf("shutdown-like event observed: %s", ev.Spec.Kind))
				continue
			}
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

		case runtimelog.StepConsume:
			n, err := src.handle.Read(buf)
			switch {
			case n > 0:
				dec.Feed(buf[:n])
			case errors.Is(err, io.EOF):
				switch src.eofPolicy {
				case StopOnEOF:
					dec.Feed(nil)
				case SleepAndRetryOnEOF:
					time.Sleep(pollInterval)
				}
			case err != nil:
				return fmt.Errorf("ingest: tail: read: %w", err)
			default:
				// Zero bytes, no error: coarse poll, retry.
				time.Sleep(pollInterval)
			}

		case runtimelog.StepDone:
			obs.Observe("event log ended cleanly")
			return nil

		case runtimelog.StepError:
			obs.Observe(fmt.Sprintf("event log decode error: %v", step.Err))
			return step.Err
		}
	}
}

func isShutdownLike(kind runtimelog.Kind) bool {
	switch kind {
	case runtimelog.KindShutdown, runtimelog.KindCapDelete, runtimelog.KindCapsetDelete:
		return true
	default:
		return false
	}
}
