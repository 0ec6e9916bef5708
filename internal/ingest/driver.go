// Package ingest drives the interpreter's fold over a runtime event log,
// in either of two modes: a batch read-sort-fold over a closed file, or
// an incremental tail over a live handle. Both modes are strictly
// single-threaded: the driver owns the input source exclusively, and
// exporters are invoked synchronously from the same goroutine that runs
// the fold.
package ingest

import (
	"context"
	"io"
	"strings"

	"github.com/loomtrace/loomtrace/internal/export"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
)

// EOFPolicy controls what the tail driver does when a read on the input
// handle returns io.EOF.
type EOFPolicy int

const (
	// StopOnEOF terminates the driver cleanly once the handle is drained.
	StopOnEOF EOFPolicy = iota
	// SleepAndRetryOnEOF sleeps and retries indefinitely, for a handle
	// that may still receive more writes (e.g. a named pipe).
	SleepAndRetryOnEOF
)

// Source selects the driver's input: a closed file to decode in one
// batch, or a live handle to tail incrementally.
type Source struct {
	path       string
	isFile     bool
	handle     io.Reader
	eofPolicy  EOFPolicy
	newDecoder func() runtimelog.Decoder
}

// File selects batch mode over the file at path.
func File(path string, newDecoder func() runtimelog.Decoder) Source {
	return Source{path: path, isFile: true, newDecoder: newDecoder}
}

// Handle selects tail mode over an already-open reader.
func Handle(r io.Reader, policy EOFPolicy, newDecoder func() runtimelog.Decoder) Source {
	return Source{handle: r, eofPolicy: policy, newDecoder: newDecoder}
}

// SourceForPath picks file or handle mode by convention: a ".pipe"
// suffix selects tail mode over an already-open reader, everything else
// selects batch mode over the path.
func SourceForPath(path string, r io.Reader, policy EOFPolicy, newDecoder func() runtimelog.Decoder) Source {
	if strings.HasSuffix(path, ".pipe") {
		return Handle(r, policy, newDecoder)
	}
	return File(path, newDecoder)
}

// Observer receives driver-level lifecycle notes that do not themselves
// carry spans/metrics, such as a shutdown-like event being observed.
// Observe is called synchronously from the driving goroutine.
type Observer interface {
	Observe(note string)
}

// NopObserver discards every note.
type NopObserver struct{}

func (NopObserver) Observe(string) {}

// Run drives state's fold to completion over source, dispatching emitted
// spans/metrics to the given exporters one batch per processed event;
// exporter calls for one event's batch preserve intra-batch order, with
// spans preceding metrics. It returns once the source is exhausted (file
// mode always; handle mode under StopOnEOF) or a data/invariant error
// terminates the fold.
func Run(ctx context.Context, st *store.State, src Source, spanExp export.SpanExporter, metricExp export.MetricExporter, obs Observer) error {
	if obs == nil {
		obs = NopObserver{}
	}
	if src.isFile {
		return runFile(ctx, st, src, spanExp, metricExp)
	}
	return runTail(ctx, st, src, spanExp, metricExp, obs)
}
