package export

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

// chromeTraceEvent is one entry in the chrome://tracing JSON array: a
// complete ("X") event per span and a counter ("C") event per metric
// sample.
type chromeTraceEvent struct {
	Name string         `json:"name"`
	Ph   string         `json:"ph"`
	TS   uint64         `json:"ts"`
	Dur  uint64         `json:"dur,omitempty"`
	PID  uint32         `json:"pid"`
	TID  uint32         `json:"tid"`
	Args map[string]any `json:"args,omitempty"`
}

// ChromeTraceWriter is a SpanExporter and MetricExporter that writes
// chrome://tracing-compatible JSON to w. Safe for the single-threaded
// ingestion driver's sequential Export calls; the mutex only guards
// against a caller that shares one writer across concurrent drivers.
type ChromeTraceWriter struct {
	mu     sync.Mutex
	w      io.Writer
	wrote  bool
	closed bool
}

// NewChromeTraceWriter wraps w. The caller owns w's lifecycle; Shutdown
// only closes the JSON array, it does not close w.
func NewChromeTraceWriter(w io.Writer) *ChromeTraceWriter {
	return &ChromeTraceWriter{w: w}
}

func (c *ChromeTraceWriter) writeEvent(ev chromeTraceEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("export: chrometrace: write after shutdown")
	}

	prefix := ",\n"
	if !c.wrote {
		prefix = "{\"traceEvents\":[\n"
		c.wrote = true
	}
	if _, err := io.WriteString(c.w, prefix); err != nil {
		return err
	}
	enc, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = c.w.Write(enc)
	return err
}

// ExportSpans writes one complete event per span.
func (c *ChromeTraceWriter) ExportSpans(_ context.Context, batch []domain.Span) Result {
	for _, sp := range batch {
		args := make(map[string]any, len(sp.Tags))
		for k, v := range sp.Tags {
			if v.IsInt {
				args[k] = v.Int
			} else {
				args[k] = v.Str
			}
		}
		ev := chromeTraceEvent{
			Name: sp.Operation,
			Ph:   "X",
			TS:   sp.StartedAt / 1000,
			Dur:  (sp.FinishedAt - sp.StartedAt) / 1000,
			PID:  uint32(sp.Context.TraceID),
			TID:  uint32(sp.ThreadID),
			Args: args,
		}
		if err := c.writeEvent(ev); err != nil {
			return ResultFailure
		}
	}
	return ResultSuccess
}

// ExportMetrics writes one counter event per metric point.
func (c *ChromeTraceWriter) ExportMetrics(_ context.Context, batch []domain.Sample) Result {
	for _, sample := range batch {
		for _, pt := range sample.Points {
			ev := chromeTraceEvent{
				Name: sample.Instrument.Name,
				Ph:   "C",
				TS:   pt.Timestamp / 1000,
				Args: map[string]any{"value": pt.Value},
			}
			if err := c.writeEvent(ev); err != nil {
				return ResultFailure
			}
		}
	}
	return ResultSuccess
}

// Shutdown closes the JSON array. Safe to call even if no events were
// ever written (produces an empty traceEvents array).
func (c *ChromeTraceWriter) Shutdown(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true

	if !c.wrote {
		_, err := io.WriteString(c.w, "{\"traceEvents\":[]}\n")
		return err
	}
	_, err := io.WriteString(c.w, "\n]}\n")
	return err
}
