// Package interpreter implements the streaming event-log interpreter's
// single-threaded fold: Process(state, event) mutates state in place and
// returns the spans and metric samples that event produced, dispatching
// on the runtime event's kind and, for UserMessage events, through the
// TracingOp handler in handler.go.
package interpreter

import (
	"fmt"

	"github.com/loomtrace/loomtrace/internal/core/domain"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
	"github.com/loomtrace/loomtrace/internal/wire"
)

// fallbackThreadID is the arbitrary sentinel used when a UserMessage
// event carries no resolvable thread.
const fallbackThreadID domain.ThreadID = 1

// Process folds one runtime event into state, returning the spans and
// metric samples it produced. A malformed ot2/binary payload is
// returned as a data error; a TracingOp that references an unknown
// serial, or inconsistent span-store bookkeeping, panics with
// InvariantViolation instead of returning an error, because that always
// indicates a producer or interpreter bug, never bad input.
func Process(st *store.State, ev runtimelog.Event) ([]domain.Span, []domain.Sample, error) {
	st.MarkEventProcessed()

	now := st.OriginTimestamp + ev.Timestamp

	var thread domain.ThreadID
	var hasThread bool
	if ev.HasCap {
		thread, hasThread = st.ThreadOnCap(ev.Cap)
	}

	var trace *domain.TraceID
	if hasThread {
		if t, ok := st.TraceOfThread(thread); ok {
			trace = &t
		}
	}

	switch ev.Spec.Kind {
	case runtimelog.KindWallClockTime:
		st.OriginTimestamp = ev.Spec.Sec*1_000_000_000 + ev.Spec.Nsec - ev.Timestamp
		return nil, nil, nil

	case runtimelog.KindCreateThread:
		newTID := ev.Spec.ThreadID
		var inherited domain.TraceID
		if trace != nil {
			inherited = *trace
		} else {
			// Weak uniqueness by design: collides across threads created
			// before any WallClockTime adjustment.
			inherited = domain.TraceID(st.OriginTimestamp)
		}
		st.SetTraceOfThread(newTID, inherited)
		return nil, []domain.Sample{domain.NewSample(domain.InstrumentUpDownSumObserver, "threads", now, 1)}, nil

	case runtimelog.KindRunThread:
		if ev.HasCap {
			st.SetThreadOnCap(ev.Cap, ev.Spec.ThreadID)
		}
		return nil, nil, nil

	case runtimelog.KindStopThread:
		if !ev.Spec.Terminal {
			return nil, nil, nil
		}
		if ev.HasCap {
			st.ClearThreadOnCap(ev.Cap)
		}
		st.ClearTraceOfThread(ev.Spec.ThreadID)
		return nil, []domain.Sample{domain.NewSample(domain.InstrumentUpDownSumObserver, "threads", now, -1)}, nil

	case runtimelog.KindStartGC:
		st.GCStartedAt = now
		return nil, nil, nil

	case runtimelog.KindEndGC:
		return processEndGC(st, now), []domain.Sample{domain.NewSample(domain.InstrumentSumObserver, "gc", now, int64(now-st.GCStartedAt))}, nil

	case runtimelog.KindHeapLive:
		return nil, []domain.Sample{domain.NewSample(domain.InstrumentValueObserver, "heap_live_bytes", now, int64(ev.Spec.LiveBytes))}, nil

	case runtimelog.KindHeapAllocated:
		name := fmt.Sprintf("cap_%d_heap_alloc_bytes", ev.Cap)
		return nil, []domain.Sample{domain.NewSample(domain.InstrumentValueObserver, name, now, int64(ev.Spec.AllocBytes))}, nil

	case runtimelog.KindUserMessage:
		op, err := wire.Decode(ev.Spec.Payload)
		if err != nil {
			return nil, nil, err
		}
		if op == nil {
			return nil, nil, nil
		}
		handlerTID := fallbackThreadID
		if hasThread {
			handlerTID = thread
		}
		spans, metrics := handleOp(st, op, handlerTID, now, trace)
		return spans, metrics, nil

	default:
		return nil, nil, nil
	}
}

func processEndGC(st *store.State, now uint64) []domain.Span {
	duration := now - st.GCStartedAt

	for _, live := range st.LiveSpans() {
		live.NanosecondsSpentInGC += duration
	}

	sid := st.DrawSpanID()
	span := domain.NewSpan(domain.SpanContext{SpanID: sid, TraceID: domain.TraceID(sid)}, "gc", domain.NoThread, st.GCStartedAt)
	span.FinishedAt = now
	span.NanosecondsSpentInGC = duration

	return []domain.Span{*span}
}
