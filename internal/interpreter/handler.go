package interpreter

import (
	"github.com/loomtrace/loomtrace/internal/core/domain"
	"github.com/loomtrace/loomtrace/internal/store"
	"github.com/loomtrace/loomtrace/internal/wire"
)

// requireKnownSID resolves serial to a span id or panics with an
// InvariantViolation: a serial absent from serial2sid is a fatal
// interpreter error, never a recoverable one.
func requireKnownSID(st *store.State, op string, serial domain.Serial) domain.SpanID {
	sid, ok := st.SIDOfSerial(serial)
	if !ok {
		panic(&store.InvariantViolation{Op: op, Serial: serial, Detail: "serial not known to serial2sid"})
	}
	return sid
}

// handleOp dispatches one decoded TracingOp. tid, now and trace are the
// context derived by the caller from the runtime event that carried
// this op's payload.
func handleOp(st *store.State, op *wire.Op, tid domain.ThreadID, now uint64, trace *domain.TraceID) ([]domain.Span, []domain.Sample) {
	switch op.Kind {
	case wire.OpBeginSpan:
		return handleBeginSpan(st, op, tid, now, trace)
	case wire.OpEndSpan:
		return handleEndSpan(st, op, tid, now, trace)
	case wire.OpSetParent:
		sid := requireKnownSID(st, "SetParent", op.Serial)
		st.Modify(sid, func(sp *domain.Span) {
			parent := op.ParentSpan
			sp.ParentID = &parent
			sp.Context.TraceID = op.Trace
		})
		st.SetTraceOfThread(tid, op.Trace)
		return nil, nil

	case wire.OpSetSpan:
		// Deliberately does not rekey spans — lookups continue to use the
		// original sid.
		sid := requireKnownSID(st, "SetSpan", op.Serial)
		st.Modify(sid, func(sp *domain.Span) {
			sp.Context.SpanID = op.NewSpanID
		})
		st.MarkSuspectRewrite()
		return nil, nil

	case wire.OpSetTrace:
		sid := requireKnownSID(st, "SetTrace", op.Serial)
		st.Modify(sid, func(sp *domain.Span) {
			sp.Context.TraceID = op.Trace
		})
		st.SetTraceOfThread(tid, op.Trace)
		return nil, nil

	case wire.OpTag:
		sid := requireKnownSID(st, "Tag", op.Serial)
		st.Modify(sid, func(sp *domain.Span) {
			sp.SetTag(op.Key, op.Value)
		})
		return nil, nil

	case wire.OpEvent:
		sid := requireKnownSID(st, "Event", op.Serial)
		st.Modify(sid, func(sp *domain.Span) {
			sp.AddEvent(now, op.Key, op.Value)
		})
		return nil, nil

	case wire.OpMetric:
		return nil, []domain.Sample{domain.NewSample(op.Instrument, op.MetricName, now, op.MetricVal)}

	default:
		return nil, nil
	}
}

func traceOrSentinel(trace *domain.TraceID) domain.TraceID {
	if trace != nil {
		return *trace
	}
	return domain.OrphanTraceID
}

func handleBeginSpan(st *store.State, op *wire.Op, tid domain.ThreadID, now uint64, trace *domain.TraceID) ([]domain.Span, []domain.Sample) {
	sid, known := st.SIDOfSerial(op.Serial)
	if !known {
		sid = st.InventSID(op.Serial)
		span := domain.NewSpan(domain.SpanContext{SpanID: sid, TraceID: traceOrSentinel(trace)}, op.Name, tid, now)
		if parent, hasParent := st.CurrentSpanOfThread(tid); hasParent {
			span.ParentID = &parent
		}
		st.Create(sid, span)
		return nil, nil
	}

	// A BEGIN arrived for a recycled serial whose previous span was never
	// explicitly ended. The prior span is emitted as if it had just ended,
	// but carries the new Begin's metadata — old FinishedAt (still 0)
	// survives. Preserved verbatim; not "fixed". A fresh span is then
	// opened under the same serial for a later End to close.
	st.Modify(sid, func(sp *domain.Span) {
		sp.Operation = op.Name
		sp.StartedAt = now
		sp.ThreadID = tid
	})
	emitted := st.Emit(op.Serial, sid)
	st.MarkSuspectRewrite()

	fresh := st.InventSID(op.Serial)
	span := domain.NewSpan(domain.SpanContext{SpanID: fresh, TraceID: traceOrSentinel(trace)}, op.Name, tid, now)
	if parent, hasParent := st.CurrentSpanOfThread(tid); hasParent {
		span.ParentID = &parent
	}
	st.Create(fresh, span)
	return []domain.Span{*emitted}, nil
}

func handleEndSpan(st *store.State, op *wire.Op, tid domain.ThreadID, now uint64, trace *domain.TraceID) ([]domain.Span, []domain.Sample) {
	sid, known := st.SIDOfSerial(op.Serial)
	if !known {
		// Orphan end: stage a zero-start, zero-finish placeholder that only
		// becomes visible if a later Begin reuses the same serial. Dubious
		// but preserved.
		sid = st.InventSID(op.Serial)
		span := domain.NewSpan(domain.SpanContext{SpanID: sid, TraceID: traceOrSentinel(trace)}, "", tid, 0)
		if parent, hasParent := st.CurrentSpanOfThread(tid); hasParent {
			span.ParentID = &parent
		}
		st.Create(sid, span)
		return nil, nil
	}

	st.Modify(sid, func(sp *domain.Span) {
		sp.FinishedAt = now
	})
	emitted := st.Emit(op.Serial, sid)
	return []domain.Span{*emitted}, nil
}
