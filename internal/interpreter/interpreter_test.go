package interpreter

import (
	"testing"

	"github.com/loomtrace/loomtrace/internal/core/domain"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
	"github.com/loomtrace/loomtrace/internal/wire"
)

type seqSource struct{ next uint64 }

func (s *seqSource) Uint64() uint64 {
	s.next++
	return s.next
}

func userMessage(ts uint64, cap domain.Cap, text string) runtimelog.Event {
	return runtimelog.Event{
		Timestamp: ts,
		Cap:       cap,
		HasCap:    true,
		Spec:      runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte(text)},
	}
}

func mustProcess(t *testing.T, st *store.State, ev runtimelog.Event) ([]domain.Span, []domain.Sample) {
	t.Helper()
	spans, metrics, err := Process(st, ev)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return spans, metrics
}

// Scenario 1: minimal span.
func TestMinimalSpan(t *testing.T) {
	st := store.New(0, &seqSource{})

	mustProcess(t, st, runtimelog.Event{Timestamp: 0, Spec: runtimelog.Spec{Kind: runtimelog.KindWallClockTime, Sec: 1, Nsec: 0}})
	mustProcess(t, st, runtimelog.Event{Timestamp: 10, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindCreateThread, ThreadID: 7}})
	mustProcess(t, st, runtimelog.Event{Timestamp: 10, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindRunThread, ThreadID: 7}})
	mustProcess(t, st, userMessage(20, 0, "ot2 begin span 100 foo"))
	spans, _ := mustProcess(t, st, userMessage(30, 0, "ot2 end span 100"))

	if len(spans) != 1 {
		t.Fatalf("len(spans) = %d, want 1", len(spans))
	}
	got := spans[0]
	if got.Operation != "foo" {
		t.Errorf("Operation = %q, want foo", got.Operation)
	}
	if got.StartedAt != 1_000_000_020 {
		t.Errorf("StartedAt = %d, want 1000000020", got.StartedAt)
	}
	if got.FinishedAt != 1_000_000_030 {
		t.Errorf("FinishedAt = %d, want 1000000030", got.FinishedAt)
	}
	if got.ThreadID != 7 {
		t.Errorf("ThreadID = %d, want 7", got.ThreadID)
	}
}

// Scenario 2: orphan end.
func TestOrphanEnd(t *testing.T) {
	st := store.New(0, &seqSource{})

	spans, _ := mustProcess(t, st, userMessage(50, 0, "ot2 end span 999"))
	if len(spans) != 0 {
		t.Fatalf("orphan end emitted %d spans, want 0", len(spans))
	}
	if _, ok := st.SIDOfSerial(999); !ok {
		t.Fatalf("serial2sid missing entry for orphan-ended serial 999")
	}

	spans, _ = mustProcess(t, st, userMessage(60, 0, "ot2 begin span 999 bar"))
	if len(spans) != 1 {
		t.Fatalf("recycled-serial begin emitted %d spans, want 1", len(spans))
	}
	got := spans[0]
	if got.Operation != "bar" {
		t.Errorf("Operation = %q, want bar (overwritten by recycled Begin)", got.Operation)
	}
	if got.FinishedAt != 0 {
		t.Errorf("FinishedAt = %d, want 0 (never explicitly ended)", got.FinishedAt)
	}
	if st.SuspectRewrites() != 1 {
		t.Errorf("SuspectRewrites() = %d, want 1", st.SuspectRewrites())
	}

	// A fresh span now exists under serial 999 for a subsequent end.
	spans, _ = mustProcess(t, st, userMessage(70, 0, "ot2 end span 999"))
	if len(spans) != 1 {
		t.Fatalf("final end emitted %d spans, want 1", len(spans))
	}
}

// Scenario 3: parent stacking.
func TestParentStacking(t *testing.T) {
	st := store.New(0, &seqSource{})

	mustProcess(t, st, userMessage(10, 0, "ot2 begin span 1 outer"))
	mustProcess(t, st, userMessage(20, 0, "ot2 begin span 2 inner"))
	endInner, _ := mustProcess(t, st, userMessage(30, 0, "ot2 end span 2"))
	endOuter, _ := mustProcess(t, st, userMessage(40, 0, "ot2 end span 1"))

	if len(endInner) != 1 || len(endOuter) != 1 {
		t.Fatalf("expected one span per end, got %d and %d", len(endInner), len(endOuter))
	}
	inner, outer := endInner[0], endOuter[0]

	if inner.ParentID == nil || *inner.ParentID != outer.Context.SpanID {
		t.Errorf("inner.ParentID = %v, want %d", inner.ParentID, outer.Context.SpanID)
	}
	if outer.ParentID != nil {
		t.Errorf("outer.ParentID = %v, want nil", outer.ParentID)
	}
	if _, ok := st.CurrentSpanOfThread(fallbackThreadID); ok {
		t.Errorf("thread2sid[%d] still present after both ends", fallbackThreadID)
	}
}

// Scenario 4: GC accounting.
func TestGCAccounting(t *testing.T) {
	st := store.New(0, &seqSource{})

	mustProcess(t, st, userMessage(100, 0, "ot2 begin span 1 work"))
	mustProcess(t, st, runtimelog.Event{Timestamp: 200, Spec: runtimelog.Spec{Kind: runtimelog.KindStartGC}})
	gcSpans, gcMetrics := mustProcess(t, st, runtimelog.Event{Timestamp: 250, Spec: runtimelog.Spec{Kind: runtimelog.KindEndGC}})
	ended, _ := mustProcess(t, st, userMessage(300, 0, "ot2 end span 1"))

	if len(gcSpans) != 1 {
		t.Fatalf("len(gcSpans) = %d, want 1", len(gcSpans))
	}
	if gcSpans[0].StartedAt != 200 || gcSpans[0].FinishedAt != 250 {
		t.Errorf("gc span = %+v, want startedAt=200 finishedAt=250", gcSpans[0])
	}
	if len(gcMetrics) != 1 || gcMetrics[0].Points[0].Value != 50 {
		t.Errorf("gc metric = %+v, want value 50", gcMetrics)
	}
	if len(ended) != 1 || ended[0].NanosecondsSpentInGC != 50 {
		t.Fatalf("span(1).NanosecondsSpentInGC = %+v, want 50", ended)
	}
}

// Scenario 5: metric in binary form.
func TestMetricInBinaryForm(t *testing.T) {
	st := store.New(0, &seqSource{})

	op := &wire.Op{Kind: wire.OpMetric, Instrument: domain.InstrumentSumObserver, MetricName: "req", MetricVal: 42}
	payload := wire.EncodeBinary(op)

	before := st.ProcessedEvents()
	spans, metrics := mustProcess(t, st, runtimelog.Event{Timestamp: 10, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: payload}})

	if len(spans) != 0 {
		t.Errorf("len(spans) = %d, want 0", len(spans))
	}
	if len(metrics) != 1 || metrics[0].Points[0].Value != 42 || metrics[0].Instrument.Name != "req" {
		t.Fatalf("metrics = %+v, want one sample value=42 name=req", metrics)
	}
	if st.ProcessedEvents() != before+1 {
		t.Errorf("ProcessedEvents did not advance")
	}
}

// Scenario 6: reorder robustness — at the interpreter level,
// interleaving independent serials in a different relative order must
// not change the output, since operations are keyed by serial/thread,
// not by wall order.
func TestReorderRobustness(t *testing.T) {
	setupThreads := func(st *store.State) {
		mustProcess(t, st, runtimelog.Event{Timestamp: 0, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindRunThread, ThreadID: 10}})
		mustProcess(t, st, runtimelog.Event{Timestamp: 0, Cap: 1, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindRunThread, ThreadID: 20}})
	}

	run := func(order []runtimelog.Event) []domain.Span {
		st := store.New(0, &seqSource{})
		setupThreads(st)
		var out []domain.Span
		for _, ev := range order {
			spans, _ := mustProcess(t, st, ev)
			out = append(out, spans...)
		}
		return out
	}

	// Cap 0/thread 10 and cap 1/thread 20 are independent: operations on
	// one never affect the other's stack, so inter-cap reordering must
	// not change either span's recorded times.
	ascending := []runtimelog.Event{
		userMessage(10, 0, "ot2 begin span 1 a"),
		userMessage(20, 1, "ot2 begin span 2 b"),
		userMessage(30, 0, "ot2 end span 1"),
		userMessage(40, 1, "ot2 end span 2"),
	}
	descending := []runtimelog.Event{
		userMessage(20, 1, "ot2 begin span 2 b"),
		userMessage(10, 0, "ot2 begin span 1 a"),
		userMessage(40, 1, "ot2 end span 2"),
		userMessage(30, 0, "ot2 end span 1"),
	}

	a := run(ascending)
	d := run(descending)

	if len(a) != len(d) || len(a) != 2 {
		t.Fatalf("len(a)=%d len(d)=%d, want 2 each", len(a), len(d))
	}
	byOp := func(spans []domain.Span, op string) domain.Span {
		for _, s := range spans {
			if s.Operation == op {
				return s
			}
		}
		t.Fatalf("no span with operation %q", op)
		return domain.Span{}
	}
	aSpanA, dSpanA := byOp(a, "a"), byOp(d, "a")
	if aSpanA.StartedAt != dSpanA.StartedAt || aSpanA.FinishedAt != dSpanA.FinishedAt {
		t.Errorf("span a differs between orders: %+v vs %+v", aSpanA, dSpanA)
	}
}

func TestInvariantViolationOnUnknownSerial(t *testing.T) {
	st := store.New(0, &seqSource{})

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic on Tag for unknown serial")
		}
		if _, ok := r.(*InvariantViolation); !ok {
			t.Fatalf("panic value = %T, want *InvariantViolation", r)
		}
	}()
	mustProcess(t, st, userMessage(10, 0, "ot2 set tag 1 k v"))
}

func TestMalformedTextIsDataErrorNotPanic(t *testing.T) {
	st := store.New(0, &seqSource{})

	_, _, err := Process(st, userMessage(10, 0, "ot2 bogus verb"))
	if err == nil {
		t.Fatalf("err = nil, want data error")
	}
	if !domain.IsDataError(err) {
		t.Errorf("IsDataError(err) = false, want true")
	}
}
