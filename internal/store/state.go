package store

import (
	"sync/atomic"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

// State is the interpreter's single mutable state object, updated
// through explicit methods that each apply one event's effect
// atomically. It is owned exclusively by the single fold goroutine;
// nothing else ever reads or writes its maps, so they are plain
// map[K]V with no locking of their own. The atomic counters below are
// the one piece of State a concurrent metrics reader does touch, which
// is why they alone are atomic.Uint64 rather than plain fields.
type State struct {
	// OriginTimestamp is the wall-clock epoch corresponding to the event
	// log's t=0 tick; adjusted only by WallClockTime events.
	OriginTimestamp uint64

	threadMap  map[domain.Cap]domain.ThreadID
	traceMap   map[domain.ThreadID]domain.TraceID
	spans      map[domain.SpanID]*domain.Span
	serial2sid map[domain.Serial]domain.SpanID
	thread2sid map[domain.ThreadID]domain.SpanID

	GCStartedAt  uint64
	GCGeneration int

	RNG Source

	processedEvents atomic.Uint64
	emittedSpans    atomic.Uint64
	suspectRewrites atomic.Uint64
}

// New builds an empty interpreter state seeded with originTimestamp and
// rng.
func New(originTimestamp uint64, rng Source) *State {
	return &State{
		OriginTimestamp: originTimestamp,
		threadMap:       make(map[domain.Cap]domain.ThreadID),
		traceMap:        make(map[domain.ThreadID]domain.TraceID),
		spans:           make(map[domain.SpanID]*domain.Span),
		serial2sid:      make(map[domain.Serial]domain.SpanID),
		thread2sid:      make(map[domain.ThreadID]domain.SpanID),
		RNG:             rng,
	}
}

// ProcessedEvents reports how many runtime events have been folded.
func (s *State) ProcessedEvents() uint64 { return s.processedEvents.Load() }

// MarkEventProcessed increments the processed-event counter; called once
// per Process call.
func (s *State) MarkEventProcessed() { s.processedEvents.Add(1) }

// EmittedSpans reports how many spans have been emitted.
func (s *State) EmittedSpans() uint64 { return s.emittedSpans.Load() }

// SuspectRewrites reports how many times a known-suspect behavior
// corner (recycled-serial BeginSpan, non-rekeying SetSpan) has fired.
func (s *State) SuspectRewrites() uint64 { return s.suspectRewrites.Load() }

// MarkSuspectRewrite increments the suspect-rewrite counter.
func (s *State) MarkSuspectRewrite() { s.suspectRewrites.Add(1) }

// ThreadOnCap returns threadMap[cap].
func (s *State) ThreadOnCap(cap domain.Cap) (domain.ThreadID, bool) {
	tid, ok := s.threadMap[cap]
	return tid, ok
}

// SetThreadOnCap sets threadMap[cap] := tid.
func (s *State) SetThreadOnCap(cap domain.Cap, tid domain.ThreadID) {
	s.threadMap[cap] = tid
}

// ClearThreadOnCap removes threadMap[cap].
func (s *State) ClearThreadOnCap(cap domain.Cap) {
	delete(s.threadMap, cap)
}

// TraceOfThread returns traceMap[tid].
func (s *State) TraceOfThread(tid domain.ThreadID) (domain.TraceID, bool) {
	trace, ok := s.traceMap[tid]
	return trace, ok
}

// SetTraceOfThread sets traceMap[tid] := trace.
func (s *State) SetTraceOfThread(tid domain.ThreadID, trace domain.TraceID) {
	s.traceMap[tid] = trace
}

// ClearTraceOfThread removes traceMap[tid].
func (s *State) ClearTraceOfThread(tid domain.ThreadID) {
	delete(s.traceMap, tid)
}

// CurrentSpanOfThread returns thread2sid[tid], the top of that thread's
// span stack.
func (s *State) CurrentSpanOfThread(tid domain.ThreadID) (domain.SpanID, bool) {
	sid, ok := s.thread2sid[tid]
	return sid, ok
}

// SIDOfSerial returns serial2sid[serial].
func (s *State) SIDOfSerial(serial domain.Serial) (domain.SpanID, bool) {
	sid, ok := s.serial2sid[serial]
	return sid, ok
}

// SpanByID returns spans[sid].
func (s *State) SpanByID(sid domain.SpanID) (*domain.Span, bool) {
	span, ok := s.spans[sid]
	return span, ok
}

// LiveSpans returns every span currently in flight. Used by EndGC to
// attribute GC time to all concurrently-live spans.
func (s *State) LiveSpans() []*domain.Span {
	out := make([]*domain.Span, 0, len(s.spans))
	for _, span := range s.spans {
		out = append(out, span)
	}
	return out
}
