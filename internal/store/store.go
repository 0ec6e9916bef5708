package store

import (
	"fmt"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

// InvariantViolation is panicked by Emit when its preconditions are
// violated: a fatal interpreter bug, not a data error. This mirrors an
// FSM.Apply that panics rather than returns an error on a corrupt or
// unknown log entry, because both represent a producer or interpreter
// bug rather than bad input.
type InvariantViolation struct {
	Op     string
	Serial domain.Serial
	SpanID domain.SpanID
	Detail string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("store: invariant violation in %s (serial=%d sid=%d): %s", e.Op, e.Serial, e.SpanID, e.Detail)
}

func panicInvariant(op string, serial domain.Serial, sid domain.SpanID, detail string) {
	panic(&InvariantViolation{Op: op, Serial: serial, SpanID: sid, Detail: detail})
}

// DrawSpanID draws 64 fresh bits from s.RNG without touching serial2sid —
// used for span ids that are not correlated to a serial, such as the
// synthetic span EndGC emits.
func (s *State) DrawSpanID() domain.SpanID {
	return domain.SpanID(s.RNG.Uint64())
}

// InventSID draws 64 fresh bits from s.RNG, records
// serial2sid[serial] = sid, and returns the new id.
// Precondition: serial must not already be present in serial2sid.
func (s *State) InventSID(serial domain.Serial) domain.SpanID {
	if _, exists := s.serial2sid[serial]; exists {
		panicInvariant("InventSID", serial, 0, "serial already has an assigned span id")
	}
	sid := domain.SpanID(s.RNG.Uint64())
	s.serial2sid[serial] = sid
	return sid
}

// Create inserts span into spans and sets thread2sid[span.ThreadID] = sid.
// It does not touch the prior value of thread2sid[t] — a caller that
// wants stack semantics must first capture that prior value as the new
// span's ParentID.
func (s *State) Create(sid domain.SpanID, span *domain.Span) {
	s.spans[sid] = span
	s.thread2sid[span.ThreadID] = sid
}

// Emit removes serial and sid from their respective indexes and returns
// the emitted span, popping the thread stack by restoring
// thread2sid[span.ThreadID] to span.ParentID (or deleting the entry if
// there is no parent). Precondition: serial2sid[serial] == sid and
// sid is present in spans; violating either panics with
// InvariantViolation.
func (s *State) Emit(serial domain.Serial, sid domain.SpanID) *domain.Span {
	gotSID, ok := s.serial2sid[serial]
	if !ok || gotSID != sid {
		panicInvariant("Emit", serial, sid, "serial2sid does not map serial to sid")
	}
	span, ok := s.spans[sid]
	if !ok {
		panicInvariant("Emit", serial, sid, "sid not present in spans")
	}

	delete(s.serial2sid, serial)
	delete(s.spans, sid)
	s.emittedSpans.Add(1)

	if span.ParentID != nil {
		s.thread2sid[span.ThreadID] = *span.ParentID
	} else {
		delete(s.thread2sid, span.ThreadID)
	}

	return span
}

// Modify adjusts the span at sid in place via f, silently no-op if sid
// is absent — callers of SetTag/SetTrace/etc. must have verified
// existence via serial2sid before calling.
func (s *State) Modify(sid domain.SpanID, f func(*domain.Span)) {
	span, ok := s.spans[sid]
	if !ok {
		return
	}
	f(span)
}
