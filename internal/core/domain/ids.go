// Package domain defines the core data model for loomtrace: the spans,
// metric samples, and identifiers the interpreter produces from a runtime
// event log.
package domain

// TraceID identifies a set of causally related spans. Zero is a legal
// trace id.
type TraceID uint64

// SpanID identifies a single span. Zero is a legal span id.
type SpanID uint64

// Serial is the ephemeral "span in flight" identifier chosen by the
// emitting user code. It is reused freely across the process lifetime;
// uniqueness is only guaranteed between a BEGIN and its matching END.
type Serial uint64

// ThreadID identifies an OS/runtime thread.
type ThreadID uint32

// Cap identifies a runtime-scheduler execution slot (a "capability").
type Cap uint16

// NoThread is the sentinel thread id used for spans with no owning
// thread, such as a GC span.
const NoThread ThreadID = ^ThreadID(0)

// OrphanTraceID is the sentinel trace id assigned to a span that ends (or
// begins) without ever having been given a real trace context.
const OrphanTraceID TraceID = 42
