// Package domain defines loomtrace's core data model.
//
// This package implements the span, metric, and identifier types shared
// by every other package:
//
//   - ids.go: TraceID, SpanID, Serial, ThreadID, Cap and their sentinels
//   - span.go: Span, SpanContext, Event, TagValue
//   - metric.go: Instrument, InstrumentKind, Sample, Point
//   - errors.go: structured errors for the data-error severity tier
//
// These types carry no behavior beyond simple invariants (e.g. "events
// are stored most-recent-first") — the state machine in
// internal/interpreter owns all mutation policy.
package domain
