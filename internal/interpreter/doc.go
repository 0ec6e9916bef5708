// Package interpreter implements the streaming event-log interpreter:
// Process folds one runtime event into internal/store.State, dispatching
// on the event's Kind and, for UserMessage events, routing the decoded
// internal/wire.Op through handler.go.
//
//   - interpreter.go: Process, the top-level fold and RuntimeEventSpec
//     dispatch.
//   - handler.go: the TracingOp handler (BeginSpan/EndSpan/Tag/Event/
//     SetParent/SetTrace/SetSpan/Metric), including two corners of
//     deliberately-preserved behavior rather than a fix.
//   - errors.go: InvariantViolation, the panic value used when a
//     TracingOp references an unknown serial or the span store's
//     bookkeeping is inconsistent — a producer or interpreter bug, not
//     bad input, so it is never returned as an error.
package interpreter
