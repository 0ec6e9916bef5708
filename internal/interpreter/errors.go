package interpreter

import "github.com/loomtrace/loomtrace/internal/store"

// InvariantViolation is panicked when a TracingOp references an unknown
// serial, or the span store's internal bookkeeping is inconsistent — a
// fatal interpreter bug that should abort the process, never a
// recoverable error. It is store.InvariantViolation under the hood,
// aliased here so callers only need to import internal/interpreter to
// recover() and inspect it.
type InvariantViolation = store.InvariantViolation
