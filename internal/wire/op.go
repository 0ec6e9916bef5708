// Package wire decodes the textual and binary framings of the embedded
// user-tracing sublanguage into a single TracingOp algebra, so the
// interpreter's handler (internal/interpreter) never needs to know which
// framing produced an operation.
package wire

import "github.com/loomtrace/loomtrace/internal/core/domain"

// OpKind discriminates the TracingOp variants.
type OpKind int

const (
	OpBeginSpan OpKind = iota
	OpEndSpan
	OpTag
	OpEvent
	OpSetParent
	OpSetTrace
	OpSetSpan
	OpMetric
)

func (k OpKind) String() string {
	switch k {
	case OpBeginSpan:
		return "BeginSpan"
	case OpEndSpan:
		return "EndSpan"
	case OpTag:
		return "Tag"
	case OpEvent:
		return "Event"
	case OpSetParent:
		return "SetParent"
	case OpSetTrace:
		return "SetTrace"
	case OpSetSpan:
		return "SetSpan"
	case OpMetric:
		return "Metric"
	default:
		return "Unknown"
	}
}

// Op is the decoded tagged union of the user-tracing sublanguage
// (BeginSpan | EndSpan | Tag | Event | SetParent | SetTrace | SetSpan |
// Metric). Only the fields documented for Kind are meaningful.
type Op struct {
	Kind OpKind

	// BeginSpan, EndSpan, Tag, Event, SetParent, SetTrace, SetSpan
	Serial domain.Serial

	// BeginSpan
	Name string

	// Tag, Event
	Key   string
	Value domain.TagValue

	// SetParent
	ParentSpan domain.SpanID
	Trace      domain.TraceID

	// SetTrace
	// (reuses Trace above)

	// SetSpan
	NewSpanID domain.SpanID

	// Metric
	Instrument domain.InstrumentKind
	MetricName string
	MetricVal  int64
}
