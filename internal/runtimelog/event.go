package runtimelog

import "github.com/loomtrace/loomtrace/internal/core/domain"

// Kind discriminates the runtime event variants the interpreter
// dispatches on. The event-log wire format itself comes from an
// external profiler — this package only fixes the in-process shape the
// interpreter consumes.
type Kind int

const (
	// KindOther covers every runtime event the interpreter treats as a
	// no-op.
	KindOther Kind = iota
	KindWallClockTime
	KindCreateThread
	KindRunThread
	KindStopThread
	KindStartGC
	KindEndGC
	KindHeapLive
	KindHeapAllocated
	KindUserMessage
	// KindShutdown, KindCapDelete and KindCapsetDelete are not dispatched
	// by the state machine but are recognized by the tail driver as
	// shutdown-like: observed and logged, never fatal.
	KindShutdown
	KindCapDelete
	KindCapsetDelete
)

func (k Kind) String() string {
	switch k {
	case KindWallClockTime:
		return "WallClockTime"
	case KindCreateThread:
		return "CreateThread"
	case KindRunThread:
		return "RunThread"
	case KindStopThread:
		return "StopThread"
	case KindStartGC:
		return "StartGC"
	case KindEndGC:
		return "EndGC"
	case KindHeapLive:
		return "HeapLive"
	case KindHeapAllocated:
		return "HeapAllocated"
	case KindUserMessage:
		return "UserMessage"
	case KindShutdown:
		return "Shutdown"
	case KindCapDelete:
		return "CapDelete"
	case KindCapsetDelete:
		return "CapsetDelete"
	default:
		return "Other"
	}
}

// Spec carries the fields relevant to whichever Kind the event is; only
// the fields documented for that Kind are meaningful.
type Spec struct {
	Kind Kind

	// WallClockTime
	Sec  uint64
	Nsec uint64

	// CreateThread / RunThread / StopThread
	ThreadID domain.ThreadID
	// StopThread: whether the stop is a terminal status. Non-terminal
	// stops are ignored.
	Terminal bool

	// HeapLive
	LiveBytes uint64

	// HeapAllocated
	AllocBytes uint64

	// UserMessage: the raw embedded tracing-sublanguage payload, either
	// the textual "ot2 ..." bytes or a binary framed message
	// (internal/wire parses either).
	Payload []byte
}

// Event is one entry from the runtime event log.
type Event struct {
	// Timestamp is the raw in-log tick; the interpreter adds the current
	// originTimestamp to get wall-clock nanoseconds.
	Timestamp uint64
	// Cap is the capability the event occurred on, if any.
	Cap    domain.Cap
	HasCap bool
	Spec   Spec
}
