// Package runtimelog defines the contract for the event-log reader,
// treated as a decoder yielding a lazy sequence of RuntimeEvent records
// through a driven pull-parser. The interpreter and ingestion driver
// depend only on the types in this package, never on a specific wire
// format.
//
// The package also ships one concrete Decoder (simpledecoder.go) so the
// interpreter can be exercised end to end without a real host-profiler
// event log attached — a host integration swaps it for its own decoder
// satisfying the same interface.
package runtimelog

import (
	"fmt"
	"os"
)

// StepKind discriminates the four states of the incremental decoder
// protocol: Produce, Consume, Done, Error.
type StepKind int

const (
	// StepProduce carries one decoded Event; call Step again for the next.
	StepProduce StepKind = iota
	// StepConsume means the decoder needs more input before it can
	// produce another event or determine it is Done.
	StepConsume
	// StepDone means the stream ended cleanly on an event boundary.
	StepDone
	// StepError means the stream is corrupt; Leftover is whatever
	// undecoded bytes remain and Err describes the failure.
	StepError
)

// Step is the result of one Decoder.Step call.
type Step struct {
	Kind     StepKind
	Event    Event
	Leftover []byte
	Err      error
}

// Decoder is an incremental pull-parser over a runtime event log byte
// stream. Callers drive it with Step/Feed in a loop (internal/ingest's
// tail driver); Feed with a zero-length slice signals that no further
// input is coming (the source reached EOF and the caller's EOF policy
// decided not to retry).
type Decoder interface {
	// Step advances the decoder and reports what happened.
	Step() Step
	// Feed supplies more bytes (or, if empty, signals end of input) after
	// a StepConsume result.
	Feed(data []byte)
}

// DecodeFile decodes an entire closed event log in one pass, the batch
// path used when the whole file is already on disk.
func DecodeFile(path string, newDecoder func() Decoder) ([]Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("runtimelog: read %s: %w", path, err)
	}

	dec := newDecoder()
	dec.Feed(data)
	dec.Feed(nil)

	var out []Event
	for {
		step := dec.Step()
		switch step.Kind {
		case StepProduce:
			out = append(out, step.Event)
		case StepConsume:
			// newDecoder's Feed already delivered everything; a decoder
			// that still asks for more after EOF has nothing left to give.
			return out, nil
		case StepDone:
			return out, nil
		case StepError:
			return out, fmt.Errorf("runtimelog: decode %s: %w", path, step.Err)
		}
	}
}
