package runtimelog

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

// wire tags for SimpleDecoder's own framing. This is a fixture format for
// exercising the interpreter end to end, not the host profiler's wire
// format, which is defined elsewhere and consumed verbatim.
const (
	tagWallClockTime byte = 1
	tagCreateThread  byte = 2
	tagRunThread     byte = 3
	tagStopThread    byte = 4
	tagStartGC       byte = 5
	tagEndGC         byte = 6
	tagHeapLive      byte = 7
	tagHeapAllocated byte = 8
	tagUserMessage   byte = 9
	tagShutdown      byte = 10
	tagCapDelete     byte = 11
	tagCapsetDelete  byte = 12
)

// SimpleDecoder is a reference Decoder implementation: each record is
//
//	[tag:1][ts:8][hasCap:1][cap:2 if hasCap][kind-specific payload]
//
// little-endian throughout, in the style of a write-ahead-log frame
// (length-free here because every field is fixed- or self-length-prefixed).
type SimpleDecoder struct {
	buf    bytes.Buffer
	closed bool
}

// NewSimpleDecoder constructs an empty SimpleDecoder.
func NewSimpleDecoder() *SimpleDecoder {
	return &SimpleDecoder{}
}

// Feed implements Decoder.
func (d *SimpleDecoder) Feed(data []byte) {
	if len(data) == 0 {
		d.closed = true
		return
	}
	d.buf.Write(data)
}

// Step implements Decoder.
func (d *SimpleDecoder) Step() Step {
	raw := d.buf.Bytes()
	if len(raw) == 0 {
		if d.closed {
			return Step{Kind: StepDone}
		}
		return Step{Kind: StepConsume}
	}

	ev, consumed, err := decodeOneRecord(raw)
	if err != nil {
		if err == errShortRecord {
			if d.closed {
				leftover := append([]byte(nil), raw...)
				return Step{Kind: StepError, Leftover: leftover, Err: fmt.Errorf("runtimelog: truncated record (%d bytes)", len(raw))}
			}
			return Step{Kind: StepConsume}
		}
		leftover := append([]byte(nil), raw...)
		return Step{Kind: StepError, Leftover: leftover, Err: err}
	}

	d.buf.Next(consumed)
	return Step{Kind: StepProduce, Event: ev}
}

var errShortRecord = fmt.Errorf("runtimelog: short record")

func decodeOneRecord(raw []byte) (Event, int, error) {
	const headerLen = 1 + 8 + 1 // tag + ts + hasCap
	if len(raw) < headerLen {
		return Event{}, 0, errShortRecord
	}

	tag := raw[0]
	ts := binary.LittleEndian.Uint64(raw[1:9])
	hasCap := raw[9] != 0
	off := 10

	var cap_ domain.Cap
	if hasCap {
		if len(raw) < off+2 {
			return Event{}, 0, errShortRecord
		}
		cap_ = domain.Cap(binary.LittleEndian.Uint16(raw[off:]))
		off += 2
	}

	ev := Event{Timestamp: ts, Cap: cap_, HasCap: hasCap}

	switch tag {
	case tagWallClockTime:
		if len(raw) < off+16 {
			return Event{}, 0, errShortRecord
		}
		sec := binary.LittleEndian.Uint64(raw[off:])
		nsec := binary.LittleEndian.Uint64(raw[off+8:])
		off += 16
		ev.Spec = Spec{Kind: KindWallClockTime, Sec: sec, Nsec: nsec}

	case tagCreateThread:
		if len(raw) < off+4 {
			return Event{}, 0, errShortRecord
		}
		tid := domain.ThreadID(binary.LittleEndian.Uint32(raw[off:]))
		off += 4
		ev.Spec = Spec{Kind: KindCreateThread, ThreadID: tid}

	case tagRunThread:
		if len(raw) < off+4 {
			return Event{}, 0, errShortRecord
		}
		tid := domain.ThreadID(binary.LittleEndian.Uint32(raw[off:]))
		off += 4
		ev.Spec = Spec{Kind: KindRunThread, ThreadID: tid}

	case tagStopThread:
		if len(raw) < off+5 {
			return Event{}, 0, errShortRecord
		}
		tid := domain.ThreadID(binary.LittleEndian.Uint32(raw[off:]))
		terminal := raw[off+4] != 0
		off += 5
		ev.Spec = Spec{Kind: KindStopThread, ThreadID: tid, Terminal: terminal}

	case tagStartGC:
		ev.Spec = Spec{Kind: KindStartGC}

	case tagEndGC:
		ev.Spec = Spec{Kind: KindEndGC}

	case tagHeapLive:
		if len(raw) < off+8 {
			return Event{}, 0, errShortRecord
		}
		live := binary.LittleEndian.Uint64(raw[off:])
		off += 8
		ev.Spec = Spec{Kind: KindHeapLive, LiveBytes: live}

	case tagHeapAllocated:
		if len(raw) < off+8 {
			return Event{}, 0, errShortRecord
		}
		alloc := binary.LittleEndian.Uint64(raw[off:])
		off += 8
		ev.Spec = Spec{Kind: KindHeapAllocated, AllocBytes: alloc}

	case tagUserMessage:
		if len(raw) < off+4 {
			return Event{}, 0, errShortRecord
		}
		n := binary.LittleEndian.Uint32(raw[off:])
		off += 4
		if len(raw) < off+int(n) {
			return Event{}, 0, errShortRecord
		}
		payload := append([]byte(nil), raw[off:off+int(n)]...)
		off += int(n)
		ev.Spec = Spec{Kind: KindUserMessage, Payload: payload}

	case tagShutdown:
		ev.Spec = Spec{Kind: KindShutdown}
	case tagCapDelete:
		ev.Spec = Spec{Kind: KindCapDelete}
	case tagCapsetDelete:
		ev.Spec = Spec{Kind: KindCapsetDelete}

	default:
		return Event{}, 0, fmt.Errorf("runtimelog: unknown record tag %d", tag)
	}

	return ev, off, nil
}

// EncodeRecord renders ev in SimpleDecoder's wire format. It is the
// inverse of decodeOneRecord and is used by tests and by
// internal/ingest's file/tail fixtures to build sample logs.
func EncodeRecord(ev Event) []byte {
	var buf bytes.Buffer

	var tag byte
	switch ev.Spec.Kind {
	case KindWallClockTime:
		tag = tagWallClockTime
	case KindCreateThread:
		tag = tagCreateThread
	case KindRunThread:
		tag = tagRunThread
	case KindStopThread:
		tag = tagStopThread
	case KindStartGC:
		tag = tagStartGC
	case KindEndGC:
		tag = tagEndGC
	case KindHeapLive:
		tag = tagHeapLive
	case KindHeapAllocated:
		tag = tagHeapAllocated
	case KindUserMessage:
		tag = tagUserMessage
	case KindShutdown:
		tag = tagShutdown
	case KindCapDelete:
		tag = tagCapDelete
	case KindCapsetDelete:
		tag = tagCapsetDelete
	default:
		tag = tagShutdown
	}

	buf.WriteByte(tag)
	var ts [8]byte
	binary.LittleEndian.PutUint64(ts[:], ev.Timestamp)
	buf.Write(ts[:])

	if ev.HasCap {
		buf.WriteByte(1)
		var c [2]byte
		binary.LittleEndian.PutUint16(c[:], uint16(ev.Cap))
		buf.Write(c[:])
	} else {
		buf.WriteByte(0)
	}

	switch ev.Spec.Kind {
	case KindWallClockTime:
		var b [16]byte
		binary.LittleEndian.PutUint64(b[0:], ev.Spec.Sec)
		binary.LittleEndian.PutUint64(b[8:], ev.Spec.Nsec)
		buf.Write(b[:])
	case KindCreateThread, KindRunThread:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(ev.Spec.ThreadID))
		buf.Write(b[:])
	case KindStopThread:
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(ev.Spec.ThreadID))
		buf.Write(b[:])
		if ev.Spec.Terminal {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case KindHeapLive:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], ev.Spec.LiveBytes)
		buf.Write(b[:])
	case KindHeapAllocated:
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], ev.Spec.AllocBytes)
		buf.Write(b[:])
	case KindUserMessage:
		var n [4]byte
		binary.LittleEndian.PutUint32(n[:], uint32(len(ev.Spec.Payload)))
		buf.Write(n[:])
		buf.Write(ev.Spec.Payload)
	}

	return buf.Bytes()
}
