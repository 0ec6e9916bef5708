package wire

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

// otelMagic occupies the low 24 bits of the binary framing's 32-bit
// little-endian header; spells "OT2" in its three significant bytes.
const otelMagic uint32 = 0x00325400 | uint32('O')

const (
	binTagBeginSpan        byte = 1
	binTagEndSpan          byte = 2
	binTagTag              byte = 3
	binTagEvent            byte = 4
	binTagSetParentContext byte = 5
	binTagSetTraceID       byte = 6
	binTagSetSpanID        byte = 7
	binTagMetricCapture    byte = 8
)

// DecodeBinary parses one binary-framed tracing message. A magic
// mismatch is ignorable (nil, nil); an out-of-range tag or a
// truncated/invalid body is a data error (nil, err).
func DecodeBinary(payload []byte) (*Op, error) {
	if len(payload) < 4 {
		return nil, nil
	}
	header := binary.LittleEndian.Uint32(payload[0:4])
	magic := header & 0x00FFFFFF
	tag := byte(header >> 24)

	if magic != otelMagic {
		return nil, nil
	}

	body := payload[4:]
	switch tag {
	case binTagBeginSpan:
		return decodeBeginSpan(body)
	case binTagEndSpan:
		return decodeEndSpan(body)
	case binTagTag:
		return decodeTagOrEvent(body, OpTag)
	case binTagEvent:
		return decodeTagOrEvent(body, OpEvent)
	case binTagSetParentContext:
		return decodeSetParent(body)
	case binTagSetTraceID:
		return decodeSetTrace(body)
	case binTagSetSpanID:
		return decodeSetSpan(body)
	case binTagMetricCapture:
		return decodeMetric(body)
	default:
		return nil, domain.ErrUnknownMessageTag
	}
}

func decodeBeginSpan(b []byte) (*Op, error) {
	if len(b) < 8 {
		return nil, domain.ErrMalformedBinary
	}
	serial := binary.LittleEndian.Uint64(b[0:8])
	name := b[8:]
	if !utf8.Valid(name) {
		return nil, domain.ErrInvalidUTF8
	}
	return &Op{Kind: OpBeginSpan, Serial: domain.Serial(serial), Name: string(name)}, nil
}

func decodeEndSpan(b []byte) (*Op, error) {
	if len(b) != 8 {
		return nil, domain.ErrMalformedBinary
	}
	serial := binary.LittleEndian.Uint64(b[0:8])
	return &Op{Kind: OpEndSpan, Serial: domain.Serial(serial)}, nil
}

func decodeTagOrEvent(b []byte, kind OpKind) (*Op, error) {
	if len(b) < 16 {
		return nil, domain.ErrMalformedBinary
	}
	serial := binary.LittleEndian.Uint64(b[0:8])
	klen := binary.LittleEndian.Uint32(b[8:12])
	vlen := binary.LittleEndian.Uint32(b[12:16])
	rest := b[16:]
	if uint64(klen)+uint64(vlen) > uint64(len(rest)) {
		return nil, domain.ErrMalformedBinary
	}
	k := rest[:klen]
	v := rest[klen : klen+vlen]
	if !utf8.Valid(k) || !utf8.Valid(v) {
		return nil, domain.ErrInvalidUTF8
	}
	return &Op{Kind: kind, Serial: domain.Serial(serial), Key: string(k), Value: domain.StringTag(string(v))}, nil
}

func decodeSetParent(b []byte) (*Op, error) {
	if len(b) != 24 {
		return nil, domain.ErrMalformedBinary
	}
	serial := binary.LittleEndian.Uint64(b[0:8])
	span := binary.LittleEndian.Uint64(b[8:16])
	trace := binary.LittleEndian.Uint64(b[16:24])
	return &Op{Kind: OpSetParent, Serial: domain.Serial(serial), ParentSpan: domain.SpanID(span), Trace: domain.TraceID(trace)}, nil
}

func decodeSetTrace(b []byte) (*Op, error) {
	if len(b) != 16 {
		return nil, domain.ErrMalformedBinary
	}
	serial := binary.LittleEndian.Uint64(b[0:8])
	trace := binary.LittleEndian.Uint64(b[8:16])
	return &Op{Kind: OpSetTrace, Serial: domain.Serial(serial), Trace: domain.TraceID(trace)}, nil
}

func decodeSetSpan(b []byte) (*Op, error) {
	if len(b) != 16 {
		return nil, domain.ErrMalformedBinary
	}
	serial := binary.LittleEndian.Uint64(b[0:8])
	span := binary.LittleEndian.Uint64(b[8:16])
	return &Op{Kind: OpSetSpan, Serial: domain.Serial(serial), NewSpanID: domain.SpanID(span)}, nil
}

func decodeMetric(b []byte) (*Op, error) {
	if len(b) < 9 {
		return nil, domain.ErrMalformedBinary
	}
	instrumentTag := int8(b[0])
	value := int64(binary.LittleEndian.Uint64(b[1:9]))
	name := b[9:]
	if !utf8.Valid(name) {
		return nil, domain.ErrInvalidUTF8
	}
	kind, ok := InstrumentFromTag(instrumentTag)
	if !ok {
		return nil, domain.ErrUnknownInstrument
	}
	return &Op{Kind: OpMetric, Instrument: kind, MetricName: string(name), MetricVal: value}, nil
}

// EncodeBinary renders op in the binary framing. Inverse of DecodeBinary,
// used by round-trip tests and by ingest's sample-log fixtures.
func EncodeBinary(op *Op) []byte {
	var body []byte
	var tag byte

	switch op.Kind {
	case OpBeginSpan:
		tag = binTagBeginSpan
		body = appendU64(nil, uint64(op.Serial))
		body = append(body, []byte(op.Name)...)
	case OpEndSpan:
		tag = binTagEndSpan
		body = appendU64(nil, uint64(op.Serial))
	case OpTag, OpEvent:
		if op.Kind == OpTag {
			tag = binTagTag
		} else {
			tag = binTagEvent
		}
		k := []byte(op.Key)
		v := []byte(tagValueWords(op.Value))
		body = appendU64(nil, uint64(op.Serial))
		body = appendU32(body, uint32(len(k)))
		body = appendU32(body, uint32(len(v)))
		body = append(body, k...)
		body = append(body, v...)
	case OpSetParent:
		tag = binTagSetParentContext
		body = appendU64(nil, uint64(op.Serial))
		body = appendU64(body, uint64(op.ParentSpan))
		body = appendU64(body, uint64(op.Trace))
	case OpSetTrace:
		tag = binTagSetTraceID
		body = appendU64(nil, uint64(op.Serial))
		body = appendU64(body, uint64(op.Trace))
	case OpSetSpan:
		tag = binTagSetSpanID
		body = appendU64(nil, uint64(op.Serial))
		body = appendU64(body, uint64(op.NewSpanID))
	case OpMetric:
		tag = binTagMetricCapture
		t, _ := TagFromInstrument(op.Instrument)
		body = append(body, byte(t))
		body = appendU64(body, uint64(op.MetricVal))
		body = append(body, []byte(op.MetricName)...)
	}

	header := otelMagic | (uint32(tag) << 24)
	out := make([]byte, 4, 4+len(body))
	binary.LittleEndian.PutUint32(out, header)
	return append(out, body...)
}

func appendU64(b []byte, v uint64) []byte {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
