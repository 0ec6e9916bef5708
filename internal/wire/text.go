package wire

import (
	"errors"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/loomtrace/loomtrace/internal/core/domain"
)

var (
	errMissingVerb = errors.New("wire: missing verb after ot2")
	errUnknownVerb = errors.New("wire: unrecognized ot2 verb/arity")
)

// DecodeText parses one "ot2 ..." textual message. A message that does
// not start with the "ot2" discriminator is ignored:
// (nil, nil). A message that starts with "ot2" but matches no known verb
// is a data error, not silently dropped, mirroring the RESP decoder's
// policy of failing loudly on a recognized-but-malformed frame rather
// than guessing.
func DecodeText(payload []byte) (*Op, error) {
	if !utf8.Valid(payload) {
		return nil, domain.ErrInvalidUTF8
	}

	fields := strings.Fields(string(payload))
	if len(fields) == 0 || fields[0] != "ot2" {
		return nil, nil
	}
	fields = fields[1:]
	if len(fields) == 0 {
		return nil, domain.ErrMalformedText.Wrap(errMissingVerb)
	}

	switch {
	case len(fields) >= 3 && fields[0] == "begin" && fields[1] == "span":
		serial, err := parseSerial(fields[2])
		if err != nil {
			return nil, err
		}
		name := strings.Join(fields[3:], " ")
		return &Op{Kind: OpBeginSpan, Serial: serial, Name: name}, nil

	case len(fields) == 3 && fields[0] == "end" && fields[1] == "span":
		serial, err := parseSerial(fields[2])
		if err != nil {
			return nil, err
		}
		return &Op{Kind: OpEndSpan, Serial: serial}, nil

	case len(fields) >= 4 && fields[0] == "set" && fields[1] == "tag":
		serial, err := parseSerial(fields[2])
		if err != nil {
			return nil, err
		}
		return &Op{Kind: OpTag, Serial: serial, Key: fields[3], Value: parseTagValue(fields[4:])}, nil

	case len(fields) >= 4 && fields[0] == "add" && fields[1] == "event":
		serial, err := parseSerial(fields[2])
		if err != nil {
			return nil, err
		}
		return &Op{Kind: OpEvent, Serial: serial, Key: fields[3], Value: parseTagValue(fields[4:])}, nil

	case len(fields) == 4 && fields[0] == "set" && fields[1] == "traceid":
		serial, err := parseSerial(fields[2])
		if err != nil {
			return nil, err
		}
		trace, err := parseHexTrace(fields[3])
		if err != nil {
			return nil, err
		}
		return &Op{Kind: OpSetTrace, Serial: serial, Trace: trace}, nil

	case len(fields) == 4 && fields[0] == "set" && fields[1] == "spanid":
		serial, err := parseSerial(fields[2])
		if err != nil {
			return nil, err
		}
		span, err := parseHexSpan(fields[3])
		if err != nil {
			return nil, err
		}
		return &Op{Kind: OpSetSpan, Serial: serial, NewSpanID: span}, nil

	case len(fields) == 5 && fields[0] == "set" && fields[1] == "parent":
		serial, err := parseSerial(fields[2])
		if err != nil {
			return nil, err
		}
		trace, err := parseHexTrace(fields[3])
		if err != nil {
			return nil, err
		}
		parent, err := parseHexSpan(fields[4])
		if err != nil {
			return nil, err
		}
		return &Op{Kind: OpSetParent, Serial: serial, Trace: trace, ParentSpan: parent}, nil

	case len(fields) == 4 && fields[0] == "metric":
		kind, ok := InstrumentFromToken(fields[1])
		if !ok {
			return nil, domain.ErrUnknownInstrument
		}
		val, err := strconv.ParseInt(fields[3], 10, 64)
		if err != nil {
			return nil, domain.ErrMalformedText.Wrap(err)
		}
		return &Op{Kind: OpMetric, Instrument: kind, MetricName: fields[2], MetricVal: val}, nil

	default:
		return nil, domain.ErrMalformedText.Wrap(errUnknownVerb)
	}
}

// EncodeText renders op in the textual grammar. It is the inverse of
// DecodeText and exists so that round-trip tests can assert the textual
// decoder accepts everything the textual encoder produces.
func EncodeText(op *Op) string {
	switch op.Kind {
	case OpBeginSpan:
		return strings.Join(append([]string{"ot2", "begin", "span", itoa(op.Serial)}, strings.Fields(op.Name)...), " ")
	case OpEndSpan:
		return "ot2 end span " + itoa(op.Serial)
	case OpTag:
		return "ot2 set tag " + itoa(op.Serial) + " " + op.Key + " " + tagValueWords(op.Value)
	case OpEvent:
		return "ot2 add event " + itoa(op.Serial) + " " + op.Key + " " + tagValueWords(op.Value)
	case OpSetTrace:
		return "ot2 set traceid " + itoa(op.Serial) + " " + hexTrace(op.Trace)
	case OpSetSpan:
		return "ot2 set spanid " + itoa(op.Serial) + " " + hexSpan(op.NewSpanID)
	case OpSetParent:
		return "ot2 set parent " + itoa(op.Serial) + " " + hexTrace(op.Trace) + " " + hexSpan(op.ParentSpan)
	case OpMetric:
		token, _ := TokenFromInstrument(op.Instrument)
		return "ot2 metric " + token + " " + op.MetricName + " " + strconv.FormatInt(op.MetricVal, 10)
	default:
		return ""
	}
}

func parseSerial(s string) (domain.Serial, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, domain.ErrMalformedText.Wrap(err)
	}
	return domain.Serial(n), nil
}

func parseHexTrace(s string) (domain.TraceID, error) {
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, domain.ErrMalformedText.Wrap(err)
	}
	return domain.TraceID(n), nil
}

func parseHexSpan(s string) (domain.SpanID, error) {
	n, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, domain.ErrMalformedText.Wrap(err)
	}
	return domain.SpanID(n), nil
}

// parseTagValue joins the remaining words and treats the result as an
// integer when it parses cleanly as one, else as a string. The grammar
// itself only says "value words..."; this heuristic keeps Span.Tags
// usable for numeric fields without a separate type sigil.
func parseTagValue(words []string) domain.TagValue {
	joined := strings.Join(words, " ")
	if n, err := strconv.ParseInt(joined, 10, 64); err == nil {
		return domain.IntTag(n)
	}
	return domain.StringTag(joined)
}

func tagValueWords(v domain.TagValue) string {
	if v.IsInt {
		return strconv.FormatInt(v.Int, 10)
	}
	return v.Str
}

func itoa(s domain.Serial) string {
	return strconv.FormatUint(uint64(s), 10)
}

func hexTrace(t domain.TraceID) string {
	return strconv.FormatUint(uint64(t), 16)
}

func hexSpan(s domain.SpanID) string {
	return strconv.FormatUint(uint64(s), 16)
}
