package wire

import "github.com/loomtrace/loomtrace/internal/core/domain"

// instrumentToken is the short textual token used by the "ot2 metric"
// grammar; instrumentTag is the one-byte tag used by the binary
// METRIC_CAPTURE body. Both map to the same domain.InstrumentKind — this
// table is the single place that mapping is kept stable against the
// runtime-side emitter.
var instrumentByToken = map[string]domain.InstrumentKind{
	"updown": domain.InstrumentUpDownSumObserver,
	"sum":    domain.InstrumentSumObserver,
	"gauge":  domain.InstrumentValueObserver,
}

var tokenByInstrument = map[domain.InstrumentKind]string{
	domain.InstrumentUpDownSumObserver: "updown",
	domain.InstrumentSumObserver:       "sum",
	domain.InstrumentValueObserver:     "gauge",
}

var instrumentByTag = map[int8]domain.InstrumentKind{
	1: domain.InstrumentUpDownSumObserver,
	2: domain.InstrumentSumObserver,
	3: domain.InstrumentValueObserver,
}

var tagByInstrument = map[domain.InstrumentKind]int8{
	domain.InstrumentUpDownSumObserver: 1,
	domain.InstrumentSumObserver:       2,
	domain.InstrumentValueObserver:     3,
}

// InstrumentFromToken resolves a textual "ot2 metric" instrument token.
func InstrumentFromToken(token string) (domain.InstrumentKind, bool) {
	k, ok := instrumentByToken[token]
	return k, ok
}

// TokenFromInstrument is the encoder-side inverse of InstrumentFromToken.
func TokenFromInstrument(kind domain.InstrumentKind) (string, bool) {
	t, ok := tokenByInstrument[kind]
	return t, ok
}

// InstrumentFromTag resolves a binary METRIC_CAPTURE instrumentTag byte.
func InstrumentFromTag(tag int8) (domain.InstrumentKind, bool) {
	k, ok := instrumentByTag[tag]
	return k, ok
}

// TagFromInstrument is the encoder-side inverse of InstrumentFromTag.
func TagFromInstrument(kind domain.InstrumentKind) (int8, bool) {
	t, ok := tagByInstrument[kind]
	return t, ok
}
