package ingest

import (
	"bytes"
	"context"
	"testing"

	"github.com/loomtrace/loomtrace/internal/core/domain"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
	"github.com/loomtrace/loomtrace/internal/wire"
)

type recordingObserver struct{ notes []string }

func (o *recordingObserver) Observe(note string) { o.notes = append(o.notes, note) }

func TestRunTailStopsCleanlyOnEOF(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 10, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindRunThread, ThreadID: 7}}))
	buf.Write(runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 20, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte("ot2 begin span 1 foo")}}))
	buf.Write(runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 30, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte("ot2 end span 1")}}))

	st := store.New(0, &seqSource{})
	exp := &recordingExporter{}
	obs := &recordingObserver{}

	src := Handle(&buf, StopOnEOF, func() runtimelog.Decoder { return runtimelog.NewSimpleDecoder() })
	if err := runTail(context.Background(), st, src, exp, exp, obs); err != nil {
		t.Fatalf("runTail: %v", err)
	}

	if len(exp.spanBatches) != 1 {
		t.Fatalf("len(spanBatches) = %d, want 1", len(exp.spanBatches))
	}
	found := false
	for _, n := range obs.notes {
		if n == "event log ended cleanly" {
			found = true
		}
	}
	if !found {
		t.Errorf("notes = %v, want clean-end observation", obs.notes)
	}
}

func TestRunTailDoesNotDropMetrics(t *testing.T) {
	var buf bytes.Buffer
	op := &wire.Op{Kind: wire.OpMetric, Instrument: domain.InstrumentSumObserver, MetricName: "req", MetricVal: 7}
	buf.Write(runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 10, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: wire.EncodeBinary(op)}}))

	st := store.New(0, &seqSource{})
	exp := &recordingExporter{}

	src := Handle(&buf, StopOnEOF, func() runtimelog.Decoder { return runtimelog.NewSimpleDecoder() })
	if err := runTail(context.Background(), st, src, exp, exp, nil); err != nil {
		t.Fatalf("runTail: %v", err)
	}

	if len(exp.metricBatches) != 1 {
		t.Fatalf("len(metricBatches) = %d, want 1 (metrics must not be dropped in handle mode)", len(exp.metricBatches))
	}
	if exp.metricBatches[0][0].Points[0].Value != 7 {
		t.Errorf("metric value = %d, want 7", exp.metricBatches[0][0].Points[0].Value)
	}
}

func TestRunTailObservesShutdownLikeEventsWithoutTerminating(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 10, Spec: runtimelog.Spec{Kind: runtimelog.KindCapDelete}}))
	buf.Write(runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 20, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte("ot2 begin span 1 foo")}}))
	buf.Write(runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 30, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte("ot2 end span 1")}}))

	st := store.New(0, &seqSource{})
	exp := &recordingExporter{}
	obs := &recordingObserver{}

	src := Handle(&buf, StopOnEOF, func() runtimelog.Decoder { return runtimelog.NewSimpleDecoder() })
	if err := runTail(context.Background(), st, src, exp, exp, obs); err != nil {
		t.Fatalf("runTail: %v", err)
	}

	if len(exp.spanBatches) != 1 {
		t.Fatalf("len(spanBatches) = %d, want 1 (CapDelete must not terminate the loop)", len(exp.spanBatches))
	}
	if len(obs.notes) < 2 {
		t.Fatalf("notes = %v, want shutdown-like note plus clean-end note", obs.notes)
	}
}

func TestSourceForPathSelectsModeBySuffix(t *testing.T) {
	newDec := func() runtimelog.Decoder { return runtimelog.NewSimpleDecoder() }

	fileSrc := SourceForPath("events.log", nil, StopOnEOF, newDec)
	if !fileSrc.isFile {
		t.Errorf("SourceForPath(%q) selected tail mode, want file mode", "events.log")
	}

	pipeSrc := SourceForPath("events.pipe", &bytes.Buffer{}, StopOnEOF, newDec)
	if pipeSrc.isFile {
		t.Errorf("SourceForPath(%q) selected file mode, want tail mode", "events.pipe")
	}
}
