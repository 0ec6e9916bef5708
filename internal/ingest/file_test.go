package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/loomtrace/loomtrace/internal/core/domain"
	"github.com/loomtrace/loomtrace/internal/export"
	"github.com/loomtrace/loomtrace/internal/runtimelog"
	"github.com/loomtrace/loomtrace/internal/store"
)

type seqSource struct{ next uint64 }

func (s *seqSource) Uint64() uint64 {
	s.next++
	return s.next
}

// recordingExporter collects every exported batch, for assertions about
// ordering and content; it satisfies both export.SpanExporter and
// export.MetricExporter and never fails.
type recordingExporter struct {
	mu            sync.Mutex
	spanBatches   [][]domain.Span
	metricBatches [][]domain.Sample
}

func (r *recordingExporter) ExportSpans(_ context.Context, batch []domain.Span) export.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spanBatches = append(r.spanBatches, batch)
	return export.ResultSuccess
}

func (r *recordingExporter) ExportMetrics(_ context.Context, batch []domain.Sample) export.Result {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metricBatches = append(r.metricBatches, batch)
	return export.ResultSuccess
}

func (r *recordingExporter) Shutdown(context.Context) error { return nil }

func TestRunFileSortsByTimestampAndFoldsInOrder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	// Deliberately out of timestamp order on disk.
	records := [][]byte{
		runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 10, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindRunThread, ThreadID: 7}}),
		runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 30, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte("ot2 end span 1")}}),
		runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 20, Cap: 0, HasCap: true, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte("ot2 begin span 1 work")}}),
	}
	var data []byte
	for _, rec := range records {
		data = append(data, rec...)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := store.New(0, &seqSource{})
	exp := &recordingExporter{}

	src := File(path, func() runtimelog.Decoder { return runtimelog.NewSimpleDecoder() })
	if err := runFile(context.Background(), st, src, exp, exp); err != nil {
		t.Fatalf("runFile: %v", err)
	}

	if len(exp.spanBatches) != 1 {
		t.Fatalf("len(spanBatches) = %d, want 1 (end-span event sorted after begin)", len(exp.spanBatches))
	}
	if exp.spanBatches[0][0].Operation != "work" {
		t.Errorf("Operation = %q, want work", exp.spanBatches[0][0].Operation)
	}
}

func TestRunFilePropagatesDataError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "events.log")

	data := runtimelog.EncodeRecord(runtimelog.Event{Timestamp: 10, Spec: runtimelog.Spec{Kind: runtimelog.KindUserMessage, Payload: []byte("ot2 bogus verb")}})
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	st := store.New(0, &seqSource{})
	exp := &recordingExporter{}

	src := File(path, func() runtimelog.Decoder { return runtimelog.NewSimpleDecoder() })
	err := runFile(context.Background(), st, src, exp, exp)
	if err == nil {
		t.Fatalf("runFile: want data error, got nil")
	}
	if !domain.IsDataError(err) {
		t.Errorf("IsDataError(err) = false, want true")
	}
}
