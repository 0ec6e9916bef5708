package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/loomtrace/loomtrace/internal/store"
)

var (
	processedEventsDesc = prometheus.NewDesc(
		"loomtrace_store_processed_events", "Total events folded into this span store, as observed live.", nil, nil)
	emittedSpansDesc = prometheus.NewDesc(
		"loomtrace_store_emitted_spans", "Total spans emitted from this span store, as observed live.", nil, nil)
	suspectRewritesDesc = prometheus.NewDesc(
		"loomtrace_store_suspect_rewrites", "Total suspect-behavior rewrites observed live in this span store.", nil, nil)
)

// StoreCollector is a prometheus.Collector that reads counters directly
// off a live *store.State rather than a counter updated by the driver — it
// lets /metrics reflect the store's current bookkeeping even between
// driver-side counter increments (e.g. while the single ingest goroutine
// is blocked on a slow exporter call).
type StoreCollector struct {
	st *store.State
}

// NewStoreCollector wraps st.
func NewStoreCollector(st *store.State) *StoreCollector {
	return &StoreCollector{st: st}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- processedEventsDesc
	ch <- emittedSpansDesc
	ch <- suspectRewritesDesc
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(processedEventsDesc, prometheus.CounterValue, float64(c.st.ProcessedEvents()))
	ch <- prometheus.MustNewConstMetric(emittedSpansDesc, prometheus.CounterValue, float64(c.st.EmittedSpans()))
	ch <- prometheus.MustNewConstMetric(suspectRewritesDesc, prometheus.CounterValue, float64(c.st.SuspectRewrites()))
}
