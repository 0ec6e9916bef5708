package metric

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds loomtrace's self-observability counters and gauges, and
// the Prometheus registry they are bound to. Nothing in the ingestion
// driver updates these fields; the live store counters reach /metrics
// through StoreCollector instead.
type Registry struct {
	registry *prometheus.Registry

	EventsProcessed prometheus.Counter
	SpansEmitted    prometheus.Counter
	MetricsEmitted  prometheus.Counter
	DecodeErrors    prometheus.Counter
	SuspectRewrites prometheus.Counter
	IngestLag       prometheus.Gauge
}

// NewRegistry creates a new metrics registry and registers loomtrace's
// counters/gauges with it.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Registry{
		registry: reg,
		EventsProcessed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loomtrace",
			Name:      "events_processed_total",
			Help:      "Runtime events folded by the interpreter.",
		}),
		SpansEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loomtrace",
			Name:      "spans_emitted_total",
			Help:      "Spans emitted to the span exporter.",
		}),
		MetricsEmitted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loomtrace",
			Name:      "metric_samples_emitted_total",
			Help:      "Metric samples emitted to the metric exporter.",
		}),
		DecodeErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loomtrace",
			Name:      "decode_errors_total",
			Help:      "Data errors from the wire decoder (spec severity tier 2).",
		}),
		SuspectRewrites: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "loomtrace",
			Name:      "suspect_rewrites_total",
			Help:      "Recycled-serial BeginSpan overwrites and non-rekeying SetSpan rewrites.",
		}),
		IngestLag: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "loomtrace",
			Name:      "ingest_lag_seconds",
			Help:      "Wall-clock seconds between an event's timestamp and its processing time, in handle mode.",
		}),
	}
}

// RegisterCollector adds an additional prometheus.Collector (e.g. the
// live span-store collector in collector.go) to this registry.
func (r *Registry) RegisterCollector(c prometheus.Collector) error {
	return r.registry.Register(c)
}

// Handler returns an HTTP handler serving this registry's metrics in
// Prometheus exposition format.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
