package export

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/loomtrace/loomtrace/internal/core/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTLPConfig mirrors the endpoint/insecure knobs a typical OTLP exporter
// takes at startup, plus the service name OTLP resource attributes
// need.
type OTLPConfig struct {
	Endpoint    string
	Insecure    bool
	ServiceName string
	Version     string
}

// OTLP is a SpanExporter/MetricExporter backed by the real OpenTelemetry
// SDK, replaying already-finished loomtrace spans and already-sampled
// metric points as OTLP data rather than instrumenting live code.
//
// Span identity is preserved across the SDK boundary with a
// deterministicIDGenerator: the SDK's trace/span ID type is 16/8 bytes
// where our domain model uses 64-bit ids, so the generator pads our id
// into the low 8 bytes and zeroes the rest, keeping one loomtrace
// TraceID/SpanID pair stable across re-exports.
type OTLP struct {
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider

	tracer oteltrace.Tracer

	mu         sync.Mutex
	counters   map[string]otelmetric.Float64Counter
	gauges     map[string]otelmetric.Float64Gauge
	updownCtrs map[string]otelmetric.Float64UpDownCounter
	meter      otelmetric.Meter
}

// NewOTLP builds the SDK providers and exporters, grounded on
// ashita-ai-akashi's telemetry.Init wiring (resource, batching trace
// exporter, periodic-reader metric exporter), retargeted from
// instrumenting a live web service to replaying spans/metrics recovered
// from an event log.
func NewOTLP(ctx context.Context, cfg OTLPConfig) (*OTLP, error) {
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("export: otlp: build resource: %w", err)
	}

	traceOpts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("export: otlp: create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp, sdktrace.WithBatchTimeout(5*time.Second)),
		sdktrace.WithResource(res),
		sdktrace.WithIDGenerator(deterministicIDGenerator{}),
	)

	metricOpts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		metricOpts = append(metricOpts, otlpmetrichttp.WithInsecure())
	}
	metricExp, err := otlpmetrichttp.New(ctx, metricOpts...)
	if err != nil {
		return nil, fmt.Errorf("export: otlp: create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp, sdkmetric.WithInterval(15*time.Second))),
		sdkmetric.WithResource(res),
	)

	meter := mp.Meter("loomtrace")

	return &OTLP{
		tp:         tp,
		mp:         mp,
		tracer:     tp.Tracer("loomtrace"),
		meter:      meter,
		counters:   make(map[string]otelmetric.Float64Counter),
		gauges:     make(map[string]otelmetric.Float64Gauge),
		updownCtrs: make(map[string]otelmetric.Float64UpDownCounter),
	}, nil
}

// ExportSpans replays batch as finished OTLP spans, preserving
// operation name, thread/trace/parent linkage, tags as attributes, and
// events.
func (o *OTLP) ExportSpans(ctx context.Context, batch []domain.Span) Result {
	for _, sp := range batch {
		spanCtx := withDeterministicIDs(ctx, sp.Context.TraceID, sp.Context.SpanID)
		if sp.ParentID != nil {
			parentSC := oteltrace.NewSpanContext(oteltrace.SpanContextConfig{
				TraceID: traceIDBytes(sp.Context.TraceID),
				SpanID:  spanIDBytes(*sp.ParentID),
			})
			spanCtx = oteltrace.ContextWithSpanContext(spanCtx, parentSC)
		}

		_, otelSpan := o.tracer.Start(spanCtx, sp.Operation,
			oteltrace.WithTimestamp(nsToTime(sp.StartedAt)),
			oteltrace.WithAttributes(attribute.Int64("thread_id", int64(sp.ThreadID))),
		)
		for k, v := range sp.Tags {
			if v.IsInt {
				otelSpan.SetAttributes(attribute.Int64(k, v.Int))
			} else {
				otelSpan.SetAttributes(attribute.String(k, v.Str))
			}
		}
		for _, ev := range sp.Events {
			otelSpan.AddEvent(ev.Name, oteltrace.WithTimestamp(nsToTime(ev.Timestamp)))
		}
		if sp.Status == domain.StatusError {
			otelSpan.RecordError(fmt.Errorf("span status error"))
		}
		otelSpan.End(oteltrace.WithTimestamp(nsToTime(sp.FinishedAt)))
	}
	return ResultSuccess
}

// ExportMetrics records every point through the SDK's synchronous
// Meter API: sum and up-down-sum points are added to a counter, value
// points are recorded on a gauge. The push-based Meter API records at
// flush time rather than at an arbitrary historical instant, so a
// replayed sample's original timestamp is not preserved on the wire —
// only its value.
func (o *OTLP) ExportMetrics(ctx context.Context, batch []domain.Sample) Result {
	for _, sample := range batch {
		for _, pt := range sample.Points {
			if err := o.recordPoint(ctx, sample.Instrument, pt); err != nil {
				return ResultFailure
			}
		}
	}
	return ResultSuccess
}

func (o *OTLP) recordPoint(ctx context.Context, instr domain.Instrument, pt domain.Point) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch instr.Kind {
	case domain.InstrumentUpDownSumObserver:
		c, ok := o.updownCtrs[instr.Name]
		if !ok {
			var err error
			c, err = o.meter.Float64UpDownCounter(instr.Name)
			if err != nil {
				return err
			}
			o.updownCtrs[instr.Name] = c
		}
		c.Add(ctx, float64(pt.Value))
	case domain.InstrumentSumObserver:
		c, ok := o.counters[instr.Name]
		if !ok {
			var err error
			c, err = o.meter.Float64Counter(instr.Name)
			if err != nil {
				return err
			}
			o.counters[instr.Name] = c
		}
		c.Add(ctx, float64(pt.Value))
	case domain.InstrumentValueObserver:
		g, ok := o.gauges[instr.Name]
		if !ok {
			var err error
			g, err = o.meter.Float64Gauge(instr.Name)
			if err != nil {
				return err
			}
			o.gauges[instr.Name] = g
		}
		g.Record(ctx, float64(pt.Value))
	}
	return nil
}

// Shutdown flushes and closes both providers.
func (o *OTLP) Shutdown(ctx context.Context) error {
	var firstErr error
	if err := o.tp.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := o.mp.Shutdown(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func nsToTime(ns uint64) time.Time {
	return time.Unix(0, int64(ns))
}

type idKey struct{}

type idPair struct {
	trace domain.TraceID
	span  domain.SpanID
}

func withDeterministicIDs(ctx context.Context, traceID domain.TraceID, spanID domain.SpanID) context.Context {
	return context.WithValue(ctx, idKey{}, idPair{trace: traceID, span: spanID})
}

func traceIDBytes(t domain.TraceID) oteltrace.TraceID {
	var out oteltrace.TraceID
	binary.BigEndian.PutUint64(out[8:], uint64(t))
	return out
}

func spanIDBytes(s domain.SpanID) oteltrace.SpanID {
	var out oteltrace.SpanID
	binary.BigEndian.PutUint64(out[:], uint64(s))
	return out
}

// deterministicIDGenerator implements sdktrace.IDGenerator, deriving
// OTLP trace/span IDs from the loomtrace ids stashed in ctx by
// withDeterministicIDs rather than generating random ones, so the same
// loomtrace span always maps to the same OTLP span across re-exports.
type deterministicIDGenerator struct{}

func (deterministicIDGenerator) NewIDs(ctx context.Context) (oteltrace.TraceID, oteltrace.SpanID) {
	pair, _ := ctx.Value(idKey{}).(idPair)
	return traceIDBytes(pair.trace), spanIDBytes(pair.span)
}

func (deterministicIDGenerator) NewSpanID(ctx context.Context, _ oteltrace.TraceID) oteltrace.SpanID {
	pair, _ := ctx.Value(idKey{}).(idPair)
	return spanIDBytes(pair.span)
}
