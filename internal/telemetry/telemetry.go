// Package telemetry wires the engine's two hottest paths — query evaluation
// and CRUD/transaction commit — into OpenTelemetry, mirroring the
// package-level tracer/meter pattern the teacher's dolt storage backend
// uses (internal/storage/dolt/store.go's doltTracer/doltMetrics): a span per
// query evaluation and per mutation commit, plus counters/histograms for
// rows scanned, index hits, and flush latency. A *Telemetry built by Noop()
// (the default every constructor falls back to) talks to OpenTelemetry's
// noop providers, so instrumentation costs nothing until a caller installs
// real providers via New (inkwell.WithTelemetry).
package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/inkwell-db/inkwell"

// Telemetry holds the tracer and the fixed set of metric instruments the
// engine records against. The zero value is unusable; build one with New or
// Noop.
type Telemetry struct {
	tracer trace.Tracer

	rowsScanned  metric.Int64Counter
	indexHits    metric.Int64Counter
	queryLatency metric.Float64Histogram
	mutationLatency metric.Float64Histogram
	flushLatency metric.Float64Histogram
}

// New builds a Telemetry against the given providers (spec.md's
// inkwell.WithTelemetry option). Either may be nil to keep that half noop.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Telemetry {
	if tp == nil {
		tp = nooptrace.NewTracerProvider()
	}
	if mp == nil {
		mp = noop.NewMeterProvider()
	}
	m := mp.Meter(instrumentationName)
	t := &Telemetry{tracer: tp.Tracer(instrumentationName)}

	t.rowsScanned, _ = m.Int64Counter("inkwell.query.rows_scanned",
		metric.WithDescription("entities evaluated against a query's where clause"),
		metric.WithUnit("{row}"))
	t.indexHits, _ = m.Int64Counter("inkwell.query.index_hits",
		metric.WithDescription("queries whose candidate set was narrowed by an index"),
		metric.WithUnit("{query}"))
	t.queryLatency, _ = m.Float64Histogram("inkwell.query.duration_ms",
		metric.WithDescription("wall time for one query pipeline evaluation"),
		metric.WithUnit("ms"))
	t.mutationLatency, _ = m.Float64Histogram("inkwell.mutation.duration_ms",
		metric.WithDescription("wall time for one CRUD or transaction commit"),
		metric.WithUnit("ms"))
	t.flushLatency, _ = m.Float64Histogram("inkwell.persistence.flush_duration_ms",
		metric.WithDescription("wall time to encode and write one file group"),
		metric.WithUnit("ms"))
	return t
}

// Noop builds a Telemetry that records nothing; this is what every engine
// constructor uses when the caller never installs real providers.
func Noop() *Telemetry { return New(nil, nil) }

// StartQuery opens a span for one query pipeline evaluation and returns a
// function to close it out with the row/index-hit counts the pipeline
// collected.
func (t *Telemetry) StartQuery(ctx context.Context, collection string) (context.Context, func(rowsScanned int, usedIndex bool, err error)) {
	ctx, span := t.tracer.Start(ctx, "inkwell.query",
		trace.WithAttributes(attribute.String("inkwell.collection", collection)))
	start := time.Now()
	return ctx, func(rowsScanned int, usedIndex bool, err error) {
		t.rowsScanned.Add(ctx, int64(rowsScanned), metric.WithAttributes(attribute.String("inkwell.collection", collection)))
		if usedIndex {
			t.indexHits.Add(ctx, 1, metric.WithAttributes(attribute.String("inkwell.collection", collection)))
		}
		t.queryLatency.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
			metric.WithAttributes(attribute.String("inkwell.collection", collection)))
		endSpan(span, err)
	}
}

// StartMutation opens a span for one CRUD operation or transaction commit.
func (t *Telemetry) StartMutation(ctx context.Context, collection, operation string) (context.Context, func(err error)) {
	ctx, span := t.tracer.Start(ctx, "inkwell.mutation",
		trace.WithAttributes(
			attribute.String("inkwell.collection", collection),
			attribute.String("inkwell.operation", operation),
		))
	start := time.Now()
	return ctx, func(err error) {
		t.mutationLatency.Record(ctx, float64(time.Since(start))/float64(time.Millisecond),
			metric.WithAttributes(
				attribute.String("inkwell.collection", collection),
				attribute.String("inkwell.operation", operation),
			))
		endSpan(span, err)
	}
}

// RecordFlush records one persistence flush's wall time against a file
// group, identified by its path.
func (t *Telemetry) RecordFlush(ctx context.Context, path string, d time.Duration) {
	t.flushLatency.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attribute.String("inkwell.path", path)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
