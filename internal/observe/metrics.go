// Package observe records OpenTelemetry metrics for automaton edits.
//
// Instruments are created against a [metric.MeterProvider]. Without an
// installed SDK the global provider is a no-op, so recording is always safe.
// Tests should use [NewMetrics] with their own provider.
package observe

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/idiap/icassp-oov-recognition"

// Status values for the status attribute.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Metrics holds the metric instruments used by the edit pipeline.
type Metrics struct {
	// EditDuration tracks the latency of one edit step. Attributes: op, status.
	EditDuration metric.Float64Histogram

	// Edits counts edit steps. Attributes: op, status.
	Edits metric.Int64Counter

	// StatesAdded counts states added by splicing and boosting. Attribute: op.
	StatesAdded metric.Int64Counter

	// ArcsBoosted counts arcs discounted by boosting.
	ArcsBoosted metric.Int64Counter

	// ProviderCalls counts algorithm provider calls. Attributes: method, status.
	ProviderCalls metric.Int64Counter

	// ActiveJobs tracks archive entries currently being processed.
	ActiveJobs metric.Int64UpDownCounter
}

var durationBuckets = []float64{
	0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60,
}

// NewMetrics creates every instrument from mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.EditDuration, err = m.Float64Histogram("wfst.edit.duration",
		metric.WithDescription("Latency of one edit step."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...),
	); err != nil {
		return nil, err
	}
	if met.Edits, err = m.Int64Counter("wfst.edits",
		metric.WithDescription("Edit steps by operation and status."),
	); err != nil {
		return nil, err
	}
	if met.StatesAdded, err = m.Int64Counter("wfst.states_added",
		metric.WithDescription("States added to edited automata."),
	); err != nil {
		return nil, err
	}
	if met.ArcsBoosted, err = m.Int64Counter("wfst.arcs_boosted",
		metric.WithDescription("Arcs discounted by sequence boosting."),
	); err != nil {
		return nil, err
	}
	if met.ProviderCalls, err = m.Int64Counter("wfst.provider.calls",
		metric.WithDescription("Algorithm provider calls by method and status."),
	); err != nil {
		return nil, err
	}
	if met.ActiveJobs, err = m.Int64UpDownCounter("wfst.batch.active",
		metric.WithDescription("Archive entries currently in flight."),
	); err != nil {
		return nil, err
	}
	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level instance built on
// [otel.GetMeterProvider] at first use.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

func statusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusOK
}

// RecordEdit records the outcome of one edit step started at start.
func (m *Metrics) RecordEdit(ctx context.Context, op string, start time.Time, err error) {
	attrs := metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("status", statusOf(err)),
	)
	m.Edits.Add(ctx, 1, attrs)
	m.EditDuration.Record(ctx, time.Since(start).Seconds(), attrs)
}

// RecordGrowth records states added by op. Non-positive counts are ignored.
func (m *Metrics) RecordGrowth(ctx context.Context, op string, states int) {
	if states <= 0 {
		return
	}
	m.StatesAdded.Add(ctx, int64(states), metric.WithAttributes(attribute.String("op", op)))
}

func (m *Metrics) RecordBoosted(ctx context.Context, arcs int) {
	if arcs <= 0 {
		return
	}
	m.ArcsBoosted.Add(ctx, int64(arcs))
}

func (m *Metrics) RecordProviderCall(ctx context.Context, method string, err error) {
	m.ProviderCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("status", statusOf(err)),
	))
}
