// Package observe provides the engine's observability surface: OpenTelemetry
// metrics with a Prometheus exporter bridge, and a small read-only HTTP
// server exposing the engine status and /metrics.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name for all engine metrics.
const meterName = "github.com/daesuck/AI-Audio-Responsive-Production"

// tickBuckets are histogram boundaries (seconds) sized for a 30 Hz loop
// whose tick budget is ~33ms.
var tickBuckets = []float64{
	0.0005, 0.001, 0.0025, 0.005, 0.01, 0.02, 0.033, 0.05, 0.1,
}

// Metrics holds the engine's metric instruments and implements
// engine.Metrics. All instruments are safe for concurrent use.
type Metrics struct {
	// TickDuration tracks one full pipeline pass.
	TickDuration metric.Float64Histogram

	// FramesRendered counts emitted lighting frames.
	FramesRendered metric.Int64Counter

	// SinkErrors counts frames the sink rejected.
	SinkErrors metric.Int64Counter

	// Events counts highlight/drop events. Attribute: kind.
	Events metric.Int64Counter

	// ModeTransitions counts committed mode changes. Attributes: from, to.
	ModeTransitions metric.Int64Counter

	// SupervisorTransitions counts fail-safe state changes.
	// Attributes: from, to.
	SupervisorTransitions metric.Int64Counter
}

// NewMetrics creates a fully initialised Metrics using the given provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.TickDuration, err = m.Float64Histogram("lighting.tick.duration",
		metric.WithDescription("Duration of one full pipeline tick."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(tickBuckets...),
	); err != nil {
		return nil, err
	}
	if met.FramesRendered, err = m.Int64Counter("lighting.frames.rendered",
		metric.WithDescription("Lighting frames rendered and handed to the sink."),
	); err != nil {
		return nil, err
	}
	if met.SinkErrors, err = m.Int64Counter("lighting.sink.errors",
		metric.WithDescription("Frames the output sink rejected."),
	); err != nil {
		return nil, err
	}
	if met.Events, err = m.Int64Counter("lighting.events",
		metric.WithDescription("Highlight and drop events."),
	); err != nil {
		return nil, err
	}
	if met.ModeTransitions, err = m.Int64Counter("lighting.mode.transitions",
		metric.WithDescription("Committed mode transitions."),
	); err != nil {
		return nil, err
	}
	if met.SupervisorTransitions, err = m.Int64Counter("lighting.failsafe.transitions",
		metric.WithDescription("Fail-safe supervisor state changes."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// ObserveTickDuration implements engine.Metrics.
func (m *Metrics) ObserveTickDuration(d time.Duration) {
	m.TickDuration.Record(context.Background(), d.Seconds())
}

// AddFrameRendered implements engine.Metrics.
func (m *Metrics) AddFrameRendered() {
	m.FramesRendered.Add(context.Background(), 1)
}

// AddSinkError implements engine.Metrics.
func (m *Metrics) AddSinkError() {
	m.SinkErrors.Add(context.Background(), 1)
}

// AddEvent implements engine.Metrics.
func (m *Metrics) AddEvent(kind string) {
	m.Events.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("kind", kind)))
}

// AddModeTransition implements engine.Metrics.
func (m *Metrics) AddModeTransition(from, to string) {
	m.ModeTransitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("from", from), attribute.String("to", to)))
}

// AddSupervisorTransition implements engine.Metrics.
func (m *Metrics) AddSupervisorTransition(from, to string) {
	m.SupervisorTransitions.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("from", from), attribute.String("to", to)))
}
