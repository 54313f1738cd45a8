package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
)

// Source supplies audio frames to the engine. Next must not block: ok=false
// means no frame was ready at tick time, which the engine treats as (possibly
// transient) input staleness, never as a reason to stall the loop.
type Source interface {
	Next() (AudioFrame, bool)
}

// Metrics receives engine telemetry. All methods must be cheap and
// non-blocking; a nil Metrics disables recording.
type Metrics interface {
	ObserveTickDuration(d time.Duration)
	AddFrameRendered()
	AddSinkError()
	AddEvent(kind string)
	AddModeTransition(from, to string)
	AddSupervisorTransition(from, to string)
}

// Extraction failures in a row before the supervisor stops trusting the
// input path. A single malformed frame is a transient anomaly, a steady
// stream of them is a broken input.
const maxExtractFailures = 5

// Engine is the lighting engine core: one sequential tick loop running
// feature extraction, mode classification, highlight detection, fail-safe
// supervision and frame rendering at a fixed cadence. All cross-tick state is
// owned by the engine's components and touched only from within Tick, so no
// locking happens inside a tick.
type Engine struct {
	cfg    *config.Config
	source Source
	sink   Sink
	logger logging.Logger

	extractor  *FeatureExtractor
	classifier *ModeClassifier
	detector   *HighlightDetector
	supervisor *Supervisor
	renderer   *FrameRenderer

	metrics Metrics
	now     func() time.Time

	lastFeatureAt   time.Time
	extractFailures int
	hadGap          bool

	sinkErrors   uint64
	lastTickAt   time.Time
	measuredRate float64
	status       atomic.Pointer[Status]
}

// New assembles an engine from a validated config, a source and a sink.
func New(cfg *config.Config, source Source, sink Sink) (*Engine, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		source:     source,
		sink:       sink,
		logger:     logging.WithFields(logging.Fields{"component": "engine"}),
		extractor:  NewFeatureExtractor(cfg),
		classifier: NewModeClassifier(cfg.Mode),
		detector:   NewHighlightDetector(cfg.Highlight),
		supervisor: NewSupervisor(cfg.Failsafe),
		renderer:   NewFrameRenderer(cfg.Render),
		now:        time.Now,
	}

	e.supervisor.SetTransitionHook(func(from, to SupervisorState) {
		if e.metrics != nil {
			e.metrics.AddSupervisorTransition(from.String(), to.String())
		}
	})

	return e, nil
}

// SetMetrics attaches a telemetry receiver. Call before Run.
func (e *Engine) SetMetrics(m Metrics) {
	e.metrics = m
}

// SetClock overrides the engine's time source. Tests use this to drive the
// pipeline with synthetic time.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Run drives the tick loop at the configured rate until ctx is cancelled.
// Shutdown is clean: the loop only stops between ticks, never mid-render.
// The returned error is non-nil only for an internal invariant violation.
func (e *Engine) Run(ctx context.Context) error {
	period := e.cfg.TickPeriod()
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	e.logger.Info("engine loop starting", logging.Fields{
		"tick_rate":     e.cfg.Loop.TickRate,
		"frame_samples": e.cfg.FrameSamples(),
		"pixel_count":   e.cfg.Render.PixelCount,
	})

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("engine loop stopped", logging.Fields{
				"frames": e.renderer.Seq(),
			})
			return nil
		case <-ticker.C:
			start := time.Now()
			if err := e.Tick(e.now()); err != nil {
				e.logger.Error(err, "engine invariant violation, halting")
				return err
			}
			if e.metrics != nil {
				e.metrics.ObserveTickDuration(time.Since(start))
			}
		}
	}
}

// Tick performs one full pipeline pass: pull audio, extract features,
// classify, detect events, supervise, render, emit. Exactly one LightingFrame
// leaves per call. Only an internal invariant violation returns an error;
// every environmental failure is absorbed per the engine's error taxonomy.
func (e *Engine) Tick(now time.Time) error {
	frame, haveFrame := e.source.Next()

	var fv FeatureVector
	extracted := false
	if haveFrame {
		if e.hadGap {
			// Cross-frame feature state is meaningless across a gap.
			e.extractor.Reset()
			e.hadGap = false
		}
		var err error
		fv, err = e.extractor.Extract(frame)
		if err != nil {
			e.extractFailures++
			e.logger.Warn("feature extraction failed, holding previous state", logging.Fields{
				"error":    err.Error(),
				"failures": e.extractFailures,
			})
		} else {
			extracted = true
			e.extractFailures = 0
			e.lastFeatureAt = fv.Timestamp
			if e.lastFeatureAt.IsZero() {
				e.lastFeatureAt = now
			}
		}
	} else {
		e.hadGap = true
	}

	prevMode := e.classifier.Current()
	mode := e.classifier.Update(fv, extracted)
	if mode != prevMode && e.metrics != nil {
		e.metrics.AddModeTransition(prevMode.String(), mode.String())
	}

	var event *Event
	if extracted {
		event = e.detector.Update(fv, mode, now)
		if event != nil && e.metrics != nil {
			e.metrics.AddEvent(event.Kind.String())
		}
	}

	healthy := e.extractFailures < maxExtractFailures
	state, err := e.supervisor.Observe(now, e.lastFeatureAt, healthy)
	if err != nil {
		return err
	}

	out := e.renderer.Render(mode, event, state, e.supervisor.Intensity(now), now)
	if e.metrics != nil {
		e.metrics.AddFrameRendered()
	}

	if err := e.sink.Accept(out); err != nil {
		e.sinkErrors++
		if e.metrics != nil {
			e.metrics.AddSinkError()
		}
		e.logger.Warn("sink rejected frame", logging.Fields{
			"error": err.Error(),
			"seq":   out.Seq,
		})
	}

	e.publishStatus(now, mode, state)
	return nil
}
