package engine

import (
	"time"
)

// Status is a read-only snapshot of the engine for external monitoring.
type Status struct {
	Mode            string    `json:"mode"`
	SupervisorState string    `json:"supervisor_state"`
	LastHighlight   time.Time `json:"last_highlight"`
	LastDrop        time.Time `json:"last_drop"`
	TickRate        float64   `json:"tick_rate"`
	TargetTickRate  int       `json:"target_tick_rate"`
	FramesRendered  uint64    `json:"frames_rendered"`
	FramesDropped   uint64    `json:"frames_dropped"`
	SinkErrors      uint64    `json:"sink_errors"`
	InputStale      bool      `json:"input_stale"`
}

// Status returns the most recent snapshot. Safe to call from any goroutine.
func (e *Engine) Status() Status {
	s := e.status.Load()
	if s == nil {
		return Status{
			Mode:            ModeIdle.String(),
			SupervisorState: StateNormal.String(),
			TargetTickRate:  e.cfg.Loop.TickRate,
		}
	}
	return *s
}

// publishStatus refreshes the snapshot at the end of a tick. Only the tick
// loop calls this.
func (e *Engine) publishStatus(now time.Time, mode Mode, state SupervisorState) {
	// Measured rate from an exponential moving average of tick intervals.
	if !e.lastTickAt.IsZero() {
		interval := now.Sub(e.lastTickAt).Seconds()
		if interval > 0 {
			rate := 1.0 / interval
			if e.measuredRate == 0 {
				e.measuredRate = rate
			} else {
				e.measuredRate = 0.9*e.measuredRate + 0.1*rate
			}
		}
	}
	e.lastTickAt = now

	var dropped uint64
	if dc, ok := e.source.(interface{ Drops() uint64 }); ok {
		dropped = dc.Drops()
	}

	e.status.Store(&Status{
		Mode:            mode.String(),
		SupervisorState: state.String(),
		LastHighlight:   e.detector.LastHighlight(),
		LastDrop:        e.detector.LastDrop(),
		TickRate:        e.measuredRate,
		TargetTickRate:  e.cfg.Loop.TickRate,
		FramesRendered:  e.renderer.Seq(),
		FramesDropped:   dropped,
		SinkErrors:      e.sinkErrors,
		InputStale:      state != StateNormal,
	})
}
