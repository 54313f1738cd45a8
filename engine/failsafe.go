package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
)

// SupervisorState is the fail-safe state of the lighting output.
type SupervisorState int

const (
	// StateNormal: input is fresh and healthy, output follows live data.
	StateNormal SupervisorState = iota

	// StateLastHold: input just went stale; the last known-good frame is
	// frozen so the output does not cut out abruptly.
	StateLastHold

	// StateDimAmbient: input stayed stale; output is forced to a
	// low-intensity ambient preset instead of an indefinitely stale frame.
	StateDimAmbient

	// StateDimBlack: input stayed stale even longer; output fades to zero.
	// Gated behind config, off by default.
	StateDimBlack
)

func (s SupervisorState) String() string {
	switch s {
	case StateNormal:
		return "NORMAL"
	case StateLastHold:
		return "LAST_HOLD"
	case StateDimAmbient:
		return "DIM_AMBIENT"
	case StateDimBlack:
		return "DIM_BLACK"
	default:
		return "UNKNOWN"
	}
}

// supervisorEvent drives the fail-safe state machine.
type supervisorEvent int

const (
	evFresh supervisorEvent = iota
	evStale
	evHoldExpired
	evAmbientExpired
)

func (e supervisorEvent) String() string {
	switch e {
	case evFresh:
		return "fresh"
	case evStale:
		return "stale"
	case evHoldExpired:
		return "hold_expired"
	case evAmbientExpired:
		return "ambient_expired"
	default:
		return "unknown"
	}
}

// supervisorTransitions is the explicit state × event → state table. The
// degradation path moves one stage per event and every degraded state has the
// single un-debounced recovery edge back to NORMAL. Anything absent from this
// table is an invariant violation, not an environmental condition.
var supervisorTransitions = map[SupervisorState]map[supervisorEvent]SupervisorState{
	StateNormal: {
		evFresh: StateNormal,
		evStale: StateLastHold,
	},
	StateLastHold: {
		evFresh:       StateNormal,
		evStale:       StateLastHold,
		evHoldExpired: StateDimAmbient,
	},
	StateDimAmbient: {
		evFresh:          StateNormal,
		evStale:          StateDimAmbient,
		evAmbientExpired: StateDimBlack,
	},
	StateDimBlack: {
		evFresh: StateNormal,
		evStale: StateDimBlack,
	},
}

// ErrSupervisorInvariant reports a transition that left the defined graph.
// It indicates a logic defect and is fatal to the engine.
var ErrSupervisorInvariant = errors.New("supervisor state transition outside defined graph")

// Supervisor watches input health and owns the fail-safe state. It never
// fails to produce a verdict: when freshness cannot be determined it defaults
// to a degraded state, never to NORMAL.
type Supervisor struct {
	cfg    config.FailsafeConfig
	logger logging.Logger

	state      SupervisorState
	staleSince time.Time

	// onTransition, when set, observes committed state changes.
	onTransition func(from, to SupervisorState)
}

// NewSupervisor creates a supervisor in NORMAL.
func NewSupervisor(cfg config.FailsafeConfig) *Supervisor {
	return &Supervisor{
		cfg:    cfg,
		logger: logging.WithFields(logging.Fields{"component": "failsafe"}),
		state:  StateNormal,
	}
}

// SetTransitionHook registers a callback invoked on every committed state
// change. Used to feed metrics.
func (sv *Supervisor) SetTransitionHook(fn func(from, to SupervisorState)) {
	sv.onTransition = fn
}

// Observe advances the supervisor by one tick. lastFeatureAt is the timestamp
// of the newest valid feature vector (zero if none yet); healthy reports
// whether the most recent extraction/classification succeeded. The supervisor
// walks at most one degradation edge per call, so no stage is ever skipped;
// recovery to NORMAL is immediate and un-debounced.
//
// The returned error is non-nil only for an internal invariant violation,
// which the caller must treat as fatal.
func (sv *Supervisor) Observe(now time.Time, lastFeatureAt time.Time, healthy bool) (SupervisorState, error) {
	if now.IsZero() {
		// Clock unavailable: cannot judge freshness. Conservative default:
		// degrade to LAST_HOLD rather than trusting the input, but never
		// walk timed edges whose durations we cannot measure.
		if sv.state == StateNormal {
			return sv.apply(evStale)
		}
		return sv.state, nil
	}

	fresh := healthy && !lastFeatureAt.IsZero() &&
		now.Sub(lastFeatureAt) <= sv.cfg.FreshnessTimeout.Std()

	if fresh {
		sv.staleSince = time.Time{}
		return sv.apply(evFresh)
	}

	if sv.staleSince.IsZero() {
		sv.staleSince = now
	}
	staleFor := now.Sub(sv.staleSince)

	switch sv.state {
	case StateNormal:
		return sv.apply(evStale)
	case StateLastHold:
		if staleFor >= sv.cfg.HoldTimeout.Std() {
			return sv.apply(evHoldExpired)
		}
	case StateDimAmbient:
		if sv.cfg.EnableBlack && staleFor >= sv.cfg.HoldTimeout.Std()+sv.cfg.AmbientTimeout.Std() {
			return sv.apply(evAmbientExpired)
		}
	}

	return sv.apply(evStale)
}

func (sv *Supervisor) apply(ev supervisorEvent) (SupervisorState, error) {
	next, ok := supervisorTransitions[sv.state][ev]
	if !ok {
		return sv.state, fmt.Errorf("%w: %s × %s", ErrSupervisorInvariant, sv.state, ev)
	}

	if next != sv.state {
		sv.logger.Warn("failsafe state change", logging.Fields{
			"from": sv.state.String(),
			"to":   next.String(),
		})
		if sv.onTransition != nil {
			sv.onTransition(sv.state, next)
		}
		sv.state = next
	}
	return sv.state, nil
}

// State returns the current fail-safe state.
func (sv *Supervisor) State() SupervisorState {
	return sv.state
}

// Intensity returns the output brightness multiplier for the current state,
// 0..1. In DIM_BLACK the intensity fades linearly from the ambient level to
// zero over the black timeout.
func (sv *Supervisor) Intensity(now time.Time) float64 {
	switch sv.state {
	case StateNormal, StateLastHold:
		return 1.0
	case StateDimAmbient:
		return sv.cfg.AmbientIntensity
	case StateDimBlack:
		blackStart := sv.staleSince.Add(sv.cfg.HoldTimeout.Std() + sv.cfg.AmbientTimeout.Std())
		if sv.staleSince.IsZero() || now.IsZero() || sv.cfg.BlackTimeout <= 0 {
			return 0.0
		}
		progress := float64(now.Sub(blackStart)) / float64(sv.cfg.BlackTimeout.Std())
		if progress < 0 {
			progress = 0
		}
		if progress > 1 {
			progress = 1
		}
		return sv.cfg.AmbientIntensity * (1.0 - progress)
	default:
		return 0.0
	}
}
