package engine

import (
	"testing"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
)

func failsafeConfig() config.FailsafeConfig {
	return config.Default().Failsafe
}

// advanceStale walks the supervisor with a frozen lastFeatureAt until target
// wall time, one tick at a time, recording every state it passes through.
func advanceStale(sv *Supervisor, t *testing.T, start, lastFeature time.Time, until time.Duration) []SupervisorState {
	t.Helper()
	var seen []SupervisorState
	tick := 33 * time.Millisecond
	for elapsed := time.Duration(0); elapsed <= until; elapsed += tick {
		state, err := sv.Observe(start.Add(elapsed), lastFeature, true)
		if err != nil {
			t.Fatalf("Observe at +%v: %v", elapsed, err)
		}
		if len(seen) == 0 || seen[len(seen)-1] != state {
			seen = append(seen, state)
		}
	}
	return seen
}

func TestSupervisorDegradationOrder(t *testing.T) {
	cfg := failsafeConfig()
	cfg.EnableBlack = true
	sv := NewSupervisor(cfg)

	start := time.Unix(1000, 0)
	lastFeature := start.Add(-time.Hour)

	total := cfg.HoldTimeout.Std() + cfg.AmbientTimeout.Std() + time.Second
	seen := advanceStale(sv, t, start, lastFeature, total)

	want := []SupervisorState{StateLastHold, StateDimAmbient, StateDimBlack}
	if len(seen) != len(want) {
		t.Fatalf("state sequence = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("state sequence = %v, want %v", seen, want)
		}
	}
}

func TestSupervisorBlackDisabledStopsAtAmbient(t *testing.T) {
	cfg := failsafeConfig()
	if cfg.EnableBlack {
		t.Fatal("black stage must be off by default")
	}
	sv := NewSupervisor(cfg)

	start := time.Unix(1000, 0)
	total := cfg.HoldTimeout.Std() + cfg.AmbientTimeout.Std() + 10*time.Second
	seen := advanceStale(sv, t, start, start.Add(-time.Hour), total)

	last := seen[len(seen)-1]
	if last != StateDimAmbient {
		t.Fatalf("final state with black disabled = %s, want DIM_AMBIENT", last)
	}
}

func TestSupervisorImmediateRecovery(t *testing.T) {
	cfg := failsafeConfig()
	cfg.EnableBlack = true

	degradeTo := func(t *testing.T, target SupervisorState) (*Supervisor, time.Time) {
		t.Helper()
		sv := NewSupervisor(cfg)
		start := time.Unix(1000, 0)
		now := start
		for sv.State() != target {
			now = now.Add(33 * time.Millisecond)
			if _, err := sv.Observe(now, start.Add(-time.Hour), true); err != nil {
				t.Fatalf("Observe: %v", err)
			}
			if now.Sub(start) > time.Minute {
				t.Fatalf("never reached %s", target)
			}
		}
		return sv, now
	}

	for _, target := range []SupervisorState{StateLastHold, StateDimAmbient, StateDimBlack} {
		t.Run(target.String(), func(t *testing.T) {
			sv, now := degradeTo(t, target)
			// One fresh observation recovers, no debounce.
			now = now.Add(33 * time.Millisecond)
			state, err := sv.Observe(now, now, true)
			if err != nil {
				t.Fatalf("Observe: %v", err)
			}
			if state != StateNormal {
				t.Fatalf("state after fresh input = %s, want NORMAL", state)
			}
		})
	}
}

func TestSupervisorZeroClockConservative(t *testing.T) {
	sv := NewSupervisor(failsafeConfig())

	state, err := sv.Observe(time.Time{}, time.Now(), true)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if state != StateLastHold {
		t.Fatalf("state on unusable clock = %s, want LAST_HOLD", state)
	}

	// Without a clock no timed edge may fire; repeated calls stay put.
	for i := 0; i < 100; i++ {
		state, err = sv.Observe(time.Time{}, time.Now(), true)
		if err != nil {
			t.Fatalf("Observe: %v", err)
		}
	}
	if state != StateLastHold {
		t.Fatalf("state after repeated clockless ticks = %s, want LAST_HOLD", state)
	}
}

func TestSupervisorUnhealthyInputDegrades(t *testing.T) {
	sv := NewSupervisor(failsafeConfig())
	now := time.Unix(1000, 0)

	// Features are recent but the pipeline reports unhealthy: not fresh.
	state, err := sv.Observe(now, now, false)
	if err != nil {
		t.Fatalf("Observe: %v", err)
	}
	if state != StateLastHold {
		t.Fatalf("state with unhealthy pipeline = %s, want LAST_HOLD", state)
	}
}

func TestSupervisorTransitionTableIsClosed(t *testing.T) {
	states := []SupervisorState{StateNormal, StateLastHold, StateDimAmbient, StateDimBlack}
	events := []supervisorEvent{evFresh, evStale, evHoldExpired, evAmbientExpired}

	for _, s := range states {
		row, ok := supervisorTransitions[s]
		if !ok {
			t.Fatalf("state %s has no transition row", s)
		}
		// Every state handles fresh and stale; every defined target is a
		// known state.
		if _, ok := row[evFresh]; !ok {
			t.Errorf("state %s does not handle fresh input", s)
		}
		if _, ok := row[evStale]; !ok {
			t.Errorf("state %s does not handle stale input", s)
		}
		for _, ev := range events {
			next, ok := row[ev]
			if !ok {
				continue
			}
			if next < StateNormal || next > StateDimBlack {
				t.Errorf("%s × %s leads to unknown state %d", s, ev, next)
			}
			// Degradation never skips a stage.
			if next > s && next != s+1 {
				t.Errorf("%s × %s skips to %s", s, ev, next)
			}
		}
	}
}

func TestSupervisorIntensity(t *testing.T) {
	cfg := failsafeConfig()
	cfg.EnableBlack = true
	sv := NewSupervisor(cfg)

	start := time.Unix(1000, 0)
	if got := sv.Intensity(start); got != 1.0 {
		t.Fatalf("NORMAL intensity = %g, want 1.0", got)
	}

	blackAt := cfg.HoldTimeout.Std() + cfg.AmbientTimeout.Std() + 33*time.Millisecond
	advanceStale(sv, t, start, start.Add(-time.Hour), blackAt)
	if sv.State() != StateDimBlack {
		t.Fatalf("setup: state = %s, want DIM_BLACK", sv.State())
	}

	early := sv.Intensity(start.Add(blackAt))
	late := sv.Intensity(start.Add(blackAt + cfg.BlackTimeout.Std()/2))
	end := sv.Intensity(start.Add(blackAt + 2*cfg.BlackTimeout.Std()))

	if early > cfg.AmbientIntensity || early <= late {
		t.Fatalf("fade not monotonic: early=%g late=%g", early, late)
	}
	if end != 0 {
		t.Fatalf("intensity after full fade = %g, want 0", end)
	}
}
