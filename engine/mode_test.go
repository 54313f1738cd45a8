package engine

import (
	"testing"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
)

func musicVector() FeatureVector {
	return FeatureVector{
		RMS:      0.2,
		BandLow:  0.2,
		BandMid:  0.3,
		BandHigh: 0.5,
		Flux:     0.3,
	}
}

func speechVector() FeatureVector {
	return FeatureVector{
		RMS:      0.05,
		BandLow:  0.3,
		BandMid:  0.6,
		BandHigh: 0.1,
		Flux:     0.02,
	}
}

func silenceVector() FeatureVector {
	return FeatureVector{RMS: 1e-6}
}

func TestModeClassifierStartsIdle(t *testing.T) {
	mc := NewModeClassifier(config.Default().Mode)
	if got := mc.Current(); got != ModeIdle {
		t.Fatalf("initial mode = %s, want IDLE", got)
	}
}

func TestModeClassifierDebounce(t *testing.T) {
	cfg := config.Default().Mode

	t.Run("commits_after_debounce", func(t *testing.T) {
		mc := NewModeClassifier(cfg)
		for i := 0; i < cfg.DebounceTicks-1; i++ {
			if got := mc.Update(musicVector(), true); got != ModeIdle {
				t.Fatalf("tick %d: mode = %s, want IDLE before debounce elapses", i, got)
			}
		}
		if got := mc.Update(musicVector(), true); got != ModeMusic {
			t.Fatalf("mode after %d music ticks = %s, want MUSIC", cfg.DebounceTicks, got)
		}
	})

	t.Run("flapping_input_never_commits", func(t *testing.T) {
		mc := NewModeClassifier(cfg)
		// Alternate music and speech vectors; neither candidate can
		// accumulate a consecutive streak.
		for i := 0; i < cfg.DebounceTicks*4; i++ {
			fv := musicVector()
			if i%2 == 1 {
				fv = speechVector()
			}
			if got := mc.Update(fv, true); got != ModeIdle {
				t.Fatalf("tick %d: mode = %s, want IDLE under alternating input", i, got)
			}
		}
	})

	t.Run("invalid_tick_restarts_streak", func(t *testing.T) {
		mc := NewModeClassifier(cfg)
		for i := 0; i < cfg.DebounceTicks-1; i++ {
			mc.Update(musicVector(), true)
		}
		// One broken tick in the middle.
		if got := mc.Update(FeatureVector{}, false); got != ModeIdle {
			t.Fatalf("mode on invalid tick = %s, want held IDLE", got)
		}
		// The streak restarted: still needs the full debounce again.
		for i := 0; i < cfg.DebounceTicks-1; i++ {
			if got := mc.Update(musicVector(), true); got != ModeIdle {
				t.Fatalf("tick %d after gap: mode = %s, want IDLE", i, got)
			}
		}
		if got := mc.Update(musicVector(), true); got != ModeMusic {
			t.Fatalf("mode after full streak = %s, want MUSIC", got)
		}
	})
}

func TestModeClassifierSilenceWinsIdle(t *testing.T) {
	cfg := config.Default().Mode
	mc := NewModeClassifier(cfg)

	for i := 0; i < cfg.DebounceTicks; i++ {
		mc.Update(musicVector(), true)
	}
	if mc.Current() != ModeMusic {
		t.Fatalf("setup failed: mode = %s, want MUSIC", mc.Current())
	}

	for i := 0; i < cfg.DebounceTicks; i++ {
		mc.Update(silenceVector(), true)
	}
	if got := mc.Current(); got != ModeIdle {
		t.Fatalf("mode after sustained silence = %s, want IDLE", got)
	}
}

func TestModeClassifierTieKeepsCurrent(t *testing.T) {
	cfg := config.Default().Mode
	mc := NewModeClassifier(cfg)

	// A vector scoring zero everywhere ties all modes; the committed mode
	// must win.
	neutral := FeatureVector{RMS: 0.05, BandMid: 0.2, BandHigh: 0.1, Flux: 0.05}
	for i := 0; i < cfg.DebounceTicks*2; i++ {
		if got := mc.Update(neutral, true); got != ModeIdle {
			t.Fatalf("tick %d: tie broke away from committed mode, got %s", i, got)
		}
	}
}

func TestModeClassifierConfidence(t *testing.T) {
	cfg := config.Default().Mode
	mc := NewModeClassifier(cfg)

	mc.Update(silenceVector(), true)
	if c := mc.Confidence(); c <= 0 {
		t.Fatalf("confidence after decisive silence = %g, want > 0", c)
	}

	low := silenceVector()
	low.LowConfidence = true
	mc2 := NewModeClassifier(cfg)
	mc2.Update(low, true)
	if mc2.Confidence() >= mc.Confidence() {
		t.Fatalf("low-confidence vector should halve confidence: %g >= %g",
			mc2.Confidence(), mc.Confidence())
	}
}
