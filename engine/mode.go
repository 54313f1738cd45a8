package engine

import (
	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
)

// Mode is the engine's operating mode, derived from the audio content.
type Mode int

const (
	ModeIdle Mode = iota
	ModeSpeech
	ModeMusic
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "IDLE"
	case ModeSpeech:
		return "SPEECH"
	case ModeMusic:
		return "MUSIC"
	default:
		return "UNKNOWN"
	}
}

// ModeClassifier maps feature vectors to {IDLE, SPEECH, MUSIC} with debounced
// transitions. A candidate mode must win the per-tick scoring for a
// configured number of consecutive ticks before the classifier commits the
// transition; single noisy frames cannot flap the mode. On ties the
// previously committed mode wins.
type ModeClassifier struct {
	cfg    config.ModeConfig
	logger logging.Logger

	current        Mode
	candidate      Mode
	candidateTicks int
	confidence     float64
}

// NewModeClassifier creates a classifier starting in IDLE.
func NewModeClassifier(cfg config.ModeConfig) *ModeClassifier {
	return &ModeClassifier{
		cfg:       cfg,
		logger:    logging.WithFields(logging.Fields{"component": "mode_classifier"}),
		current:   ModeIdle,
		candidate: ModeIdle,
	}
}

// score computes the per-mode support for a single feature vector.
func (mc *ModeClassifier) score(fv FeatureVector) map[Mode]float64 {
	scores := map[Mode]float64{
		ModeIdle:   0,
		ModeSpeech: 0,
		ModeMusic:  0,
	}

	// Near-silence dominates everything else.
	if fv.RMS < mc.cfg.SilenceRMS {
		scores[ModeIdle] += 2.0
		return scores
	}

	// Speech: mid-heavy spectrum with low rhythmic activity.
	if fv.BandMid > mc.cfg.SpeechMidRatio && fv.Flux < mc.cfg.MusicFluxFloor {
		scores[ModeSpeech] += 1.0 + (fv.BandMid - mc.cfg.SpeechMidRatio)
	}

	// Music: rhythmic activity plus meaningful high-band content.
	if fv.Flux > mc.cfg.MusicFluxFloor && fv.BandHigh > mc.cfg.MusicHighRatio {
		scores[ModeMusic] += 1.0 + (fv.Flux - mc.cfg.MusicFluxFloor)
	}

	// A very bright spectrum leans music even without a flux hit.
	if fv.BandHigh > 0.5 {
		scores[ModeMusic] += 0.5
	}

	return scores
}

// Update feeds one tick of features into the classifier and returns the
// committed mode. ok=false means features were missing or invalid for this
// tick; the classifier then holds its current mode and the debounce streak
// restarts, since the consecutive-observation requirement is broken.
func (mc *ModeClassifier) Update(fv FeatureVector, ok bool) Mode {
	if !ok {
		mc.candidate = mc.current
		mc.candidateTicks = 0
		return mc.current
	}

	scores := mc.score(fv)

	// Pick the winner; the previously committed mode wins ties.
	best := mc.current
	bestScore := scores[mc.current]
	var secondScore float64
	for _, m := range []Mode{ModeIdle, ModeSpeech, ModeMusic} {
		if m == mc.current {
			continue
		}
		if scores[m] > bestScore {
			secondScore = bestScore
			best = m
			bestScore = scores[m]
		} else if scores[m] > secondScore {
			secondScore = scores[m]
		}
	}

	mc.confidence = confidenceFromMargin(bestScore, secondScore, fv.LowConfidence)

	if best != mc.candidate {
		mc.candidate = best
		mc.candidateTicks = 0
	}
	mc.candidateTicks++

	if mc.candidate != mc.current && mc.candidateTicks >= mc.cfg.DebounceTicks {
		mc.logger.Info("mode transition", logging.Fields{
			"from":  mc.current.String(),
			"to":    mc.candidate.String(),
			"ticks": mc.candidateTicks,
		})
		mc.current = mc.candidate
	}

	return mc.current
}

// Current returns the committed mode without advancing the classifier.
func (mc *ModeClassifier) Current() Mode {
	return mc.current
}

// Confidence reports how decisive the most recent scoring was, 0..1.
func (mc *ModeClassifier) Confidence() float64 {
	return mc.confidence
}

func confidenceFromMargin(best, second float64, lowConfidence bool) float64 {
	margin := best - second
	if margin > 1.0 {
		margin = 1.0
	}
	if margin < 0 {
		margin = 0
	}
	if lowConfidence {
		margin *= 0.5
	}
	return margin
}
