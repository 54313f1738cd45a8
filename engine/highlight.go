package engine

import (
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
	"github.com/daesuck/AI-Audio-Responsive-Production/logging"
)

// EventKind distinguishes highlight from drop events.
type EventKind int

const (
	EventHighlight EventKind = iota
	EventDrop
)

func (k EventKind) String() string {
	switch k {
	case EventHighlight:
		return "highlight"
	case EventDrop:
		return "drop"
	default:
		return "unknown"
	}
}

// Event is an instantaneous highlight or drop flag. Events are consumed by
// the renderer within the tick that produced them and are not persisted.
type Event struct {
	Kind      EventKind
	At        time.Time
	Magnitude float64
}

// HighlightDetector flags musical highlights and their trailing drops from
// the per-tick score. Hysteresis: a highlight fires crossing the upper
// threshold, and only after the score has fallen through the lower threshold
// (firing the drop) can the next highlight fire. Oscillation between the two
// thresholds triggers nothing. A wall-clock cooldown additionally bounds the
// rate of same-kind events independent of tick-rate jitter.
//
// The detector is quiescent outside MUSIC mode.
type HighlightDetector struct {
	cfg    config.HighlightConfig
	logger logging.Logger

	// armedDrop is true after a highlight fired and before its drop: the
	// detector then sits on the upper side of the hysteresis band.
	armedDrop bool

	lastHighlight time.Time
	lastDrop      time.Time
}

// NewHighlightDetector creates a detector in the unarmed state with no prior
// events.
func NewHighlightDetector(cfg config.HighlightConfig) *HighlightDetector {
	return &HighlightDetector{
		cfg:    cfg,
		logger: logging.WithFields(logging.Fields{"component": "highlight_detector"}),
	}
}

// Score combines energy, high-band content and spectral flux into the 0..1
// highlight score. Each raw feature saturates at its configured norm before
// the weighted sum.
func (hd *HighlightDetector) Score(fv FeatureVector) float64 {
	rmsNorm := min(1.0, fv.RMS/hd.cfg.RMSNorm)
	fluxNorm := min(1.0, fv.Flux/hd.cfg.FluxNorm)

	totalWeight := hd.cfg.WeightRMS + hd.cfg.WeightHighBand + hd.cfg.WeightFlux
	score := (hd.cfg.WeightRMS*rmsNorm + hd.cfg.WeightHighBand*fv.BandHigh + hd.cfg.WeightFlux*fluxNorm) / totalWeight

	return min(1.0, max(0.0, score))
}

// Update advances the detector by one tick and returns the event fired this
// tick, or nil. At most one event fires per tick.
func (hd *HighlightDetector) Update(fv FeatureVector, mode Mode, now time.Time) *Event {
	if mode != ModeMusic {
		// Highlight semantics are musical. Disarm so a later return to
		// MUSIC starts from a clean envelope.
		hd.armedDrop = false
		return nil
	}

	score := hd.Score(fv)

	if !hd.armedDrop {
		if score >= hd.cfg.UpperThreshold && hd.cooledDown(hd.lastHighlight, now) {
			hd.armedDrop = true
			hd.lastHighlight = now
			hd.logger.Debug("highlight fired", logging.Fields{"score": score})
			return &Event{Kind: EventHighlight, At: now, Magnitude: score}
		}
		return nil
	}

	if score <= hd.cfg.LowerThreshold && hd.cooledDown(hd.lastDrop, now) {
		hd.armedDrop = false
		hd.lastDrop = now
		hd.logger.Debug("drop fired", logging.Fields{"score": score})
		return &Event{Kind: EventDrop, At: now, Magnitude: score}
	}
	return nil
}

func (hd *HighlightDetector) cooledDown(last time.Time, now time.Time) bool {
	if last.IsZero() {
		return true
	}
	return now.Sub(last) >= hd.cfg.Cooldown.Std()
}

// LastHighlight returns the timestamp of the most recent highlight, zero if
// none fired yet.
func (hd *HighlightDetector) LastHighlight() time.Time {
	return hd.lastHighlight
}

// LastDrop returns the timestamp of the most recent drop, zero if none fired
// yet.
func (hd *HighlightDetector) LastDrop() time.Time {
	return hd.lastDrop
}
