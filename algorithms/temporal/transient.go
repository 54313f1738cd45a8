package temporal

import (
	"gonum.org/v1/gonum/stat"
)

// TransientTracker scores how strongly the current frame energy sticks out of
// the recent energy baseline. It keeps a short ring of past RMS values and
// reports the z-score of the newest value against that history, squashed into
// 0..1. A kick drum or a sudden shout scores near 1, steady content near 0.
type TransientTracker struct {
	history []float64
	size    int
	next    int
	filled  bool
	scale   float64
}

// NewTransientTracker creates a tracker with the given history length (in
// frames) and z-score scale. A scale of 3 means a value three standard
// deviations above the mean saturates the score.
func NewTransientTracker(historyFrames int, scale float64) *TransientTracker {
	if historyFrames < 2 {
		historyFrames = 2
	}
	if scale <= 0 {
		scale = 3.0
	}

	return &TransientTracker{
		history: make([]float64, historyFrames),
		size:    historyFrames,
		scale:   scale,
	}
}

// Update scores the given frame energy against the history, then adds it to
// the history. Until the history has at least two samples the score is 0.
func (tt *TransientTracker) Update(energy float64) float64 {
	score := tt.score(energy)

	tt.history[tt.next] = energy
	tt.next++
	if tt.next >= tt.size {
		tt.next = 0
		tt.filled = true
	}

	return score
}

func (tt *TransientTracker) score(energy float64) float64 {
	n := tt.next
	if tt.filled {
		n = tt.size
	}
	if n < 2 {
		return 0.0
	}

	mean, std := stat.MeanStdDev(tt.history[:n], nil)
	if std < 1e-9 {
		// Flat baseline: any rise at all is a transient, but do not divide
		// by a vanishing deviation.
		if energy > mean+1e-6 {
			return 1.0
		}
		return 0.0
	}

	z := (energy - mean) / std
	if z <= 0 {
		return 0.0
	}

	score := z / tt.scale
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Reset clears the energy history.
func (tt *TransientTracker) Reset() {
	tt.next = 0
	tt.filled = false
}
