package spectral

import (
	"gonum.org/v1/gonum/floats"
)

// SpectralFlux computes spectral flux (measure of spectral change) between
// consecutive magnitude spectra. Only energy increases count, so the flux
// tracks onsets rather than decays.
type SpectralFlux struct {
	prev []float64
}

// NewSpectralFlux creates a new spectral flux calculator
func NewSpectralFlux() *SpectralFlux {
	return &SpectralFlux{}
}

// Update computes the flux of the current spectrum relative to the previous
// one and remembers the current spectrum for the next call. The sum of
// positive bin differences is normalized by the previous total magnitude so
// the result is level-independent. The first call always returns 0.
func (sf *SpectralFlux) Update(spectrum []float64) float64 {
	defer func() {
		sf.prev = append(sf.prev[:0], spectrum...)
	}()

	if sf.prev == nil || len(sf.prev) != len(spectrum) {
		return 0.0
	}

	sum := 0.0
	for i := range spectrum {
		if diff := spectrum[i] - sf.prev[i]; diff > 0 {
			sum += diff
		}
	}

	return sum / (floats.Sum(sf.prev) + energyEpsilon)
}

// Reset clears the remembered spectrum, e.g. after an input gap where a flux
// against a stale spectrum would be meaningless.
func (sf *SpectralFlux) Reset() {
	sf.prev = nil
}
