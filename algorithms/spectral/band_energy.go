package spectral

import (
	"gonum.org/v1/gonum/floats"
)

const energyEpsilon = 1e-12

// BandEnergy computes the fraction of total spectral energy falling into
// low/mid/high frequency bands. The band edges follow the usual lighting
// heuristics: bass content drives the low band, vocals the mid, percussive
// brightness the high.
type BandEnergy struct {
	lowMaxHz  float64
	midMaxHz  float64
	freqBins  []float64
	lowEnd    int // exclusive bin index where the low band ends
	midEnd    int // exclusive bin index where the mid band ends
	minFreqHz float64
}

// BandRatios holds per-band energy as a fraction of total energy (0..1 each).
type BandRatios struct {
	Low  float64
	Mid  float64
	High float64
}

// NewBandEnergy creates a band energy calculator for a fixed FFT layout.
// minFreqHz excludes sub-audio bins (typically 20 Hz) from the low band.
func NewBandEnergy(fftSize, sampleRate int, minFreqHz, lowMaxHz, midMaxHz float64) *BandEnergy {
	be := &BandEnergy{
		lowMaxHz:  lowMaxHz,
		midMaxHz:  midMaxHz,
		minFreqHz: minFreqHz,
	}
	be.freqBins = NewFFT().BinFrequencies(fftSize, sampleRate)

	be.lowEnd = len(be.freqBins)
	be.midEnd = len(be.freqBins)
	for i, f := range be.freqBins {
		if f < lowMaxHz {
			be.lowEnd = i + 1
		}
		if f < midMaxHz {
			be.midEnd = i + 1
		}
	}

	return be
}

// Compute returns the band ratios for a single magnitude spectrum. Bins below
// minFreqHz are excluded from every band but still count toward the total, so
// DC offset cannot inflate the low ratio.
func (be *BandEnergy) Compute(spectrum []float64) BandRatios {
	if len(spectrum) == 0 {
		return BandRatios{}
	}

	n := min(len(spectrum), len(be.freqBins))
	total := floats.Sum(spectrum[:n]) + energyEpsilon

	var low, mid, high float64
	for i := range n {
		f := be.freqBins[i]
		switch {
		case f < be.minFreqHz:
			// sub-audio, skip
		case i < be.lowEnd:
			low += spectrum[i]
		case i < be.midEnd:
			mid += spectrum[i]
		default:
			high += spectrum[i]
		}
	}

	return BandRatios{
		Low:  low / total,
		Mid:  mid / total,
		High: high / total,
	}
}
