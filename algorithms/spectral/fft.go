package spectral

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
)

// FFT provides Fast Fourier Transform functionality for real-valued signals
type FFT struct {
	// No state needed for now
}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute computes the FFT of a real signal using mjibson/go-dsp
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}

	// mjibson/go-dsp handles all sizes efficiently, including non-power-of-2
	return fft.FFTReal(x)
}

// Magnitude computes the single-sided magnitude spectrum of a real signal.
// The result has len(x)/2+1 bins covering DC..Nyquist.
func (f *FFT) Magnitude(x []float64) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	spectrum := fft.FFTReal(x)
	numBins := len(x)/2 + 1
	magnitude := make([]float64, numBins)

	for i := range numBins {
		magnitude[i] = math.Sqrt(real(spectrum[i])*real(spectrum[i]) + imag(spectrum[i])*imag(spectrum[i]))
	}

	return magnitude
}

// BinFrequencies returns the center frequency of each single-sided bin for a
// signal of fftSize samples at the given sample rate.
func (f *FFT) BinFrequencies(fftSize, sampleRate int) []float64 {
	numBins := fftSize/2 + 1
	freqs := make([]float64, numBins)

	for i := range numBins {
		freqs[i] = float64(i) * float64(sampleRate) / float64(fftSize)
	}

	return freqs
}
