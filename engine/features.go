// Package engine implements the audio-responsive lighting core: feature
// extraction, mode classification, highlight/drop detection, the fail-safe
// supervisor, frame rendering and the fixed-rate tick loop tying them
// together.
package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/algorithms/spectral"
	"github.com/daesuck/AI-Audio-Responsive-Production/algorithms/temporal"
	"github.com/daesuck/AI-Audio-Responsive-Production/algorithms/windowing"
	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
)

// AudioFrame is one analysis window of PCM samples handed to the engine by
// its source. Samples are mono float64 in -1..1. The frame is consumed by
// feature extraction and not retained.
type AudioFrame struct {
	Samples    []float64
	SampleRate int
	Timestamp  time.Time
}

// FeatureVector holds the per-tick features derived from one AudioFrame.
// Immutable once produced; superseded every tick.
type FeatureVector struct {
	Timestamp time.Time

	// RMS is the frame level, 0..1 for full-scale input.
	RMS float64

	// BandLow/BandMid/BandHigh are spectral energy proportions, 0..1 each.
	BandLow  float64
	BandMid  float64
	BandHigh float64

	// Centroid is the spectral centroid in Hz.
	Centroid float64

	// Flux is the normalized positive spectral change since the previous
	// frame. 0 on the first frame after a reset.
	Flux float64

	// Transient scores how strongly this frame sticks out of the recent
	// energy baseline, 0..1.
	Transient float64

	// LowConfidence marks vectors computed from a partial window (stream
	// end, capture hiccup). Downstream consumers weigh these less.
	LowConfidence bool
}

var errEmptyFrame = errors.New("empty audio frame")

// FeatureExtractor converts AudioFrames into FeatureVectors. It keeps the
// previous magnitude spectrum (for flux) and a short energy history (for
// transient scoring) between calls, so one extractor serves exactly one
// stream. Extraction is deterministic: the same sample sequence always
// produces the same feature sequence.
type FeatureExtractor struct {
	frameSamples int
	sampleRate   int

	window    *windowing.Hann
	fft       *spectral.FFT
	bands     *spectral.BandEnergy
	centroid  *spectral.SpectralCentroid
	flux      *spectral.SpectralFlux
	transient *temporal.TransientTracker

	scratch []float64
}

// NewFeatureExtractor creates an extractor for the configured frame layout.
func NewFeatureExtractor(cfg *config.Config) *FeatureExtractor {
	frameSamples := cfg.FrameSamples()

	return &FeatureExtractor{
		frameSamples: frameSamples,
		sampleRate:   cfg.Audio.SampleRate,
		window:       windowing.NewHann(frameSamples, false),
		fft:          spectral.NewFFT(),
		bands: spectral.NewBandEnergy(frameSamples, cfg.Audio.SampleRate,
			cfg.Audio.MinFreqHz, cfg.Audio.LowMaxHz, cfg.Audio.MidMaxHz),
		centroid:  spectral.NewSpectralCentroid(cfg.Audio.SampleRate),
		flux:      spectral.NewSpectralFlux(),
		transient: temporal.NewTransientTracker(cfg.Audio.TransientHistoryFrames, cfg.Audio.TransientScale),
		scratch:   make([]float64, frameSamples),
	}
}

// Extract computes the feature vector for one frame. Short frames are
// zero-padded to the analysis window and marked low-confidence. Frames longer
// than the window are truncated. An empty frame or a sample-rate mismatch is
// a malformed input and returns an error; the caller recovers by holding its
// previous state.
func (fe *FeatureExtractor) Extract(frame AudioFrame) (FeatureVector, error) {
	if len(frame.Samples) == 0 {
		return FeatureVector{}, errEmptyFrame
	}
	if frame.SampleRate != fe.sampleRate {
		return FeatureVector{}, fmt.Errorf("sample rate mismatch: frame has %d, extractor expects %d",
			frame.SampleRate, fe.sampleRate)
	}

	n := copy(fe.scratch, frame.Samples)
	for i := n; i < fe.frameSamples; i++ {
		fe.scratch[i] = 0
	}
	lowConfidence := n < fe.frameSamples/2

	// RMS over the real samples only, so padding does not dilute the level.
	rms := temporal.RMS(fe.scratch[:max(n, 1)])

	windowed := fe.window.Apply(fe.scratch)
	magnitude := fe.fft.Magnitude(windowed)

	ratios := fe.bands.Compute(magnitude)

	fv := FeatureVector{
		Timestamp:     frame.Timestamp,
		RMS:           rms,
		BandLow:       ratios.Low,
		BandMid:       ratios.Mid,
		BandHigh:      ratios.High,
		Centroid:      fe.centroid.Compute(magnitude),
		Flux:          fe.flux.Update(magnitude),
		Transient:     fe.transient.Update(rms),
		LowConfidence: lowConfidence,
	}

	return fv, nil
}

// Reset clears the cross-frame state (flux reference, transient baseline).
// Called after an input gap, where comparing against pre-gap spectra would
// fabricate a huge flux spike.
func (fe *FeatureExtractor) Reset() {
	fe.flux.Reset()
	fe.transient.Reset()
}

// FrameSamples returns the analysis window length in samples.
func (fe *FeatureExtractor) FrameSamples() int {
	return fe.frameSamples
}
