package source

import (
	"context"
	"math"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

// Generator produces successive chunks of PCM. ok=false signals the stream is
// exhausted (a file reached its end); endless generators never return false.
type Generator interface {
	Generate(samples int) ([]float64, bool)
	SampleRate() int
}

// Sine is an endless sine generator, used to demo the pipeline when no real
// audio input is attached.
type Sine struct {
	freq       float64
	amplitude  float64
	sampleRate int
	phase      float64
}

// NewSine creates a sine generator. Typical demo values: 440 Hz, 0.3.
func NewSine(freq, amplitude float64, sampleRate int) *Sine {
	return &Sine{
		freq:       freq,
		amplitude:  amplitude,
		sampleRate: sampleRate,
	}
}

// Generate produces the next chunk, continuing the phase across calls.
func (s *Sine) Generate(samples int) ([]float64, bool) {
	out := make([]float64, samples)
	step := 2 * math.Pi * s.freq / float64(s.sampleRate)

	for i := range samples {
		out[i] = s.amplitude * math.Sin(s.phase)
		s.phase += step
	}
	// Keep the phase bounded over long runs.
	s.phase = math.Mod(s.phase, 2*math.Pi)

	return out, true
}

// SampleRate implements Generator.
func (s *Sine) SampleRate() int {
	return s.sampleRate
}

// Buffer plays an in-memory PCM sample buffer. The final chunk may be short;
// after that the buffer reports exhaustion.
type Buffer struct {
	samples    []float64
	sampleRate int
	pos        int
}

// NewBuffer creates a buffer source over mono float64 samples.
func NewBuffer(samples []float64, sampleRate int) *Buffer {
	return &Buffer{
		samples:    samples,
		sampleRate: sampleRate,
	}
}

// Generate returns the next chunk of up to n samples.
func (b *Buffer) Generate(samples int) ([]float64, bool) {
	if b.pos >= len(b.samples) {
		return nil, false
	}

	end := min(b.pos+samples, len(b.samples))
	chunk := b.samples[b.pos:end]
	b.pos = end
	return chunk, true
}

// SampleRate implements Generator.
func (b *Buffer) SampleRate() int {
	return b.sampleRate
}

// Pump runs a capture loop: every period it pulls one chunk from the
// generator and publishes it to the queue with a capture timestamp. Returns
// nil when the generator is exhausted or the context is cancelled.
func Pump(ctx context.Context, g Generator, q *Queue, samples int, period time.Duration) error {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			chunk, ok := g.Generate(samples)
			if !ok {
				return nil
			}
			q.Publish(engine.AudioFrame{
				Samples:    chunk,
				SampleRate: g.SampleRate(),
				Timestamp:  time.Now(),
			})
		}
	}
}
