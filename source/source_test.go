package source

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

func TestQueueFIFO(t *testing.T) {
	q := NewQueue(4)

	for i := 0; i < 3; i++ {
		q.Publish(engine.AudioFrame{Samples: []float64{float64(i)}})
	}

	for i := 0; i < 3; i++ {
		frame, ok := q.Next()
		if !ok {
			t.Fatalf("frame %d missing", i)
		}
		if frame.Samples[0] != float64(i) {
			t.Fatalf("frame %d out of order: got %g", i, frame.Samples[0])
		}
	}
	if _, ok := q.Next(); ok {
		t.Fatal("drained queue still returns frames")
	}
}

func TestQueueDropsOldest(t *testing.T) {
	q := NewQueue(2)

	for i := 0; i < 5; i++ {
		q.Publish(engine.AudioFrame{Samples: []float64{float64(i)}})
	}

	if got := q.Drops(); got != 3 {
		t.Fatalf("drops = %d, want 3", got)
	}
	if got := q.Len(); got != 2 {
		t.Fatalf("len = %d, want 2", got)
	}

	// The survivors are the newest frames.
	frame, _ := q.Next()
	if frame.Samples[0] != 3 {
		t.Fatalf("oldest survivor = %g, want 3", frame.Samples[0])
	}
	frame, _ = q.Next()
	if frame.Samples[0] != 4 {
		t.Fatalf("newest survivor = %g, want 4", frame.Samples[0])
	}
}

func TestSinePhaseContinuity(t *testing.T) {
	const sampleRate = 44100
	g := NewSine(440, 0.5, sampleRate)

	// Two consecutive chunks must match one big chunk sample for sample.
	a1, _ := g.Generate(512)
	a2, _ := g.Generate(512)

	ref := NewSine(440, 0.5, sampleRate)
	whole, _ := ref.Generate(1024)

	for i := range a1 {
		if math.Abs(a1[i]-whole[i]) > 1e-9 {
			t.Fatalf("sample %d differs: %g vs %g", i, a1[i], whole[i])
		}
	}
	for i := range a2 {
		if math.Abs(a2[i]-whole[512+i]) > 1e-9 {
			t.Fatalf("sample %d differs across chunk boundary: %g vs %g", 512+i, a2[i], whole[512+i])
		}
	}
}

func TestSineAmplitude(t *testing.T) {
	g := NewSine(440, 0.3, 44100)
	chunk, ok := g.Generate(44100)
	if !ok {
		t.Fatal("sine generator reported exhaustion")
	}

	peak := 0.0
	for _, s := range chunk {
		peak = math.Max(peak, math.Abs(s))
	}
	if peak > 0.3+1e-9 || peak < 0.29 {
		t.Fatalf("peak = %g, want ~0.3", peak)
	}
}

func TestBufferExhaustion(t *testing.T) {
	samples := make([]float64, 1000)
	b := NewBuffer(samples, 44100)

	chunk, ok := b.Generate(400)
	if !ok || len(chunk) != 400 {
		t.Fatalf("first chunk: len=%d ok=%v", len(chunk), ok)
	}
	chunk, ok = b.Generate(400)
	if !ok || len(chunk) != 400 {
		t.Fatalf("second chunk: len=%d ok=%v", len(chunk), ok)
	}

	// Final chunk is short.
	chunk, ok = b.Generate(400)
	if !ok || len(chunk) != 200 {
		t.Fatalf("final chunk: len=%d ok=%v, want 200 true", len(chunk), ok)
	}

	if _, ok := b.Generate(400); ok {
		t.Fatal("exhausted buffer still generating")
	}
}

func TestPumpStopsOnExhaustion(t *testing.T) {
	q := NewQueue(16)
	b := NewBuffer(make([]float64, 300), 44100)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := Pump(ctx, b, q, 100, time.Millisecond); err != nil {
		t.Fatalf("Pump: %v", err)
	}
	if ctx.Err() != nil {
		t.Fatal("Pump did not stop on its own before the deadline")
	}

	published := 0
	for {
		if _, ok := q.Next(); !ok {
			break
		}
		published++
	}
	if published != 3 {
		t.Fatalf("pump published %d frames, want 3", published)
	}
}

func TestPumpStopsOnCancel(t *testing.T) {
	q := NewQueue(4)
	g := NewSine(440, 0.3, 44100)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Pump(ctx, g, q, 100, time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Pump: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pump did not stop on cancellation")
	}
}
