// Package source supplies audio frames to the engine. Capture or generation
// runs in its own goroutine and publishes into a bounded queue; the tick loop
// drains the queue without ever blocking on it.
package source

import (
	"sync"
	"sync/atomic"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

// Queue is a bounded frame queue between a producer goroutine and the tick
// loop. When full, Publish drops the oldest frame: the loop wants the most
// recent audio, not a backlog.
type Queue struct {
	mu     sync.Mutex
	frames []engine.AudioFrame
	depth  int
	drops  atomic.Uint64
}

// NewQueue creates a queue holding at most depth frames.
func NewQueue(depth int) *Queue {
	if depth < 1 {
		depth = 1
	}
	return &Queue{
		frames: make([]engine.AudioFrame, 0, depth),
		depth:  depth,
	}
}

// Publish adds a frame, evicting the oldest one when the queue is full.
// Always returns immediately.
func (q *Queue) Publish(frame engine.AudioFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) >= q.depth {
		copy(q.frames, q.frames[1:])
		q.frames = q.frames[:len(q.frames)-1]
		q.drops.Add(1)
	}
	q.frames = append(q.frames, frame)
}

// Next implements engine.Source: it returns the oldest queued frame without
// blocking. ok=false means the queue was empty at tick time.
func (q *Queue) Next() (engine.AudioFrame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.frames) == 0 {
		return engine.AudioFrame{}, false
	}

	frame := q.frames[0]
	copy(q.frames, q.frames[1:])
	q.frames = q.frames[:len(q.frames)-1]
	return frame, true
}

// Drops returns how many frames were evicted unconsumed.
func (q *Queue) Drops() uint64 {
	return q.drops.Load()
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.frames)
}
