// Package sink provides LightingFrame destinations. The simulator and
// network implementations live in subpackages; Memory here buffers frames in
// process for tests and diagnostics.
package sink

import (
	"sync"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

// Memory retains the most recent frames in a bounded ring. Safe for
// concurrent use.
type Memory struct {
	mu     sync.Mutex
	frames []*engine.LightingFrame
	limit  int
}

// NewMemory creates a memory sink retaining at most limit frames.
func NewMemory(limit int) *Memory {
	if limit < 1 {
		limit = 1
	}
	return &Memory{limit: limit}
}

// Accept implements engine.Sink.
func (m *Memory) Accept(frame *engine.LightingFrame) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.frames) >= m.limit {
		copy(m.frames, m.frames[1:])
		m.frames = m.frames[:len(m.frames)-1]
	}
	m.frames = append(m.frames, frame)
	return nil
}

// Close implements engine.Sink.
func (m *Memory) Close() error {
	return nil
}

// Frames returns a copy of the retained frames, oldest first.
func (m *Memory) Frames() []*engine.LightingFrame {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*engine.LightingFrame, len(m.frames))
	copy(out, m.frames)
	return out
}

// Last returns the most recently accepted frame, or nil.
func (m *Memory) Last() *engine.LightingFrame {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}
