package sink

import (
	"testing"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

func TestMemoryRetainsNewest(t *testing.T) {
	m := NewMemory(3)

	for i := uint64(1); i <= 5; i++ {
		if err := m.Accept(&engine.LightingFrame{Seq: i}); err != nil {
			t.Fatalf("Accept: %v", err)
		}
	}

	frames := m.Frames()
	if len(frames) != 3 {
		t.Fatalf("retained %d frames, want 3", len(frames))
	}
	for i, want := range []uint64{3, 4, 5} {
		if frames[i].Seq != want {
			t.Fatalf("frames[%d].Seq = %d, want %d", i, frames[i].Seq, want)
		}
	}
	if last := m.Last(); last == nil || last.Seq != 5 {
		t.Fatalf("Last = %v, want seq 5", last)
	}
}

func TestMemoryEmpty(t *testing.T) {
	m := NewMemory(4)
	if m.Last() != nil {
		t.Fatal("Last on empty sink is not nil")
	}
	if len(m.Frames()) != 0 {
		t.Fatal("Frames on empty sink is not empty")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
