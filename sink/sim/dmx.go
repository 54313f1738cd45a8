package sim

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

// dmxChannels is the size of one DMX universe.
const dmxChannels = 512

// DMX is a console DMX-universe simulator implementing engine.Sink. Pixel
// channel values map 1:1 onto DMX channels, clipped to one universe.
type DMX struct {
	out      io.Writer
	universe int
}

// NewDMX creates a simulator for the given universe, writing to stdout.
func NewDMX(universe int) *DMX {
	return &DMX{out: os.Stdout, universe: universe}
}

// NewDMXWriter creates a simulator writing to w. Used in tests.
func NewDMXWriter(w io.Writer, universe int) *DMX {
	return &DMX{out: w, universe: universe}
}

// Accept implements engine.Sink: it prints universe stats and the first 48
// channels as a table.
func (d *DMX) Accept(frame *engine.LightingFrame) error {
	data := frame.Pixels
	if len(data) > dmxChannels {
		data = data[:dmxChannels]
	}

	nonzero := 0
	mn, mx := byte(255), byte(0)
	for _, v := range data {
		if v != 0 {
			nonzero++
		}
		mn = min(mn, v)
		mx = max(mx, v)
	}
	if len(data) == 0 {
		mn = 0
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n", headerStyle.Render(
		fmt.Sprintf("[DMX] seq=%d universe=%d channels=%d", frame.Seq, d.universe, len(data))))
	fmt.Fprintf(&sb, "  nonzero=%d min=%d max=%d\n", nonzero, mn, mx)

	const cols = 12
	toDisplay := min(len(data), 48)
	for row := 0; row < toDisplay; row += cols {
		cells := make([]string, 0, cols)
		for i := row; i < min(row+cols, toDisplay); i++ {
			cells = append(cells, fmt.Sprintf("%03d:%03d", i+1, data[i]))
		}
		fmt.Fprintf(&sb, "  %s\n", strings.Join(cells, " "))
	}

	if _, err := io.WriteString(d.out, sb.String()); err != nil {
		return fmt.Errorf("dmx sim write: %w", err)
	}
	return nil
}

// Close implements engine.Sink.
func (d *DMX) Close() error {
	return nil
}
