// Package sim renders lighting frames to the console, so the pixel and DMX
// data flow can be inspected without any hardware attached.
package sim

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine"
)

// luminanceRamp maps brightness to glyphs, darkest first.
const luminanceRamp = " .:-=+*#%@"

// maxStripWidth limits the rendered strip to a sane console width.
const maxStripWidth = 128

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	stateStyle  = lipgloss.NewStyle().Faint(true)
)

// Pixel is a console pixel-strip simulator implementing engine.Sink.
type Pixel struct {
	out io.Writer
}

// NewPixel creates a simulator writing to stdout.
func NewPixel() *Pixel {
	return &Pixel{out: os.Stdout}
}

// NewPixelWriter creates a simulator writing to w. Used in tests.
func NewPixelWriter(w io.Writer) *Pixel {
	return &Pixel{out: w}
}

// Accept implements engine.Sink: it prints a summary line and a one-line
// strip rendering of the frame.
func (p *Pixel) Accept(frame *engine.LightingFrame) error {
	pixelCount := len(frame.Pixels) / 3

	header := headerStyle.Render(fmt.Sprintf("[PIXEL] seq=%d mode=%s pixels=%d", frame.Seq, frame.Mode, pixelCount))
	state := stateStyle.Render(frame.State.String())

	if _, err := fmt.Fprintf(p.out, "%s %s\n%s\n", header, state, renderStrip(frame.Pixels)); err != nil {
		return fmt.Errorf("pixel sim write: %w", err)
	}
	return nil
}

// Close implements engine.Sink.
func (p *Pixel) Close() error {
	return nil
}

// renderStrip maps the pixel payload to a glyph strip, colored by the frame's
// average color. Wide strips are decimated to fit the console.
func renderStrip(pixels []byte) string {
	pixelCount := len(pixels) / 3
	if pixelCount == 0 {
		return ""
	}

	step := max(1, pixelCount/maxStripWidth)

	var sumR, sumG, sumB int
	glyphs := make([]byte, 0, pixelCount/step+1)
	for i := 0; i < pixelCount; i += step {
		r := pixels[i*3]
		g := pixels[i*3+1]
		b := pixels[i*3+2]
		sumR += int(r)
		sumG += int(g)
		sumB += int(b)
		glyphs = append(glyphs, luminanceChar(r, g, b))
	}

	n := len(glyphs)
	avg := lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", sumR/n, sumG/n, sumB/n))
	return lipgloss.NewStyle().Foreground(avg).Render(string(glyphs))
}

// luminanceChar maps one pixel's perceived brightness to a ramp glyph.
func luminanceChar(r, g, b byte) byte {
	lum := 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(b)
	idx := int(lum / 255.0 * float64(len(luminanceRamp)-1))
	return luminanceRamp[idx]
}
