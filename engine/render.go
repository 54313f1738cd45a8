package engine

import (
	"time"

	"github.com/daesuck/AI-Audio-Responsive-Production/engine/config"
)

// LightingFrame is the rendered output of one tick: RGB channel values, a
// strictly increasing sequence number and the supervisor state that produced
// it. Not mutated after creation.
type LightingFrame struct {
	Seq    uint64
	At     time.Time
	Mode   Mode
	State  SupervisorState
	Pixels []byte // RGB triples, len = 3 * pixel count
}

// Sink accepts rendered frames. Implementations must be bounded-latency: a
// slow destination may drop frames but must not block the caller. Accept
// failures are never fatal to the engine loop.
type Sink interface {
	Accept(frame *LightingFrame) error
	Close() error
}

// How long an event keeps shaping the output after it fired.
const overlayDuration = 300 * time.Millisecond

// Base brightness per mode while the supervisor is NORMAL.
const (
	idleIntensity      = 0.3
	speechIntensity    = 0.7
	musicIntensity     = 0.7
	highlightIntensity = 1.0
	dropIntensity      = 0.3
)

// Ambient preset base color (warm incandescent), scaled by the supervisor
// intensity when degraded.
var ambientBase = [3]byte{255, 147, 41}

// FrameRenderer maps (mode, events, supervisor state) to exactly one
// LightingFrame per tick. Rendering is a pure mapping except for the frozen
// last-good frame that LAST_HOLD replays and the sequence counter.
type FrameRenderer struct {
	pixelCount int

	seq          uint64
	lastGood     []byte
	overlayKind  EventKind
	overlayUntil time.Time
}

// NewFrameRenderer creates a renderer for the configured pixel count.
func NewFrameRenderer(cfg config.RenderConfig) *FrameRenderer {
	return &FrameRenderer{
		pixelCount: cfg.PixelCount,
	}
}

// Render produces the frame for one tick. event may be nil. supIntensity is
// the supervisor's brightness multiplier for degraded states.
func (fr *FrameRenderer) Render(mode Mode, event *Event, state SupervisorState, supIntensity float64, now time.Time) *LightingFrame {
	fr.seq++

	frame := &LightingFrame{
		Seq:   fr.seq,
		At:    now,
		Mode:  mode,
		State: state,
	}

	switch state {
	case StateNormal:
		frame.Pixels = fr.renderLive(mode, event, now)
		fr.lastGood = append(fr.lastGood[:0], frame.Pixels...)

	case StateLastHold:
		if len(fr.lastGood) > 0 {
			frame.Pixels = append([]byte(nil), fr.lastGood...)
		} else {
			// Degraded before anything good was rendered: fall back to the
			// ambient preset rather than going dark.
			frame.Pixels = fr.AmbientPreset(supIntensity)
		}

	case StateDimAmbient, StateDimBlack:
		frame.Pixels = fr.AmbientPreset(supIntensity)

	default:
		frame.Pixels = fr.AmbientPreset(0)
	}

	return frame
}

// renderLive builds the live frame: mode palette, then event overlay.
func (fr *FrameRenderer) renderLive(mode Mode, event *Event, now time.Time) []byte {
	if event != nil {
		fr.overlayKind = event.Kind
		fr.overlayUntil = now.Add(overlayDuration)
	}
	overlayActive := mode == ModeMusic && now.Before(fr.overlayUntil)

	intensity := idleIntensity
	switch mode {
	case ModeSpeech:
		intensity = speechIntensity
	case ModeMusic:
		intensity = musicIntensity
		if overlayActive {
			if fr.overlayKind == EventHighlight {
				intensity = highlightIntensity
			} else {
				intensity = dropIntensity
			}
		}
	}

	pixels := fr.basePalette(mode)
	if overlayActive {
		if fr.overlayKind == EventHighlight {
			whiten(pixels, 0.35)
		} else {
			blueWash(pixels, 0.5)
		}
	}
	scalePixels(pixels, intensity)

	return pixels
}

// basePalette generates the per-mode color gradient across the strip.
func (fr *FrameRenderer) basePalette(mode Mode) []byte {
	pixels := make([]byte, fr.pixelCount*3)

	for i := range fr.pixelCount {
		t := 0
		if fr.pixelCount > 1 {
			t = i * 255 / (fr.pixelCount - 1)
		}

		var r, g, b int
		switch mode {
		case ModeMusic:
			r, g, b = t, 0, 0
		case ModeSpeech:
			r, g, b = 0, t, 0
		default: // IDLE
			r, g, b = t, 255-t, (t*2)&255
		}

		pixels[i*3] = byte(r)
		pixels[i*3+1] = byte(g)
		pixels[i*3+2] = byte(b)
	}

	return pixels
}

// AmbientPreset returns the uniform ambient frame at the given intensity.
func (fr *FrameRenderer) AmbientPreset(intensity float64) []byte {
	pixels := make([]byte, fr.pixelCount*3)
	for i := range fr.pixelCount {
		pixels[i*3] = ambientBase[0]
		pixels[i*3+1] = ambientBase[1]
		pixels[i*3+2] = ambientBase[2]
	}
	scalePixels(pixels, intensity)
	return pixels
}

// Seq returns the sequence number of the most recently rendered frame.
func (fr *FrameRenderer) Seq() uint64 {
	return fr.seq
}

func scalePixels(pixels []byte, intensity float64) {
	if intensity >= 1.0 {
		return
	}
	if intensity < 0 {
		intensity = 0
	}
	for i := range pixels {
		pixels[i] = byte(float64(pixels[i]) * intensity)
	}
}

// whiten pulls every channel toward full white by the given amount (0..1).
func whiten(pixels []byte, amount float64) {
	for i := range pixels {
		v := float64(pixels[i])
		pixels[i] = byte(v + (255-v)*amount)
	}
}

// blueWash pulls the blue channel up while keeping red/green, giving the
// drop its contrasting cast.
func blueWash(pixels []byte, amount float64) {
	for i := 2; i < len(pixels); i += 3 {
		v := float64(pixels[i])
		pixels[i] = byte(v + (255-v)*amount)
	}
}
