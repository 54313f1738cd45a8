// Package config holds the tunable parameters of the lighting engine.
//
// Every option has a documented default reachable via [Default]. Validation
// happens once, at load time: a config that passes [Validate] can be trusted
// by the tick loop without further range checks.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML configs can use "250ms" / "1.5s" forms.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full engine configuration.
type Config struct {
	Audio     AudioConfig     `yaml:"audio"`
	Loop      LoopConfig      `yaml:"loop"`
	Mode      ModeConfig      `yaml:"mode"`
	Highlight HighlightConfig `yaml:"highlight"`
	Failsafe  FailsafeConfig  `yaml:"failsafe"`
	Render    RenderConfig    `yaml:"render"`
}

// AudioConfig describes the analysis front end.
type AudioConfig struct {
	// SampleRate is the PCM sample rate the engine expects from its source.
	SampleRate int `yaml:"sample_rate"`

	// MinFreqHz excludes sub-audio bins from band energy. Default 20.
	MinFreqHz float64 `yaml:"min_freq_hz"`

	// LowMaxHz is the upper edge of the low band. Default 300.
	LowMaxHz float64 `yaml:"low_max_hz"`

	// MidMaxHz is the upper edge of the mid band. Default 2000.
	MidMaxHz float64 `yaml:"mid_max_hz"`

	// TransientHistoryFrames is the energy-baseline length for transient
	// scoring, in ticks. Default 30 (one second at 30 fps).
	TransientHistoryFrames int `yaml:"transient_history_frames"`

	// TransientScale is the z-score that saturates the transient score.
	TransientScale float64 `yaml:"transient_scale"`
}

// LoopConfig describes the real-time loop.
type LoopConfig struct {
	// TickRate is the target pipeline rate in frames per second. Default 30.
	TickRate int `yaml:"tick_rate"`

	// QueueDepth bounds the audio frame queue between the capture goroutine
	// and the tick loop. Default 4.
	QueueDepth int `yaml:"queue_depth"`
}

// ModeConfig holds classification thresholds.
type ModeConfig struct {
	// SilenceRMS is the RMS floor below which a frame counts as idle.
	SilenceRMS float64 `yaml:"silence_rms"`

	// SpeechMidRatio is the mid-band proportion above which speech scores.
	SpeechMidRatio float64 `yaml:"speech_mid_ratio"`

	// MusicHighRatio is the high-band proportion above which music scores.
	MusicHighRatio float64 `yaml:"music_high_ratio"`

	// MusicFluxFloor is the spectral flux above which content counts as
	// rhythmically active, favouring music over speech.
	MusicFluxFloor float64 `yaml:"music_flux_floor"`

	// DebounceTicks is the number of consecutive ticks a candidate mode must
	// win before the classifier commits the transition. Default 18
	// (0.6 s at 30 fps).
	DebounceTicks int `yaml:"debounce_ticks"`
}

// HighlightConfig holds highlight/drop detection parameters.
type HighlightConfig struct {
	// UpperThreshold is the score at which a highlight fires.
	UpperThreshold float64 `yaml:"upper_threshold"`

	// LowerThreshold is the score below which a drop fires after a
	// highlight. Must be strictly less than UpperThreshold.
	LowerThreshold float64 `yaml:"lower_threshold"`

	// Hysteresis is the minimum required gap between the thresholds.
	Hysteresis float64 `yaml:"hysteresis"`

	// Cooldown is the minimum wall-clock time between two events of the
	// same kind. Default 300ms.
	Cooldown Duration `yaml:"cooldown"`

	// Score weights. They are normalized by their sum, so only the ratio
	// matters.
	WeightRMS      float64 `yaml:"weight_rms"`
	WeightHighBand float64 `yaml:"weight_high_band"`
	WeightFlux     float64 `yaml:"weight_flux"`

	// RMSNorm and FluxNorm are the values at which the respective raw
	// feature saturates its 0..1 contribution.
	RMSNorm  float64 `yaml:"rms_norm"`
	FluxNorm float64 `yaml:"flux_norm"`
}

// FailsafeConfig holds the degradation timeouts.
type FailsafeConfig struct {
	// FreshnessTimeout is how old the newest feature may be before input
	// counts as stale. Default 250ms.
	FreshnessTimeout Duration `yaml:"freshness_timeout"`

	// HoldTimeout is how long LAST_HOLD freezes the last good frame before
	// dimming to ambient. Default 1.5s.
	HoldTimeout Duration `yaml:"hold_timeout"`

	// AmbientTimeout is how long DIM_AMBIENT lasts before the optional
	// black stage. Default 5s.
	AmbientTimeout Duration `yaml:"ambient_timeout"`

	// BlackTimeout is the fade-to-black duration once DIM_BLACK is entered.
	// Default 15s.
	BlackTimeout Duration `yaml:"black_timeout"`

	// EnableBlack gates the DIM_BLACK stage. Off by default: a stale input
	// then settles at the ambient preset indefinitely.
	EnableBlack bool `yaml:"enable_black"`

	// AmbientIntensity is the brightness multiplier of the ambient preset,
	// 0..1. Default 0.2.
	AmbientIntensity float64 `yaml:"ambient_intensity"`
}

// RenderConfig describes the output frame.
type RenderConfig struct {
	// PixelCount is the number of RGB pixels per frame. Default 64.
	PixelCount int `yaml:"pixel_count"`
}

// Default returns the documented default configuration. The numeric values
// follow the tuning the system shipped with.
func Default() *Config {
	return &Config{
		Audio: AudioConfig{
			SampleRate:             44100,
			MinFreqHz:              20,
			LowMaxHz:               300,
			MidMaxHz:               2000,
			TransientHistoryFrames: 30,
			TransientScale:         3.0,
		},
		Loop: LoopConfig{
			TickRate:   30,
			QueueDepth: 4,
		},
		Mode: ModeConfig{
			SilenceRMS:     1e-4,
			SpeechMidRatio: 0.45,
			MusicHighRatio: 0.30,
			MusicFluxFloor: 0.08,
			DebounceTicks:  18,
		},
		Highlight: HighlightConfig{
			UpperThreshold: 0.65,
			LowerThreshold: 0.25,
			Hysteresis:     0.08,
			Cooldown:       Duration(300 * time.Millisecond),
			WeightRMS:      0.3,
			WeightHighBand: 0.3,
			WeightFlux:     0.4,
			RMSNorm:        0.1,
			FluxNorm:       0.5,
		},
		Failsafe: FailsafeConfig{
			FreshnessTimeout: Duration(250 * time.Millisecond),
			HoldTimeout:      Duration(1500 * time.Millisecond),
			AmbientTimeout:   Duration(5 * time.Second),
			BlackTimeout:     Duration(15 * time.Second),
			EnableBlack:      false,
			AmbientIntensity: 0.2,
		},
		Render: RenderConfig{
			PixelCount: 64,
		},
	}
}

// FrameSamples returns the number of PCM samples one tick consumes.
func (c *Config) FrameSamples() int {
	if c.Loop.TickRate <= 0 {
		return 0
	}
	return max(1, c.Audio.SampleRate/c.Loop.TickRate)
}

// TickPeriod returns the target duration of one tick.
func (c *Config) TickPeriod() time.Duration {
	if c.Loop.TickRate <= 0 {
		return 0
	}
	return time.Second / time.Duration(c.Loop.TickRate)
}

// Load reads the YAML configuration file at path, fills unset sections from
// the defaults and returns a validated [Config].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r on top of the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values. It returns a
// joined error listing all validation failures found. A config rejected here
// never reaches the tick loop.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Audio.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate must be positive, got %d", cfg.Audio.SampleRate))
	}
	if cfg.Audio.MinFreqHz < 0 {
		errs = append(errs, fmt.Errorf("audio.min_freq_hz must not be negative, got %g", cfg.Audio.MinFreqHz))
	}
	if cfg.Audio.LowMaxHz <= cfg.Audio.MinFreqHz {
		errs = append(errs, fmt.Errorf("audio.low_max_hz (%g) must exceed audio.min_freq_hz (%g)", cfg.Audio.LowMaxHz, cfg.Audio.MinFreqHz))
	}
	if cfg.Audio.MidMaxHz <= cfg.Audio.LowMaxHz {
		errs = append(errs, fmt.Errorf("audio.mid_max_hz (%g) must exceed audio.low_max_hz (%g)", cfg.Audio.MidMaxHz, cfg.Audio.LowMaxHz))
	}
	if cfg.Audio.TransientHistoryFrames < 2 {
		errs = append(errs, fmt.Errorf("audio.transient_history_frames must be at least 2, got %d", cfg.Audio.TransientHistoryFrames))
	}
	if cfg.Audio.TransientScale <= 0 {
		errs = append(errs, fmt.Errorf("audio.transient_scale must be positive, got %g", cfg.Audio.TransientScale))
	}

	if cfg.Loop.TickRate <= 0 || cfg.Loop.TickRate > 240 {
		errs = append(errs, fmt.Errorf("loop.tick_rate must be in 1..240, got %d", cfg.Loop.TickRate))
	}
	if cfg.Loop.QueueDepth <= 0 {
		errs = append(errs, fmt.Errorf("loop.queue_depth must be positive, got %d", cfg.Loop.QueueDepth))
	}

	if cfg.Mode.SilenceRMS < 0 {
		errs = append(errs, fmt.Errorf("mode.silence_rms must not be negative, got %g", cfg.Mode.SilenceRMS))
	}
	if cfg.Mode.SpeechMidRatio <= 0 || cfg.Mode.SpeechMidRatio >= 1 {
		errs = append(errs, fmt.Errorf("mode.speech_mid_ratio must be in (0,1), got %g", cfg.Mode.SpeechMidRatio))
	}
	if cfg.Mode.MusicHighRatio <= 0 || cfg.Mode.MusicHighRatio >= 1 {
		errs = append(errs, fmt.Errorf("mode.music_high_ratio must be in (0,1), got %g", cfg.Mode.MusicHighRatio))
	}
	if cfg.Mode.MusicFluxFloor < 0 {
		errs = append(errs, fmt.Errorf("mode.music_flux_floor must not be negative, got %g", cfg.Mode.MusicFluxFloor))
	}
	if cfg.Mode.DebounceTicks < 1 {
		errs = append(errs, fmt.Errorf("mode.debounce_ticks must be at least 1, got %d", cfg.Mode.DebounceTicks))
	}

	if cfg.Highlight.UpperThreshold <= 0 || cfg.Highlight.UpperThreshold > 1 {
		errs = append(errs, fmt.Errorf("highlight.upper_threshold must be in (0,1], got %g", cfg.Highlight.UpperThreshold))
	}
	if cfg.Highlight.LowerThreshold < 0 {
		errs = append(errs, fmt.Errorf("highlight.lower_threshold must not be negative, got %g", cfg.Highlight.LowerThreshold))
	}
	if cfg.Highlight.LowerThreshold >= cfg.Highlight.UpperThreshold {
		errs = append(errs, fmt.Errorf("highlight.lower_threshold (%g) must be below highlight.upper_threshold (%g)", cfg.Highlight.LowerThreshold, cfg.Highlight.UpperThreshold))
	}
	if cfg.Highlight.Hysteresis < 0 {
		errs = append(errs, fmt.Errorf("highlight.hysteresis must not be negative, got %g", cfg.Highlight.Hysteresis))
	}
	if gap := cfg.Highlight.UpperThreshold - cfg.Highlight.LowerThreshold; gap < cfg.Highlight.Hysteresis {
		errs = append(errs, fmt.Errorf("highlight threshold gap (%g) must be at least highlight.hysteresis (%g)", gap, cfg.Highlight.Hysteresis))
	}
	if cfg.Highlight.Cooldown < 0 {
		errs = append(errs, fmt.Errorf("highlight.cooldown must not be negative, got %s", cfg.Highlight.Cooldown.Std()))
	}
	if cfg.Highlight.WeightRMS < 0 || cfg.Highlight.WeightHighBand < 0 || cfg.Highlight.WeightFlux < 0 {
		errs = append(errs, errors.New("highlight weights must not be negative"))
	}
	if cfg.Highlight.WeightRMS+cfg.Highlight.WeightHighBand+cfg.Highlight.WeightFlux <= 0 {
		errs = append(errs, errors.New("at least one highlight weight must be positive"))
	}
	if cfg.Highlight.RMSNorm <= 0 {
		errs = append(errs, fmt.Errorf("highlight.rms_norm must be positive, got %g", cfg.Highlight.RMSNorm))
	}
	if cfg.Highlight.FluxNorm <= 0 {
		errs = append(errs, fmt.Errorf("highlight.flux_norm must be positive, got %g", cfg.Highlight.FluxNorm))
	}

	if cfg.Failsafe.FreshnessTimeout <= 0 {
		errs = append(errs, fmt.Errorf("failsafe.freshness_timeout must be positive, got %s", cfg.Failsafe.FreshnessTimeout.Std()))
	}
	if cfg.Failsafe.HoldTimeout <= 0 {
		errs = append(errs, fmt.Errorf("failsafe.hold_timeout must be positive, got %s", cfg.Failsafe.HoldTimeout.Std()))
	}
	if cfg.Failsafe.AmbientTimeout <= 0 {
		errs = append(errs, fmt.Errorf("failsafe.ambient_timeout must be positive, got %s", cfg.Failsafe.AmbientTimeout.Std()))
	}
	if cfg.Failsafe.EnableBlack && cfg.Failsafe.BlackTimeout <= 0 {
		errs = append(errs, fmt.Errorf("failsafe.black_timeout must be positive when enable_black is set, got %s", cfg.Failsafe.BlackTimeout.Std()))
	}
	if cfg.Failsafe.AmbientIntensity < 0 || cfg.Failsafe.AmbientIntensity > 1 {
		errs = append(errs, fmt.Errorf("failsafe.ambient_intensity must be in [0,1], got %g", cfg.Failsafe.AmbientIntensity))
	}

	if cfg.Render.PixelCount <= 0 || cfg.Render.PixelCount > 1024 {
		errs = append(errs, fmt.Errorf("render.pixel_count must be in 1..1024, got %d", cfg.Render.PixelCount))
	}

	return errors.Join(errs...)
}
