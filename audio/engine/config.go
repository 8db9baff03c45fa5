package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nooploop/piejam-sub003/audio/device"
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/fx"
	"github.com/nooploop/piejam-sub003/audio/midi"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// ErrInvalidConfig is returned by New for an unusable configuration.
var ErrInvalidConfig = errors.New("engine: invalid config")

// Config holds the settings fixed for the lifetime of an engine. Changing
// any device setting requires a new engine.
type Config struct {
	Device device.Config

	// Workers is the number of worker goroutines helping the audio thread.
	// Zero runs every block sequentially on the audio thread.
	Workers int
	// EventMemory is the event arena size per participating goroutine.
	EventMemory int

	PanLaw processor.PanLaw
	// Smoothing is the ramp length of volume, pan and mute changes.
	Smoothing int
	// MeterRelease is the peak meter release time in seconds.
	MeterRelease float64
	// RMSWindow is the RMS meter window in seconds, 0 to disable RMS
	// metering.
	RMSWindow float64
	// ClipOutput hard-limits every device output to [-1, 1].
	ClipOutput bool

	Logger     *slog.Logger
	Registerer prometheus.Registerer
	Registry   *fx.Registry
	MIDI       *midi.Input
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns a stereo 48 kHz setup with a small worker pool.
func DefaultConfig() Config {
	return Config{
		Device: device.Config{
			SampleRate:     48000,
			PeriodSize:     256,
			InputChannels:  2,
			OutputChannels: 2,
		},
		Workers:      max(runtime.NumCPU()-1, 0),
		EventMemory:  event.DefaultArenaSize,
		PanLaw:       processor.EqualPower,
		Smoothing:    processor.DefaultSmoothingSteps,
		MeterRelease: 0.3,
		RMSWindow:    0.4,
	}
}

// WithSampleRate sets the device sample rate.
func WithSampleRate(sampleRate int) Option {
	return func(cfg *Config) {
		if sampleRate > 0 {
			cfg.Device.SampleRate = sampleRate
		}
	}
}

// WithPeriodSize sets the device period size in frames.
func WithPeriodSize(frames int) Option {
	return func(cfg *Config) {
		if frames > 0 {
			cfg.Device.PeriodSize = frames
		}
	}
}

// WithChannels sets the device capture and playback channel counts.
func WithChannels(in, out int) Option {
	return func(cfg *Config) {
		cfg.Device.InputChannels = max(in, 0)
		cfg.Device.OutputChannels = max(out, 0)
	}
}

// WithWorkers sets the worker pool size.
func WithWorkers(n int) Option {
	return func(cfg *Config) { cfg.Workers = max(n, 0) }
}

// WithEventMemory sets the per-goroutine event arena size in bytes.
func WithEventMemory(bytes int) Option {
	return func(cfg *Config) {
		if bytes > 0 {
			cfg.EventMemory = bytes
		}
	}
}

// WithPanLaw selects the pan and balance law.
func WithPanLaw(law processor.PanLaw) Option {
	return func(cfg *Config) { cfg.PanLaw = law }
}

// WithSmoothing sets the parameter smoothing length in frames.
func WithSmoothing(frames int) Option {
	return func(cfg *Config) { cfg.Smoothing = max(frames, 0) }
}

// WithMeterRelease sets the meter release time in seconds.
func WithMeterRelease(seconds float64) Option {
	return func(cfg *Config) {
		if seconds > 0 {
			cfg.MeterRelease = seconds
		}
	}
}

// WithRMSWindow sets the RMS meter window in seconds. Zero disables RMS
// metering.
func WithRMSWindow(seconds float64) Option {
	return func(cfg *Config) { cfg.RMSWindow = max(seconds, 0) }
}

// WithOutputClip enables hard clipping of the device outputs.
func WithOutputClip(on bool) Option {
	return func(cfg *Config) { cfg.ClipOutput = on }
}

// WithLogger sets the logger. The audio thread never logs.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *Config) { cfg.Logger = logger }
}

// WithRegisterer exports engine and device metrics to reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(cfg *Config) { cfg.Registerer = reg }
}

// WithRegistry sets the fx module registry.
func WithRegistry(r *fx.Registry) Option {
	return func(cfg *Config) { cfg.Registry = r }
}

// WithMIDI connects a MIDI input.
func WithMIDI(in *midi.Input) Option {
	return func(cfg *Config) { cfg.MIDI = in }
}

// ApplyOptions applies zero or more options to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	return cfg
}

// rmsFrames returns the RMS window in frames.
func (cfg Config) rmsFrames() int {
	return int(math.Round(cfg.RMSWindow * float64(cfg.Device.SampleRate)))
}

func (cfg Config) validate() error {
	d := cfg.Device

	switch {
	case d.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, d.SampleRate)
	case d.PeriodSize <= 0:
		return fmt.Errorf("%w: period size %d", ErrInvalidConfig, d.PeriodSize)
	case d.InputChannels < 0 || d.OutputChannels < 0:
		return fmt.Errorf("%w: %d inputs, %d outputs", ErrInvalidConfig, d.InputChannels, d.OutputChannels)
	}

	return nil
}
