package fx

import (
	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
)

// DefaultStreamFrames is the capacity of the stream of scope and spectrum
// modules.
const DefaultStreamFrames = 8192

type registryConfig struct {
	streamFrames int
	plugins      map[string]Plugin
}

// RegistryOption configures the default registry.
type RegistryOption func(*registryConfig)

// WithStreamFrames sets the stream capacity of scope and spectrum modules.
func WithStreamFrames(frames int) RegistryOption {
	return func(c *registryConfig) { c.streamFrames = frames }
}

// WithPlugin registers a third-party plugin under moduleType.
func WithPlugin(moduleType string, p Plugin) RegistryOption {
	return func(c *registryConfig) { c.plugins[moduleType] = p }
}

var (
	gainParams = []ParamSpec{{Name: "gain", Default: 0, Min: -60, Max: 24}}

	filterParams = []ParamSpec{
		{Name: "freq", Default: 1000, Min: 20, Max: 20000},
		{Name: "q", Default: 0.707, Min: 0.1, Max: 10},
	}

	compressorParams = []ParamSpec{
		{Name: "threshold", Default: -20, Min: -60, Max: 0},
		{Name: "ratio", Default: 4, Min: 1, Max: 20},
		{Name: "knee", Default: 6, Min: 0, Max: 24},
		{Name: "attack", Default: 10, Min: 0.1, Max: 1000},
		{Name: "release", Default: 100, Min: 1, Max: 5000},
		{Name: "makeup", Default: 0, Min: 0, Max: 24},
	}

	gateParams = []ParamSpec{
		{Name: "threshold", Default: -40, Min: -80, Max: 0},
		{Name: "attack", Default: 1, Min: 0.1, Max: 1000},
		{Name: "hold", Default: 50, Min: 0, Max: 5000},
		{Name: "release", Default: 100, Min: 1, Max: 5000},
		{Name: "range", Default: -80, Min: -120, Max: 0},
	}

	delayParams = []ParamSpec{
		{Name: "time", Default: 0.25, Min: 0.001, Max: 2},
		{Name: "feedback", Default: 0.35, Min: 0, Max: 0.99},
		{Name: "mix", Default: 0.25, Min: 0, Max: 1},
	}

	reverbParams = []ParamSpec{
		{Name: "wet", Default: 0.22, Min: 0, Max: 1.5},
		{Name: "dry", Default: 1, Min: 0, Max: 1.5},
		{Name: "room_size", Default: 0.72, Min: 0, Max: 0.98},
		{Name: "damp", Default: 0.45, Min: 0, Max: 0.99},
	}
)

// DefaultRegistry returns a Registry pre-populated with all built-in module
// types.
func DefaultRegistry(opts ...RegistryOption) *Registry {
	cfg := &registryConfig{streamFrames: DefaultStreamFrames, plugins: make(map[string]Plugin)}
	for _, opt := range opts {
		opt(cfg)
	}

	r := NewRegistry()

	register := func(moduleType string, specs []ParamSpec, factory Factory) {
		r.MustRegister(moduleType, Definition{Params: specs, Build: RuntimeModule(moduleType, specs, factory)})
	}

	register("gain", gainParams, func(_ Context) (Runtime, error) {
		return &gainRuntime{}, nil
	})
	register("filter-lowpass", filterParams, func(_ Context) (Runtime, error) {
		return newFilterRuntime(false), nil
	})
	register("filter-highpass", filterParams, func(_ Context) (Runtime, error) {
		return newFilterRuntime(true), nil
	})
	register("compressor", compressorParams, func(ctx Context) (Runtime, error) {
		fx, err := dynamics.NewCompressor(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &compressorRuntime{fx: fx}, nil
	})
	register("gate", gateParams, func(ctx Context) (Runtime, error) {
		fx, err := dynamics.NewGate(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &gateRuntime{fx: fx}, nil
	})
	register("delay", delayParams, func(ctx Context) (Runtime, error) {
		fx, err := effects.NewDelay(ctx.SampleRate)
		if err != nil {
			return nil, err
		}

		return &delayRuntime{fx: fx}, nil
	})
	register("reverb", reverbParams, func(_ Context) (Runtime, error) {
		return &reverbRuntime{fx: effects.NewReverb()}, nil
	})

	r.MustRegister("scope", Definition{StreamFrames: cfg.streamFrames, Build: buildTap})
	r.MustRegister("spectrum", Definition{StreamFrames: cfg.streamFrames, Build: buildTap})

	for moduleType, p := range cfg.plugins {
		r.MustRegister(moduleType, PluginDefinition(moduleType, p))
	}

	return r
}
