package fx

import (
	"fmt"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-dsp/dsp/effects"
	"github.com/cwbudde/algo-dsp/dsp/effects/dynamics"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
)

type gainRuntime struct {
	gain float64
}

func (r *gainRuntime) Configure(_ Context, p Params) error {
	r.gain = core.DBToLinear(core.Clamp(p.GetNum("gain", 0), -60, 24))
	return nil
}

func (r *gainRuntime) Process(block []float64) {
	vecmath.ScaleBlockInPlace(block, r.gain)
}

type filterRuntime struct {
	highpass bool
	fx       *biquad.Chain
	coeffs   [1]biquad.Coefficients
}

func newFilterRuntime(highpass bool) *filterRuntime {
	r := &filterRuntime{highpass: highpass}
	r.coeffs[0] = biquad.Coefficients{B0: 1}
	r.fx = biquad.NewChain(r.coeffs[:])

	return r
}

func (r *filterRuntime) Configure(ctx Context, p Params) error {
	freq := core.Clamp(p.GetNum("freq", 1000), 20, ctx.SampleRate*0.49)
	q := core.Clamp(p.GetNum("q", 0.707), 0.1, 10)

	if r.highpass {
		r.coeffs[0] = design.Highpass(freq, q, ctx.SampleRate)
	} else {
		r.coeffs[0] = design.Lowpass(freq, q, ctx.SampleRate)
	}

	r.fx.UpdateCoefficients(r.coeffs[:], 1)

	return nil
}

func (r *filterRuntime) Process(block []float64) {
	r.fx.ProcessBlock(block)
}

type compressorRuntime struct {
	fx *dynamics.Compressor
}

func (r *compressorRuntime) Configure(_ Context, p Params) error {
	err := r.fx.SetThreshold(core.Clamp(p.GetNum("threshold", -20), -60, 0))
	if err != nil {
		return fmt.Errorf("fx: configure compressor threshold: %w", err)
	}

	err = r.fx.SetRatio(core.Clamp(p.GetNum("ratio", 4), 1, 100))
	if err != nil {
		return fmt.Errorf("fx: configure compressor ratio: %w", err)
	}

	err = r.fx.SetKnee(core.Clamp(p.GetNum("knee", 6), 0, 24))
	if err != nil {
		return fmt.Errorf("fx: configure compressor knee: %w", err)
	}

	err = r.fx.SetAttack(core.Clamp(p.GetNum("attack", 10), 0.1, 1000))
	if err != nil {
		return fmt.Errorf("fx: configure compressor attack: %w", err)
	}

	err = r.fx.SetRelease(core.Clamp(p.GetNum("release", 100), 1, 5000))
	if err != nil {
		return fmt.Errorf("fx: configure compressor release: %w", err)
	}

	err = r.fx.SetMakeupGain(core.Clamp(p.GetNum("makeup", 0), 0, 24))
	if err != nil {
		return fmt.Errorf("fx: configure compressor makeup gain: %w", err)
	}

	return nil
}

func (r *compressorRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

type gateRuntime struct {
	fx *dynamics.Gate
}

func (r *gateRuntime) Configure(_ Context, p Params) error {
	err := r.fx.SetThreshold(core.Clamp(p.GetNum("threshold", -40), -80, 0))
	if err != nil {
		return fmt.Errorf("fx: configure gate threshold: %w", err)
	}

	err = r.fx.SetAttack(core.Clamp(p.GetNum("attack", 1), 0.1, 1000))
	if err != nil {
		return fmt.Errorf("fx: configure gate attack: %w", err)
	}

	err = r.fx.SetHold(core.Clamp(p.GetNum("hold", 50), 0, 5000))
	if err != nil {
		return fmt.Errorf("fx: configure gate hold: %w", err)
	}

	err = r.fx.SetRelease(core.Clamp(p.GetNum("release", 100), 1, 5000))
	if err != nil {
		return fmt.Errorf("fx: configure gate release: %w", err)
	}

	err = r.fx.SetRange(core.Clamp(p.GetNum("range", -80), -120, 0))
	if err != nil {
		return fmt.Errorf("fx: configure gate range: %w", err)
	}

	return nil
}

func (r *gateRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

type delayRuntime struct {
	fx *effects.Delay
}

func (r *delayRuntime) Configure(_ Context, p Params) error {
	err := r.fx.SetTime(core.Clamp(p.GetNum("time", 0.25), 0.001, 2))
	if err != nil {
		return fmt.Errorf("fx: configure delay time: %w", err)
	}

	err = r.fx.SetFeedback(core.Clamp(p.GetNum("feedback", 0.35), 0, 0.99))
	if err != nil {
		return fmt.Errorf("fx: configure delay feedback: %w", err)
	}

	err = r.fx.SetMix(core.Clamp(p.GetNum("mix", 0.25), 0, 1))
	if err != nil {
		return fmt.Errorf("fx: configure delay mix: %w", err)
	}

	return nil
}

func (r *delayRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}

type reverbRuntime struct {
	fx *effects.Reverb
}

func (r *reverbRuntime) Configure(_ Context, p Params) error {
	r.fx.SetWet(core.Clamp(p.GetNum("wet", 0.22), 0, 1.5))
	r.fx.SetDry(core.Clamp(p.GetNum("dry", 1), 0, 1.5))
	r.fx.SetRoomSize(core.Clamp(p.GetNum("room_size", 0.72), 0, 0.98))
	r.fx.SetDamp(core.Clamp(p.GetNum("damp", 0.45), 0, 0.99))

	return nil
}

func (r *reverbRuntime) Process(block []float64) {
	r.fx.ProcessInPlace(block)
}
