package processor

import (
	"math"
	"sync/atomic"

	vecmath "github.com/cwbudde/algo-vecmath"

	"github.com/nooploop/piejam-sub003/audio/slice"
)

const denormalFloor = 1e-30

// atomicFloat publishes a float64 from the audio thread to readers.
type atomicFloat struct {
	bits atomic.Uint64
}

func (f *atomicFloat) Load() float64   { return math.Float64frombits(f.bits.Load()) }
func (f *atomicFloat) Store(v float64) { f.bits.Store(math.Float64bits(v)) }

// PeakMeter follows the absolute peak of its input with instant attack and
// exponential release. The level is readable from any goroutine.
type PeakMeter struct {
	ports

	decay float64
	level float64
	out   atomicFloat
}

// NewPeakMeter returns a meter whose level falls by 1/e every release
// seconds at sampleRate.
func NewPeakMeter(name string, sampleRate, release float64) *PeakMeter {
	decay := 0.0
	if release > 0 && sampleRate > 0 {
		decay = math.Exp(-1 / (release * sampleRate))
	}

	return &PeakMeter{
		ports: ports{typeName: "peak_meter", name: name, numInputs: 1},
		decay: decay,
	}
}

// Level returns the most recently published peak level.
func (p *PeakMeter) Level() float64 { return p.out.Load() }

func (p *PeakMeter) Process(ctx *Context) {
	in := ctx.Inputs[0]
	level := p.level

	if in.IsConstant() {
		level = max(math.Abs(in.Value()), level*math.Pow(p.decay, float64(ctx.BufferSize)))
	} else {
		for _, x := range in.Samples()[:ctx.BufferSize] {
			level = max(math.Abs(x), level*p.decay)
		}
	}

	if level < denormalFloor {
		level = 0
	}

	p.level = level
	p.out.Store(level)
}

// RMSMeter computes the root mean square of the last window frames.
type RMSMeter struct {
	ports

	history    []float64
	pos        int
	vectorized bool
	out        atomicFloat
}

// NewRMSMeter returns an RMS meter over window frames. When vectorized is
// set the sum of squares is computed with a SIMD dot product.
func NewRMSMeter(name string, window int, vectorized bool) *RMSMeter {
	return &RMSMeter{
		ports:      ports{typeName: "rms_meter", name: name, numInputs: 1},
		history:    make([]float64, max(window, 1)),
		vectorized: vectorized,
	}
}

// Level returns the most recently published RMS level.
func (p *RMSMeter) Level() float64 { return p.out.Load() }

func (p *RMSMeter) Process(ctx *Context) {
	p.push(ctx.Inputs[0], ctx.BufferSize)

	var sum float64
	if p.vectorized {
		sum = vecmath.DotProduct(p.history, p.history)
	} else {
		for _, x := range p.history {
			sum += x * x
		}
	}

	p.out.Store(math.Sqrt(sum / float64(len(p.history))))
}

func (p *RMSMeter) push(in slice.Slice, n int) {
	w := len(p.history)

	if n >= w {
		in.Sub(n-w, n).CopyTo(p.history)
		p.pos = 0

		return
	}

	for i := range n {
		p.history[p.pos] = in.At(i)

		p.pos++
		if p.pos == w {
			p.pos = 0
		}
	}
}
