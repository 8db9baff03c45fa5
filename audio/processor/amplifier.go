package processor

import (
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// Amplifier scales its input by a gain that is updated by float events.
// Without events the output is a single Scale over the whole block, so
// constant inputs stay constant.
type Amplifier struct {
	ports

	gain float64
}

// NewAmplifier returns an amplifier starting at gain.
func NewAmplifier(name string, gain float64) *Amplifier {
	return &Amplifier{
		ports: ports{
			typeName:    "amplifier",
			name:        name,
			numInputs:   1,
			numOutputs:  1,
			eventInputs: []event.Port{event.FloatPort("gain")},
		},
		gain: gain,
	}
}

// Gain returns the current gain.
func (p *Amplifier) Gain() float64 { return p.gain }

func (p *Amplifier) Process(ctx *Context) {
	ProcessSingleEventInput[float64](ctx, ctx.EventInputs[0].Float(), p)
}

func (p *Amplifier) ProcessWithoutEvents(ctx *Context) {
	ctx.Results[0] = slice.Scale(ctx.Inputs[0], p.gain, ctx.Out(0))
}

func (p *Amplifier) ProcessWithStartingEvent(ctx *Context, ev event.Event[float64]) {
	p.gain = ev.Value
	p.ProcessWithoutEvents(ctx)
}

func (p *Amplifier) ProcessEventSlice(ctx *Context, from int, ev event.Event[float64]) {
	p.render(ctx, from, ev.Offset)
	p.gain = ev.Value
}

func (p *Amplifier) ProcessFinalSlice(ctx *Context, from int) {
	p.render(ctx, from, ctx.BufferSize)
	ctx.Results[0] = slice.Span(ctx.Out(0))
}

func (p *Amplifier) render(ctx *Context, from, to int) {
	in := ctx.Inputs[0]
	out := ctx.Outputs[0]

	for i := from; i < to; i++ {
		out[i] = in.At(i) * p.gain
	}
}
