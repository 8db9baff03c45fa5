package processor

import (
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// DefaultSmoothingSteps is the ramp length used for parameter changes.
const DefaultSmoothingSteps = 256

// Smoother turns float events into an audio-rate signal that ramps
// linearly to each new target over a fixed number of frames. While no ramp
// is in progress the output is a constant slice.
type Smoother struct {
	ports

	steps     int
	current   float64
	target    float64
	inc       float64
	remaining int
}

// NewSmoother returns a smoother resting at initial that ramps over steps
// frames. steps <= 0 makes changes immediate.
func NewSmoother(name string, initial float64, steps int) *Smoother {
	return &Smoother{
		ports: ports{
			typeName:    "smoother",
			name:        name,
			numOutputs:  1,
			eventInputs: []event.Port{event.FloatPort("target")},
		},
		steps:   steps,
		current: initial,
		target:  initial,
	}
}

// Current returns the value at the end of the last block.
func (p *Smoother) Current() float64 { return p.current }

func (p *Smoother) Process(ctx *Context) {
	ProcessSingleEventInput[float64](ctx, ctx.EventInputs[0].Float(), p)
}

func (p *Smoother) ProcessWithoutEvents(ctx *Context) {
	if p.remaining == 0 {
		ctx.Results[0] = slice.Constant(p.current)
		return
	}

	p.ProcessFinalSlice(ctx, 0)
}

func (p *Smoother) ProcessWithStartingEvent(ctx *Context, ev event.Event[float64]) {
	p.setTarget(ev.Value)
	p.ProcessWithoutEvents(ctx)
}

func (p *Smoother) ProcessEventSlice(ctx *Context, from int, ev event.Event[float64]) {
	p.render(ctx.Outputs[0], from, ev.Offset)
	p.setTarget(ev.Value)
}

func (p *Smoother) ProcessFinalSlice(ctx *Context, from int) {
	p.render(ctx.Outputs[0], from, ctx.BufferSize)
	ctx.Results[0] = slice.Span(ctx.Out(0))
}

func (p *Smoother) setTarget(v float64) {
	p.target = v

	if v == p.current || p.steps <= 0 {
		p.current = v
		p.remaining = 0

		return
	}

	p.inc = (v - p.current) / float64(p.steps)
	p.remaining = p.steps
}

func (p *Smoother) render(out []float64, from, to int) {
	for i := from; i < to; i++ {
		if p.remaining > 0 {
			p.remaining--
			if p.remaining == 0 {
				p.current = p.target
			} else {
				p.current += p.inc
			}
		}

		out[i] = p.current
	}
}
