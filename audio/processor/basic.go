package processor

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// Identity forwards its single input unchanged. It is used to give a
// component a stable port when its internal wiring is not yet known and is
// removed by the graph finalizer.
type Identity struct {
	ports
}

// NewIdentity returns an audio identity processor.
func NewIdentity(name string) *Identity {
	return &Identity{ports{typeName: "identity", name: name, numInputs: 1, numOutputs: 1}}
}

func (p *Identity) Process(ctx *Context) {
	ctx.Results[0] = ctx.Inputs[0]
}

// EventIdentity forwards the events of one port unchanged.
type EventIdentity struct {
	ports
}

// NewEventIdentity returns an event identity processor for kind.
func NewEventIdentity(name string, kind event.Kind) *EventIdentity {
	port := []event.Port{{Name: "in", Kind: kind}}

	return &EventIdentity{ports{
		typeName:     "event_identity",
		name:         name,
		eventInputs:  port,
		eventOutputs: []event.Port{{Name: "out", Kind: kind}},
	}}
}

func (p *EventIdentity) Process(ctx *Context) {
	ctx.EventOutputs[0].CopyFrom(ctx.EventInputs[0])
}

// Mix sums its inputs into one output.
type Mix struct {
	ports
}

// NewMix returns a summing processor with n inputs.
func NewMix(name string, n int) *Mix {
	if n < 1 {
		panic(fmt.Sprintf("processor: mix needs at least one input, got %d", n))
	}

	return &Mix{ports{typeName: "mix", name: name, numInputs: n, numOutputs: 1}}
}

func (p *Mix) Process(ctx *Context) {
	out := ctx.Out(0)

	acc := ctx.Inputs[0]
	for _, in := range ctx.Inputs[1:] {
		acc = slice.Add(acc, in, out)
	}

	ctx.Results[0] = acc
}

// Multiply computes the elementwise product of its inputs.
type Multiply struct {
	ports
}

// NewMultiply returns a multiplier with n inputs.
func NewMultiply(name string, n int) *Multiply {
	if n < 1 {
		panic(fmt.Sprintf("processor: multiply needs at least one input, got %d", n))
	}

	return &Multiply{ports{typeName: "multiply", name: name, numInputs: n, numOutputs: 1}}
}

func (p *Multiply) Process(ctx *Context) {
	out := ctx.Out(0)

	acc := ctx.Inputs[0]
	for _, in := range ctx.Inputs[1:] {
		acc = slice.Multiply(acc, in, out)
	}

	ctx.Results[0] = acc
}

// Clip hard-limits its input to [Min, Max].
type Clip struct {
	ports

	min, max float64
}

// NewClip returns a clipper limiting to [lo, hi].
func NewClip(name string, lo, hi float64) *Clip {
	if lo > hi {
		lo, hi = hi, lo
	}

	return &Clip{ports: ports{typeName: "clip", name: name, numInputs: 1, numOutputs: 1}, min: lo, max: hi}
}

func (p *Clip) Process(ctx *Context) {
	ctx.Results[0] = slice.Clip(ctx.Inputs[0], p.min, p.max, ctx.Out(0))
}

// Constant emits a constant signal.
type Constant struct {
	ports

	value float64
}

// NewConstant returns a source producing v on every frame.
func NewConstant(name string, v float64) *Constant {
	return &Constant{ports: ports{typeName: "constant", name: name, numOutputs: 1}, value: v}
}

func (p *Constant) Process(ctx *Context) {
	ctx.Results[0] = slice.Constant(p.value)
}
