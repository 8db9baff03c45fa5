package processor

import (
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/param"
)

// Parameter bridges a parameter slot into the event graph. Each block it
// loads the latest snapshot and emits its value at offset 0 when the
// snapshot changed. Events arriving on the override input, e.g. from a MIDI
// controller, are forwarded instead and take precedence for that block.
type Parameter[T event.Value] struct {
	ports

	slot *param.Slot[T]
	last *T
}

// NewParameter returns a processor publishing slot.
func NewParameter[T event.Value](name string, slot *param.Slot[T]) *Parameter[T] {
	kind := event.KindOf[T]()

	return &Parameter[T]{
		ports: ports{
			typeName:     "parameter",
			name:         name,
			eventInputs:  []event.Port{{Name: "override", Kind: kind}},
			eventOutputs: []event.Port{{Name: "value", Kind: kind}},
		},
		slot: slot,
	}
}

// Slot returns the published parameter.
func (p *Parameter[T]) Slot() *param.Slot[T] { return p.slot }

func (p *Parameter[T]) Process(ctx *Context) {
	out := event.BufferOf[T](ctx.EventOutputs[0])
	snap := p.slot.Snapshot()

	if override := event.BufferOf[T](ctx.EventInputs[0]); !override.Empty() {
		out.CopyFrom(override)
		p.last = snap

		return
	}

	if snap != p.last {
		out.Insert(0, *snap)
		p.last = snap
	}
}
