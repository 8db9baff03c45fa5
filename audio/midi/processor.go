package midi

import (
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// Binding is a resolved assignment: the controller, its target and the slot
// of the target parameter. Exactly one of the slots is set.
type Binding struct {
	Source Source
	Target Target

	Float *param.Slot[float64]
	Int   *param.Slot[int]
	Bool  *param.Slot[bool]
}

// Processor drains the MIDI input on the audio thread and emits one event
// output per binding, at offset 0 of the block following the message.
type Processor struct {
	input    *Input
	bindings []Binding
	index    map[Source]int
	ports    []event.Port
}

var _ processor.Processor = (*Processor)(nil)

// NewProcessor returns a processor for bindings.
func NewProcessor(input *Input, bindings []Binding) *Processor {
	p := &Processor{input: input, bindings: bindings, index: make(map[Source]int, len(bindings))}

	for i, b := range bindings {
		p.index[b.Source] = i

		kind := event.KindFloat

		switch {
		case b.Int != nil:
			kind = event.KindInt
		case b.Bool != nil:
			kind = event.KindBool
		}

		p.ports = append(p.ports, event.Port{Name: b.Source.String(), Kind: kind})
	}

	return p
}

func (p *Processor) TypeName() string { return "midi_input" }

func (p *Processor) Name() string { return "midi" }

func (p *Processor) NumInputs() int { return 0 }

func (p *Processor) NumOutputs() int { return 0 }

func (p *Processor) EventInputs() []event.Port { return nil }

func (p *Processor) EventOutputs() []event.Port { return p.ports }

func (p *Processor) Process(ctx *processor.Context) {
	for {
		ev, ok := p.input.events.Pop()
		if !ok {
			return
		}

		if t := p.input.learning.Load(); t != nil && p.input.learning.CompareAndSwap(t, nil) {
			p.input.learned.Push(Learned{Source: ev.Source, Target: *t})
			continue
		}

		i, ok := p.index[ev.Source]
		if !ok {
			continue
		}

		b := &p.bindings[i]
		n := ev.Normalized()
		out := ctx.EventOutputs[i]

		var mapped bool

		switch {
		case b.Float != nil:
			mapped = emit(out.Float(), b.Float, n)
		case b.Int != nil:
			mapped = emit(out.Int(), b.Int, n)
		case b.Bool != nil:
			mapped = emit(out.Bool(), b.Bool, n)
		}

		if mapped {
			p.input.feedback.Push(Feedback{Target: b.Target, Normalized: n})
		}
	}
}

// emit inserts the value of slot at normalized position n. Parameters
// without a normalized mapping are left alone.
func emit[T event.Value](out *event.Buffer[T], slot *param.Slot[T], n float64) bool {
	from := slot.Descriptor().FromNormalized
	if from == nil {
		return false
	}

	out.Insert(0, from(n))

	return true
}
