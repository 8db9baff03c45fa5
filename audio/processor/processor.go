// Package processor defines the unit of computation of the audio engine and
// the built-in processors.
//
// A Processor consumes audio slices and control events and produces audio
// slices and control events for one block. Implementations may keep state
// between blocks but must not allocate, lock or block inside Process.
package processor

import (
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// Processor is one schedulable unit of audio and event computation.
type Processor interface {
	// TypeName identifies the kind of processor, e.g. "mix".
	TypeName() string
	// Name is a diagnostic label for the instance.
	Name() string

	NumInputs() int
	NumOutputs() int
	EventInputs() []event.Port
	EventOutputs() []event.Port

	// Process computes one block. It must read NumInputs slices and the
	// declared event inputs from ctx and write NumOutputs results and the
	// declared event outputs.
	Process(ctx *Context)
}

// Context carries the data of one Process call.
type Context struct {
	// Inputs holds one slice per audio input. Unconnected inputs are silence.
	Inputs []slice.Slice
	// Outputs holds one scratch buffer per audio output. Only the first
	// BufferSize frames may be used.
	Outputs [][]float64
	// Results receives one slice per audio output: either a forwarded
	// input, a constant, or a span over the matching Outputs buffer.
	Results []slice.Slice

	EventInputs  []*event.Slot
	EventOutputs []*event.Slot

	BufferSize int
}

// Out returns the scratch buffer of output i trimmed to the block size.
func (ctx *Context) Out(i int) []float64 {
	return ctx.Outputs[i][:ctx.BufferSize]
}

// ports is embedded by built-in processors to answer the descriptive part
// of the Processor interface.
type ports struct {
	typeName     string
	name         string
	numInputs    int
	numOutputs   int
	eventInputs  []event.Port
	eventOutputs []event.Port
}

func (p *ports) TypeName() string { return p.typeName }

func (p *ports) Name() string { return p.name }

func (p *ports) NumInputs() int { return p.numInputs }

func (p *ports) NumOutputs() int { return p.numOutputs }

func (p *ports) EventInputs() []event.Port { return p.eventInputs }

func (p *ports) EventOutputs() []event.Port { return p.eventOutputs }
