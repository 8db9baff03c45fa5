package processor

import (
	"testing"

	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// harness owns the buffers needed to run a single processor in isolation.
type harness struct {
	proc  Processor
	arena *event.Arena
	ctx   *Context
}

func newHarness(t *testing.T, p Processor, bufferSize int) *harness {
	t.Helper()

	h := &harness{proc: p, arena: event.NewArena(event.DefaultArenaSize)}
	h.ctx = &Context{
		Inputs:     make([]slice.Slice, p.NumInputs()),
		Outputs:    make([][]float64, p.NumOutputs()),
		Results:    make([]slice.Slice, p.NumOutputs()),
		BufferSize: bufferSize,
	}

	for i := range h.ctx.Outputs {
		h.ctx.Outputs[i] = make([]float64, bufferSize)
	}

	for _, port := range p.EventInputs() {
		h.ctx.EventInputs = append(h.ctx.EventInputs, event.NewSlot(port.Kind))
	}

	for _, port := range p.EventOutputs() {
		h.ctx.EventOutputs = append(h.ctx.EventOutputs, event.NewSlot(port.Kind))
	}

	h.reset()

	return h
}

func (h *harness) reset() {
	h.arena.Reset()

	for _, s := range h.ctx.EventInputs {
		s.Reset(h.arena, h.ctx.BufferSize)
	}

	for _, s := range h.ctx.EventOutputs {
		s.Reset(h.arena, h.ctx.BufferSize)
	}
}

func (h *harness) run() {
	h.proc.Process(h.ctx)
}

func (h *harness) result(i int) []float64 {
	out := make([]float64, h.ctx.BufferSize)
	h.ctx.Results[i].CopyTo(out)

	return out
}
