package fx

import (
	"math"
	"testing"

	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// slots creates parameter slots initialized to the defaults of specs.
func slots(t *testing.T, specs []ParamSpec) []*param.Slot[float64] {
	t.Helper()

	m := param.NewMap[float64]()
	out := make([]*param.Slot[float64], len(specs))

	for i, spec := range specs {
		s, ok := m.Slot(m.Add(spec.Descriptor()))
		if !ok {
			t.Fatalf("slot %s missing", spec.Name)
		}

		out[i] = s
	}

	return out
}

// runBlock processes one block of p with the given inputs and returns the
// materialized outputs. events maps event input ports to a value delivered
// at offset 0.
func runBlock(t *testing.T, p processor.Processor, inputs [][]float64, events map[int]float64) [][]float64 {
	t.Helper()

	n := len(inputs[0])
	arena := event.NewArena(event.DefaultArenaSize)

	ctx := &processor.Context{
		Inputs:     make([]slice.Slice, p.NumInputs()),
		Outputs:    make([][]float64, p.NumOutputs()),
		Results:    make([]slice.Slice, p.NumOutputs()),
		BufferSize: n,
	}

	for i := range ctx.Inputs {
		ctx.Inputs[i] = slice.Span(inputs[i])
	}

	for i := range ctx.Outputs {
		ctx.Outputs[i] = make([]float64, n)
	}

	for i, port := range p.EventInputs() {
		s := event.NewSlot(port.Kind)
		s.Reset(arena, n)

		if v, ok := events[i]; ok {
			s.Float().Insert(0, v)
		}

		ctx.EventInputs = append(ctx.EventInputs, s)
	}

	p.Process(ctx)

	out := make([][]float64, len(ctx.Results))
	for i, r := range ctx.Results {
		out[i] = make([]float64, n)
		r.CopyTo(out[i])
	}

	return out
}

func rms(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum / float64(len(x)))
}
