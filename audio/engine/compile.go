package engine

import (
	"github.com/nooploop/piejam-sub003/audio/dag"
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/processor"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// job is the compiled form of one processor: its context with scratch
// buffers allocated for the maximum block size, plus pointers to the
// results and event slots of the processors feeding it.
type job struct {
	proc   processor.Processor
	ctx    processor.Context
	inputs []*slice.Slice
}

func newJob(p processor.Processor, maxBufferSize int) *job {
	j := &job{
		proc: p,
		ctx: processor.Context{
			Inputs:       make([]slice.Slice, p.NumInputs()),
			Outputs:      make([][]float64, p.NumOutputs()),
			Results:      make([]slice.Slice, p.NumOutputs()),
			EventInputs:  make([]*event.Slot, len(p.EventInputs())),
			EventOutputs: make([]*event.Slot, len(p.EventOutputs())),
		},
		inputs: make([]*slice.Slice, p.NumInputs()),
	}

	backing := make([]float64, p.NumOutputs()*maxBufferSize)
	for i := range j.ctx.Outputs {
		j.ctx.Outputs[i] = backing[i*maxBufferSize : (i+1)*maxBufferSize : (i+1)*maxBufferSize]
	}

	for i, port := range p.EventOutputs() {
		j.ctx.EventOutputs[i] = event.NewSlot(port.Kind)
	}

	return j
}

func (j *job) run(tc *dag.ThreadContext) {
	for i, src := range j.inputs {
		if src != nil {
			j.ctx.Inputs[i] = *src
		}
	}

	for _, s := range j.ctx.EventOutputs {
		s.Reset(tc.Arena, tc.BufferSize)
	}

	j.ctx.BufferSize = tc.BufferSize
	j.proc.Process(&j.ctx)
}

// GraphToDAG compiles a finalized graph into a task DAG with one task per
// processor. Edges follow the audio and event wires. Unconnected audio
// inputs read silence and unconnected event inputs read an empty buffer.
// Blocks passed to the resulting executor must not exceed maxBufferSize.
func GraphToDAG(g *graph.Graph, maxBufferSize int) *dag.DAG {
	if !graph.IsFinal(g) {
		panic("engine: graph is not finalized")
	}

	procs := g.Processors()
	jobs := make(map[processor.Processor]*job, len(procs))
	ids := make(map[processor.Processor]dag.TaskID, len(procs))
	d := dag.New()

	for _, p := range procs {
		j := newJob(p, maxBufferSize)
		jobs[p] = j
		ids[p] = d.AddTask(j.run)
	}

	for _, w := range g.Wires() {
		src := jobs[w.Src.Proc]
		jobs[w.Dst.Proc].inputs[w.Dst.Port] = &src.ctx.Results[w.Src.Port]
		d.AddChild(ids[w.Src.Proc], ids[w.Dst.Proc])
	}

	for _, w := range g.EventWires() {
		jobs[w.Dst.Proc].ctx.EventInputs[w.Dst.Port] = jobs[w.Src.Proc].ctx.EventOutputs[w.Src.Port]
		d.AddChild(ids[w.Src.Proc], ids[w.Dst.Proc])
	}

	empty := make(map[event.Kind]*event.Slot)

	for _, p := range procs {
		j := jobs[p]

		for i, port := range p.EventInputs() {
			if j.ctx.EventInputs[i] != nil {
				continue
			}

			if empty[port.Kind] == nil {
				empty[port.Kind] = event.NewSlot(port.Kind)
			}

			j.ctx.EventInputs[i] = empty[port.Kind]
		}
	}

	return d
}
