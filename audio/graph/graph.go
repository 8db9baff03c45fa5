// Package graph holds the declarative wiring of processors before it is
// compiled into a task DAG.
package graph

import (
	"fmt"
	"slices"

	"github.com/nooploop/piejam-sub003/audio/processor"
)

// Endpoint addresses one port of a processor. Whether it denotes an audio or
// an event port, and an input or an output, follows from where it is used.
type Endpoint struct {
	Proc processor.Processor
	Port int
}

// Wire is a connection from an output endpoint to an input endpoint.
type Wire struct {
	Src, Dst Endpoint
}

// Graph is a set of processors and the audio and event wires between them.
//
// Each audio input has at most one source unless it was wired with Mix, in
// which case all sources are summed. Each event input has at most one
// source. Processors are ordered by the time they were first added.
type Graph struct {
	order  map[processor.Processor]int
	procs  []processor.Processor
	audio  map[Endpoint][]Endpoint
	events map[Endpoint]Endpoint
	seq    int
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		order:  make(map[processor.Processor]int),
		audio:  make(map[Endpoint][]Endpoint),
		events: make(map[Endpoint]Endpoint),
	}
}

// Add registers p. Adding a processor twice is a no-op. Processors are added
// implicitly by every connect call; Add is only needed for processors
// without wires, such as sources whose output nobody reads yet.
func (g *Graph) Add(p processor.Processor) {
	if _, ok := g.order[p]; ok {
		return
	}

	g.seq++
	g.order[p] = g.seq
	g.procs = append(g.procs, p)
}

// Contains reports whether p is part of the graph.
func (g *Graph) Contains(p processor.Processor) bool {
	_, ok := g.order[p]
	return ok
}

// Connect wires the audio output src to the audio input dst, replacing any
// previous source of dst.
func (g *Graph) Connect(src, dst Endpoint) {
	g.checkAudio(src, dst)
	g.Add(src.Proc)
	g.Add(dst.Proc)
	g.audio[dst] = []Endpoint{src}
}

// Mix adds src to the sources summed into dst.
func (g *Graph) Mix(src, dst Endpoint) {
	g.checkAudio(src, dst)
	g.Add(src.Proc)
	g.Add(dst.Proc)

	if !slices.Contains(g.audio[dst], src) {
		g.audio[dst] = append(g.audio[dst], src)
	}
}

// ConnectEvent wires the event output src to the event input dst, replacing
// any previous source of dst. Both ports must carry the same kind.
func (g *Graph) ConnectEvent(src, dst Endpoint) {
	outs := src.Proc.EventOutputs()
	ins := dst.Proc.EventInputs()

	if src.Port < 0 || src.Port >= len(outs) {
		panic(fmt.Sprintf("graph: %s has no event output %d", src.Proc.Name(), src.Port))
	}

	if dst.Port < 0 || dst.Port >= len(ins) {
		panic(fmt.Sprintf("graph: %s has no event input %d", dst.Proc.Name(), dst.Port))
	}

	if outs[src.Port].Kind != ins[dst.Port].Kind {
		panic(fmt.Sprintf("graph: cannot wire %s event %q to %s event %q",
			outs[src.Port].Kind, outs[src.Port].Name, ins[dst.Port].Kind, ins[dst.Port].Name))
	}

	g.Add(src.Proc)
	g.Add(dst.Proc)
	g.events[dst] = src
}

// ConnectAll wires srcs to dsts positionally. A single source fans out to
// every destination; otherwise the lengths must match.
func (g *Graph) ConnectAll(srcs, dsts []Endpoint) {
	switch {
	case len(srcs) == 1:
		for _, dst := range dsts {
			g.Connect(srcs[0], dst)
		}
	case len(srcs) == len(dsts):
		for i := range srcs {
			g.Connect(srcs[i], dsts[i])
		}
	case len(dsts) == 1:
		for _, src := range srcs {
			g.Mix(src, dsts[0])
		}
	default:
		panic(fmt.Sprintf("graph: cannot wire %d outputs to %d inputs", len(srcs), len(dsts)))
	}
}

// ConnectedSource returns the single audio source of dst. It reports false
// when dst is unconnected or summed from several sources.
func (g *Graph) ConnectedSource(dst Endpoint) (Endpoint, bool) {
	srcs := g.audio[dst]
	if len(srcs) != 1 {
		return Endpoint{}, false
	}

	return srcs[0], true
}

// Sources returns all audio sources of dst.
func (g *Graph) Sources(dst Endpoint) []Endpoint {
	return slices.Clone(g.audio[dst])
}

// ConnectedEventSource returns the event source of dst.
func (g *Graph) ConnectedEventSource(dst Endpoint) (Endpoint, bool) {
	src, ok := g.events[dst]
	return src, ok
}

// HasWire reports whether src feeds dst directly.
func (g *Graph) HasWire(src, dst Endpoint) bool {
	return slices.Contains(g.audio[dst], src)
}

// HasEventWire reports whether the event output src feeds dst directly.
func (g *Graph) HasEventWire(src, dst Endpoint) bool {
	s, ok := g.events[dst]
	return ok && s == src
}

// Disconnect removes all audio sources of dst.
func (g *Graph) Disconnect(dst Endpoint) {
	delete(g.audio, dst)
}

// DisconnectEvent removes the event source of dst.
func (g *Graph) DisconnectEvent(dst Endpoint) {
	delete(g.events, dst)
}

// RemoveProcessor removes p and every wire touching it.
func (g *Graph) RemoveProcessor(p processor.Processor) {
	if !g.Contains(p) {
		return
	}

	for dst, srcs := range g.audio {
		if dst.Proc == p {
			delete(g.audio, dst)
			continue
		}

		kept := slices.DeleteFunc(srcs, func(e Endpoint) bool { return e.Proc == p })
		if len(kept) == 0 {
			delete(g.audio, dst)
		} else {
			g.audio[dst] = kept
		}
	}

	for dst, src := range g.events {
		if dst.Proc == p || src.Proc == p {
			delete(g.events, dst)
		}
	}

	delete(g.order, p)
	g.procs = slices.DeleteFunc(g.procs, func(q processor.Processor) bool { return q == p })
}

// Processors returns all processors in the order they were added.
func (g *Graph) Processors() []processor.Processor {
	return slices.Clone(g.procs)
}

// Len returns the number of processors.
func (g *Graph) Len() int {
	return len(g.procs)
}

// Wires returns all audio wires ordered by destination, then source.
func (g *Graph) Wires() []Wire {
	var wires []Wire

	for dst, srcs := range g.audio {
		for _, src := range srcs {
			wires = append(wires, Wire{Src: src, Dst: dst})
		}
	}

	slices.SortFunc(wires, g.compareWires)

	return wires
}

// EventWires returns all event wires ordered by destination.
func (g *Graph) EventWires() []Wire {
	wires := make([]Wire, 0, len(g.events))
	for dst, src := range g.events {
		wires = append(wires, Wire{Src: src, Dst: dst})
	}

	slices.SortFunc(wires, g.compareWires)

	return wires
}

// Compare orders endpoints by processor registration order, then port.
func (g *Graph) Compare(a, b Endpoint) int {
	if c := g.order[a.Proc] - g.order[b.Proc]; c != 0 {
		return c
	}

	return a.Port - b.Port
}

func (g *Graph) compareWires(a, b Wire) int {
	if c := g.Compare(a.Dst, b.Dst); c != 0 {
		return c
	}

	return g.Compare(a.Src, b.Src)
}

// Clone returns a copy of g sharing the processors.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		order:  make(map[processor.Processor]int, len(g.order)),
		procs:  slices.Clone(g.procs),
		audio:  make(map[Endpoint][]Endpoint, len(g.audio)),
		events: make(map[Endpoint]Endpoint, len(g.events)),
		seq:    g.seq,
	}

	for p, n := range g.order {
		c.order[p] = n
	}

	for dst, srcs := range g.audio {
		c.audio[dst] = slices.Clone(srcs)
	}

	for dst, src := range g.events {
		c.events[dst] = src
	}

	return c
}

func (g *Graph) checkAudio(src, dst Endpoint) {
	if src.Port < 0 || src.Port >= src.Proc.NumOutputs() {
		panic(fmt.Sprintf("graph: %s has no audio output %d", src.Proc.Name(), src.Port))
	}

	if dst.Port < 0 || dst.Port >= dst.Proc.NumInputs() {
		panic(fmt.Sprintf("graph: %s has no audio input %d", dst.Proc.Name(), dst.Port))
	}
}
