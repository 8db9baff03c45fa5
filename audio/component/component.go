// Package component bundles processors and their internal wiring into
// reusable subgraphs such as gain stages and channel strips.
package component

import (
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// Component is a declarative template for a subgraph. Its port lists are
// positional and stable. Connect adds the internal wiring to a graph and is
// called exactly once; the component itself never processes audio.
type Component interface {
	Inputs() []graph.Endpoint
	Outputs() []graph.Endpoint
	EventInputs() []graph.Endpoint
	EventOutputs() []graph.Endpoint
	Connect(g *graph.Graph)
}

// Ports is a ready-made implementation of the port lists of Component.
type Ports struct {
	In, Out           []graph.Endpoint
	EventIn, EventOut []graph.Endpoint
}

func (p *Ports) Inputs() []graph.Endpoint { return p.In }

func (p *Ports) Outputs() []graph.Endpoint { return p.Out }

func (p *Ports) EventInputs() []graph.Endpoint { return p.EventIn }

func (p *Ports) EventOutputs() []graph.Endpoint { return p.EventOut }

// Wrap turns a single processor into a component exposing all of its ports.
func Wrap(p processor.Processor) Component {
	c := &single{proc: p}

	for i := range p.NumInputs() {
		c.In = append(c.In, ep(p, i))
	}

	for i := range p.NumOutputs() {
		c.Out = append(c.Out, ep(p, i))
	}

	for i := range p.EventInputs() {
		c.EventIn = append(c.EventIn, ep(p, i))
	}

	for i := range p.EventOutputs() {
		c.EventOut = append(c.EventOut, ep(p, i))
	}

	return c
}

type single struct {
	Ports

	proc processor.Processor
}

func (c *single) Connect(g *graph.Graph) {
	g.Add(c.proc)
}

func ep(p processor.Processor, port int) graph.Endpoint {
	return graph.Endpoint{Proc: p, Port: port}
}
