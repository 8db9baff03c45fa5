package fx

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/nooploop/piejam-sub003/audio/component"
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/processor"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// Context provides environmental information that module runtimes need.
type Context struct {
	SampleRate float64
}

// Params holds the current parameter values of one module.
type Params struct {
	Num map[string]float64
}

// GetNum safely extracts a numeric parameter, returning def if missing or invalid.
func (p Params) GetNum(key string, def float64) float64 {
	if p.Num == nil {
		return def
	}

	v, ok := p.Num[key]
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}

	return v
}

// Runtime is the per-channel processing and configuration contract of a
// DSP module.
//
// Configure is first called when the module is built. After that it runs on
// the audio thread, at the start of the block following a parameter change,
// so it must not allocate for parameter values inside their declared range.
// Sample-rate dependent state belongs in the Factory. A returned error may
// allocate; the module counts it and keeps processing.
type Runtime interface {
	Configure(ctx Context, params Params) error
	Process(block []float64)
}

// Factory builds one Runtime instance for one channel. It runs off the audio
// thread and is where buffers sized from the sample rate are allocated.
type Factory func(ctx Context) (Runtime, error)

// RuntimeModule returns a Builder running one Runtime per channel. Parameter
// changes reconfigure the runtimes at the start of the next block.
func RuntimeModule(typeName string, specs []ParamSpec, factory Factory) Builder {
	return func(bc BuildContext) (component.Component, error) {
		proc := &runtimeProcessor{
			typeName: typeName,
			name:     bc.Name,
			ctx:      Context{SampleRate: bc.SampleRate},
			specs:    specs,
			params:   Params{Num: make(map[string]float64, len(specs))},
			runtimes: make([]Runtime, bc.Channels),
		}

		for i, spec := range specs {
			proc.params.Num[spec.Name] = bc.Params[i].Get()
			proc.eventInputs = append(proc.eventInputs, event.FloatPort(spec.Name))
		}

		for ch := range proc.runtimes {
			rt, err := factory(proc.ctx)
			if err != nil {
				return nil, err
			}

			if err := rt.Configure(proc.ctx, proc.params); err != nil {
				return nil, err
			}

			proc.runtimes[ch] = rt
		}

		m := &runtimeModule{proc: proc}

		for i, slot := range bc.Params {
			p := processor.NewParameter(fmt.Sprintf("%s %s", bc.Name, specs[i].Name), slot)
			m.params = append(m.params, p)
			m.EventIn = append(m.EventIn, graph.Endpoint{Proc: p, Port: 0})
		}

		for ch := range bc.Channels {
			m.In = append(m.In, graph.Endpoint{Proc: proc, Port: ch})
			m.Out = append(m.Out, graph.Endpoint{Proc: proc, Port: ch})
		}

		return m, nil
	}
}

type runtimeModule struct {
	component.Ports

	params []*processor.Parameter[float64]
	proc   *runtimeProcessor
}

func (m *runtimeModule) Connect(g *graph.Graph) {
	g.Add(m.proc)

	for i, p := range m.params {
		g.ConnectEvent(graph.Endpoint{Proc: p, Port: 0}, graph.Endpoint{Proc: m.proc, Port: i})
	}
}

// runtimeProcessor adapts per-channel runtimes to the processor contract.
type runtimeProcessor struct {
	typeName    string
	name        string
	ctx         Context
	specs       []ParamSpec
	params      Params
	runtimes    []Runtime
	eventInputs []event.Port

	configErrors atomic.Uint64
}

func (p *runtimeProcessor) TypeName() string { return p.typeName }

func (p *runtimeProcessor) Name() string { return p.name }

func (p *runtimeProcessor) NumInputs() int { return len(p.runtimes) }

func (p *runtimeProcessor) NumOutputs() int { return len(p.runtimes) }

func (p *runtimeProcessor) EventInputs() []event.Port { return p.eventInputs }

func (p *runtimeProcessor) EventOutputs() []event.Port { return nil }

// ConfigErrors returns how many reconfigurations were rejected by a runtime.
func (p *runtimeProcessor) ConfigErrors() uint64 { return p.configErrors.Load() }

func (p *runtimeProcessor) Process(ctx *processor.Context) {
	changed := false

	for i, spec := range p.specs {
		evs := ctx.EventInputs[i].Float()
		if evs.Empty() {
			continue
		}

		p.params.Num[spec.Name] = evs.At(evs.Len() - 1).Value
		changed = true
	}

	for ch, rt := range p.runtimes {
		if changed {
			if err := rt.Configure(p.ctx, p.params); err != nil {
				p.configErrors.Add(1)
			}
		}

		out := ctx.Out(ch)
		ctx.Inputs[ch].CopyTo(out)
		rt.Process(out)
		ctx.Results[ch] = slice.Span(out)
	}
}
