package fx

import (
	"errors"
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/component"
	"github.com/nooploop/piejam-sub003/audio/event"
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/processor"
	"github.com/nooploop/piejam-sub003/audio/slice"
)

// ErrChannelLayout is returned when a plugin's audio ports cannot serve the
// channel count of the bus it is inserted into.
var ErrChannelLayout = errors.New("fx: incompatible plugin channel layout")

// Plugin is a loaded third-party effect. Its control ports become ordinary
// float parameters.
type Plugin interface {
	Controls() []ParamSpec
	AudioPorts() (inputs, outputs int)
	Instantiate(sampleRate float64) (PluginInstance, error)
}

// PluginInstance is one running copy of a plugin. Run must not allocate or
// block. in and out hold one non-interleaved buffer per audio port, all of
// the same length.
type PluginInstance interface {
	SetControl(port int, value float64)
	Run(in, out [][]float64)
}

// PluginDefinition returns a module definition wrapping p. A plugin with one
// input and one output is instantiated once per channel; otherwise its port
// counts must match the channel count.
func PluginDefinition(moduleType string, p Plugin) Definition {
	specs := p.Controls()

	return Definition{
		Params: specs,
		Build: func(bc BuildContext) (component.Component, error) {
			ins, outs := p.AudioPorts()

			instances := 1
			if ins == 1 && outs == 1 {
				instances = bc.Channels
			} else if ins != bc.Channels || outs != bc.Channels {
				return nil, fmt.Errorf("%w: %d in, %d out on a %d channel bus",
					ErrChannelLayout, ins, outs, bc.Channels)
			}

			proc := &pluginProcessor{typeName: moduleType, name: bc.Name, perInstance: ins}

			for range instances {
				inst, err := p.Instantiate(bc.SampleRate)
				if err != nil {
					return nil, err
				}

				for i, slot := range bc.Params {
					inst.SetControl(i, slot.Get())
				}

				proc.instances = append(proc.instances, inst)
			}

			for _, spec := range specs {
				proc.eventInputs = append(proc.eventInputs, event.FloatPort(spec.Name))
			}

			maxFrames := max(bc.MaxBufferSize, 1)
			proc.scratch = make([][]float64, bc.Channels)

			for ch := range proc.scratch {
				proc.scratch[ch] = make([]float64, maxFrames)
			}

			proc.inViews = make([][]float64, ins)
			proc.outViews = make([][]float64, outs)

			m := &pluginModule{proc: proc}

			for i, slot := range bc.Params {
				pp := processor.NewParameter(fmt.Sprintf("%s %s", bc.Name, specs[i].Name), slot)
				m.params = append(m.params, pp)
				m.EventIn = append(m.EventIn, graph.Endpoint{Proc: pp, Port: 0})
			}

			for ch := range bc.Channels {
				m.In = append(m.In, graph.Endpoint{Proc: proc, Port: ch})
				m.Out = append(m.Out, graph.Endpoint{Proc: proc, Port: ch})
			}

			return m, nil
		},
	}
}

type pluginModule struct {
	component.Ports

	params []*processor.Parameter[float64]
	proc   *pluginProcessor
}

func (m *pluginModule) Connect(g *graph.Graph) {
	g.Add(m.proc)

	for i, p := range m.params {
		g.ConnectEvent(graph.Endpoint{Proc: p, Port: 0}, graph.Endpoint{Proc: m.proc, Port: i})
	}
}

type pluginProcessor struct {
	typeName    string
	name        string
	instances   []PluginInstance
	perInstance int
	eventInputs []event.Port

	scratch  [][]float64
	inViews  [][]float64
	outViews [][]float64
}

func (p *pluginProcessor) TypeName() string { return p.typeName }

func (p *pluginProcessor) Name() string { return p.name }

func (p *pluginProcessor) NumInputs() int { return len(p.scratch) }

func (p *pluginProcessor) NumOutputs() int { return len(p.scratch) }

func (p *pluginProcessor) EventInputs() []event.Port { return p.eventInputs }

func (p *pluginProcessor) EventOutputs() []event.Port { return nil }

func (p *pluginProcessor) Process(ctx *processor.Context) {
	n := ctx.BufferSize

	for port := range p.eventInputs {
		evs := ctx.EventInputs[port].Float()
		if evs.Empty() {
			continue
		}

		v := evs.At(evs.Len() - 1).Value
		for _, inst := range p.instances {
			inst.SetControl(port, v)
		}
	}

	for i, inst := range p.instances {
		first := i * p.perInstance

		for j := range p.inViews {
			ch := first + j
			ctx.Inputs[ch].CopyTo(p.scratch[ch][:n])
			p.inViews[j] = p.scratch[ch][:n]
		}

		for j := range p.outViews {
			p.outViews[j] = ctx.Out(first + j)
		}

		inst.Run(p.inViews, p.outViews)
	}

	for ch := range ctx.Results {
		ctx.Results[ch] = slice.Span(ctx.Out(ch))
	}
}
