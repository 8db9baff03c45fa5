package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/nooploop/piejam-sub003/audio/component"
	"github.com/nooploop/piejam-sub003/audio/fx"
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/midi"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
	"github.com/nooploop/piejam-sub003/audio/stream"
	"github.com/nooploop/piejam-sub003/mixer"
)

type meterBinding struct {
	level, rms param.StereoLevelID
	meter      *component.StereoMeter
}

// build is the result of translating a mixer state into a graph.
type build struct {
	graph       *graph.Graph
	strips      map[mixer.ChannelID]*component.ChannelStrip
	meters      []meterBinding
	streams     map[mixer.StreamID]*stream.Stream
	unavailable int

	inputs  map[int]*processor.Input
	outputs map[int]graph.Endpoint
}

func (e *Engine) build(st *mixer.State) (*build, error) {
	b := &build{
		graph:   graph.New(),
		strips:  make(map[mixer.ChannelID]*component.ChannelStrip),
		streams: make(map[mixer.StreamID]*stream.Stream),
		inputs:  make(map[int]*processor.Input),
		outputs: make(map[int]graph.Endpoint),
	}

	channels := st.ChannelsInOrder()

	for _, ch := range channels {
		strip, err := e.buildStrip(b, st, ch)
		if err != nil {
			return nil, err
		}

		strip.Connect(b.graph)
		b.strips[ch.ID] = strip
		b.meters = append(b.meters, meterBinding{level: ch.Level, rms: ch.RMS, meter: strip.Meter()})
	}

	for _, ch := range channels {
		e.route(b, ch)
	}

	if e.cfg.MIDI != nil {
		if err := e.connectMIDI(b, st); err != nil {
			return nil, err
		}
	}

	return b, nil
}

func (e *Engine) buildStrip(b *build, st *mixer.State, ch *mixer.Channel) (*component.ChannelStrip, error) {
	volume, err := slotOf(st.Params.Floats, ch.Volume, ch.Name+" volume")
	if err != nil {
		return nil, err
	}

	pan, err := slotOf(st.Params.Floats, ch.Pan, ch.Name+" pan")
	if err != nil {
		return nil, err
	}

	mute, err := slotOf(st.Params.Bools, ch.Mute, ch.Name+" mute")
	if err != nil {
		return nil, err
	}

	solo, err := slotOf(st.Params.Bools, ch.SoloPath, ch.Name+" solo path")
	if err != nil {
		return nil, err
	}

	soloActive, err := slotOf(st.Params.Bools, st.SoloActive, "solo active")
	if err != nil {
		return nil, err
	}

	cfg := component.StripConfig{
		Name:           ch.Name,
		Channels:       ch.Bus.Channels(),
		OutputChannels: e.outputWidth(st, ch),
		Volume:         volume,
		Pan:            pan,
		Mute:           mute,
		Solo:           solo,
		SoloActive:     soloActive,
		PanLaw:         e.cfg.PanLaw,
		Smoothing:      e.cfg.Smoothing,
		SampleRate:     float64(e.cfg.Device.SampleRate),
		MeterRelease:   e.cfg.MeterRelease,
		RMSWindow:      e.cfg.rmsFrames(),
	}

	for _, mid := range ch.Fx {
		m, err := st.Module(mid)
		if err != nil {
			return nil, err
		}

		c, err := e.buildModule(b, st, m, cfg.Channels)
		if err != nil {
			return nil, err
		}

		cfg.Fx = append(cfg.Fx, c)
	}

	return component.NewChannelStrip(cfg), nil
}

// outputWidth returns the number of output channels of the strip of ch.
// Mono channels stay mono when their output goes to a mono channel or to
// the last device playback channel; everything else is stereo.
func (e *Engine) outputWidth(st *mixer.State, ch *mixer.Channel) int {
	if ch.Bus != mixer.Mono {
		return 2
	}

	switch ch.Out.Kind {
	case mixer.RouteDevice:
		if ch.Out.Device+1 >= e.cfg.Device.OutputChannels {
			return 1
		}
	case mixer.RouteChannel:
		if dst, ok := st.Channels[ch.Out.Channel]; ok && dst.Bus == mixer.Mono {
			return 1
		}
	}

	return 2
}

// buildModule returns the component of m. Modules that fail to build are
// replaced by a pass-through; only an inconsistent state is an error.
func (e *Engine) buildModule(b *build, st *mixer.State, m *mixer.Module, channels int) (component.Component, error) {
	bc := fx.BuildContext{
		Name:          m.Name,
		SampleRate:    float64(e.cfg.Device.SampleRate),
		Channels:      channels,
		MaxBufferSize: e.cfg.Device.PeriodSize,
	}

	for i, id := range m.Params {
		slot, err := slotOf(st.Params.Floats, id, fmt.Sprintf("%s param %d", m.Name, i))
		if err != nil {
			return nil, err
		}

		bc.Params = append(bc.Params, slot)
	}

	if m.Stream.Valid() {
		s, ok := e.streams[m.Stream]
		if !ok || s.Channels() != channels {
			s = stream.New(channels, m.StreamFrames)
		}

		b.streams[m.Stream] = s
		bc.Stream = s
	}

	c, err := e.registry.Build(m.Type, bc)
	if err != nil {
		e.logger.Warn("fx module unavailable", "module", m.Name, "type", m.Type, "err", err)
		b.unavailable++

		return fx.Unavailable(m.Name, channels, err), nil
	}

	return c, nil
}

func (e *Engine) route(b *build, ch *mixer.Channel) {
	strip := b.strips[ch.ID]

	switch ch.In.Kind {
	case mixer.RouteDevice:
		var srcs []graph.Endpoint

		for k := range ch.Bus.Channels() {
			if in := b.input(e, ch.In.Device+k); in != nil {
				srcs = append(srcs, graph.Endpoint{Proc: in, Port: 0})
			}
		}

		if len(srcs) > 0 {
			mixInto(b.graph, srcs, strip.Inputs())
		}
	case mixer.RouteChannel:
		if src, ok := b.strips[ch.In.Channel]; ok {
			mixInto(b.graph, src.Outputs(), strip.Inputs())
		}
	}

	switch ch.Out.Kind {
	case mixer.RouteDevice:
		var dsts []graph.Endpoint

		for k := range strip.Outputs() {
			if out, ok := b.output(e, ch.Out.Device+k); ok {
				dsts = append(dsts, out)
			}
		}

		// A stereo strip on the last playback channel is summed into it.
		if len(dsts) > 0 {
			mixInto(b.graph, strip.Outputs(), dsts)
		}
	case mixer.RouteChannel:
		if dst, ok := b.strips[ch.Out.Channel]; ok {
			mixInto(b.graph, strip.Outputs(), dst.Inputs())
		}
	}
}

func (b *build) input(e *Engine, ch int) *processor.Input {
	if ch < 0 || ch >= e.cfg.Device.InputChannels {
		return nil
	}

	in, ok := b.inputs[ch]
	if !ok {
		in = processor.NewInput(e.buffers, ch)
		b.inputs[ch] = in
	}

	return in
}

// output returns the endpoint that sums into device playback channel ch.
// With output clipping it is the input of a clipper in front of the
// device.
func (b *build) output(e *Engine, ch int) (graph.Endpoint, bool) {
	if ch < 0 || ch >= e.cfg.Device.OutputChannels {
		return graph.Endpoint{}, false
	}

	if dst, ok := b.outputs[ch]; ok {
		return dst, true
	}

	out := processor.NewOutput(e.buffers, ch, 1)
	dst := graph.Endpoint{Proc: out, Port: 0}

	if e.cfg.ClipOutput {
		clip := processor.NewClip(fmt.Sprintf("device out %d clip", ch), -1, 1)
		b.graph.Connect(graph.Endpoint{Proc: clip, Port: 0}, dst)
		dst = graph.Endpoint{Proc: clip, Port: 0}
	}

	b.outputs[ch] = dst

	return dst, true
}

// mixInto sums srcs into dsts: positionally when the counts match,
// everything into a single destination, or a single source into every
// destination.
func mixInto(g *graph.Graph, srcs, dsts []graph.Endpoint) {
	switch {
	case len(srcs) == len(dsts):
		for i := range srcs {
			g.Mix(srcs[i], dsts[i])
		}
	case len(dsts) == 1:
		for _, src := range srcs {
			g.Mix(src, dsts[0])
		}
	case len(srcs) == 1:
		for _, dst := range dsts {
			g.Mix(srcs[0], dst)
		}
	default:
		panic(fmt.Sprintf("engine: cannot mix %d outputs into %d inputs", len(srcs), len(dsts)))
	}
}

// connectMIDI adds the MIDI processor and wires one output per assignment
// to the override input of every parameter processor publishing the
// target. Targets without such a processor, e.g. solo, follow through
// the control thread only.
func (e *Engine) connectMIDI(b *build, st *mixer.State) error {
	overrides := make(map[any][]graph.Endpoint)

	for _, p := range b.graph.Processors() {
		switch pp := p.(type) {
		case *processor.Parameter[float64]:
			overrides[pp.Slot()] = append(overrides[pp.Slot()], graph.Endpoint{Proc: p, Port: 0})
		case *processor.Parameter[int]:
			overrides[pp.Slot()] = append(overrides[pp.Slot()], graph.Endpoint{Proc: p, Port: 0})
		case *processor.Parameter[bool]:
			overrides[pp.Slot()] = append(overrides[pp.Slot()], graph.Endpoint{Proc: p, Port: 0})
		}
	}

	sources := make([]midi.Source, 0, len(st.MIDI))
	for src := range st.MIDI {
		sources = append(sources, src)
	}

	slices.SortFunc(sources, func(a, b midi.Source) int {
		return strings.Compare(a.String(), b.String())
	})

	var (
		bindings []midi.Binding
		targets  []any
	)

	for _, src := range sources {
		bd := midi.Binding{Source: src, Target: st.MIDI[src]}

		var (
			key any
			ok  bool
		)

		switch t := bd.Target; {
		case t.Float.Valid():
			bd.Float, ok = st.Params.Floats.Slot(t.Float)
			key = bd.Float
		case t.Int.Valid():
			bd.Int, ok = st.Params.Ints.Slot(t.Int)
			key = bd.Int
		case t.Bool.Valid():
			bd.Bool, ok = st.Params.Bools.Slot(t.Bool)
			key = bd.Bool
		}

		if !ok {
			return fmt.Errorf("%w: midi target of %s", param.ErrUnknownParameter, src)
		}

		bindings = append(bindings, bd)
		targets = append(targets, key)
	}

	proc := midi.NewProcessor(e.cfg.MIDI, bindings)
	b.graph.Add(proc)

	for i, key := range targets {
		for _, dst := range overrides[key] {
			b.graph.ConnectEvent(graph.Endpoint{Proc: proc, Port: i}, dst)
		}
	}

	return nil
}

func slotOf[T any](m *param.Map[T], id param.ID[T], what string) (*param.Slot[T], error) {
	s, ok := m.Slot(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", param.ErrUnknownParameter, what)
	}

	return s, nil
}
