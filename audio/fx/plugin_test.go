package fx

import (
	"errors"
	"testing"

	"github.com/nooploop/piejam-sub003/internal/testutil"
)

// scalePlugin multiplies its single input by the "amount" control.
type scalePlugin struct {
	ins, outs int
	failWith  error
}

func (p *scalePlugin) Controls() []ParamSpec {
	return []ParamSpec{{Name: "amount", Default: 1, Min: 0, Max: 4}}
}

func (p *scalePlugin) AudioPorts() (int, int) { return p.ins, p.outs }

func (p *scalePlugin) Instantiate(float64) (PluginInstance, error) {
	if p.failWith != nil {
		return nil, p.failWith
	}

	return &scaleInstance{}, nil
}

type scaleInstance struct {
	amount float64
}

func (s *scaleInstance) SetControl(_ int, v float64) { s.amount = v }

func (s *scaleInstance) Run(in, out [][]float64) {
	for ch := range out {
		for i, x := range in[ch] {
			out[ch][i] = x * s.amount
		}
	}
}

func TestPluginInstancePerChannel(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry(WithPlugin("ladspa:scale", &scalePlugin{ins: 1, outs: 1}))
	def, _ := r.Lookup("ladspa:scale")

	c, err := r.Build("ladspa:scale", BuildContext{
		Name: "scale", SampleRate: 48000, Channels: 2, MaxBufferSize: 8,
		Params: slots(t, def.Params),
	})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	m := c.(*pluginModule)
	if len(m.proc.instances) != 2 {
		t.Fatalf("%d instances, want one per channel", len(m.proc.instances))
	}

	out := runBlock(t, m.proc, [][]float64{{1, 2, 3, 4}, {-1, -2, -3, -4}}, map[int]float64{0: 0.5})

	testutil.RequireSliceNearlyEqual(t, out[0], []float64{0.5, 1, 1.5, 2}, 0)
	testutil.RequireSliceNearlyEqual(t, out[1], []float64{-0.5, -1, -1.5, -2}, 0)
}

func TestPluginChannelLayoutMismatch(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry(WithPlugin("ladspa:wide", &scalePlugin{ins: 2, outs: 2}))
	def, _ := r.Lookup("ladspa:wide")

	_, err := r.Build("ladspa:wide", BuildContext{Name: "wide", Channels: 1, Params: slots(t, def.Params)})
	if !errors.Is(err, ErrChannelLayout) {
		t.Errorf("got %v, want ErrChannelLayout", err)
	}
}

func TestPluginInstantiateFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("dlopen failed")
	r := DefaultRegistry(WithPlugin("ladspa:broken", &scalePlugin{ins: 1, outs: 1, failWith: cause}))
	def, _ := r.Lookup("ladspa:broken")

	_, err := r.Build("ladspa:broken", BuildContext{Name: "broken", Channels: 1, Params: slots(t, def.Params)})
	if !errors.Is(err, cause) {
		t.Errorf("got %v, want wrapped %v", err, cause)
	}
}
