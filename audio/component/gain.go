package component

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// Amplifier applies a smoothed gain parameter to one or more channels.
//
//	parameter -> smoother -> multiply[ch].1
//	input[ch]             -> multiply[ch].0
type Amplifier struct {
	Ports

	param    *processor.Parameter[float64]
	smoother *processor.Smoother
	muls     []*processor.Multiply
}

// NewAmplifier returns a gain stage for channels channels driven by gain.
func NewAmplifier(name string, channels int, gain *param.Slot[float64], smoothing int) *Amplifier {
	a := &Amplifier{
		param:    processor.NewParameter(name+" gain", gain),
		smoother: processor.NewSmoother(name+" gain", gain.Get(), smoothing),
	}

	for ch := range channels {
		mul := processor.NewMultiply(fmt.Sprintf("%s %d", name, ch), 2)
		a.muls = append(a.muls, mul)
		a.In = append(a.In, ep(mul, 0))
		a.Out = append(a.Out, ep(mul, 0))
	}

	a.EventIn = []graph.Endpoint{ep(a.param, 0)}

	return a
}

func (a *Amplifier) Connect(g *graph.Graph) {
	g.ConnectEvent(ep(a.param, 0), ep(a.smoother, 0))

	for _, mul := range a.muls {
		g.Connect(ep(a.smoother, 0), ep(mul, 1))
	}
}

// gainPair routes a position parameter through a pan or balance converter
// into two smoothed gains applied to a left and a right multiplier.
type gainPair struct {
	param   *processor.Parameter[float64]
	conv    *processor.Pan
	smoothL *processor.Smoother
	smoothR *processor.Smoother
	mulL    *processor.Multiply
	mulR    *processor.Multiply
}

func newGainPair(name string, position *param.Slot[float64], conv *processor.Pan,
	gains func(float64) (float64, float64), smoothing int,
) gainPair {
	l, r := gains(position.Get())

	return gainPair{
		param:   processor.NewParameter(name+" position", position),
		conv:    conv,
		smoothL: processor.NewSmoother(name+" left", l, smoothing),
		smoothR: processor.NewSmoother(name+" right", r, smoothing),
		mulL:    processor.NewMultiply(name+" left", 2),
		mulR:    processor.NewMultiply(name+" right", 2),
	}
}

func (p *gainPair) connect(g *graph.Graph) {
	g.ConnectEvent(ep(p.param, 0), ep(p.conv, 0))
	g.ConnectEvent(ep(p.conv, 0), ep(p.smoothL, 0))
	g.ConnectEvent(ep(p.conv, 1), ep(p.smoothR, 0))
	g.Connect(ep(p.smoothL, 0), ep(p.mulL, 1))
	g.Connect(ep(p.smoothR, 0), ep(p.mulR, 1))
}

// Pan places a mono signal in the stereo field.
type Pan struct {
	Ports
	gainPair

	input *processor.Identity
}

// NewPan returns a mono to stereo panner driven by position.
func NewPan(name string, position *param.Slot[float64], law processor.PanLaw, smoothing int) *Pan {
	p := &Pan{
		gainPair: newGainPair(name, position, processor.NewPan(name, law), law.PanGains, smoothing),
		input:    processor.NewIdentity(name + " in"),
	}

	p.In = []graph.Endpoint{ep(p.input, 0)}
	p.Out = []graph.Endpoint{ep(p.mulL, 0), ep(p.mulR, 0)}
	p.EventIn = []graph.Endpoint{ep(p.param, 0)}

	return p
}

func (p *Pan) Connect(g *graph.Graph) {
	p.connect(g)
	g.Connect(ep(p.input, 0), ep(p.mulL, 0))
	g.Connect(ep(p.input, 0), ep(p.mulR, 0))
}

// Balance attenuates one side of a stereo signal.
type Balance struct {
	Ports
	gainPair
}

// NewBalance returns a stereo balance stage driven by position.
func NewBalance(name string, position *param.Slot[float64], law processor.PanLaw, smoothing int) *Balance {
	b := &Balance{
		gainPair: newGainPair(name, position, processor.NewBalance(name, law), law.BalanceGains, smoothing),
	}

	b.In = []graph.Endpoint{ep(b.mulL, 0), ep(b.mulR, 0)}
	b.Out = []graph.Endpoint{ep(b.mulL, 0), ep(b.mulR, 0)}
	b.EventIn = []graph.Endpoint{ep(b.param, 0)}

	return b
}

func (b *Balance) Connect(g *graph.Graph) {
	b.connect(g)
}

// MuteSolo silences a channel when it is muted or when another channel is
// soloed.
type MuteSolo struct {
	Ports

	mute, solo, soloActive *processor.Parameter[bool]
	gate                   *processor.MuteSolo
	smoother               *processor.Smoother
	muls                   []*processor.Multiply
}

// NewMuteSolo returns a mute/solo gate for channels channels.
func NewMuteSolo(name string, channels int, mute, solo, soloActive *param.Slot[bool], smoothing int) *MuteSolo {
	gate := processor.NewMuteSolo(name, mute.Get(), solo.Get(), soloActive.Get())

	m := &MuteSolo{
		mute:       processor.NewParameter(name+" mute", mute),
		solo:       processor.NewParameter(name+" solo", solo),
		soloActive: processor.NewParameter(name+" solo active", soloActive),
		gate:       gate,
		smoother:   processor.NewSmoother(name+" mute", gate.Gain(), smoothing),
	}

	for ch := range channels {
		mul := processor.NewMultiply(fmt.Sprintf("%s %d", name, ch), 2)
		m.muls = append(m.muls, mul)
		m.In = append(m.In, ep(mul, 0))
		m.Out = append(m.Out, ep(mul, 0))
	}

	m.EventIn = []graph.Endpoint{ep(m.mute, 0), ep(m.solo, 0)}

	return m
}

func (m *MuteSolo) Connect(g *graph.Graph) {
	g.ConnectEvent(ep(m.mute, 0), ep(m.gate, 0))
	g.ConnectEvent(ep(m.solo, 0), ep(m.gate, 1))
	g.ConnectEvent(ep(m.soloActive, 0), ep(m.gate, 2))
	g.ConnectEvent(ep(m.gate, 0), ep(m.smoother, 0))

	for _, mul := range m.muls {
		g.Connect(ep(m.smoother, 0), ep(mul, 1))
	}
}
