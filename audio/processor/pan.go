package processor

import (
	"math"

	"github.com/nooploop/piejam-sub003/audio/event"
)

// PanLaw selects how a position in [-1, 1] is turned into channel gains.
type PanLaw int

const (
	// EqualPower keeps l*l + r*r == 1 for pan and leaves the louder side
	// at unity for balance.
	EqualPower PanLaw = iota
	// Linear keeps l + r == 1 for pan.
	Linear
)

// String implements fmt.Stringer.
func (l PanLaw) String() string {
	switch l {
	case EqualPower:
		return "equal-power"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// PanGains returns the left and right gains of a mono source placed at pos.
func (l PanLaw) PanGains(pos float64) (left, right float64) {
	pos = clampPos(pos)

	if l == Linear {
		return (1 - pos) / 2, (1 + pos) / 2
	}

	angle := (pos + 1) * math.Pi / 4

	return math.Cos(angle), math.Sin(angle)
}

// BalanceGains returns the left and right gains of a stereo source with
// balance pos. The side pos points at stays at unity.
func (l PanLaw) BalanceGains(pos float64) (left, right float64) {
	pos = clampPos(pos)

	attenuate := func(x float64) float64 {
		if l == Linear {
			return 1 - x
		}

		return math.Cos(x * math.Pi / 2)
	}

	switch {
	case pos < 0:
		return 1, attenuate(-pos)
	case pos > 0:
		return attenuate(pos), 1
	default:
		return 1, 1
	}
}

func clampPos(pos float64) float64 {
	if math.IsNaN(pos) {
		return 0
	}

	return min(max(pos, -1), 1)
}

// Pan converts position events into a pair of gain events at the same
// offsets. It has no audio ports; the gains drive downstream amplifiers.
type Pan struct {
	ports

	gains func(float64) (float64, float64)
}

// NewPan returns a mono pan converter using law.
func NewPan(name string, law PanLaw) *Pan {
	return newPan("pan", name, law.PanGains)
}

// NewBalance returns a stereo balance converter using law.
func NewBalance(name string, law PanLaw) *Pan {
	return newPan("balance", name, law.BalanceGains)
}

func newPan(typeName, name string, gains func(float64) (float64, float64)) *Pan {
	return &Pan{
		ports: ports{
			typeName:     typeName,
			name:         name,
			eventInputs:  []event.Port{event.FloatPort("position")},
			eventOutputs: []event.Port{event.FloatPort("left"), event.FloatPort("right")},
		},
		gains: gains,
	}
}

func (p *Pan) Process(ctx *Context) {
	left := ctx.EventOutputs[0].Float()
	right := ctx.EventOutputs[1].Float()

	for _, ev := range ctx.EventInputs[0].Float().Events() {
		l, r := p.gains(ev.Value)
		left.Insert(ev.Offset, l)
		right.Insert(ev.Offset, r)
	}
}
