package processor

import (
	"github.com/nooploop/piejam-sub003/audio/event"
)

// MuteSolo computes the audible gain of a channel from its mute and solo
// state and whether any channel is soloed. A channel is audible when it is
// not muted and either nothing is soloed or it is soloed itself.
type MuteSolo struct {
	ports

	mute, solo, soloActive bool
	primed                 bool
}

// NewMuteSolo returns a mute/solo gate with the given initial state.
func NewMuteSolo(name string, mute, solo, soloActive bool) *MuteSolo {
	return &MuteSolo{
		ports: ports{
			typeName: "mute_solo",
			name:     name,
			eventInputs: []event.Port{
				event.BoolPort("mute"),
				event.BoolPort("solo"),
				event.BoolPort("solo_active"),
			},
			eventOutputs: []event.Port{event.FloatPort("gain")},
		},
		mute:       mute,
		solo:       solo,
		soloActive: soloActive,
	}
}

// Gain returns the gain for the current state.
func (p *MuteSolo) Gain() float64 {
	if p.mute || (p.soloActive && !p.solo) {
		return 0
	}

	return 1
}

func (p *MuteSolo) Process(ctx *Context) {
	out := ctx.EventOutputs[0].Float()

	if !p.primed {
		out.Insert(0, p.Gain())
		p.primed = true
	}

	mute := ctx.EventInputs[0].Bool().Events()
	solo := ctx.EventInputs[1].Bool().Events()
	active := ctx.EventInputs[2].Bool().Events()

	for len(mute)+len(solo)+len(active) > 0 {
		offset := nextOffset(mute, solo, active)
		before := p.Gain()

		for len(mute) > 0 && mute[0].Offset == offset {
			p.mute = mute[0].Value
			mute = mute[1:]
		}

		for len(solo) > 0 && solo[0].Offset == offset {
			p.solo = solo[0].Value
			solo = solo[1:]
		}

		for len(active) > 0 && active[0].Offset == offset {
			p.soloActive = active[0].Value
			active = active[1:]
		}

		if g := p.Gain(); g != before {
			out.Insert(offset, g)
		}
	}
}

func nextOffset(lists ...[]event.Event[bool]) int {
	offset := -1

	for _, l := range lists {
		if len(l) > 0 && (offset < 0 || l[0].Offset < offset) {
			offset = l[0].Offset
		}
	}

	return offset
}
