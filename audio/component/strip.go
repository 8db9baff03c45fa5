package component

import (
	"fmt"

	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// StripConfig describes a mixer channel strip.
type StripConfig struct {
	Name string
	// Channels is 1 for a mono bus and 2 for a stereo bus.
	Channels int
	// OutputChannels is the width of the strip output. A mono strip with
	// one output channel skips panning; everything else is stereo.
	OutputChannels int

	Volume     *param.Slot[float64]
	Pan        *param.Slot[float64]
	Mute       *param.Slot[bool]
	// Solo is set when the channel is soloed or lies on the signal path of
	// a soloed channel.
	Solo       *param.Slot[bool]
	SoloActive *param.Slot[bool]

	// Fx is the effect chain in processing order.
	Fx []Component

	PanLaw       processor.PanLaw
	Smoothing    int
	SampleRate   float64
	MeterRelease float64
	// RMSWindow is the RMS meter window in frames, 0 to disable it.
	RMSWindow int
}

// ChannelStrip is the processing of one mixer channel:
//
//	in -> fx chain -> volume -> pan or balance -> mute/solo -> out
//	                                                       -> meter
//
// The output is stereo unless a mono strip is configured with a mono
// output, in which case there is no pan stage and the meter reads the
// same signal on both sides.
type ChannelStrip struct {
	Ports

	inputs []*processor.Identity
	chain  *Series
	meter  *StereoMeter
}

// NewChannelStrip builds the strip described by cfg.
func NewChannelStrip(cfg StripConfig) *ChannelStrip {
	if cfg.Channels != 1 && cfg.Channels != 2 {
		panic(fmt.Sprintf("component: channel strip %q has %d channels", cfg.Name, cfg.Channels))
	}

	s := &ChannelStrip{meter: NewStereoMeter(cfg.Name, cfg.SampleRate, cfg.MeterRelease, cfg.RMSWindow)}

	for ch := range cfg.Channels {
		id := processor.NewIdentity(fmt.Sprintf("%s in %d", cfg.Name, ch))
		s.inputs = append(s.inputs, id)
		s.In = append(s.In, ep(id, 0))
	}

	parts := append([]Component(nil), cfg.Fx...)

	volume := NewAmplifier(cfg.Name+" volume", cfg.Channels, cfg.Volume, cfg.Smoothing)
	parts = append(parts, volume)

	width := 2

	switch {
	case cfg.Channels == 1 && cfg.OutputChannels == 1:
		width = 1
	case cfg.Channels == 1:
		parts = append(parts, NewPan(cfg.Name+" pan", cfg.Pan, cfg.PanLaw, cfg.Smoothing))
	default:
		parts = append(parts, NewBalance(cfg.Name+" balance", cfg.Pan, cfg.PanLaw, cfg.Smoothing))
	}

	parts = append(parts, NewMuteSolo(cfg.Name, width, cfg.Mute, cfg.Solo, cfg.SoloActive, cfg.Smoothing))

	s.chain = NewSeries(parts...)
	s.Out = s.chain.Outputs()
	s.EventIn = s.chain.EventInputs()

	return s
}

// Meter returns the post-fader meter of the strip.
func (s *ChannelStrip) Meter() *StereoMeter { return s.meter }

func (s *ChannelStrip) Connect(g *graph.Graph) {
	s.chain.Connect(g)
	s.meter.Connect(g)

	g.ConnectAll(s.In, s.chain.Inputs())
	g.ConnectAll(s.chain.Outputs(), s.meter.Inputs())
}
