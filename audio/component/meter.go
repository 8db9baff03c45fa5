package component

import (
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

// StereoMeter measures the peak and RMS level of a stereo signal.
type StereoMeter struct {
	Ports

	in          [2]*processor.Identity
	left, right *processor.PeakMeter
	rms         [2]*processor.RMSMeter
}

// NewStereoMeter returns a meter pair with the given peak release time in
// seconds and an RMS window of rmsWindow frames. A window below one frame
// disables RMS metering.
func NewStereoMeter(name string, sampleRate, release float64, rmsWindow int) *StereoMeter {
	m := &StereoMeter{
		in: [2]*processor.Identity{
			processor.NewIdentity(name + " meter left"),
			processor.NewIdentity(name + " meter right"),
		},
		left:  processor.NewPeakMeter(name+" left", sampleRate, release),
		right: processor.NewPeakMeter(name+" right", sampleRate, release),
	}

	if rmsWindow > 0 {
		m.rms = [2]*processor.RMSMeter{
			processor.NewRMSMeter(name+" rms left", rmsWindow, true),
			processor.NewRMSMeter(name+" rms right", rmsWindow, true),
		}
	}

	m.In = []graph.Endpoint{ep(m.in[0], 0), ep(m.in[1], 0)}

	return m
}

func (m *StereoMeter) Connect(g *graph.Graph) {
	g.Connect(ep(m.in[0], 0), ep(m.left, 0))
	g.Connect(ep(m.in[1], 0), ep(m.right, 0))

	if m.rms[0] != nil {
		g.Connect(ep(m.in[0], 0), ep(m.rms[0], 0))
		g.Connect(ep(m.in[1], 0), ep(m.rms[1], 0))
	}
}

// Level returns the latest peak readings. Safe to call from any goroutine.
func (m *StereoMeter) Level() param.StereoLevel {
	return param.StereoLevel{Left: m.left.Level(), Right: m.right.Level()}
}

// RMS returns the latest RMS readings, zero when RMS metering is disabled.
func (m *StereoMeter) RMS() param.StereoLevel {
	if m.rms[0] == nil {
		return param.StereoLevel{}
	}

	return param.StereoLevel{Left: m.rms[0].Level(), Right: m.rms[1].Level()}
}
