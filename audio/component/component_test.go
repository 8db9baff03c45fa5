package component

import (
	"testing"

	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/param"
	"github.com/nooploop/piejam-sub003/audio/processor"
)

func stripConfig(t *testing.T, channels int) StripConfig {
	t.Helper()

	store := param.NewStore()
	slot := func(id param.FloatID) *param.Slot[float64] {
		s, _ := store.Floats.Slot(id)
		return s
	}
	toggle := func(id param.BoolID) *param.Slot[bool] {
		s, _ := store.Bools.Slot(id)
		return s
	}

	return StripConfig{
		Name:         "ch",
		Channels:     channels,
		Volume:       slot(store.Floats.Add(param.FloatRange("volume", 1, 0, 2))),
		Pan:          slot(store.Floats.Add(param.FloatRange("pan", 0, -1, 1))),
		Mute:         toggle(store.Bools.Add(param.Toggle("mute", false))),
		Solo:         toggle(store.Bools.Add(param.Toggle("solo", false))),
		SoloActive:   toggle(store.Bools.Add(param.Toggle("solo active", false))),
		PanLaw:       processor.EqualPower,
		Smoothing:    processor.DefaultSmoothingSteps,
		SampleRate:   48000,
		MeterRelease: 0.3,
		RMSWindow:    64,
	}
}

func TestAmplifierPorts(t *testing.T) {
	t.Parallel()

	store := param.NewMap[float64]()
	slot, _ := store.Slot(store.Add(param.FloatRange("gain", 1, 0, 2)))

	a := NewAmplifier("amp", 2, slot, 16)
	if len(a.Inputs()) != 2 || len(a.Outputs()) != 2 || len(a.EventInputs()) != 1 {
		t.Fatalf("ports = %d/%d/%d", len(a.Inputs()), len(a.Outputs()), len(a.EventInputs()))
	}

	g := graph.New()
	a.Connect(g)

	for _, in := range a.Inputs() {
		if _, ok := g.ConnectedSource(graph.Endpoint{Proc: in.Proc, Port: 1}); !ok {
			t.Error("multiplier gain input not wired to the smoother")
		}
	}
}

func TestPanFansOutMonoInput(t *testing.T) {
	t.Parallel()

	cfg := stripConfig(t, 1)
	p := NewPan("pan", cfg.Pan, processor.Linear, 16)

	g := graph.New()
	p.Connect(g)

	if len(p.Inputs()) != 1 || len(p.Outputs()) != 2 {
		t.Fatalf("pan ports = %d in, %d out", len(p.Inputs()), len(p.Outputs()))
	}

	for _, out := range p.Outputs() {
		if !g.HasWire(p.Inputs()[0], out) {
			t.Errorf("input not wired to %s", out.Proc.Name())
		}
	}
}

func TestSeriesAdaptsChannelCounts(t *testing.T) {
	t.Parallel()

	mono := Wrap(processor.NewIdentity("mono"))
	stereo := NewStereoMeter("meter", 48000, 0.1, 0)

	s := NewSeries(mono, stereo)

	g := graph.New()
	s.Connect(g)

	for _, in := range stereo.Inputs() {
		if !g.HasWire(mono.Outputs()[0], in) {
			t.Errorf("mono output not fanned out to %s", in.Proc.Name())
		}
	}

	if len(s.Inputs()) != 1 || len(s.Outputs()) != 0 {
		t.Errorf("series ports = %d in, %d out", len(s.Inputs()), len(s.Outputs()))
	}

	if empty := NewSeries(); empty.Inputs() != nil || empty.Outputs() != nil {
		t.Error("empty series must have no ports")
	}
}

func TestChannelStripFinalizes(t *testing.T) {
	t.Parallel()

	for _, channels := range []int{1, 2} {
		strip := NewChannelStrip(stripConfig(t, channels))

		if len(strip.Inputs()) != channels || len(strip.Outputs()) != 2 {
			t.Fatalf("channels=%d: ports %d in, %d out", channels, len(strip.Inputs()), len(strip.Outputs()))
		}

		// volume, position, mute, solo
		if n := len(strip.EventInputs()); n != 4 {
			t.Errorf("channels=%d: %d event inputs, want 4", channels, n)
		}

		g := graph.New()
		strip.Connect(g)

		final, mixers := graph.Finalize(g)
		if len(mixers) != 0 {
			t.Errorf("channels=%d: strip must not need mixers, got %d", channels, len(mixers))
		}

		for _, p := range final.Processors() {
			if _, ok := p.(*processor.Identity); ok {
				t.Errorf("channels=%d: identity %s survived finalization", channels, p.Name())
			}
		}

		for _, out := range strip.Outputs() {
			if !final.Contains(out.Proc) {
				t.Errorf("channels=%d: output %s missing", channels, out.Proc.Name())
			}
		}
	}
}

func TestMonoStripWithMonoOutputSkipsPan(t *testing.T) {
	t.Parallel()

	cfg := stripConfig(t, 1)
	cfg.OutputChannels = 1

	strip := NewChannelStrip(cfg)

	if len(strip.Inputs()) != 1 || len(strip.Outputs()) != 1 {
		t.Fatalf("ports %d in, %d out", len(strip.Inputs()), len(strip.Outputs()))
	}

	// volume, mute, solo
	if n := len(strip.EventInputs()); n != 3 {
		t.Errorf("%d event inputs, want 3", n)
	}

	g := graph.New()
	strip.Connect(g)

	final, _ := graph.Finalize(g)
	for _, p := range final.Processors() {
		if _, ok := p.(*processor.Pan); ok {
			t.Errorf("unexpected pan processor %s", p.Name())
		}
	}

	// A stereo strip ignores a mono output request.
	cfg = stripConfig(t, 2)
	cfg.OutputChannels = 1

	if n := len(NewChannelStrip(cfg).Outputs()); n != 2 {
		t.Errorf("stereo strip has %d outputs, want 2", n)
	}
}

func TestStereoMeterFeedsPeakAndRMS(t *testing.T) {
	t.Parallel()

	m := NewStereoMeter("meter", 48000, 0.1, 32)

	g := graph.New()
	m.Connect(g)

	final, _ := graph.Finalize(g)

	var peaks, rms int

	for _, p := range final.Processors() {
		switch p.(type) {
		case *processor.PeakMeter:
			peaks++
		case *processor.RMSMeter:
			rms++
		}
	}

	if peaks != 2 || rms != 2 {
		t.Errorf("meters = %d peak, %d rms; want 2 and 2", peaks, rms)
	}

	if (m.RMS() != param.StereoLevel{}) {
		t.Errorf("RMS before processing = %+v", m.RMS())
	}

	if NewStereoMeter("peak only", 48000, 0.1, 0).RMS() != (param.StereoLevel{}) {
		t.Error("disabled RMS must read zero")
	}
}

func TestChannelStripRejectsBadChannelCount(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()

	NewChannelStrip(stripConfig(t, 3))
}
