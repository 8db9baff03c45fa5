package fx

import (
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/stream"
	"github.com/nooploop/piejam-sub003/internal/testutil"
)

const sampleRate = 48000

func build(t *testing.T, r *Registry, moduleType string, channels int) *runtimeModule {
	t.Helper()

	def, ok := r.Lookup(moduleType)
	if !ok {
		t.Fatalf("%s not registered", moduleType)
	}

	c, err := r.Build(moduleType, BuildContext{
		Name:          moduleType,
		SampleRate:    sampleRate,
		Channels:      channels,
		MaxBufferSize: 512,
		Params:        slots(t, def.Params),
	})
	if err != nil {
		t.Fatalf("Build(%s): %v", moduleType, err)
	}

	m, ok := c.(*runtimeModule)
	if !ok {
		t.Fatalf("Build(%s) returned %T", moduleType, c)
	}

	return m
}

func TestRegistryRegister(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	def := Definition{Build: buildTap}

	if err := r.Register("", def); err == nil {
		t.Error("empty type must be rejected")
	}

	if err := r.Register("x", Definition{}); err == nil {
		t.Error("nil builder must be rejected")
	}

	if err := r.Register("x", def); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := r.Register("x", def); !errors.Is(err, errDuplicateModule) {
		t.Errorf("duplicate registration: got %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustRegister must panic on duplicates")
		}
	}()

	r.MustRegister("x", def)
}

func TestDefaultRegistryTypes(t *testing.T) {
	t.Parallel()

	want := []string{
		"compressor", "delay", "filter-highpass", "filter-lowpass",
		"gain", "gate", "reverb", "scope", "spectrum",
	}

	if got := DefaultRegistry().Types(); !slices.Equal(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestBuildErrors(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()

	if _, err := r.Build("nope", BuildContext{Channels: 1}); !errors.Is(err, ErrUnknownModule) {
		t.Errorf("unknown type: got %v", err)
	}

	if _, err := r.Build("gain", BuildContext{Channels: 1}); !errors.Is(err, ErrParamMismatch) {
		t.Errorf("missing params: got %v", err)
	}

	if _, err := r.Build("scope", BuildContext{Channels: 1}); err == nil {
		t.Error("scope without a stream must fail")
	}
}

func TestGainModule(t *testing.T) {
	t.Parallel()

	m := build(t, DefaultRegistry(), "gain", 2)
	in := testutil.DC(0.5, 64)

	out := runBlock(t, m.proc, [][]float64{in, in}, map[int]float64{0: -6})

	want := 0.5 * math.Pow(10, -6.0/20)
	for ch := range out {
		testutil.RequireSliceNearlyEqual(t, out[ch], testutil.DC(want, 64), 1e-12)
	}

	if len(m.EventInputs()) != 1 || len(m.Inputs()) != 2 || len(m.Outputs()) != 2 {
		t.Errorf("ports = %d events, %d in, %d out", len(m.EventInputs()), len(m.Inputs()), len(m.Outputs()))
	}
}

func TestLowpassAttenuatesHighFrequencies(t *testing.T) {
	t.Parallel()

	m := build(t, DefaultRegistry(), "filter-lowpass", 1)

	high := testutil.DeterministicSine(12000, sampleRate, 1, 4096)
	low := testutil.DeterministicSine(100, sampleRate, 1, 4096)

	events := map[int]float64{0: 500}

	highOut := runBlock(t, m.proc, [][]float64{high}, events)[0]

	m2 := build(t, DefaultRegistry(), "filter-lowpass", 1)
	lowOut := runBlock(t, m2.proc, [][]float64{low}, events)[0]

	if r := rms(highOut[2048:]); r > 0.05 {
		t.Errorf("12 kHz through 500 Hz lowpass has rms %v", r)
	}

	if r := rms(lowOut[2048:]); r < 0.6 {
		t.Errorf("100 Hz through 500 Hz lowpass has rms %v", r)
	}
}

func TestDynamicsAndTimeBasedModulesRun(t *testing.T) {
	t.Parallel()

	r := DefaultRegistry()
	in := testutil.DeterministicNoise(7, 0.5, 256)

	for _, typ := range []string{"compressor", "gate", "delay", "reverb", "filter-highpass"} {
		m := build(t, r, typ, 2)
		out := runBlock(t, m.proc, [][]float64{in, in}, nil)

		for ch := range out {
			for i, v := range out[ch] {
				if math.IsNaN(v) || math.IsInf(v, 0) {
					t.Fatalf("%s: channel %d sample %d is %v", typ, ch, i, v)
				}
			}
		}

		if m.proc.ConfigErrors() != 0 {
			t.Errorf("%s: %d configuration errors", typ, m.proc.ConfigErrors())
		}
	}
}

func TestScopeTapsIntoStream(t *testing.T) {
	t.Parallel()

	s := stream.New(2, 64)

	c, err := DefaultRegistry().Build("scope", BuildContext{Name: "scope", Channels: 2, Stream: s})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	g := graph.New()
	c.Connect(g)

	final, _ := graph.Finalize(g)
	if final.Len() != 1 {
		t.Errorf("finalized scope has %d processors, want only the stream sink", final.Len())
	}

	tp := c.(*tap)
	runBlock(t, tp.sink, [][]float64{{1, 2}, {3, 4}}, nil)

	dst := make([]float64, 4)
	if n := s.Read(dst); n != 2 || !slices.Equal(dst, []float64{1, 3, 2, 4}) {
		t.Errorf("stream = %v (%d frames)", dst, n)
	}
}

func TestUnavailableIsPassThrough(t *testing.T) {
	t.Parallel()

	cause := errors.New("plugin missing")
	u := Unavailable("ladspa", 2, cause)

	if !errors.Is(u.Err(), cause) {
		t.Errorf("Err() = %v", u.Err())
	}

	g := graph.New()
	u.Connect(g)

	if final, _ := graph.Finalize(g); final.Len() != 0 {
		t.Errorf("unavailable module left %d processors", final.Len())
	}
}
