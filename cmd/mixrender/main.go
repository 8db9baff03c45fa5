// Command mixrender renders a WAV file through a mixer channel strip and
// writes the stereo main output to another WAV file.
//
// Usage:
//
//	mixrender [flags] input.wav output.wav
//
// The input becomes one mono or stereo channel feeding main. Effect modules
// are inserted into that channel in flag order.
//
// Examples:
//
//	mixrender in.wav out.wav
//	mixrender -volume 0.8 -pan -0.3 in.wav out.wav
//	mixrender -fx filter-highpass:freq=120 -fx compressor:threshold=-18,ratio=3 in.wav out.wav
//	mixrender -spectrum 4096 in.wav out.wav
//	mixrender -list
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/go-audio/wav"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nooploop/piejam-sub003/audio/device"
	"github.com/nooploop/piejam-sub003/audio/engine"
	"github.com/nooploop/piejam-sub003/audio/fx"
	"github.com/nooploop/piejam-sub003/audio/processor"
	"github.com/nooploop/piejam-sub003/audio/stream"
	"github.com/nooploop/piejam-sub003/mixer"
)

// moduleFlags collects repeated -fx flags.
type moduleFlags []string

func (m *moduleFlags) String() string { return strings.Join(*m, " ") }

func (m *moduleFlags) Set(v string) error {
	*m = append(*m, v)
	return nil
}

// moduleSpec is a parsed -fx value: type[:name=value[,name=value...]].
type moduleSpec struct {
	typ    string
	params map[string]float64
}

func parseModuleSpec(s string) (moduleSpec, error) {
	typ, rest, _ := strings.Cut(strings.TrimSpace(s), ":")
	spec := moduleSpec{typ: strings.ToLower(typ), params: make(map[string]float64)}

	if spec.typ == "" {
		return spec, fmt.Errorf("empty module type in %q", s)
	}

	if rest == "" {
		return spec, nil
	}

	for _, kv := range strings.Split(rest, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return spec, fmt.Errorf("parameter %q of %s: want name=value", kv, spec.typ)
		}

		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return spec, fmt.Errorf("parameter %q of %s: %w", k, spec.typ, err)
		}

		spec.params[strings.TrimSpace(k)] = f
	}

	return spec, nil
}

func main() {
	var modules moduleFlags

	period := flag.Int("period", 256, "period size in frames")
	workers := flag.Int("workers", 0, "worker goroutines helping the render thread")
	volume := flag.Float64("volume", 1, "linear channel volume")
	pan := flag.Float64("pan", 0, "pan (mono input) or balance (stereo input) in [-1, 1]")
	law := flag.String("law", "equal-power", "pan law: equal-power or linear")
	clip := flag.Bool("clip", false, "hard-clip the device outputs to [-1, 1]")
	spectrum := flag.Int("spectrum", 0, "print the strongest bins of an FFT of this size over the output tail")
	list := flag.Bool("list", false, "list available fx module types")
	verbose := flag.Bool("v", false, "log engine activity to stderr")
	flag.Var(&modules, "fx", "insert an fx module, type[:name=value,...] (repeatable)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: mixrender [flags] input.wav output.wav\n\n")
		fmt.Fprintf(os.Stderr, "Renders a WAV file through a mixer channel into a stereo WAV file.\n\n")
		fmt.Fprintf(os.Stderr, "Flags:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  mixrender -volume 0.8 in.wav out.wav\n")
		fmt.Fprintf(os.Stderr, "  mixrender -fx filter-highpass:freq=120 -fx reverb:wet=0.3 in.wav out.wav\n")
		fmt.Fprintf(os.Stderr, "  mixrender -list\n")
	}
	flag.Parse()

	registry := fx.DefaultRegistry()

	if *list {
		printList(registry)
		return
	}

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	panLaw := processor.EqualPower
	switch strings.ToLower(*law) {
	case "equal-power":
	case "linear":
		panLaw = processor.Linear
	default:
		fmt.Fprintf(os.Stderr, "error: unknown pan law %q\n", *law)
		os.Exit(2)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	r := renderer{
		registry: registry,
		logger:   logger,
		period:   *period,
		workers:  *workers,
		volume:   *volume,
		pan:      *pan,
		panLaw:   panLaw,
		clip:     *clip,
		spectrum: *spectrum,
	}

	for _, m := range modules {
		spec, err := parseModuleSpec(m)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: -fx: %v\n", err)
			os.Exit(2)
		}

		r.modules = append(r.modules, spec)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := r.render(ctx, flag.Arg(0), flag.Arg(1)); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func printList(r *fx.Registry) {
	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Type\tParameters\n")
	_, _ = fmt.Fprintf(tw, "----\t----------\n")

	for _, typ := range r.Types() {
		def, _ := r.Lookup(typ)

		var params []string
		for _, p := range def.Params {
			params = append(params, fmt.Sprintf("%s=%g [%g..%g]", p.Name, p.Default, p.Min, p.Max))
		}

		_, _ = fmt.Fprintf(tw, "%s\t%s\n", typ, strings.Join(params, ", "))
	}

	if err := tw.Flush(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: failed to flush output: %v\n", err)
	}
}

type renderer struct {
	registry *fx.Registry
	logger   *slog.Logger

	period   int
	workers  int
	volume   float64
	pan      float64
	panLaw   processor.PanLaw
	clip     bool
	spectrum int
	modules  []moduleSpec
}

// wavFormat returns the sample rate and channel count of a WAV stream and
// rewinds it.
func wavFormat(r io.ReadSeeker) (sampleRate, channels int, err error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, 0, errors.New("not a wav file")
	}

	sampleRate, channels = int(dec.SampleRate), int(dec.NumChans)

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, 0, err
	}

	return sampleRate, channels, nil
}

func (r *renderer) state(channels int) (*mixer.State, mixer.ChannelID, mixer.StreamID, error) {
	st := mixer.NewState()

	bus := mixer.Mono
	if channels > 1 {
		bus = mixer.Stereo
	}

	id := st.AddChannel("input", bus)

	if err := st.SetInput(id, mixer.DeviceRoute(0)); err != nil {
		return nil, id, mixer.StreamID{}, err
	}

	if err := st.SetVolume(id, r.volume); err != nil {
		return nil, id, mixer.StreamID{}, err
	}

	if err := st.SetPan(id, r.pan); err != nil {
		return nil, id, mixer.StreamID{}, err
	}

	for i, spec := range r.modules {
		def, ok := r.registry.Lookup(spec.typ)
		if !ok {
			return nil, id, mixer.StreamID{}, fmt.Errorf("%w: %q (use -list)", fx.ErrUnknownModule, spec.typ)
		}

		mid, err := st.InsertModule(id, i, spec.typ, def)
		if err != nil {
			return nil, id, mixer.StreamID{}, err
		}

		m, _ := st.Module(mid)

		for name, v := range spec.params {
			idx := -1

			for j, p := range def.Params {
				if p.Name == name {
					idx = j
				}
			}

			if idx < 0 {
				return nil, id, mixer.StreamID{}, fmt.Errorf("%w: %s has no parameter %q", fx.ErrParamMismatch, spec.typ, name)
			}

			if err := st.Params.Floats.Set(m.Params[idx], v); err != nil {
				return nil, id, mixer.StreamID{}, err
			}
		}
	}

	var sid mixer.StreamID

	if r.spectrum > 0 {
		def, _ := r.registry.Lookup("spectrum")

		mid, err := st.InsertModule(st.Main, 0, "spectrum", def)
		if err != nil {
			return nil, id, sid, err
		}

		m, _ := st.Module(mid)
		sid = m.Stream
	}

	return st, id, sid, nil
}

func (r *renderer) render(ctx context.Context, inPath, outPath string) error {
	in, err := os.Open(inPath)
	if err != nil {
		return err
	}
	defer in.Close()

	sampleRate, channels, err := wavFormat(in)
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}

	channels = min(channels, 2)

	st, _, sid, err := r.state(channels)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()

	e, err := engine.New(
		engine.WithSampleRate(sampleRate),
		engine.WithPeriodSize(r.period),
		engine.WithChannels(channels, 2),
		engine.WithWorkers(r.workers),
		engine.WithPanLaw(r.panLaw),
		engine.WithOutputClip(r.clip),
		engine.WithLogger(r.logger),
		engine.WithRegisterer(reg),
		engine.WithRegistry(r.registry),
	)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.Rebuild(ctx, st); err != nil {
		return err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	cfg := e.Config().Device

	dev, err := device.OpenWAV(cfg, out, device.WithInput(in))
	if err != nil {
		return fmt.Errorf("%s: %w", inPath, err)
	}

	process := e.ProcessFunc()

	var analyzer *fx.SpectrumAnalyzer

	if r.spectrum > 0 {
		if analyzer, err = fx.NewSpectrumAnalyzer(r.spectrum); err != nil {
			return err
		}

		s, ok := e.Stream(sid)
		if !ok {
			return errors.New("spectrum stream missing")
		}

		// Offline there is no deadline, so the stream can be drained
		// right after each period.
		process = drainAfter(process, analyzer, s)
	}

	loop := device.NewLoop(cfg, process,
		device.WithBuffers(e.Buffers()),
		device.WithMetrics(device.NewMetrics(reg)),
		device.WithLogger(r.logger),
	)

	e.Start()
	runErr := loop.Run(ctx, dev)
	e.Stop()

	if err := dev.Close(); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	e.UpdateLevels(st)

	return r.report(st, dev, loop, analyzer, float64(sampleRate))
}

func drainAfter(fn device.ProcessFunc, a *fx.SpectrumAnalyzer, s *stream.Stream) device.ProcessFunc {
	return func(b *device.Buffers, frames int) {
		fn(b, frames)
		a.Consume(s)
	}
}

func (r *renderer) report(st *mixer.State, dev *device.WAV, loop *device.Loop, a *fx.SpectrumAnalyzer, sampleRate float64) error {
	main, err := st.Channel(st.Main)
	if err != nil {
		return err
	}

	lvl, _ := st.Params.StereoLevels.Get(main.Level)
	rms, _ := st.Params.StereoLevels.Get(main.RMS)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(tw, "Frames\t%d\n", dev.Frames())
	_, _ = fmt.Fprintf(tw, "Periods\t%d\n", loop.Periods())
	_, _ = fmt.Fprintf(tw, "Xruns\t%d\n", loop.Xruns())
	_, _ = fmt.Fprintf(tw, "CPU load (last period)\t%.3f\n", loop.CPULoad())
	_, _ = fmt.Fprintf(tw, "Final peak L/R [dB]\t%.2f / %.2f\n", toDB(lvl.Left), toDB(lvl.Right))
	_, _ = fmt.Fprintf(tw, "Final RMS L/R [dB]\t%.2f / %.2f\n", toDB(rms.Left), toDB(rms.Right))

	if a != nil {
		mags, err := a.Magnitudes()
		if err != nil {
			return err
		}

		for i, bin := range strongest(mags, 5) {
			_, _ = fmt.Fprintf(tw, "Peak %d\t%.1f Hz  %.2f dB\n", i+1, a.BinFrequency(bin, sampleRate), toDB(mags[bin]))
		}
	}

	return tw.Flush()
}

func strongest(mags []float64, n int) []int {
	idx := make([]int, len(mags))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool { return mags[idx[a]] > mags[idx[b]] })

	return idx[:min(n, len(idx))]
}

func toDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}

	return 20 * math.Log10(v)
}
