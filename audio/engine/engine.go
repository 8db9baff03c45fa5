// Package engine turns the mixer state into a running audio graph.
//
// Rebuild translates a mixer.State into a processor graph, finalizes it,
// compiles it into a task DAG and hot-swaps the resulting executor into the
// Process driven by the audio thread. Rebuilds allocate freely and run on
// the control thread; the audio thread only ever sees a complete old or a
// complete new executor.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nooploop/piejam-sub003/audio/dag"
	"github.com/nooploop/piejam-sub003/audio/device"
	"github.com/nooploop/piejam-sub003/audio/fx"
	"github.com/nooploop/piejam-sub003/audio/graph"
	"github.com/nooploop/piejam-sub003/audio/stream"
	"github.com/nooploop/piejam-sub003/mixer"
)

// Engine owns the process, the worker pool and everything a rebuild
// produces that outlives it: GUI streams and meter bindings.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	metrics  *Metrics
	registry *fx.Registry

	buffers *device.Buffers
	pool    *dag.WorkerPool
	process *Process

	mu      sync.Mutex
	streams map[mixer.StreamID]*stream.Stream
	meters  []meterBinding
	live    *graph.Graph
	closed  bool
}

// New returns a stopped engine with an empty graph.
func New(opts ...Option) (*Engine, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.Registry == nil {
		cfg.Registry = fx.DefaultRegistry()
	}

	e := &Engine{
		cfg:      cfg,
		logger:   cfg.Logger.With("component", "engine"),
		metrics:  newMetrics(cfg.Registerer),
		registry: cfg.Registry,
		buffers:  device.NewBuffers(cfg.Device.InputChannels, cfg.Device.OutputChannels, cfg.Device.PeriodSize),
		process:  NewProcess(nil),
		streams:  make(map[mixer.StreamID]*stream.Stream),
	}

	if cfg.Workers > 0 {
		e.pool = dag.NewWorkerPool(cfg.Workers)
	}

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// Metrics returns the engine collectors.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Buffers returns the device buffers the graph reads and writes. A device
// loop should be created with device.WithBuffers(e.Buffers()).
func (e *Engine) Buffers() *device.Buffers { return e.buffers }

// ProcessFunc returns the function the device calls once per period.
// Buffers other than Buffers() are copied in and out.
func (e *Engine) ProcessFunc() device.ProcessFunc {
	return func(b *device.Buffers, frames int) {
		frames = min(frames, e.cfg.Device.PeriodSize)

		if b == e.buffers {
			e.process.Run(frames)
			return
		}

		copyChannels(e.buffers.In, b.In, frames)
		e.buffers.ClearOut(frames)
		e.process.Run(frames)
		copyChannels(b.Out, e.buffers.Out, frames)
	}
}

func copyChannels(dst, src [][]float64, frames int) {
	for i := range min(len(dst), len(src)) {
		copy(dst[i][:frames], src[i][:frames])
	}
}

// Start tells the engine the audio thread is calling the process function.
func (e *Engine) Start() {
	e.process.Start()
	e.logger.Info("engine started")
}

// Stop tells the engine the audio thread stopped calling the process
// function. Rebuilds keep working while stopped.
func (e *Engine) Stop() {
	e.process.Stop()
	e.logger.Info("engine stopped")
}

// Close stops the engine and releases the worker pool.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}

	e.closed = true
	e.process.Stop()

	if e.pool != nil {
		e.pool.Close()
	}

	return nil
}

// Rebuild replaces the running graph with one built from st. On error the
// previous graph keeps running.
func (e *Engine) Rebuild(ctx context.Context, st *mixer.State) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return errors.New("engine: closed")
	}

	start := time.Now()

	b, err := e.build(st)
	if err != nil {
		e.metrics.RebuildErrors.Inc()
		return fmt.Errorf("engine: rebuild: %w", err)
	}

	final, mixers := graph.Finalize(b.graph)
	exec := GraphToDAG(final, e.cfg.Device.PeriodSize).MakeRunnable(e.pool, e.cfg.EventMemory)

	if err := e.install(ctx, exec); err != nil {
		e.metrics.RebuildErrors.Inc()
		return fmt.Errorf("engine: rebuild: %w", err)
	}

	e.streams = b.streams
	e.meters = b.meters
	e.live = final

	elapsed := time.Since(start)

	e.metrics.Rebuilds.Inc()
	e.metrics.Processors.Set(float64(final.Len()))
	e.metrics.Mixers.Set(float64(len(mixers)))
	e.metrics.Unavailable.Set(float64(b.unavailable))
	e.metrics.RebuildSeconds.Observe(elapsed.Seconds())

	e.logger.Info("graph rebuilt",
		"channels", len(b.strips),
		"processors", final.Len(),
		"mixers", len(mixers),
		"unavailable", b.unavailable,
		"elapsed", elapsed,
	)

	return nil
}

// install makes exec live: directly while stopped, through a swap while
// running. A start or stop racing the rebuild is retried once.
func (e *Engine) install(ctx context.Context, exec dag.Executor) error {
	for range 2 {
		if _, err := e.process.SetExecutor(exec); !errors.Is(err, ErrRunning) {
			return err
		}

		_, err := e.process.SwapExecutor(ctx, exec)

		switch {
		case err == nil:
			return nil
		case errors.Is(err, ErrNotRunning):
			continue
		case errors.Is(err, ErrSwapPending):
			e.metrics.SwapFailures.WithLabelValues("pending").Inc()
			return err
		default:
			e.metrics.SwapFailures.WithLabelValues("canceled").Inc()
			return err
		}
	}

	e.metrics.SwapFailures.WithLabelValues("not_running").Inc()

	return ErrNotRunning
}

// Graph returns the live finalized graph, for inspection.
func (e *Engine) Graph() *graph.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.live
}

// Stream returns the GUI stream of a scope or spectrum module.
func (e *Engine) Stream(id mixer.StreamID) (*stream.Stream, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.streams[id]

	return s, ok
}

// UpdateLevels publishes the meter readings of every channel into its
// peak and RMS level parameters. Call it periodically from the control
// thread.
func (e *Engine) UpdateLevels(st *mixer.State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var dropped uint64
	for _, s := range e.streams {
		dropped += s.DroppedFrames()
	}

	e.metrics.StreamDropped.Set(float64(dropped))

	for _, m := range e.meters {
		if slot, ok := st.Params.StereoLevels.Slot(m.level); ok {
			slot.Set(m.meter.Level())
		}

		if slot, ok := st.Params.StereoLevels.Slot(m.rms); ok {
			slot.Set(m.meter.RMS())
		}
	}
}

// ApplyMIDI brings st up to date with the MIDI input: controller values are
// written back into their parameters and learned controllers are assigned.
// It reports whether the assignments changed, in which case the caller
// should rebuild.
func (e *Engine) ApplyMIDI(st *mixer.State) bool {
	in := e.cfg.MIDI
	if in == nil {
		return false
	}

	if in.ApplyFeedback(st.Params) > 0 {
		st.UpdateSoloActive()
	}

	e.metrics.MIDIDropped.Set(float64(in.Dropped()))

	changed := false

	for {
		l, ok := in.PollLearned()
		if !ok {
			return changed
		}

		st.Assign(l.Source, l.Target)
		e.logger.Info("midi controller learned", "source", l.Source.String())

		changed = true
	}
}
