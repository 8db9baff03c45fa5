package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the device counters exported to Prometheus.
type Metrics struct {
	Periods prometheus.Counter
	Xruns   prometheus.Counter
	CPULoad prometheus.Gauge
}

// NewMetrics registers the device metrics with reg. A nil reg yields
// unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Periods: f.NewCounter(prometheus.CounterOpts{
			Name: "mixer_device_periods_total",
			Help: "Number of periods processed.",
		}),
		Xruns: f.NewCounter(prometheus.CounterOpts{
			Name: "mixer_device_xruns_total",
			Help: "Number of periods that missed their deadline or were reported as over/underrun by the device.",
		}),
		CPULoad: f.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_device_cpu_load",
			Help: "Process time of the last period divided by the period duration.",
		}),
	}
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithMetrics exports the loop statistics.
func WithMetrics(m *Metrics) LoopOption {
	return func(l *Loop) { l.metrics = m }
}

// WithLogger sets the logger used outside the period path.
func WithLogger(logger *slog.Logger) LoopOption {
	return func(l *Loop) { l.logger = logger }
}

// WithBuffers makes the loop use b instead of allocating its own buffers,
// so a process function can be bound to them in advance. b must hold the
// configured channel counts and at least one period.
func WithBuffers(b *Buffers) LoopOption {
	return func(l *Loop) { l.buffers = b }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) LoopOption {
	return func(l *Loop) { l.now = now }
}

// Loop runs a ProcessFunc once per period and keeps xrun and cpu-load
// statistics. It serves both callback devices (Callback) and blocking
// devices (Run).
type Loop struct {
	cfg     Config
	buffers *Buffers
	process ProcessFunc
	period  time.Duration

	metrics *Metrics
	logger  *slog.Logger
	now     func() time.Time

	xruns   atomic.Uint64
	periods atomic.Uint64
	load    atomic.Uint64 // math.Float64bits
}

// NewLoop returns a loop for cfg calling fn.
func NewLoop(cfg Config, fn ProcessFunc, opts ...LoopOption) *Loop {
	if cfg.SampleRate <= 0 || cfg.PeriodSize <= 0 {
		panic(fmt.Sprintf("device: invalid config %+v", cfg))
	}

	l := &Loop{
		cfg:     cfg,
		process: fn,
		period:  time.Duration(float64(cfg.PeriodSize) / float64(cfg.SampleRate) * float64(time.Second)),
		logger:  slog.Default(),
		now:     time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	if l.buffers == nil {
		l.buffers = NewBuffers(cfg.InputChannels, cfg.OutputChannels, cfg.PeriodSize)
	}

	return l
}

// Buffers returns the period buffers passed to the process function.
func (l *Loop) Buffers() *Buffers { return l.buffers }

// Xruns returns the number of xruns seen so far.
func (l *Loop) Xruns() uint64 { return l.xruns.Load() }

// Periods returns the number of processed periods.
func (l *Loop) Periods() uint64 { return l.periods.Load() }

// CPULoad returns the load of the last period, where 1 means the period
// took as long as its playback.
func (l *Loop) CPULoad() float64 { return math.Float64frombits(l.load.Load()) }

// Callback processes one period of interleaved float32 hardware buffers.
// xrun reports an over/underrun flagged by the device since the previous
// callback. frames is clamped to the period size.
func (l *Loop) Callback(out, in []float32, frames int, xrun bool) {
	frames = min(frames, l.cfg.PeriodSize)

	if xrun {
		l.countXrun()
	}

	DeinterleaveFloat32(l.buffers.In, in, l.cfg.InputChannels, frames)
	l.runPeriod(frames)
	InterleaveFloat32(out, l.buffers.Out, l.cfg.OutputChannels, frames)
}

// Run drives dev until ctx is done, the device is exhausted, or an I/O
// error occurs. Exhaustion is not an error; the last partial period is
// processed and written.
func (l *Loop) Run(ctx context.Context, dev Device) error {
	l.logger.Info("device loop started",
		"sample_rate", l.cfg.SampleRate,
		"period_size", l.cfg.PeriodSize,
		"inputs", l.cfg.InputChannels,
		"outputs", l.cfg.OutputChannels,
	)

	defer func() {
		l.logger.Info("device loop stopped", "periods", l.Periods(), "xruns", l.Xruns())
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := dev.Read(ctx, l.buffers, l.cfg.PeriodSize)
		eof := errors.Is(err, io.EOF)

		if err != nil && !eof {
			return fmt.Errorf("device: read: %w", err)
		}

		if n > 0 {
			l.runPeriod(n)

			if err := dev.Write(ctx, l.buffers, n); err != nil {
				return fmt.Errorf("device: write: %w", err)
			}
		}

		if eof {
			return nil
		}
	}
}

func (l *Loop) runPeriod(frames int) {
	start := l.now()

	l.buffers.ClearOut(frames)
	l.process(l.buffers, frames)

	elapsed := l.now().Sub(start)
	deadline := time.Duration(float64(l.period) * float64(frames) / float64(l.cfg.PeriodSize))

	var load float64
	if deadline > 0 {
		load = float64(elapsed) / float64(deadline)
	}

	l.load.Store(math.Float64bits(load))
	l.periods.Add(1)

	if l.metrics != nil {
		l.metrics.Periods.Inc()
		l.metrics.CPULoad.Set(load)
	}

	if elapsed > deadline {
		l.countXrun()
	}
}

func (l *Loop) countXrun() {
	l.xruns.Add(1)

	if l.metrics != nil {
		l.metrics.Xruns.Inc()
	}
}
