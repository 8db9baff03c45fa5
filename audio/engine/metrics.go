package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine collectors. They are updated by the control
// thread only.
type Metrics struct {
	Rebuilds       prometheus.Counter
	RebuildErrors  prometheus.Counter
	SwapFailures   *prometheus.CounterVec
	Processors     prometheus.Gauge
	Mixers         prometheus.Gauge
	Unavailable    prometheus.Gauge
	RebuildSeconds prometheus.Histogram
	StreamDropped  prometheus.Gauge
	MIDIDropped    prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		Rebuilds: f.NewCounter(prometheus.CounterOpts{
			Name: "mixer_engine_rebuilds_total",
			Help: "Number of completed graph rebuilds.",
		}),
		RebuildErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "mixer_engine_rebuild_errors_total",
			Help: "Number of rebuilds that failed before a new executor went live.",
		}),
		SwapFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "mixer_engine_swap_failures_total",
			Help: "Number of executor swaps that failed, by reason.",
		}, []string{"reason"}),
		Processors: f.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_engine_processors",
			Help: "Number of processors in the live graph.",
		}),
		Mixers: f.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_engine_inserted_mixers",
			Help: "Number of mixers inserted by the finalizer into the live graph.",
		}),
		Unavailable: f.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_engine_unavailable_modules",
			Help: "Number of fx modules replaced by a pass-through because they failed to build.",
		}),
		RebuildSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "mixer_engine_rebuild_seconds",
			Help:    "Time to build, compile and swap a graph.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		StreamDropped: f.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_engine_stream_dropped_frames",
			Help: "Frames dropped by GUI streams because their consumer fell behind.",
		}),
		MIDIDropped: f.NewGauge(prometheus.GaugeOpts{
			Name: "mixer_engine_midi_dropped_events",
			Help: "MIDI events dropped because the input queue was full.",
		}),
	}
}
