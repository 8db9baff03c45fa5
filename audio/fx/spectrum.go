package fx

import (
	"fmt"
	"math/cmplx"

	algofft "github.com/cwbudde/algo-fft"
	"github.com/cwbudde/algo-dsp/dsp/window"

	"github.com/nooploop/piejam-sub003/audio/stream"
)

// SpectrumAnalyzer turns the audio of a spectrum module's stream into
// magnitude bins for display. It runs on the consumer side and is not safe
// for concurrent use.
type SpectrumAnalyzer struct {
	size     int
	plan     *algofft.Plan[complex128]
	window   []float64
	gain     float64
	history  []float64
	frames   []float64
	spectrum []complex128
	mags     []float64
}

// NewSpectrumAnalyzer returns an analyzer over the last size samples.
func NewSpectrumAnalyzer(size int) (*SpectrumAnalyzer, error) {
	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return nil, fmt.Errorf("fx: spectrum analyzer: create FFT plan: %w", err)
	}

	coeffs := window.Generate(window.TypeHann, size, window.WithPeriodic())
	if len(coeffs) != size {
		return nil, fmt.Errorf("fx: spectrum analyzer: window generation failed for size %d", size)
	}

	var sum float64
	for _, w := range coeffs {
		sum += w
	}

	return &SpectrumAnalyzer{
		size:     size,
		plan:     plan,
		window:   coeffs,
		gain:     1 / sum,
		history:  make([]float64, size),
		spectrum: make([]complex128, size),
		mags:     make([]float64, size/2+1),
	}, nil
}

// Bins returns the number of magnitude bins.
func (a *SpectrumAnalyzer) Bins() int { return len(a.mags) }

// BinFrequency returns the center frequency of bin i.
func (a *SpectrumAnalyzer) BinFrequency(i int, sampleRate float64) float64 {
	return float64(i) * sampleRate / float64(a.size)
}

// Push appends mono samples to the analysis window.
func (a *SpectrumAnalyzer) Push(samples []float64) {
	if len(samples) >= a.size {
		copy(a.history, samples[len(samples)-a.size:])
		return
	}

	copy(a.history, a.history[len(samples):])
	copy(a.history[a.size-len(samples):], samples)
}

// Consume drains s, mixing its channels down to mono, and returns the
// number of frames read.
func (a *SpectrumAnalyzer) Consume(s *stream.Stream) int {
	nch := s.Channels()
	if cap(a.frames) < a.size*nch {
		a.frames = make([]float64, a.size*nch)
	}

	total := 0

	for {
		n := s.Read(a.frames[:a.size*nch])
		if n == 0 {
			return total
		}

		mono := a.frames[:n]
		for i := range n {
			var sum float64
			for ch := range nch {
				sum += a.frames[i*nch+ch]
			}

			mono[i] = sum / float64(nch)
		}

		a.Push(mono)

		total += n
	}
}

// Magnitudes computes the single-sided amplitude spectrum of the current
// window. A full-scale sine centered on a bin reads 1.0 in that bin. The
// returned slice is reused by the next call.
func (a *SpectrumAnalyzer) Magnitudes() ([]float64, error) {
	for i, x := range a.history {
		a.spectrum[i] = complex(x*a.window[i], 0)
	}

	if err := a.plan.Forward(a.spectrum, a.spectrum); err != nil {
		return nil, fmt.Errorf("fx: spectrum analyzer: %w", err)
	}

	last := len(a.mags) - 1
	for i := range a.mags {
		m := cmplx.Abs(a.spectrum[i]) * a.gain
		if i != 0 && i != last {
			m *= 2
		}

		a.mags[i] = m
	}

	return a.mags, nil
}
