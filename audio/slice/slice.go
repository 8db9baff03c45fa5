// Package slice provides the audio block representation passed between
// processors.
//
// A Slice is either a constant signal (a single value standing in for every
// frame of the block) or a span over a real sample buffer. Constant slices
// let silence and DC signals propagate through the graph without
// materializing memory: summing two constants yields a constant, multiplying
// by constant zero yields silence, and so on.
package slice

// Slice is one block of audio samples.
//
// The zero value is silence.
type Slice struct {
	span     []float64
	constant float64
}

// Constant returns a slice whose every frame equals v.
func Constant(v float64) Slice {
	return Slice{constant: v}
}

// Silence returns the constant zero slice.
func Silence() Slice {
	return Slice{}
}

// Span returns a slice referencing samples. The slice does not copy; callers
// must keep samples alive and unmodified for as long as the slice is read.
// A nil or empty span is treated as silence.
func Span(samples []float64) Slice {
	if len(samples) == 0 {
		return Slice{}
	}

	return Slice{span: samples}
}

// IsConstant reports whether s is a constant slice.
func (s Slice) IsConstant() bool {
	return s.span == nil
}

// IsSilence reports whether s is the constant zero slice.
func (s Slice) IsSilence() bool {
	return s.span == nil && s.constant == 0
}

// Value returns the constant value. It is only meaningful if IsConstant.
func (s Slice) Value() float64 {
	return s.constant
}

// Samples returns the referenced span, or nil for constant slices.
func (s Slice) Samples() []float64 {
	return s.span
}

// At returns frame i.
func (s Slice) At(i int) float64 {
	if s.span == nil {
		return s.constant
	}

	return s.span[i]
}

// Sub returns the frames [from, to) of s. Constant slices stay constant.
func (s Slice) Sub(from, to int) Slice {
	if s.span == nil {
		return s
	}

	return Slice{span: s.span[from:to]}
}

// CopyTo materializes s into dst.
func (s Slice) CopyTo(dst []float64) {
	if s.span == nil {
		Fill(dst, s.constant)
		return
	}

	copy(dst, s.span)
}

// Fill sets every element of dst to v.
func Fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
