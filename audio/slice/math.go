package slice

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Add returns a + b. Constant operands are folded; when both are constant
// the result is constant and out is untouched. Otherwise the sum is written
// to out, which must hold at least as many frames as the span operand.
func Add(a, b Slice, out []float64) Slice {
	switch {
	case a.IsConstant() && b.IsConstant():
		return Constant(a.constant + b.constant)
	case a.IsSilence():
		return b
	case b.IsSilence():
		return a
	case a.IsConstant():
		return addConstant(b.span, a.constant, out)
	case b.IsConstant():
		return addConstant(a.span, b.constant, out)
	}

	n := min(len(a.span), len(b.span))
	out = out[:n]
	vecmath.AddBlock(out, a.span[:n], b.span[:n])

	return Span(out)
}

func addConstant(span []float64, c float64, out []float64) Slice {
	out = out[:len(span)]
	for i, x := range span {
		out[i] = x + c
	}

	return Span(out)
}

// Multiply returns the elementwise product a * b. Multiplying by constant
// zero yields silence and by constant one returns the other operand.
func Multiply(a, b Slice, out []float64) Slice {
	switch {
	case a.IsConstant() && b.IsConstant():
		return Constant(a.constant * b.constant)
	case a.IsConstant():
		return Scale(b, a.constant, out)
	case b.IsConstant():
		return Scale(a, b.constant, out)
	}

	n := min(len(a.span), len(b.span))
	out = out[:n]
	vecmath.MulBlock(out, a.span[:n], b.span[:n])

	return Span(out)
}

// Scale returns s * gain.
func Scale(s Slice, gain float64, out []float64) Slice {
	switch {
	case gain == 0:
		return Silence()
	case gain == 1:
		return s
	case s.IsConstant():
		return Constant(s.constant * gain)
	}

	out = out[:len(s.span)]
	vecmath.ScaleBlock(out, s.span, gain)

	return Span(out)
}

// Clip limits s to [lo, hi].
func Clip(s Slice, lo, hi float64, out []float64) Slice {
	if s.IsConstant() {
		return Constant(clamp(s.constant, lo, hi))
	}

	out = out[:len(s.span)]
	for i, x := range s.span {
		out[i] = clamp(x, lo, hi)
	}

	return Span(out)
}

// MaxAbs returns the largest absolute sample value of s.
func MaxAbs(s Slice) float64 {
	if s.IsConstant() {
		return math.Abs(s.constant)
	}

	return vecmath.MaxAbs(s.span)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}

	if x > hi {
		return hi
	}

	return x
}
