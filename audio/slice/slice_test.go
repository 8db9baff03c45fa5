package slice

import (
	"testing"

	"github.com/nooploop/piejam-sub003/internal/testutil"
)

func TestSliceConstruction(t *testing.T) {
	t.Parallel()

	t.Run("zero value is silence", func(t *testing.T) {
		t.Parallel()

		var s Slice
		if !s.IsConstant() || !s.IsSilence() {
			t.Fatal("zero slice must be constant silence")
		}
	})

	t.Run("constant zero equals silence", func(t *testing.T) {
		t.Parallel()

		if !Constant(0).IsSilence() {
			t.Error("Constant(0) should be silence")
		}

		if Constant(0.5).IsSilence() {
			t.Error("Constant(0.5) should not be silence")
		}
	})

	t.Run("empty span collapses to silence", func(t *testing.T) {
		t.Parallel()

		if !Span(nil).IsSilence() {
			t.Error("Span(nil) should be silence")
		}
	})

	t.Run("span references buffer", func(t *testing.T) {
		t.Parallel()

		buf := []float64{1, 2, 3}
		s := Span(buf)

		if s.IsConstant() {
			t.Fatal("span slice reported as constant")
		}

		buf[1] = 7
		if s.At(1) != 7 {
			t.Errorf("span should alias buffer, got %v", s.At(1))
		}
	})
}

func TestAdd(t *testing.T) {
	t.Parallel()

	out := make([]float64, 4)

	t.Run("constants fold", func(t *testing.T) {
		t.Parallel()

		got := Add(Constant(0.5), Constant(0.5), nil)
		if !got.IsConstant() || got.Value() != 1 {
			t.Fatalf("expected constant 1, got %+v", got)
		}
	})

	t.Run("silence forwards other operand", func(t *testing.T) {
		t.Parallel()

		in := []float64{1, 2, 3, 4}

		got := Add(Silence(), Span(in), nil)
		if &got.Samples()[0] != &in[0] {
			t.Error("adding silence should forward the span unchanged")
		}
	})

	t.Run("span plus constant", func(t *testing.T) {
		t.Parallel()

		buf := make([]float64, 4)
		got := Add(Span([]float64{1, 2, 3, 4}), Constant(1), buf)
		testutil.RequireSliceNearlyEqual(t, got.Samples(), []float64{2, 3, 4, 5}, 0)
	})

	t.Run("span plus span", func(t *testing.T) {
		t.Parallel()

		got := Add(Span([]float64{1, 2, 3, 4}), Span([]float64{0.5, 0.5, 0.5, 0.5}), out)
		testutil.RequireSliceNearlyEqual(t, got.Samples(), []float64{1.5, 2.5, 3.5, 4.5}, 1e-15)
	})
}

func TestMultiply(t *testing.T) {
	t.Parallel()

	in := []float64{1, -2, 3, -4}

	if got := Multiply(Span(in), Constant(0), make([]float64, 4)); !got.IsSilence() {
		t.Error("multiply by zero should be silence")
	}

	if got := Multiply(Constant(1), Span(in), nil); &got.Samples()[0] != &in[0] {
		t.Error("multiply by one should forward the span")
	}

	got := Multiply(Span(in), Span([]float64{2, 2, 0.5, 0.5}), make([]float64, 4))
	testutil.RequireSliceNearlyEqual(t, got.Samples(), []float64{2, -4, 1.5, -2}, 1e-15)

	if c := Multiply(Constant(2), Constant(3), nil); !c.IsConstant() || c.Value() != 6 {
		t.Errorf("expected constant 6, got %+v", c)
	}
}

func TestClip(t *testing.T) {
	t.Parallel()

	got := Clip(Span([]float64{-2, -0.5, 0.5, 2}), -1, 1, make([]float64, 4))
	testutil.RequireSliceNearlyEqual(t, got.Samples(), []float64{-1, -0.5, 0.5, 1}, 0)

	if c := Clip(Constant(3), -1, 1, nil); c.Value() != 1 {
		t.Errorf("constant clip: got %v, want 1", c.Value())
	}
}

func TestMaxAbs(t *testing.T) {
	t.Parallel()

	if got := MaxAbs(Span([]float64{0.1, -0.9, 0.3})); got != 0.9 {
		t.Errorf("got %v, want 0.9", got)
	}

	if got := MaxAbs(Constant(-0.25)); got != 0.25 {
		t.Errorf("got %v, want 0.25", got)
	}
}
