// Package testutil holds helpers shared by the engine's package tests.
package testutil

import (
	"math"
	"testing"
)

// RequireSliceNearlyEqual fails t if got and want differ in length or if
// any element pair exceeds eps (absolute tolerance).
func RequireSliceNearlyEqual(t *testing.T, got, want []float64, eps float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		diff := math.Abs(got[i] - want[i])
		if diff > eps {
			t.Fatalf("index %d: got %v, want %v (diff %v > eps %v)", i, got[i], want[i], diff, eps)
		}
	}
}

// RequireBitExact fails t unless got and want hold identical samples.
func RequireBitExact(t *testing.T, got, want []float64) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}

	for i := range got {
		if math.Float64bits(got[i]) != math.Float64bits(want[i]) {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// RequireRelativeNearlyEqual fails t if got deviates from want by more than
// rel relative error. Both zero is accepted.
func RequireRelativeNearlyEqual(t *testing.T, got, want, rel float64) {
	t.Helper()

	diff := math.Abs(got - want)
	if diff == 0 {
		return
	}

	scale := math.Max(math.Abs(got), math.Abs(want))
	if diff/scale > rel {
		t.Fatalf("got %v, want %v (relative error %v > %v)", got, want, diff/scale, rel)
	}
}
