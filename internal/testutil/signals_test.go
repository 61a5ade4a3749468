package testutil

import (
	"math"
	"testing"
)

func TestDeterministicSine(t *testing.T) {
	s := DeterministicSine(1.2, 30, 2.0, 30)
	if len(s) != 30 {
		t.Fatalf("len = %d, want 30", len(s))
	}
	if math.Abs(s[0]) > 1e-15 {
		t.Fatalf("s[0] = %v, want 0", s[0])
	}
	for i, v := range s {
		if v < -2 || v > 2 {
			t.Fatalf("s[%d] = %v out of range", i, v)
		}
	}
}

func TestDeterministicNoiseReproducible(t *testing.T) {
	a := DeterministicNoise(42, 0.1, 64)
	b := DeterministicNoise(42, 0.1, 64)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("noise not deterministic at index %d", i)
		}
		if math.Abs(a[i]) > 0.1 {
			t.Fatalf("noise[%d] = %v exceeds amplitude", i, a[i])
		}
	}
}

func TestSum(t *testing.T) {
	got := Sum(DC(1, 3), []float64{1, 2})
	want := []float64{2, 3, 1}
	RequireSliceNearlyEqual(t, got, want, 0)
	if Sum() != nil {
		t.Fatal("Sum() should be nil")
	}
}
