package core

import (
	"math"
	"testing"
)

func TestIsFinite(t *testing.T) {
	tests := []struct {
		name string
		x    float64
		want bool
	}{
		{name: "zero", x: 0, want: true},
		{name: "negative", x: -12.5, want: true},
		{name: "nan", x: math.NaN(), want: false},
		{name: "+inf", x: math.Inf(1), want: false},
		{name: "-inf", x: math.Inf(-1), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFinite(tt.x); got != tt.want {
				t.Fatalf("IsFinite(%v) = %v, want %v", tt.x, got, tt.want)
			}
		})
	}
}

func TestInRange(t *testing.T) {
	if !InRange(0, 0, 255) || !InRange(255, 0, 255) {
		t.Fatal("range bounds must be inclusive")
	}
	if InRange(-1, 0, 255) || InRange(300, 0, 255) {
		t.Fatal("values outside the range were accepted")
	}
	if InRange(math.NaN(), 0, 255) {
		t.Fatal("NaN was accepted")
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		min      float64
		max      float64
		expected float64
	}{
		{name: "inside", value: 72, min: 40, max: 220, expected: 72},
		{name: "below", value: 10, min: 40, max: 220, expected: 40},
		{name: "above", value: 300, min: 40, max: 220, expected: 220},
		{name: "swapped", value: 300, min: 220, max: 40, expected: 220},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Clamp(tt.value, tt.min, tt.max)
			if got != tt.expected {
				t.Fatalf("Clamp() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNearlyEqual(t *testing.T) {
	if !NearlyEqual(1.0, 1.0+1e-13, 1e-12) {
		t.Fatal("expected values to be nearly equal")
	}
	if NearlyEqual(1.0, 1.1, 1e-3) {
		t.Fatal("expected values to differ")
	}
}

func TestAllFinite(t *testing.T) {
	if !AllFinite([]float64{1, 2, 3}) {
		t.Fatal("finite slice reported non-finite")
	}
	if AllFinite([]float64{1, math.NaN()}) {
		t.Fatal("NaN not detected")
	}
	if !AllFinite(nil) {
		t.Fatal("empty slice should be finite")
	}
}
