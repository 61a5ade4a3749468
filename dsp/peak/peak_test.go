package peak

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cwbudde/algo-rppg/internal/testutil"
)

func TestFindSinusoidSpacing(t *testing.T) {
	tests := []struct {
		freq   float64
		period int
	}{
		{freq: 1.25, period: 24},
		{freq: 1.2, period: 25},
		{freq: 1.5, period: 20},
		{freq: 2.0, period: 15},
	}
	for _, tt := range tests {
		sig := testutil.DeterministicSine(tt.freq, 30, 1, 150)
		peaks := Find(sig)
		if len(peaks) < 3 {
			t.Fatalf("f=%v: got %d peaks, want >= 3", tt.freq, len(peaks))
		}
		for i := 1; i < len(peaks); i++ {
			if d := peaks[i] - peaks[i-1]; d != tt.period {
				t.Fatalf("f=%v: spacing %d at %d, want %d (peaks %v)", tt.freq, d, i, tt.period, peaks)
			}
		}
	}
}

func TestFindKnownPositions(t *testing.T) {
	sig := testutil.DeterministicSine(1.2, 30, 1, 100)
	want := []int{6, 31, 56, 81}
	if diff := cmp.Diff(want, Find(sig)); diff != "" {
		t.Fatalf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFindMinDistanceGreedy(t *testing.T) {
	sig := make([]float64, 40)
	sig[5] = 2
	sig[10] = 2.5 // taller, but inside the spacing window of index 5
	sig[25] = 2
	got := Find(sig)
	if diff := cmp.Diff([]int{5, 25}, got); diff != "" {
		t.Fatalf("greedy spacing mismatch (-want +got):\n%s", diff)
	}

	got = Find(sig, WithMinDistance(3))
	if diff := cmp.Diff([]int{5, 10, 25}, got); diff != "" {
		t.Fatalf("reduced spacing mismatch (-want +got):\n%s", diff)
	}
}

func TestFindThreshold(t *testing.T) {
	sig := make([]float64, 60)
	sig[10] = 1
	sig[30] = 0.5
	sig[50] = -1
	if diff := cmp.Diff([]int{10}, Find(sig)); diff != "" {
		t.Fatalf("default threshold mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{10, 30}, Find(sig, WithThresholdRatio(0.4))); diff != "" {
		t.Fatalf("lowered threshold mismatch (-want +got):\n%s", diff)
	}
}

func TestFindNegativeDominatedThreshold(t *testing.T) {
	// max |x| comes from the trough, so the 0.6 positive bump stays below 0.6*1.5.
	sig := make([]float64, 30)
	sig[10] = 0.6
	sig[20] = -1.5
	if got := Find(sig); len(got) != 0 {
		t.Fatalf("Find = %v, want none", got)
	}
}

func TestFindEdgesAndPlateaus(t *testing.T) {
	tests := []struct {
		name string
		sig  []float64
	}{
		{name: "empty", sig: nil},
		{name: "two samples", sig: []float64{0, 1}},
		{name: "edge maxima", sig: []float64{5, 0, 0, 0, 5}},
		{name: "plateau", sig: []float64{0, 1, 1, 0, 0}},
		{name: "flat", sig: []float64{0, 0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Find(tt.sig); len(got) != 0 {
				t.Fatalf("Find = %v, want none", got)
			}
		})
	}
}

func TestThreshold(t *testing.T) {
	if got := Threshold([]float64{-2, 1}, 0.5); got != 1 {
		t.Fatalf("Threshold = %v, want 1", got)
	}
	if got := Threshold(nil, 0.6); got != 0 {
		t.Fatalf("Threshold(nil) = %v, want 0", got)
	}
}

func BenchmarkFind(b *testing.B) {
	sig := testutil.DeterministicSine(1.2, 30, 1, 256)
	b.ReportAllocs()
	for b.Loop() {
		_ = Find(sig)
	}
}
