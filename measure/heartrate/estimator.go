package heartrate

import (
	"fmt"
	"math"
	"slices"
)

// iqrFence is the Tukey fence multiplier applied to the interquartile range.
const iqrFence = 1.5

// Estimator maps peak positions to a heart rate.
type Estimator struct {
	cfg Config
}

// NewEstimator validates the configuration and returns an Estimator.
func NewEstimator(opts ...Option) (*Estimator, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Estimator{cfg: cfg}, nil
}

// Config returns the estimator configuration.
func (e *Estimator) Config() Config {
	return e.cfg
}

// Estimate returns the rounded BPM implied by peaks, which must be strictly
// increasing sample indices.
func (e *Estimator) Estimate(peaks []int) (int, error) {
	if len(peaks) < 2 {
		return 0, ErrInsufficientPeaks
	}
	valid := RejectOutliers(Intervals(peaks))
	if len(valid) < 2 {
		return 0, ErrInsufficientValidIntervals
	}

	sum := 0
	for _, v := range valid {
		sum += v
	}
	mean := float64(sum) / float64(len(valid))
	bpm := int(math.Round(60 * e.cfg.SampleRate / mean))
	if bpm < e.cfg.MinBPM || bpm > e.cfg.MaxBPM {
		return 0, fmt.Errorf("%w: %d BPM", ErrOutOfPhysiologicalRange, bpm)
	}
	return bpm, nil
}

// Intervals returns the differences between consecutive peak indices.
func Intervals(peaks []int) []int {
	if len(peaks) < 2 {
		return nil
	}
	out := make([]int, len(peaks)-1)
	for i := range out {
		out[i] = peaks[i+1] - peaks[i]
	}
	return out
}

// RejectOutliers keeps intervals inside [Q1 - 1.5*IQR, Q3 + 1.5*IQR], where
// Q1 and Q3 are the sorted values at floor(n/4) and floor(3n/4). The
// surviving intervals keep their original order.
func RejectOutliers(intervals []int) []int {
	if len(intervals) == 0 {
		return nil
	}
	sorted := slices.Clone(intervals)
	slices.Sort(sorted)
	n := len(sorted)
	q1 := float64(sorted[int(math.Floor(float64(n)*0.25))])
	q3 := float64(sorted[int(math.Floor(float64(n)*0.75))])
	iqr := q3 - q1
	lo, hi := q1-iqrFence*iqr, q3+iqrFence*iqr

	out := make([]int, 0, n)
	for _, v := range intervals {
		if x := float64(v); x >= lo && x <= hi {
			out = append(out, v)
		}
	}
	return out
}
