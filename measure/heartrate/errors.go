package heartrate

import "errors"

var (
	// ErrInsufficientPeaks is returned when fewer than two peaks were detected.
	ErrInsufficientPeaks = errors.New("heartrate: insufficient peaks")
	// ErrInsufficientValidIntervals is returned when fewer than two intervals survive outlier rejection.
	ErrInsufficientValidIntervals = errors.New("heartrate: insufficient valid intervals")
	// ErrOutOfPhysiologicalRange is returned when the rounded rate falls outside [MinBPM, MaxBPM].
	ErrOutOfPhysiologicalRange = errors.New("heartrate: out of physiological range")
)
