package condition

import "errors"

var (
	// ErrConstantSignal is returned when a window has zero variance.
	ErrConstantSignal = errors.New("condition: constant signal")
	// ErrSignalTooShort is returned when a window is shorter than the filter minimum.
	ErrSignalTooShort = errors.New("condition: signal too short for filtering")

	errInvalidBand = errors.New("condition: band must satisfy 0 < low < high")
	errInvalidRate = errors.New("condition: sample rate must be finite and > 0")
)
