package condition

import "github.com/cwbudde/algo-rppg/dsp/core"

// DefaultDetrendWindow is the moving-average length used when none is given.
const DefaultDetrendWindow = 15

// Detrend subtracts a centred moving average of the given window length.
// Near either end the averaging window shrinks symmetrically so that it stays
// centred on the sample instead of padding. Signals shorter than the window
// are returned as an unmodified copy. A non-positive window selects
// DefaultDetrendWindow.
func Detrend(signal []float64, window int) []float64 {
	if window <= 0 {
		window = DefaultDetrendWindow
	}
	n := len(signal)
	out := core.Clone(signal)
	if n < window {
		return out
	}

	// prefix[i] = sum(signal[:i])
	prefix := make([]float64, n+1)
	for i, v := range signal {
		prefix[i+1] = prefix[i] + v
	}

	half := window / 2
	for i := range signal {
		h := min(half, i, n-1-i)
		lo, hi := i-h, i+h+1
		trend := (prefix[hi] - prefix[lo]) / float64(hi-lo)
		out[i] = signal[i] - trend
	}
	return out
}
