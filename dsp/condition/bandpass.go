package condition

import (
	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/filter/fir"
)

// DefaultMinimumLength is the shortest window Bandpass accepts.
const DefaultMinimumLength = 100

// Canonical heart-rate band in Hz (45–240 BPM).
const (
	DefaultLowHz  = 0.75
	DefaultHighHz = 4.0
)

var kernel = []float64{0.25, 0.5, 1.0, 0.5, 0.25}

// Kernel returns a copy of the smoothing taps applied by Bandpass.
func Kernel() []float64 {
	k := make([]float64, len(kernel))
	copy(k, kernel)
	return k
}

// BandpassOption configures Bandpass.
type BandpassOption func(*bandpassConfig)

type bandpassConfig struct {
	minLength int
}

// WithMinimumLength sets the shortest accepted signal length.
func WithMinimumLength(n int) BandpassOption {
	return func(c *bandpassConfig) {
		if n > 0 {
			c.minLength = n
		}
	}
}

// Bandpass smooths signal with the fixed kernel centred on indices 2..n-3;
// the two samples at each end pass through unmodified. lowHz, highHz and fps
// describe the intended band and are validated, but the taps are fixed.
// Signals shorter than the minimum length fail with ErrSignalTooShort.
func Bandpass(signal []float64, lowHz, highHz, fps float64, opts ...BandpassOption) ([]float64, error) {
	cfg := bandpassConfig{minLength: DefaultMinimumLength}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if len(signal) < cfg.minLength {
		return nil, ErrSignalTooShort
	}
	if !core.IsFinite(fps) || fps <= 0 {
		return nil, errInvalidRate
	}
	if !core.IsFinite(lowHz) || !core.IsFinite(highHz) || lowHz <= 0 || highHz <= lowHz {
		return nil, errInvalidBand
	}
	return fir.ApplyCentered(kernel, signal)
}
