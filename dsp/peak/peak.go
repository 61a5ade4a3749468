package peak

import (
	"gonum.org/v1/gonum/floats"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

// Defaults tuned for a 30 fps pulse window. A spacing of 15 samples caps
// detectable rates at 120 BPM.
const (
	DefaultMinDistance    = 15
	DefaultThresholdRatio = 0.6
)

// Config holds peak detection parameters.
type Config struct {
	MinDistance    int
	ThresholdRatio float64
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns the detection defaults.
func DefaultConfig() Config {
	return Config{
		MinDistance:    DefaultMinDistance,
		ThresholdRatio: DefaultThresholdRatio,
	}
}

// WithMinDistance sets the minimum index spacing between accepted peaks.
func WithMinDistance(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MinDistance = n
		}
	}
}

// WithThresholdRatio sets the threshold as a fraction of max |x|.
func WithThresholdRatio(r float64) Option {
	return func(c *Config) {
		if core.IsFinite(r) && r >= 0 {
			c.ThresholdRatio = r
		}
	}
}

// ApplyOptions applies opts to the default config.
func ApplyOptions(opts ...Option) Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// Threshold returns ratio * max |x| for signal, or 0 for an empty signal.
func Threshold(signal []float64, ratio float64) float64 {
	if len(signal) == 0 {
		return 0
	}
	return ratio * max(floats.Max(signal), -floats.Min(signal))
}

// Find returns the strictly increasing indices of accepted peaks.
//
// A candidate index i in [1, n-2] must satisfy x[i] > threshold and
// x[i-1] < x[i] > x[i+1]. Plateaus yield no peak. A candidate closer than
// MinDistance to the previously accepted peak is discarded, never swapped in.
func Find(signal []float64, opts ...Option) []int {
	cfg := ApplyOptions(opts...)
	n := len(signal)
	if n < 3 {
		return nil
	}

	threshold := Threshold(signal, cfg.ThresholdRatio)
	var peaks []int
	last := -cfg.MinDistance
	for i := 1; i < n-1; i++ {
		x := signal[i]
		if x <= threshold || x <= signal[i-1] || x <= signal[i+1] {
			continue
		}
		if len(peaks) > 0 && i-last < cfg.MinDistance {
			continue
		}
		peaks = append(peaks, i)
		last = i
	}
	return peaks
}
