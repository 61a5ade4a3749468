package heartrate

import (
	"fmt"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

// Physiological bounds in beats per minute.
const (
	DefaultMinBPM = 40
	DefaultMaxBPM = 220
)

// Config holds estimator parameters.
type Config struct {
	// SampleRate is the assumed frame rate of the peak indices.
	SampleRate float64
	MinBPM     int
	MaxBPM     int
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns defaults for a 30 fps stream.
func DefaultConfig() Config {
	return Config{
		SampleRate: core.DefaultSampleRate,
		MinBPM:     DefaultMinBPM,
		MaxBPM:     DefaultMaxBPM,
	}
}

// WithSampleRate sets the frame rate used to convert intervals to BPM.
func WithSampleRate(fps float64) Option {
	return func(c *Config) {
		c.SampleRate = fps
	}
}

// WithRange sets the accepted BPM range.
func WithRange(minBPM, maxBPM int) Option {
	return func(c *Config) {
		c.MinBPM = minBPM
		c.MaxBPM = maxBPM
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

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	if !core.IsFinite(c.SampleRate) || c.SampleRate <= 0 {
		return fmt.Errorf("heartrate sample rate must be > 0: %f", c.SampleRate)
	}
	if c.MinBPM <= 0 {
		return fmt.Errorf("heartrate min BPM must be > 0: %d", c.MinBPM)
	}
	if c.MaxBPM < c.MinBPM {
		return fmt.Errorf("heartrate max BPM must be >= min BPM: %d < %d", c.MaxBPM, c.MinBPM)
	}
	return nil
}
