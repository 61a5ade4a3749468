// Package synth produces labelled synthetic rPPG sample streams for tests,
// simulation and demos. It is never used to fill in for a failed estimate.
package synth

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/signal"
	"github.com/cwbudde/algo-rppg/rppg/frame"
)

// Config describes a synthetic face-region colour stream.
type Config struct {
	BPM        float64
	SampleRate float64
	// Amplitude is the green-channel pulse swing in 8-bit intensity units.
	Amplitude float64
	// Noise is the peak white-noise amplitude added to every channel.
	Noise float64
	// Drift is a slow illumination ramp in intensity units per second.
	Drift float64
	// Base is the mean skin colour.
	Base frame.Sample
	// InvalidEvery injects an invalid sample every n frames when > 0.
	InvalidEvery int
	Seed         int64
}

// Option mutates a Config.
type Option func(*Config)

// DefaultConfig returns a 72 BPM stream at 30 fps over a typical skin tone.
func DefaultConfig() Config {
	return Config{
		BPM:        72,
		SampleRate: core.DefaultSampleRate,
		Amplitude:  2,
		Noise:      0.1,
		Base:       frame.Sample{R: 182, G: 128, B: 104},
		Seed:       1,
	}
}

// WithBPM sets the pulse rate.
func WithBPM(bpm float64) Option {
	return func(c *Config) { c.BPM = bpm }
}

// WithSampleRate sets the frame rate.
func WithSampleRate(fps float64) Option {
	return func(c *Config) { c.SampleRate = fps }
}

// WithAmplitude sets the green-channel pulse swing.
func WithAmplitude(a float64) Option {
	return func(c *Config) { c.Amplitude = a }
}

// WithNoise sets the per-channel white-noise amplitude.
func WithNoise(n float64) Option {
	return func(c *Config) { c.Noise = n }
}

// WithDrift sets the illumination ramp in units per second.
func WithDrift(perSecond float64) Option {
	return func(c *Config) { c.Drift = perSecond }
}

// WithBase sets the mean skin colour.
func WithBase(s frame.Sample) Option {
	return func(c *Config) { c.Base = s }
}

// WithInvalidEvery injects a NaN sample every n frames.
func WithInvalidEvery(n int) Option {
	return func(c *Config) { c.InvalidEvery = n }
}

// WithSeed sets the noise seed.
func WithSeed(seed int64) Option {
	return func(c *Config) { c.Seed = seed }
}

// Samples renders n frames. Channel values are clamped to [0, 255] so that
// only injected samples fail validation.
func Samples(n int, opts ...Option) ([]frame.Sample, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if err := cfg.Base.Validate(); err != nil {
		return nil, fmt.Errorf("synth base colour: %w", err)
	}

	gen := signal.NewGenerator(
		[]core.ProcessorOption{core.WithSampleRate(cfg.SampleRate)},
		signal.WithSeed(cfg.Seed),
	)
	pulse, err := gen.Pulse(cfg.BPM, cfg.Amplitude, n)
	if err != nil {
		return nil, err
	}
	drift, err := gen.Drift(cfg.Drift, n)
	if err != nil {
		return nil, err
	}
	noise := make([][]float64, 3)
	for ch := range noise {
		g := signal.NewGenerator(
			[]core.ProcessorOption{core.WithSampleRate(cfg.SampleRate)},
			signal.WithSeed(cfg.Seed+int64(ch)),
		)
		if noise[ch], err = g.WhiteNoise(cfg.Noise, n); err != nil {
			return nil, err
		}
	}

	out := make([]frame.Sample, n)
	for i := range out {
		if cfg.InvalidEvery > 0 && (i+1)%cfg.InvalidEvery == 0 {
			out[i] = frame.Sample{R: cfg.Base.R, G: math.NaN(), B: cfg.Base.B}
			continue
		}
		// Red and blue carry a much weaker pulse than green.
		out[i] = frame.Sample{
			R: core.Clamp(cfg.Base.R+0.3*pulse[i]+drift[i]+noise[0][i], frame.MinChannel, frame.MaxChannel),
			G: core.Clamp(cfg.Base.G+pulse[i]+drift[i]+noise[1][i], frame.MinChannel, frame.MaxChannel),
			B: core.Clamp(cfg.Base.B+0.15*pulse[i]+drift[i]+noise[2][i], frame.MinChannel, frame.MaxChannel),
		}
	}
	return out, nil
}
