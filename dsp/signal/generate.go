// Package signal synthesises deterministic test waveforms for pulse
// processing: sinusoids, PPG-like pulse trains, illumination drift and noise.
package signal

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

// dicroticRatio is the amplitude of the second harmonic relative to the
// fundamental in a PPG-like pulse.
const dicroticRatio = 0.35

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed int64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets deterministic random seed for noise generation.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a configured signal generator.
func NewGenerator(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// Seed returns the noise seed.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Sine generates amplitude*sin(2*pi*f*i/fs).
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("sine samples must be > 0: %d", samples)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// Pulse generates a PPG-like waveform at bpm: a fundamental plus a weaker
// second harmonic, scaled so the peak-to-peak swing is about 2*amplitude.
func (g *Generator) Pulse(bpm, amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("pulse samples must be > 0: %d", samples)
	}
	if !core.IsFinite(bpm) || bpm <= 0 {
		return nil, fmt.Errorf("pulse bpm must be > 0: %f", bpm)
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * bpm / 60 / g.cfg.SampleRate
	for i := range out {
		ph := step * float64(i)
		out[i] = amplitude * (math.Sin(ph) + dicroticRatio*math.Sin(2*ph+math.Pi/4)) / (1 + dicroticRatio)
	}
	return out, nil
}

// Drift generates a linear ramp of slope units per second starting at zero.
func (g *Generator) Drift(slopePerSecond float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("drift samples must be > 0: %d", samples)
	}
	out := make([]float64, samples)
	step := slopePerSecond / g.cfg.SampleRate
	for i := range out {
		out[i] = step * float64(i)
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if samples <= 0 {
		return nil, fmt.Errorf("noise samples must be > 0: %d", samples)
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewSource(g.seed))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// Normalize scales data to target peak amplitude and returns a new slice.
func Normalize(data []float64, targetPeak float64) ([]float64, error) {
	if targetPeak < 0 {
		return nil, fmt.Errorf("normalize target peak must be >= 0: %f", targetPeak)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("normalize input must not be empty")
	}

	maxAbs := 0.0
	for _, v := range data {
		maxAbs = max(maxAbs, math.Abs(v))
	}

	out := make([]float64, len(data))
	if maxAbs == 0 || targetPeak == 0 {
		return out, nil
	}

	scale := targetPeak / maxAbs
	for i, v := range data {
		out[i] = v * scale
	}
	return out, nil
}
