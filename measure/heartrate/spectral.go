package heartrate

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-rppg/dsp/spectrum"
	"github.com/cwbudde/algo-rppg/dsp/window"
)

// spectralFFTSize gives roughly 1.8 BPM bin spacing at 30 fps before interpolation.
const spectralFFTSize = 1024

// SpectralResult describes the dominant in-band component of a window.
type SpectralResult struct {
	BPM         int
	FrequencyHz float64
	// Confidence is the dominant bin's share of total in-band power, in [0, 1].
	Confidence float64
}

// Spectral estimates the heart rate from the strongest Hann-windowed FFT bin
// in [lowHz, highHz].
func Spectral(signal []float64, fps, lowHz, highHz float64) (SpectralResult, error) {
	if !(lowHz > 0 && highHz > lowHz) {
		return SpectralResult{}, fmt.Errorf("heartrate spectral band must satisfy 0 < low < high: %f, %f", lowHz, highHz)
	}
	p, err := spectrum.Compute(signal, fps, spectralFFTSize, window.TypeHann)
	if err != nil {
		return SpectralResult{}, err
	}
	bin, freq, err := p.Dominant(lowHz, highHz)
	if err != nil {
		return SpectralResult{}, err
	}

	binHz := p.BinHz()
	lo := max(int(math.Ceil(lowHz/binHz)), 1)
	hi := min(int(math.Floor(highHz/binHz)), len(p.Power)-1)
	total := 0.0
	for k := lo; k <= hi; k++ {
		total += p.Power[k]
	}
	conf := 0.0
	if total > 0 {
		conf = p.Power[bin] / total
	}

	return SpectralResult{
		BPM:         int(math.Round(freq * 60)),
		FrequencyHz: freq,
		Confidence:  conf,
	}, nil
}
