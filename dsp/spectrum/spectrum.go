package spectrum

import (
	"errors"
	"fmt"
	"math"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-rppg/dsp/core"
	"github.com/cwbudde/algo-rppg/dsp/window"
)

// ErrEmptyBand is returned when no bins fall inside the requested band.
var ErrEmptyBand = errors.New("spectrum: no bins inside band")

// scratchBuf holds pooled scratch memory for complex-to-real unpacking.
type scratchBuf struct {
	data []float64
}

var scratchPool = sync.Pool{
	New: func() any { return &scratchBuf{} },
}

func getScratch(n int) (re, im []float64, buf *scratchBuf) {
	buf = scratchPool.Get().(*scratchBuf)
	need := 2 * n
	if cap(buf.data) < need {
		buf.data = make([]float64, need)
	} else {
		buf.data = buf.data[:need]
	}
	return buf.data[:n], buf.data[n:need], buf
}

// Power returns |X[k]|^2 for each complex spectrum bin.
func Power(in []complex128) []float64 {
	if len(in) == 0 {
		return nil
	}
	out := make([]float64, len(in))
	re, im, buf := getScratch(len(in))
	for i, c := range in {
		re[i] = real(c)
		im[i] = imag(c)
	}
	vecmath.Power(out, re, im)
	scratchPool.Put(buf)
	return out
}

// NextPow2 returns the smallest power of two >= n (1 for n <= 1).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Periodogram is a one-sided power spectrum.
type Periodogram struct {
	// Power holds bins 0..FFTSize/2.
	Power      []float64
	FFTSize    int
	SampleRate float64
}

// BinHz returns the frequency spacing between bins.
func (p Periodogram) BinHz() float64 {
	return p.SampleRate / float64(p.FFTSize)
}

// Frequency returns the centre frequency of bin k.
func (p Periodogram) Frequency(k int) float64 {
	return float64(k) * p.BinHz()
}

// Compute windows signal, zero-pads it to fftSize (rounded up to a power of
// two and never shorter than the signal) and returns the one-sided power.
func Compute(signal []float64, sampleRate float64, fftSize int, winType window.Type) (Periodogram, error) {
	if len(signal) == 0 {
		return Periodogram{}, fmt.Errorf("spectrum signal must not be empty")
	}
	if !core.IsFinite(sampleRate) || sampleRate <= 0 {
		return Periodogram{}, fmt.Errorf("spectrum sample rate must be > 0: %f", sampleRate)
	}
	size := NextPow2(max(fftSize, len(signal)))

	coeffs := window.Generate(winType, len(signal))
	in := make([]complex128, size)
	for i, v := range signal {
		in[i] = complex(v*coeffs[i], 0)
	}

	plan, err := algofft.NewPlan64(size)
	if err != nil {
		return Periodogram{}, fmt.Errorf("spectrum plan: %w", err)
	}
	out := make([]complex128, size)
	if err := plan.Forward(out, in); err != nil {
		return Periodogram{}, fmt.Errorf("spectrum forward: %w", err)
	}

	return Periodogram{
		Power:      Power(out[:size/2+1]),
		FFTSize:    size,
		SampleRate: sampleRate,
	}, nil
}

// Dominant returns the strongest bin whose frequency lies in [lowHz, highHz]
// and a parabolic-interpolated frequency estimate around it.
func (p Periodogram) Dominant(lowHz, highHz float64) (bin int, freqHz float64, err error) {
	if len(p.Power) == 0 || p.FFTSize <= 0 {
		return 0, 0, ErrEmptyBand
	}
	binHz := p.BinHz()
	lo := max(int(math.Ceil(lowHz/binHz)), 1)
	hi := min(int(math.Floor(highHz/binHz)), len(p.Power)-1)
	if lo > hi {
		return 0, 0, ErrEmptyBand
	}

	bin = lo
	for k := lo + 1; k <= hi; k++ {
		if p.Power[k] > p.Power[bin] {
			bin = k
		}
	}
	return bin, p.interpolate(bin) * binHz, nil
}

func (p Periodogram) interpolate(k int) float64 {
	if k <= 0 || k >= len(p.Power)-1 {
		return float64(k)
	}
	a, b, c := p.Power[k-1], p.Power[k], p.Power[k+1]
	if core.NearlyEqual(a+c, 2*b, 0) {
		return float64(k)
	}
	return float64(k) + 0.5*(a-c)/(a-2*b+c)
}
