package fir

import (
	"errors"
	"math"
	"math/cmplx"
)

var errEvenKernel = errors.New("centered kernel must have an odd, non-zero length")

// Filter implements a direct-form FIR filter using a circular-buffer delay line.
type Filter struct {
	coeffs []float64
	delay  []float64
	pos    int
}

// New creates a FIR filter from the given coefficient slice.
// The coefficients are copied. The filter order is len(coeffs)-1.
func New(coeffs []float64) *Filter {
	c := make([]float64, len(coeffs))
	copy(c, coeffs)
	return &Filter{
		coeffs: c,
		delay:  make([]float64, len(coeffs)),
	}
}

// ProcessSample filters one input sample.
//
//	y[n] = sum_{k=0}^{N-1} h[k] * x[n-k]
func (f *Filter) ProcessSample(x float64) float64 {
	n := len(f.coeffs)
	if n == 0 {
		return 0
	}
	f.delay[f.pos] = x
	var y float64
	p := f.pos
	for k := range n {
		y += f.coeffs[k] * f.delay[p]
		p--
		if p < 0 {
			p = n - 1
		}
	}
	f.pos++
	if f.pos >= n {
		f.pos = 0
	}
	return y
}

// ProcessBlock filters a block of samples in-place.
func (f *Filter) ProcessBlock(buf []float64) {
	for i, x := range buf {
		buf[i] = f.ProcessSample(x)
	}
}

// Reset clears the delay line to zero.
func (f *Filter) Reset() {
	for i := range f.delay {
		f.delay[i] = 0
	}
	f.pos = 0
}

// Order returns the filter order (len(coeffs) - 1).
func (f *Filter) Order() int {
	return len(f.coeffs) - 1
}

// Coefficients returns a copy of the filter coefficients.
func (f *Filter) Coefficients() []float64 {
	c := make([]float64, len(f.coeffs))
	copy(c, f.coeffs)
	return c
}

// Response computes the complex frequency response H(e^{jw}) at the given
// frequency (Hz) and sample rate (Hz).
func (f *Filter) Response(freqHz, sampleRate float64) complex128 {
	w := 2 * math.Pi * freqHz / sampleRate
	var h complex128
	for k, c := range f.coeffs {
		h += complex(c, 0) * cmplx.Exp(complex(0, -w*float64(k)))
	}
	return h
}

// Gain returns the magnitude of the frequency response. For a centered
// symmetric kernel the phase term is pure delay, so this is also the gain of
// [ApplyCentered].
func (f *Filter) Gain(freqHz, sampleRate float64) float64 {
	return cmplx.Abs(f.Response(freqHz, sampleRate))
}

// MagnitudeDB returns the magnitude response in dB at the given frequency.
func (f *Filter) MagnitudeDB(freqHz, sampleRate float64) float64 {
	return 20 * math.Log10(f.Gain(freqHz, sampleRate))
}

// ApplyCentered convolves src with an odd-length kernel centred on each
// sample, returning a new slice. With h = len(coeffs)/2, indices h through
// len(src)-1-h receive
//
//	y[i] = sum_{k=0}^{N-1} coeffs[k] * src[i+h-k]
//
// and the h samples at each boundary are copied through unmodified. Inputs
// shorter than the kernel are returned as an unmodified copy.
func ApplyCentered(coeffs, src []float64) ([]float64, error) {
	return New(coeffs).Centered(src)
}

// Centered runs the filter over src from a cleared delay line and shifts the
// output back by Order()/2 samples, the group delay of a symmetric kernel.
// See [ApplyCentered] for the boundary rule. The filter state is left as it
// was after the last sample of src.
func (f *Filter) Centered(src []float64) ([]float64, error) {
	order := f.Order()
	if order < 0 || order%2 != 0 {
		return nil, errEvenKernel
	}
	out := make([]float64, len(src))
	copy(out, src)
	if len(src) <= order {
		return out, nil
	}

	half := order / 2
	y := make([]float64, len(src))
	copy(y, src)
	f.Reset()
	f.ProcessBlock(y)
	copy(out[half:len(src)-half], y[order:])
	return out, nil
}
