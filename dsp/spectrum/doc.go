// Package spectrum computes windowed power spectra of short pulse windows.
//
// The FFT itself comes from algo-fft; this package handles windowing,
// zero-padding, and bin bookkeeping, and locates the dominant bin inside a
// frequency band.
package spectrum
