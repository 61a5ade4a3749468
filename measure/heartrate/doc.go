// Package heartrate converts detected pulse peaks into a heart rate in BPM.
//
// [Estimator.Estimate] measures consecutive peak-to-peak intervals, rejects
// outliers with an IQR fence, and maps the mean surviving interval to
// 60*fps/mean rounded to the nearest integer. Results outside the
// physiological range are reported as errors, never clamped.
//
// [Spectral] is an independent cross-check that reads the dominant in-band
// frequency from a windowed FFT. It is diagnostic only.
package heartrate
