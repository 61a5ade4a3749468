// Package condition prepares a raw green-channel rPPG window for peak
// detection: [Normalize] to zero mean and unit variance, optional [Detrend]
// against slow illumination drift, and [Bandpass] smoothing with a fixed
// 5-tap kernel that emphasises the 0.75–4 Hz (45–240 BPM) band at 30 fps.
//
// Bandpass is a coarse low-pass emphasis, not a designed Butterworth filter.
// The taps are part of the estimator's observable behaviour.
package condition
