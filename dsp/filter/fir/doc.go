// Package fir provides a direct-form FIR filter runtime.
//
// A [Filter] applies a set of coefficients to an input stream using a
// circular-buffer delay line. [ApplyCentered] runs the same runtime over a
// finite block and compensates the group delay, which gives the zero-phase
// centered smoothing the conditioner uses on short rPPG windows.
//
// Coefficient design is a separate concern; the pipeline uses a fixed kernel.
package fir
