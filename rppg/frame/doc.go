// Package frame defines the per-frame colour sample produced by the capture
// stage and the validated rolling buffer that feeds the rPPG pipeline.
//
// A [Sample] is the average red, green and blue intensity over the detected
// skin region of one video frame. [Buffer] accepts only valid samples and keeps
// the most recent ones in arrival order.
package frame
