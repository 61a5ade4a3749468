// Package processor orchestrates the rPPG pipeline for one monitoring session.
//
// [Processor.ProcessFrame] validates and buffers a sample in O(1) and never
// waits on computation. When the buffer is ready, no computation is in
// flight, and the processing interval has elapsed since the last completed
// one, the processor snapshots the green channel and hands the heavy work
// (normalize, optional detrend, smoothing, peak detection, rate estimation)
// to its dispatcher.
//
// A successful run invokes the heart-rate callback exactly once and evicts
// the oldest half of the buffer. A failed run is logged with its kind and
// produces no callback. [Processor.Reset] increments a generation counter;
// a computation that completes under an older generation is discarded.
package processor
