package processor

import "time"

// Observer receives pipeline events for instrumentation. Implementations
// must be safe for concurrent use and must not block.
type Observer interface {
	// FrameRejected is called for every sample that fails validation.
	FrameRejected()
	// ComputationStarted is called when a computation is dispatched.
	ComputationStarted()
	// ComputationFinished is called with the outcome of a current-generation
	// computation. err is nil on success.
	ComputationFinished(bpm int, err error, elapsed time.Duration)
	// ResultDiscarded is called when a computation completes after Reset.
	ResultDiscarded()
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) FrameRejected()                               {}
func (NopObserver) ComputationStarted()                          {}
func (NopObserver) ComputationFinished(int, error, time.Duration) {}
func (NopObserver) ResultDiscarded()                             {}
