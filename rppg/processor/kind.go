package processor

import (
	"errors"

	"github.com/cwbudde/algo-rppg/dsp/condition"
	"github.com/cwbudde/algo-rppg/measure/heartrate"
	"github.com/cwbudde/algo-rppg/rppg/frame"
)

// Failure kinds reported in logs and metrics.
const (
	KindInvalidFrame               = "InvalidFrame"
	KindSignalTooShort             = "SignalTooShort"
	KindConstantSignal             = "ConstantSignal"
	KindInsufficientPeaks          = "InsufficientPeaks"
	KindInsufficientValidIntervals = "InsufficientValidIntervals"
	KindOutOfPhysiologicalRange    = "OutOfPhysiologicalRange"
	KindUnknown                    = "Unknown"
)

var kinds = []struct {
	err  error
	kind string
}{
	{frame.ErrInvalidFrame, KindInvalidFrame},
	{condition.ErrSignalTooShort, KindSignalTooShort},
	{condition.ErrConstantSignal, KindConstantSignal},
	{heartrate.ErrInsufficientPeaks, KindInsufficientPeaks},
	{heartrate.ErrInsufficientValidIntervals, KindInsufficientValidIntervals},
	{heartrate.ErrOutOfPhysiologicalRange, KindOutOfPhysiologicalRange},
}

// Kind classifies a pipeline error. nil yields "".
func Kind(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
