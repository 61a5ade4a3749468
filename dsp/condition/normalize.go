package condition

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/algo-rppg/dsp/core"
)

// flatTolerance absorbs the rounding residue a constant window leaves in the
// computed standard deviation.
const flatTolerance = 1e-12

// Normalize returns (x - mean) / std using population statistics.
// Flat or empty input fails with ErrConstantSignal; the result never holds NaN or Inf.
func Normalize(signal []float64) ([]float64, error) {
	if len(signal) == 0 {
		return nil, ErrConstantSignal
	}
	mean, std := stat.PopMeanStdDev(signal, nil)
	if !core.IsFinite(mean) || !core.IsFinite(std) || std <= flatTolerance*math.Max(1, math.Abs(mean)) {
		return nil, ErrConstantSignal
	}

	out := core.Clone(signal)
	floats.AddConst(-mean, out)
	floats.Scale(1/std, out)
	return out, nil
}
